package domain

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ParserVersion is recorded in every study document.
const ParserVersion = "0.2.1"

// DedupMode selects how already-ingested exams are detected.
type DedupMode string

// Available dedup modes.
const (
	// DedupOff re-ingests every archive.
	DedupOff DedupMode = "off"

	// DedupLedger skips exams recorded in the ingest ledger.
	DedupLedger DedupMode = "ledger"

	// DedupArtifacts skips exams whose study document already exists in the work directory.
	DedupArtifacts DedupMode = "artifacts"
)

// IsValid returns true if the dedup mode is recognised.
func (m DedupMode) IsValid() bool {
	switch m {
	case DedupOff, DedupLedger, DedupArtifacts:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m DedupMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m DedupMode) Description() string {
	switch m {
	case DedupOff:
		return "Off (always re-ingest)"
	case DedupLedger:
		return "Ledger (skip exams recorded as ingested)"
	case DedupArtifacts:
		return "Artifacts (skip exams with an existing study document)"
	default:
		return "Unknown"
	}
}

// AllDedupModes returns all valid dedup modes.
func AllDedupModes() []DedupMode {
	return []DedupMode{DedupOff, DedupLedger, DedupArtifacts}
}

// ScheduleSettings configures the recurring ingestion task.
type ScheduleSettings struct {
	Enabled      bool
	Interval     time.Duration
	LookbackDays int
}

// Settings is the explicit configuration handed to every pipeline component.
type Settings struct {
	// DataDir is the root of the <scanner>/<yyyy>/<mm>/<dd>/<exam>/ archive tree.
	DataDir string

	// WorkDir receives extracted archives and artifacts.
	WorkDir string

	// Scanners are the scanner directories visited by default.
	Scanners []string

	// ScannerAliases maps a canonical scanner to the station names it reports.
	ScannerAliases map[string][]string

	ArchiveSuffixes []string
	InstanceSuffix  string

	// BatchSize is the number of archives extracted together; 0 means all.
	BatchSize int

	ExtractWorkers int
	DecodeWorkers  int

	// ChecksumAlgorithm names the whole-archive digest.
	ChecksumAlgorithm string

	// ManifestChecksum names the per-file digest in checksum manifests.
	ManifestChecksum string

	Dedup DedupMode

	// KeepRaw disables deletion of scan directories after manifests are written.
	KeepRaw bool

	ParserVersion string

	Schedule ScheduleSettings
}

// DefaultScannerAliases returns the station names known for each scanner.
func DefaultScannerAliases() map[string][]string {
	return map[string][]string{
		"fmrif3ta": {"3TaFMRI", "fmrif3ta", "fmri3Ta"},
		"fmrif3tb": {"fmri3Tb", "fmrif3tb"},
		"fmrif3tc": {"fmrif3tc", "fmri3Tc", "DISCOVERY MR750"},
		"fmrif3td": {"AWP45160", "Skyra"},
		"fmrif7t":  {"FMRIFD7T", "Investigational_Device_7T", "NMRF7T"},
	}
}

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Scanners:          []string{"fmrif3ta", "fmrif3tb", "fmrif3tc", "fmrif3td", "fmrif7t"},
		ScannerAliases:    DefaultScannerAliases(),
		ArchiveSuffixes:   []string{".tgz", ".tar.gz"},
		InstanceSuffix:    ".dcm",
		BatchSize:         0,
		ExtractWorkers:    6,
		DecodeWorkers:     runtime.NumCPU(),
		ChecksumAlgorithm: "xxhash",
		ManifestChecksum:  "md5",
		Dedup:             DedupLedger,
		ParserVersion:     ParserVersion,
		Schedule: ScheduleSettings{
			Enabled:      true,
			Interval:     6 * time.Hour,
			LookbackDays: 3,
		},
	}
}

// Validate checks the settings needed before any work starts.
func (s Settings) Validate() error {
	var problems []string
	if s.DataDir == "" {
		problems = append(problems, "data directory is not set")
	}
	if s.WorkDir == "" {
		problems = append(problems, "work directory is not set")
	}
	if len(s.ArchiveSuffixes) == 0 {
		problems = append(problems, "no archive suffixes")
	}
	if s.BatchSize < 0 {
		problems = append(problems, "batch size must not be negative")
	}
	if s.ExtractWorkers < 1 {
		problems = append(problems, "extract workers must be at least 1")
	}
	if s.DecodeWorkers < 1 {
		problems = append(problems, "decode workers must be at least 1")
	}
	if !s.Dedup.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown dedup mode %q", s.Dedup))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ScannerForStation returns the canonical scanner reporting station.
func (s Settings) ScannerForStation(station string) (string, bool) {
	for scanner, names := range s.ScannerAliases {
		for _, n := range names {
			if strings.EqualFold(n, station) {
				return scanner, true
			}
		}
	}
	return "", false
}
