package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestService = (*IngestOrchestrator)(nil)

// IngestOrchestrator drives archives from discovery to cleaned-up artifacts.
// It is the only writer of study documents and manifests and the only
// deleter of extracted directories.
type IngestOrchestrator struct {
	settings   domain.Settings
	discovery  *Discovery
	identity   *Identity
	extractor  *Extractor
	classifier *Classifier
	harvester  *Harvester
	writer     driven.ArtifactWriter
	ledger     driven.IngestLedger

	now func() time.Time

	// Status tracking
	mu     sync.RWMutex
	status domain.IngestStatus
}

// NewIngestOrchestrator creates an orchestrator. The ledger is optional; when
// nil, ledger dedup finds nothing and no history is kept.
func NewIngestOrchestrator(
	settings domain.Settings,
	discovery *Discovery,
	identity *Identity,
	extractor *Extractor,
	classifier *Classifier,
	harvester *Harvester,
	writer driven.ArtifactWriter,
	ledger driven.IngestLedger,
) *IngestOrchestrator {
	return &IngestOrchestrator{
		settings:   settings,
		discovery:  discovery,
		identity:   identity,
		extractor:  extractor,
		classifier: classifier,
		harvester:  harvester,
		writer:     writer,
		ledger:     ledger,
		now:        time.Now,
	}
}

// Run ingests the archives selected by req. Configuration problems are
// returned before any work starts; every later failure is confined to its
// archive and recorded in the report.
func (o *IngestOrchestrator) Run(ctx context.Context, req domain.RunRequest) (*domain.RunReport, error) {
	if err := o.checkConfig(req); err != nil {
		return nil, err
	}

	report := &domain.RunReport{ID: uuid.NewString(), StartedAt: o.now()}
	o.setStatus(domain.IngestStatus{Running: true, RunID: report.ID})
	defer o.setStatus(domain.IngestStatus{RunID: report.ID})

	logger.Section("Run " + report.ID)

	archives, err := o.selectArchives(ctx, req, report)
	if err != nil {
		return nil, err
	}
	report.Discovered = len(archives)

	if len(archives) == 0 {
		logger.Info("No compressed files found.")
		return o.finish(ctx, report), nil
	}

	pending := o.dedup(ctx, archives, report)
	logger.Info("Found %d compressed files, %d to ingest", len(archives), len(pending))

	batches := o.batches(pending)
	for i, batch := range batches {
		o.updateStatus(func(s *domain.IngestStatus) {
			s.Batch = i + 1
			s.Batches = len(batches)
			s.Total = len(pending)
		})
		logger.Info("Processing batch %d of %d (%d archives)...", i+1, len(batches), len(batch))

		extracted := o.extractor.ExtractBatch(ctx, batch)

		ok := 0
		for _, res := range extracted {
			if res.Err == nil {
				ok++
			}
		}
		if ok == 0 {
			logger.Error("Unable to extract any archive in batch %d", i+1)
		}

		for _, res := range extracted {
			report.Add(o.ingestExtracted(ctx, res))
			o.updateStatus(func(s *domain.IngestStatus) { s.Completed++ })
		}
	}

	return o.finish(ctx, report), nil
}

// Status returns the progress of the current run.
func (o *IngestOrchestrator) Status() domain.IngestStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// checkConfig rejects runs that cannot start.
func (o *IngestOrchestrator) checkConfig(req domain.RunRequest) error {
	if err := o.settings.Validate(); err != nil {
		return err
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.From.After(req.To) {
		return fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidConfig,
			req.From.Format(domain.DateLayout), req.To.Format(domain.DateLayout))
	}
	if len(req.Archives) == 0 {
		if info, err := os.Stat(o.settings.DataDir); err != nil || !info.IsDir() {
			return fmt.Errorf("%w: data directory %s is not readable", domain.ErrInvalidConfig, o.settings.DataDir)
		}
	}
	if err := os.MkdirAll(o.settings.WorkDir, 0o755); err != nil {
		return fmt.Errorf("%w: work directory: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

// selectArchives returns the explicit archives of req, or discovers them.
// Explicit paths outside the expected layout are recorded as failed.
func (o *IngestOrchestrator) selectArchives(ctx context.Context, req domain.RunRequest, report *domain.RunReport) ([]domain.Archive, error) {
	if len(req.Archives) == 0 {
		return o.discovery.Discover(ctx, req)
	}

	archives := make([]domain.Archive, 0, len(req.Archives))
	for _, p := range req.Archives {
		a, err := domain.NewArchive(p)
		if err != nil {
			logger.Error("%v", err)
			report.Add(domain.ArchiveResult{Path: p, State: domain.StateFailed, Error: err.Error()})
			continue
		}
		archives = append(archives, a)
	}
	return archives, nil
}

// dedup checksums every archive and drops those already ingested. It runs
// synchronously before any parallel work.
func (o *IngestOrchestrator) dedup(ctx context.Context, archives []domain.Archive, report *domain.RunReport) []domain.Archive {
	pending := make([]domain.Archive, 0, len(archives))
	seen := make(map[string]bool)

	for _, a := range archives {
		if err := o.identity.Stamp(ctx, &a); err != nil {
			logger.Error("Error computing checksum for file %s. Skipping this file: %v", a.Path, err)
			report.Add(o.fail(&a, "", err))
			continue
		}

		dup, why := seen[a.ExamID], "listed twice in this run"
		if !dup {
			var err error
			dup, why, err = o.alreadyIngested(ctx, a)
			if err != nil {
				logger.Error("dedup check for %s: %v", a.Path, err)
				report.Add(o.fail(&a, "", err))
				continue
			}
		}
		seen[a.ExamID] = true

		if dup {
			logger.Warn("Exam %s is already ingested (%s). Skipping.", a.Path, why)
			_ = a.Transition(domain.StateSkipped)
			report.Add(domain.ArchiveResult{Path: a.Path, ExamID: a.ExamID, State: a.State})
			continue
		}

		_ = a.Transition(domain.StateChecksummed)
		pending = append(pending, a)
	}
	return pending
}

// alreadyIngested applies the configured dedup mode.
func (o *IngestOrchestrator) alreadyIngested(ctx context.Context, a domain.Archive) (bool, string, error) {
	switch o.settings.Dedup {
	case domain.DedupLedger:
		if o.ledger == nil {
			return false, "", nil
		}
		ok, err := o.ledger.HasExam(ctx, a.ExamID)
		return ok, "recorded in ledger", err
	case domain.DedupArtifacts:
		pattern := filepath.Join(o.extractor.Root(a), "*", "*", domain.StudyFileName(a.ExamID))
		matches, err := filepath.Glob(pattern)
		return len(matches) > 0, "study document exists", err
	default:
		return false, "", nil
	}
}

func (o *IngestOrchestrator) batches(archives []domain.Archive) [][]domain.Archive {
	size := o.settings.BatchSize
	if size <= 0 || size > len(archives) {
		size = len(archives)
	}
	var out [][]domain.Archive
	for start := 0; start < len(archives); start += size {
		end := min(start+size, len(archives))
		out = append(out, archives[start:end])
	}
	return out
}

// ingestExtracted parses one extracted archive, writes its artifacts and
// removes transient files.
func (o *IngestOrchestrator) ingestExtracted(ctx context.Context, res ExtractResult) domain.ArchiveResult {
	a := res.Archive
	o.updateStatus(func(s *domain.IngestStatus) { s.Current = a.Path })

	if res.Err != nil {
		logger.Error("Unable to extract archive %s: %v", a.Path, res.Err)
		return o.fail(&a, "", res.Err)
	}
	_ = a.Transition(domain.StateExtracted)

	result, err := o.parse(ctx, &a, res.SessionDir)
	if err != nil {
		logger.Error("Skipping DICOM parsing for %s: %v", a.Path, err)
		removeRoot(res.Root)
		return o.fail(&a, res.SessionDir, err)
	}

	if !o.settings.KeepRaw {
		logger.Info("Removing tmp files...")
		if err := cleanSession(res.SessionDir); err != nil {
			// Artifacts are complete; leftovers only cost disk.
			logger.Warn("cleaning %s: %v", res.SessionDir, err)
		} else {
			_ = a.Transition(domain.StateCleanedUp)
		}
	}
	result.State = a.State

	if o.ledger != nil {
		entry := domain.LedgerEntry{
			ExamID:            a.ExamID,
			ArchivePath:       a.Path,
			Checksum:          a.Checksum,
			ChecksumAlgorithm: o.identity.Algorithm(),
			SessionDir:        res.SessionDir,
			Scans:             result.Scans,
			ParserVersion:     o.settings.ParserVersion,
			RunID:             o.Status().RunID,
			IngestedAt:        o.now(),
		}
		if err := o.ledger.RecordExam(ctx, entry); err != nil {
			logger.Warn("recording exam %s in ledger: %v", a.ExamID, err)
		}
	}
	return result
}

// parse classifies every scan of the session and writes the study document
// and per-scan manifests. It leaves a in StateManifestsWritten.
func (o *IngestOrchestrator) parse(ctx context.Context, a *domain.Archive, sessionDir string) (domain.ArchiveResult, error) {
	result := domain.ArchiveResult{Path: a.Path, ExamID: a.ExamID, SessionDir: sessionDir}

	scans, err := listScanDirs(sessionDir)
	if err != nil {
		return result, err
	}
	if len(scans) == 0 {
		return result, fmt.Errorf("%w: no scans found in exam %s", domain.ErrStructural, a.Path)
	}

	study := &domain.StudyMetadata{
		Metadata: domain.StudyInfo{
			ExamID:            a.ExamID,
			SourcePath:        a.CanonicalPath(),
			ArchiveChecksum:   a.Checksum,
			ChecksumAlgorithm: o.identity.Algorithm(),
			ParserVersion:     o.settings.ParserVersion,
		},
		Data: []domain.ScanEntry{},
	}
	if slices.Contains(o.settings.Scanners, a.Scanner) {
		study.Metadata.Scanner = a.Scanner
	}

	base := a.BaseName(o.settings.ArchiveSuffixes)
	for _, scan := range scans {
		scanDir := filepath.Join(sessionDir, scan)
		files, err := ListScanFiles(scanDir)
		if errors.Is(err, domain.ErrEmptyScan) {
			logger.Error("Skipping scan: %v", err)
			continue
		}
		if err != nil {
			return result, err
		}

		cls := o.classifier.Classify(ctx, a.ExamID, scanDir, files)
		study.Data = append(study.Data, cls.Entry)
		if study.Metadata.Scanner == "" && cls.Header != nil {
			if station, ok := domain.LookupString(cls.Header.Dataset, domain.TagStationName, 0); ok {
				study.Metadata.Scanner, _ = o.settings.ScannerForStation(station)
			}
		}

		if cls.Echo.Flagged {
			logger.Info("Scan %s is probable multiecho (%d echoes) - collecting extra metadata for sorting",
				scan, cls.Echo.EchoCount)
			lines := o.harvester.Harvest(ctx, scanDir, files)
			path := filepath.Join(sessionDir, domain.ScanMetadataFileName(base, a.ExamID, scan))
			if err := o.writer.WriteInstanceManifest(path, lines); err != nil {
				return result, err
			}
			result.Flagged++
		}

		sums, err := o.harvester.Checksums(ctx, scanDir, files)
		if err != nil {
			return result, fmt.Errorf("could not generate checksums for scan %s: %w", scan, err)
		}
		path := filepath.Join(sessionDir, domain.ScanChecksumFileName(base, a.ExamID, scan))
		if err := o.writer.WriteChecksumManifest(path, sums); err != nil {
			return result, err
		}
		result.Scans++
	}
	_ = a.Transition(domain.StateParsed)

	if _, err := o.writer.WriteStudy(sessionDir, study); err != nil {
		return result, err
	}
	_ = a.Transition(domain.StateManifestsWritten)
	result.State = a.State
	return result, nil
}

func (o *IngestOrchestrator) fail(a *domain.Archive, sessionDir string, err error) domain.ArchiveResult {
	_ = a.Transition(domain.StateFailed)
	return domain.ArchiveResult{
		Path:       a.Path,
		ExamID:     a.ExamID,
		State:      domain.StateFailed,
		SessionDir: sessionDir,
		Error:      err.Error(),
	}
}

// finish stamps the end time, logs the summary and records the run.
func (o *IngestOrchestrator) finish(ctx context.Context, report *domain.RunReport) *domain.RunReport {
	report.EndedAt = o.now()
	logger.Info("Run %s finished in %s: %d discovered, %d ingested, %d skipped, %d failed",
		report.ID, report.Duration().Round(time.Millisecond),
		report.Discovered, report.Ingested, report.Skipped, report.Failed)

	if o.ledger != nil {
		// The caller's context may already be cancelled; the summary is still worth keeping.
		if err := o.ledger.RecordRun(context.WithoutCancel(ctx), report); err != nil {
			logger.Warn("recording run %s: %v", report.ID, err)
		}
	}
	return report
}

func (o *IngestOrchestrator) setStatus(s domain.IngestStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = s
}

func (o *IngestOrchestrator) updateStatus(fn func(*domain.IngestStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.status)
}

// listScanDirs returns the scan directory names of a session, sorted.
func listScanDirs(sessionDir string) ([]string, error) {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading session %s: %v", domain.ErrStructural, sessionDir, err)
	}
	var scans []string
	for _, e := range entries {
		if e.IsDir() {
			scans = append(scans, e.Name())
		}
	}
	sort.Strings(scans)
	return scans, nil
}

// cleanSession removes every scan directory and every non-artifact file
// below sessionDir.
func cleanSession(sessionDir string) error {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			errs = append(errs, os.RemoveAll(filepath.Join(sessionDir, e.Name())))
		}
	}

	err = filepath.WalkDir(sessionDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && !domain.IsArtifact(d.Name()) {
			return os.Remove(p)
		}
		return nil
	})
	errs = append(errs, err)
	return errors.Join(errs...)
}
