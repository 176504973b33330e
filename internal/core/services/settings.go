package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyDataDir          = "paths.data_dir"
	keyWorkDir          = "paths.work_dir"
	keyScanners         = "scanners.names"
	keyScannerAliases   = "scanners.aliases"
	keyArchiveSuffixes  = "ingest.archive_suffixes"
	keyInstanceSuffix   = "ingest.instance_suffix"
	keyBatchSize        = "ingest.batch_size"
	keyExtractWorkers   = "ingest.extract_workers"
	keyDecodeWorkers    = "ingest.decode_workers"
	keyDedup            = "ingest.dedup"
	keyKeepRaw          = "ingest.keep_raw"
	keyChecksumArchive  = "checksum.archive"
	keyChecksumManifest = "checksum.manifest"
	keyScheduleEnabled  = "schedule.enabled"
	keyScheduleInterval = "schedule.interval"
	keyScheduleLookback = "schedule.lookback_days"
)

type keyKind int

const (
	kindString keyKind = iota
	kindStrings
	kindInt
	kindBool
	kindDuration
	kindDedup
)

// settingKeys lists every recognised key and how Set parses it.
var settingKeys = map[string]keyKind{
	keyDataDir:          kindString,
	keyWorkDir:          kindString,
	keyScanners:         kindStrings,
	keyArchiveSuffixes:  kindStrings,
	keyInstanceSuffix:   kindString,
	keyBatchSize:        kindInt,
	keyExtractWorkers:   kindInt,
	keyDecodeWorkers:    kindInt,
	keyDedup:            kindDedup,
	keyKeepRaw:          kindBool,
	keyChecksumArchive:  kindString,
	keyChecksumManifest: kindString,
	keyScheduleEnabled:  kindBool,
	keyScheduleInterval: kindDuration,
	keyScheduleLookback: kindInt,
}

// SettingsService resolves domain.Settings from the config store over defaults.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current settings, falling back to defaults for unset keys.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		DataDir:           s.getString(keyDataDir, d.DataDir),
		WorkDir:           s.getString(keyWorkDir, d.WorkDir),
		Scanners:          s.getStrings(keyScanners, d.Scanners),
		ScannerAliases:    s.getAliases(d.ScannerAliases),
		ArchiveSuffixes:   s.getStrings(keyArchiveSuffixes, d.ArchiveSuffixes),
		InstanceSuffix:    s.getString(keyInstanceSuffix, d.InstanceSuffix),
		BatchSize:         s.getInt(keyBatchSize, d.BatchSize),
		ExtractWorkers:    s.getInt(keyExtractWorkers, d.ExtractWorkers),
		DecodeWorkers:     s.getInt(keyDecodeWorkers, d.DecodeWorkers),
		ChecksumAlgorithm: s.getString(keyChecksumArchive, d.ChecksumAlgorithm),
		ManifestChecksum:  s.getString(keyChecksumManifest, d.ManifestChecksum),
		Dedup:             d.Dedup,
		KeepRaw:           s.getBool(keyKeepRaw, d.KeepRaw),
		ParserVersion:     d.ParserVersion,
		Schedule: domain.ScheduleSettings{
			Enabled:      s.getBool(keyScheduleEnabled, d.Schedule.Enabled),
			Interval:     d.Schedule.Interval,
			LookbackDays: s.getInt(keyScheduleLookback, d.Schedule.LookbackDays),
		},
	}

	if v := s.configStore.GetString(keyDedup); v != "" {
		mode := domain.DedupMode(v)
		if !mode.IsValid() {
			return nil, fmt.Errorf("%w: %s = %q", domain.ErrInvalidConfig, keyDedup, v)
		}
		settings.Dedup = mode
	}
	if v := s.configStore.GetString(keyScheduleInterval); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("%w: %s = %q", domain.ErrInvalidConfig, keyScheduleInterval, v)
		}
		settings.Schedule.Interval = interval
	}

	return settings, nil
}

// Save persists settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyDataDir, settings.DataDir},
		{keyWorkDir, settings.WorkDir},
		{keyScanners, settings.Scanners},
		{keyArchiveSuffixes, settings.ArchiveSuffixes},
		{keyInstanceSuffix, settings.InstanceSuffix},
		{keyBatchSize, settings.BatchSize},
		{keyExtractWorkers, settings.ExtractWorkers},
		{keyDecodeWorkers, settings.DecodeWorkers},
		{keyDedup, settings.Dedup.String()},
		{keyKeepRaw, settings.KeepRaw},
		{keyChecksumArchive, settings.ChecksumAlgorithm},
		{keyChecksumManifest, settings.ManifestChecksum},
		{keyScheduleEnabled, settings.Schedule.Enabled},
		{keyScheduleInterval, settings.Schedule.Interval.String()},
		{keyScheduleLookback, settings.Schedule.LookbackDays},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	for scanner, names := range settings.ScannerAliases {
		if err := s.configStore.Set(keyScannerAliases+"."+scanner, names); err != nil {
			return fmt.Errorf("save aliases for %s: %w", scanner, err)
		}
	}
	return nil
}

// Set updates one setting from its string form. Alias lists are set with
// "scanners.aliases.<scanner>"; lists are comma separated.
func (s *SettingsService) Set(key, value string) error {
	if scanner, ok := strings.CutPrefix(key, keyScannerAliases+"."); ok && scanner != "" {
		return s.configStore.Set(key, splitList(value))
	}

	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindString:
		parsed = strings.TrimSpace(value)
	case kindStrings:
		parsed = splitList(value)
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case kindDuration:
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	case kindDedup:
		mode := domain.DedupMode(strings.TrimSpace(value))
		if !mode.IsValid() {
			return fmt.Errorf("%w: dedup mode must be one of %v", domain.ErrInvalidInput, domain.AllDedupModes())
		}
		parsed = mode.String()
	}
	return s.configStore.Set(key, parsed)
}

// Keys returns every recognised settings key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys)+1)
	for k := range settingKeys {
		keys = append(keys, k)
	}
	keys = append(keys, keyScannerAliases+".<scanner>")
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getAliases overlays configured alias lists on the defaults, per scanner.
func (s *SettingsService) getAliases(defaultVal map[string][]string) map[string][]string {
	aliases := make(map[string][]string, len(defaultVal))
	for k, v := range defaultVal {
		aliases[k] = v
	}
	for scanner := range s.configStore.Sub(keyScannerAliases) {
		if names := s.configStore.GetStringSlice(keyScannerAliases + "." + scanner); len(names) > 0 {
			aliases[scanner] = names
		}
	}
	return aliases
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
