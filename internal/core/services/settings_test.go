package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/adapters/driven/storage/memory"
	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Scanners, settings.Scanners)
	assert.Equal(t, defaults.ArchiveSuffixes, settings.ArchiveSuffixes)
	assert.Equal(t, defaults.ExtractWorkers, settings.ExtractWorkers)
	assert.Equal(t, defaults.Dedup, settings.Dedup)
	assert.Equal(t, defaults.Schedule, settings.Schedule)
	assert.Equal(t, domain.ParserVersion, settings.ParserVersion)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("paths.data_dir", "/mnt/archive")
	_ = store.Set("paths.work_dir", "/scratch/work")
	_ = store.Set("scanners.names", []any{"fmrif3ta"})
	_ = store.Set("scanners.aliases.fmrif3ta", []string{"NEWSTATION"})
	_ = store.Set("ingest.batch_size", int64(4))
	_ = store.Set("ingest.dedup", "artifacts")
	_ = store.Set("ingest.keep_raw", true)
	_ = store.Set("schedule.interval", "30m")
	_ = store.Set("schedule.enabled", false)

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, "/mnt/archive", settings.DataDir)
	assert.Equal(t, "/scratch/work", settings.WorkDir)
	assert.Equal(t, []string{"fmrif3ta"}, settings.Scanners)
	assert.Equal(t, []string{"NEWSTATION"}, settings.ScannerAliases["fmrif3ta"])
	assert.Equal(t, domain.DefaultScannerAliases()["fmrif7t"], settings.ScannerAliases["fmrif7t"])
	assert.Equal(t, 4, settings.BatchSize)
	assert.Equal(t, domain.DedupArtifacts, settings.Dedup)
	assert.True(t, settings.KeepRaw)
	assert.Equal(t, 30*time.Minute, settings.Schedule.Interval)
	assert.False(t, settings.Schedule.Enabled)
}

func TestSettingsService_Get_InvalidStoredValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ingest.dedup", "sometimes"},
		{"schedule.interval", "soon"},
		{"schedule.interval", "-5m"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set(tt.key, tt.value)

			_, err := NewSettingsService(store).Get()
			assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
		})
	}
}

func TestSettingsService_SaveThenGet(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := service.GetDefaults()
	settings.DataDir = "/data"
	settings.WorkDir = "/work"
	settings.BatchSize = 10
	settings.Dedup = domain.DedupOff
	settings.Schedule.Interval = 90 * time.Minute
	settings.ScannerAliases["fmrif3ta"] = []string{"A", "B"}
	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "/data", got.DataDir)
	assert.Equal(t, 10, got.BatchSize)
	assert.Equal(t, domain.DedupOff, got.Dedup)
	assert.Equal(t, 90*time.Minute, got.Schedule.Interval)
	assert.Equal(t, []string{"A", "B"}, got.ScannerAliases["fmrif3ta"])
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.Set("ingest.batch_size", "8"))
	require.NoError(t, service.Set("ingest.keep_raw", "true"))
	require.NoError(t, service.Set("scanners.names", "fmrif3ta, fmrif7t ,"))
	require.NoError(t, service.Set("schedule.interval", "2h"))
	require.NoError(t, service.Set("ingest.dedup", "off"))
	require.NoError(t, service.Set("scanners.aliases.fmrif3td", "Skyra,AWP45160"))

	assert.Equal(t, 8, store.GetInt("ingest.batch_size"))
	assert.True(t, store.GetBool("ingest.keep_raw"))
	assert.Equal(t, []string{"fmrif3ta", "fmrif7t"}, store.GetStringSlice("scanners.names"))
	assert.Equal(t, "2h0m0s", store.GetString("schedule.interval"))
	assert.Equal(t, "off", store.GetString("ingest.dedup"))
	assert.Equal(t, []string{"Skyra", "AWP45160"}, store.GetStringSlice("scanners.aliases.fmrif3td"))
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not a number", "ingest.batch_size", "many"},
		{"negative", "ingest.extract_workers", "-1"},
		{"not a bool", "ingest.keep_raw", "maybe"},
		{"bad duration", "schedule.interval", "daily"},
		{"bad dedup", "ingest.dedup", "always"},
		{"empty alias scanner", "scanners.aliases.", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			err := NewSettingsService(store).Set(tt.key, tt.value)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			_, exists := store.Get(tt.key)
			assert.False(t, exists)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(memory.NewConfigStore()).Keys()

	assert.Contains(t, keys, "paths.data_dir")
	assert.Contains(t, keys, "schedule.lookback_days")
	assert.Contains(t, keys, "scanners.aliases.<scanner>")
	assert.IsIncreasing(t, keys)
}

func TestSettingsService_GetInt_ZeroIsKept(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("schedule.lookback_days", 0)

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, 0, settings.Schedule.LookbackDays)
}

func TestSettingsService_GetBool_WithoutKey(t *testing.T) {
	settings, err := NewSettingsService(memory.NewConfigStore()).Get()
	require.NoError(t, err)
	assert.True(t, settings.Schedule.Enabled)
	assert.False(t, settings.KeepRaw)
}
