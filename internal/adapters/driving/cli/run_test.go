package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run", runCmd.Use)
	assert.Contains(t, runCmd.Long, "MMDDYYYY")
}

func TestRunCmd_PassesRequest(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("run", "--from", "03012019", "--to", "03312019", "--scanner", "fmrif3ta,fmrif7t")
	require.NoError(t, err)

	require.Len(t, ts.ingest.requests, 1)
	req := ts.ingest.requests[0]
	assert.Equal(t, time.Date(2019, 3, 1, 0, 0, 0, 0, time.Local), req.From)
	assert.Equal(t, time.Date(2019, 3, 31, 0, 0, 0, 0, time.Local), req.To)
	assert.Equal(t, []string{"fmrif3ta", "fmrif7t"}, req.Scanners)
	assert.Empty(t, req.Archives)
}

func TestRunCmd_Overrides(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("run",
		"--data-dir", "/other/data", "--work-dir", "/other/work",
		"--batch-size", "2", "--dedup", "off", "--keep-raw",
		"--archive", "/other/data/a.tgz")
	require.NoError(t, err)

	require.Len(t, ts.built, 1)
	s := ts.built[0]
	assert.Equal(t, "/other/data", s.DataDir)
	assert.Equal(t, "/other/work", s.WorkDir)
	assert.Equal(t, 2, s.BatchSize)
	assert.Equal(t, domain.DedupOff, s.Dedup)
	assert.True(t, s.KeepRaw)
	assert.Equal(t, []string{"/other/data/a.tgz"}, ts.ingest.requests[0].Archives)
}

func TestRunCmd_StoredSettingsWithoutOverrides(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.BatchSize = 7

	_, err := execute("run")
	require.NoError(t, err)

	assert.Equal(t, 7, ts.built[0].BatchSize)
	assert.Equal(t, domain.DedupLedger, ts.built[0].Dedup)
}

func TestRunCmd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad from date", []string{"run", "--from", "2019-03-01"}, domain.ErrInvalidInput},
		{"bad to date", []string{"run", "--to", "13012019"}, domain.ErrInvalidInput},
		{"bad dedup", []string{"run", "--dedup", "sometimes"}, domain.ErrInvalidInput},
		{"negative workers", nil, domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			args := tt.args
			if args == nil {
				ts.settings.settings.ExtractWorkers = 0
				args = []string{"run"}
			}

			_, err := execute(args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Empty(t, ts.ingest.requests)
		})
	}
}

func TestRunCmd_Summary(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.ingest.report = &domain.RunReport{
		ID:         "run-42",
		StartedAt:  start,
		EndedAt:    start.Add(1500 * time.Millisecond),
		Discovered: 1200,
		Ingested:   1199,
		Skipped:    1,
		Archives: []domain.ArchiveResult{
			{Path: "/data/a.tgz", State: domain.StateCleanedUp, Scans: 4, Flagged: 1},
		},
	}

	out, err := execute("run", "--detailed")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-42")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1,199")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "/data/a.tgz")
	assert.Contains(t, out, "4 scans, 1 multi-echo")
}

func TestRunCmd_FailedArchives(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.report = &domain.RunReport{
		ID:         "run-1",
		Discovered: 2,
		Ingested:   1,
		Failed:     1,
		Archives: []domain.ArchiveResult{
			{Path: "/data/ok.tgz", State: domain.StateCleanedUp},
			{Path: "/data/bad.tgz", State: domain.StateFailed, Error: "no scans"},
		},
	}

	out, err := execute("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 archive(s) failed")
	assert.Contains(t, out, "/data/bad.tgz")
	assert.Contains(t, out, "no scans")
	assert.NotContains(t, out, "/data/ok.tgz")
}

func TestRunCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.err = domain.ErrInvalidConfig

	_, err := execute("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest failed")
}

func TestRunCmd_NoSettingsService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	_, err := execute("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestRunCmd_WritesLogFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	work := t.TempDir()
	ts.settings.settings.WorkDir = work
	runOpts.noLogFile = false

	_, err := execute("run")
	require.NoError(t, err)

	logs, err := filepath.Glob(filepath.Join(work, "ingest_*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	_, err = os.Stat(logs[0])
	assert.NoError(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseDate("02292020")
	require.NoError(t, err)
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 29, got.Day())

	_, err = parseDate("02302020")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
