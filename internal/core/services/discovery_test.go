package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// setupArchiveTree lays out a small archive tree and returns a discovery over it.
func setupArchiveTree(t *testing.T) (*Discovery, string) {
	t.Helper()
	settings := testSettings(t)
	root := settings.DataDir

	for _, p := range []string{
		"fmrif3ta/2019/03/07/E1/E1.tgz",
		"fmrif3ta/2019/03/08/E2/E2.tar.gz",
		"fmrif3ta/2019/03/08/E2/E2.txt",
		"fmrif3ta/2020/01/01/E3/E3.tgz",
		"fmrif7t/2019/03/07/E4/E4.tgz",
		"fmrif3ta/2019/03/09/stray.tgz",
	} {
		writeTestFile(t, filepath.Join(root, filepath.FromSlash(p)), p)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fmrif3ta", "2019", "03", "09", "E5", "dir.tgz"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fmrif3ta", "misc"), 0o755))

	d := NewDiscovery(settings)
	d.now = func() time.Time { return day(2020, 1, 2) }
	return d, root
}

func names(archives []domain.Archive) []string {
	out := make([]string, len(archives))
	for i, a := range archives {
		out[i] = a.ExamDir
	}
	return out
}

func TestDiscovery_DateRange(t *testing.T) {
	d, _ := setupArchiveTree(t)

	archives, err := d.Discover(context.Background(), domain.RunRequest{
		From:     day(2019, 3, 7),
		To:       day(2019, 3, 8),
		Scanners: []string{"fmrif3ta"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E2"}, names(archives))
	assert.Equal(t, "fmrif3ta", archives[0].Scanner)
	assert.Equal(t, domain.StateDiscovered, archives[0].State)
}

func TestDiscovery_DefaultsToEarliestYear(t *testing.T) {
	d, _ := setupArchiveTree(t)

	archives, err := d.Discover(context.Background(), domain.RunRequest{Scanners: []string{"fmrif3ta"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E2", "E3"}, names(archives))
}

func TestDiscovery_AllConfiguredScanners(t *testing.T) {
	d, _ := setupArchiveTree(t)

	archives, err := d.Discover(context.Background(), domain.RunRequest{
		From: day(2019, 3, 7),
		To:   day(2019, 3, 7),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E4"}, names(archives))
}

func TestDiscovery_MissingScanner(t *testing.T) {
	d, _ := setupArchiveTree(t)

	archives, err := d.Discover(context.Background(), domain.RunRequest{Scanners: []string{"fmrif3tb"}})

	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestDiscovery_ReversedRange(t *testing.T) {
	d, _ := setupArchiveTree(t)

	_, err := d.Discover(context.Background(), domain.RunRequest{
		From: day(2019, 3, 8),
		To:   day(2019, 3, 7),
	})

	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestDiscovery_Cancelled(t *testing.T) {
	d, _ := setupArchiveTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Discover(ctx, domain.RunRequest{Scanners: []string{"fmrif3ta"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscovery_Years(t *testing.T) {
	d, root := setupArchiveTree(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fmrif3ta", "20x9"), 0o755))
	writeTestFile(t, filepath.Join(root, "fmrif3ta", "2021"), "file, not a year")

	years, err := d.years("fmrif3ta")

	require.NoError(t, err)
	assert.Equal(t, map[int]bool{2019: true, 2020: true}, years)
}
