package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

type entry struct {
	name string
	body string
	dir  bool
}

func writeTarGz(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "exam.tgz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestTarGz_Extract(t *testing.T) {
	archive := writeTarGz(t, []entry{
		{name: "mr_1/", dir: true},
		{name: "mr_1/20190307-1/", dir: true},
		{name: "mr_1/20190307-1/3/0001.dcm", body: "a"},
		{name: "mr_1/20190307-1/3/0002.dcm", body: "bb"},
		{name: "mr_1/20190307-1/README", body: "notes"},
	})
	dest := t.TempDir()

	require.NoError(t, NewTarGz().Extract(context.Background(), archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "mr_1/20190307-1/3/0002.dcm"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(data))
	assert.FileExists(t, filepath.Join(dest, "mr_1/20190307-1/README"))
}

func TestTarGz_RejectsEscapingEntry(t *testing.T) {
	archive := writeTarGz(t, []entry{{name: "../../evil.txt", body: "x"}})
	dest := t.TempDir()

	err := NewTarGz().Extract(context.Background(), archive, dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(dest)), "evil.txt"))
}

func TestTarGz_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tgz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gzip"), 0o644))

	err := NewTarGz().Extract(context.Background(), path, t.TempDir())
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestTarGz_MissingArchive(t *testing.T) {
	err := NewTarGz().Extract(context.Background(), filepath.Join(t.TempDir(), "none.tgz"), t.TempDir())
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestTarGz_Cancelled(t *testing.T) {
	archive := writeTarGz(t, []entry{{name: "a/b/c.dcm", body: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTarGz().Extract(ctx, archive, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeJoin(t *testing.T) {
	root := "/work/x"
	_, err := safeJoin(root, "a/../../y")
	assert.Error(t, err)

	p, err := safeJoin(root, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/work/x/a/b", p)
}
