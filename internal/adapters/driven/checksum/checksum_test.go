package checksum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHasher_KnownDigests(t *testing.T) {
	path := writeFile(t, "hello")

	tests := []struct {
		algorithm string
		want      string
	}{
		{MD5, "5d41402abc4b2a76b9719d911017c592"},
		{SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{XXHash, "26c7827d889f6da3"},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			h, err := New(tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.algorithm, h.Algorithm())

			sum, err := h.Sum(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sum)
		})
	}
}

func TestHasher_Deterministic(t *testing.T) {
	path := writeFile(t, "same content")
	h, err := New(XXHash)
	require.NoError(t, err)

	a, err := h.Sum(context.Background(), path)
	require.NoError(t, err)
	b, err := h.Sum(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("crc32")
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestHasher_MissingFile(t *testing.T) {
	h, err := New(MD5)
	require.NoError(t, err)

	_, err = h.Sum(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, domain.ErrChecksum))
}

func TestHasher_Cancelled(t *testing.T) {
	h, err := New(MD5)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.Sum(ctx, writeFile(t, "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAlgorithms(t *testing.T) {
	assert.Equal(t, []string{"md5", "sha256", "xxhash"}, Algorithms())
}
