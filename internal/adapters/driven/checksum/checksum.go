// Package checksum provides whole-file content digests.
package checksum

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: manifests use MD5 for change detection, not security.
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Checksummer = (*Hasher)(nil)

// Algorithm names.
const (
	XXHash = "xxhash"
	MD5    = "md5"
	SHA256 = "sha256"
)

// registry is the closed set of supported digests.
var registry = map[string]func() hash.Hash{
	XXHash: func() hash.Hash { return xxhash.New() },
	MD5:    md5.New,
	SHA256: sha256.New,
}

// Algorithms returns the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hasher streams files through a hash.Hash.
type Hasher struct {
	name    string
	newHash func() hash.Hash
}

// New returns the Hasher registered under name.
func New(name string) (*Hasher, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown checksum algorithm %q", domain.ErrInvalidConfig, name)
	}
	return &Hasher{name: name, newHash: fn}, nil
}

// Algorithm returns the digest name.
func (h *Hasher) Algorithm() string {
	return h.name
}

// Sum returns the hex digest of the file at path.
func (h *Hasher) Sum(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrChecksum, err)
	}
	defer f.Close()

	hh := h.newHash()
	if _, err := io.Copy(hh, &ctxReader{ctx: ctx, r: f}); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrChecksum, path, err)
	}
	return hex.EncodeToString(hh.Sum(nil)), nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
