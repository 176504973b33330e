// Package archive unpacks compressed exam archives.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.ArchiveExtractor = (*TarGz)(nil)

// TarGz extracts gzip-compressed tar archives.
type TarGz struct{}

// NewTarGz creates a new tar.gz extractor.
func NewTarGz() *TarGz {
	return &TarGz{}
}

// Extract unpacks archivePath into destDir. Regular files and directories
// are materialised; links and device entries are skipped.
func (x *TarGz) Extract(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrExtraction, archivePath, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrExtraction, archivePath, err)
		}
		if err := extractEntry(root, hdr, tr); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrExtraction, archivePath, err)
		}
	}
}

// safeJoin resolves name below root, rejecting entries that escape it.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes extraction directory", name)
	}
	return target, nil
}

func extractEntry(root string, hdr *tar.Header, r io.Reader) error {
	target, err := safeJoin(root, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm()|0o600)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	default:
		return nil
	}
}
