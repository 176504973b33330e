package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// ExtractResult is the outcome of extracting one archive.
type ExtractResult struct {
	Archive domain.Archive

	// Root is <work>/<scanner>/<yyyy>/<mm>/<dd>/<exam_id>.
	Root string

	// SessionDir is the single directory two levels below Root.
	SessionDir string

	Err error
}

// Extractor decompresses batches of archives on a bounded pool.
type Extractor struct {
	archive driven.ArchiveExtractor
	workDir string
	workers int
}

// NewExtractor creates an extractor writing below settings.WorkDir with
// settings.ExtractWorkers concurrent extractions.
func NewExtractor(archive driven.ArchiveExtractor, settings domain.Settings) *Extractor {
	return &Extractor{
		archive: archive,
		workDir: settings.WorkDir,
		workers: settings.ExtractWorkers,
	}
}

// Root returns the extraction directory for an archive.
func (e *Extractor) Root(a domain.Archive) string {
	return filepath.Join(e.workDir, a.Scanner, a.Year, a.Month, a.Day, a.ExamID)
}

// ExtractBatch extracts every archive and returns results in input order.
// A failed archive does not affect the others; its extraction root is removed.
func (e *Extractor) ExtractBatch(ctx context.Context, archives []domain.Archive) []ExtractResult {
	results := fanOut(ctx, e.workers, archives, e.extractOne)
	return collectOrdered(len(archives), results)
}

func (e *Extractor) extractOne(ctx context.Context, a domain.Archive) ExtractResult {
	res := ExtractResult{Archive: a, Root: e.Root(a)}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	// A root left by an earlier attempt would confuse session detection.
	if err := os.RemoveAll(res.Root); err != nil {
		res.Err = fmt.Errorf("%w: clearing %s: %v", domain.ErrExtraction, res.Root, err)
		return res
	}
	if err := os.MkdirAll(res.Root, 0o755); err != nil {
		res.Err = fmt.Errorf("%w: creating %s: %v", domain.ErrExtraction, res.Root, err)
		return res
	}

	if err := e.archive.Extract(ctx, a.Path, res.Root); err != nil {
		res.Err = err
		removeRoot(res.Root)
		return res
	}

	session, err := FindSessionDir(res.Root)
	if err != nil {
		res.Err = err
		removeRoot(res.Root)
		return res
	}
	res.SessionDir = session
	logger.Info("Extracted archive %s", a.Path)
	return res
}

// FindSessionDir returns the only directory matching root/*/*.
func FindSessionDir(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*", "*"))
	if err != nil {
		return "", err
	}
	var sessions []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			sessions = append(sessions, m)
		}
	}
	if len(sessions) != 1 {
		return "", fmt.Errorf("%w: %d session directories in %s", domain.ErrStructural, len(sessions), root)
	}
	return sessions[0], nil
}

func removeRoot(root string) {
	logger.Warn("Removing extracted archive: %s", root)
	if err := os.RemoveAll(root); err != nil {
		logger.Error("removing %s: %v", root, err)
	}
}
