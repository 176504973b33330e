package driven

import "context"

// ArchiveExtractor unpacks a compressed archive.
type ArchiveExtractor interface {
	// Extract unpacks archivePath into destDir, which must already exist.
	// Entries that would land outside destDir are rejected.
	// Returns an error wrapping domain.ErrExtraction on failure.
	Extract(ctx context.Context, archivePath, destDir string) error
}
