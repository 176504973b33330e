package driven

import "context"

// Checksummer computes whole-file content digests.
type Checksummer interface {
	// Sum returns the lowercase hex digest of the file at path.
	Sum(ctx context.Context, path string) (string, error)

	// Algorithm returns the digest name (e.g., "xxhash", "md5").
	Algorithm() string
}
