package domain

import "errors"

// Domain errors represent ingestion failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the run configuration cannot be used.
	// It is the only class of error that aborts a whole run, and it is
	// always reported before any parallel work starts.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Archive Errors.

	// ErrStructural indicates an extracted archive does not have the expected
	// layout (missing or duplicate session directories, no scans).
	ErrStructural = errors.New("unexpected archive structure")

	// ErrExtraction indicates an archive could not be decompressed.
	ErrExtraction = errors.New("extraction failed")

	// ErrChecksum indicates a content digest could not be computed.
	ErrChecksum = errors.New("checksum failed")

	// ErrEmptyScan indicates a scan directory holds no usable files.
	ErrEmptyScan = errors.New("scan has no instance files")

	// ErrInvalidTransition indicates an archive state change that the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// Decode Errors.

	// ErrDecode indicates a header could not be decoded.
	ErrDecode = errors.New("decode failed")

	// ErrValueTooLarge indicates a single header value exceeds the size
	// accepted into the metadata tree. Only the offending field is dropped.
	ErrValueTooLarge = errors.New("value too large")

	// ErrPrivateHeader indicates a vendor-private block could not be decoded.
	ErrPrivateHeader = errors.New("private header unreadable")
)
