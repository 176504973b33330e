package driving

import "context"

// Verifier checks the artifacts in a session directory for consistency.
type Verifier interface {
	// Verify reconciles every scan's manifests in sessionDir by filename.
	Verify(ctx context.Context, sessionDir string) (*VerifyReport, error)
}

// VerifyReport summarises a session directory.
type VerifyReport struct {
	SessionDir string
	ExamID     string
	Scans      []ScanVerification
}

// OK reports whether every scan reconciled cleanly.
func (r *VerifyReport) OK() bool {
	for _, s := range r.Scans {
		if !s.OK() {
			return false
		}
	}
	return true
}

// ScanVerification is the reconciliation of one scan's manifests.
type ScanVerification struct {
	Scan string

	// Files is the number of checksum manifest entries.
	Files int

	// Instances is the number of instance manifest entries, 0 if none.
	Instances int

	// MissingInstances are checksummed files absent from the instance manifest.
	MissingInstances []string

	// ExtraInstances are instance manifest entries without a checksum.
	ExtraInstances []string

	// Duplicates are filenames listed more than once in either manifest.
	Duplicates []string

	// Order lists instance filenames sorted by (raw data run number, echo
	// number) for multi-echo scans.
	Order []string
}

// OK reports whether the scan reconciled cleanly.
func (s ScanVerification) OK() bool {
	return len(s.MissingInstances) == 0 && len(s.ExtraInstances) == 0 && len(s.Duplicates) == 0
}
