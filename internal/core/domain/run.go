package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the MMDDYYYY form accepted for run date bounds.
const DateLayout = "01022006"

// RunRequest selects the archives for one ingestion run.
type RunRequest struct {
	// From is the first acquisition date. Zero starts at the earliest year on disk.
	From time.Time

	// To is the last acquisition date. Zero means today.
	To time.Time

	// Scanners overrides Settings.Scanners when non-empty.
	Scanners []string

	// Archives bypasses discovery and ingests exactly these paths.
	Archives []string
}

// ArchiveResult is the outcome for one archive.
type ArchiveResult struct {
	Path       string
	ExamID     string
	State      ArchiveState
	SessionDir string
	Scans      int
	Flagged    int
	Error      string
}

// RunReport summarises one ingestion run.
type RunReport struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time
	Discovered int
	Skipped    int
	Ingested   int
	Failed     int
	Archives   []ArchiveResult
}

// Duration returns the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Add records an archive outcome and updates the counters.
func (r *RunReport) Add(res ArchiveResult) {
	r.Archives = append(r.Archives, res)
	switch res.State {
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	case StateCleanedUp, StateManifestsWritten:
		r.Ingested++
	}
}

// Err joins the errors of every failed archive, or returns nil.
func (r *RunReport) Err() error {
	var errs []error
	for _, a := range r.Archives {
		if a.State == StateFailed {
			errs = append(errs, fmt.Errorf("%s: %s", a.Path, a.Error))
		}
	}
	return errors.Join(errs...)
}

// LedgerEntry records an exam that has been ingested.
type LedgerEntry struct {
	ExamID            string
	ArchivePath       string
	Checksum          string
	ChecksumAlgorithm string
	SessionDir        string
	Scans             int
	ParserVersion     string
	RunID             string
	IngestedAt        time.Time
}

// IngestStatus is a point-in-time view of a running orchestrator.
type IngestStatus struct {
	Running   bool
	RunID     string
	Batch     int
	Batches   int
	Completed int
	Total     int
	Current   string
}
