package driven

import (
	"context"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// IngestLedger records which exams have been ingested.
type IngestLedger interface {
	// HasExam reports whether examID has been recorded.
	HasExam(ctx context.Context, examID string) (bool, error)

	// RecordExam stores an ingested exam. Recording the same exam again
	// replaces the earlier entry.
	RecordExam(ctx context.Context, entry domain.LedgerEntry) error

	// GetExam retrieves an entry. Returns domain.ErrNotFound if absent.
	GetExam(ctx context.Context, examID string) (*domain.LedgerEntry, error)

	// ListExams returns the most recently ingested exams first.
	ListExams(ctx context.Context, limit int) ([]domain.LedgerEntry, error)

	// RecordRun stores the summary of a finished run.
	RecordRun(ctx context.Context, report *domain.RunReport) error

	// ListRuns returns the most recent runs first, without per-archive detail.
	ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error)
}
