package driving

import (
	"context"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// History lists past runs and ingested exams.
type History interface {
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error)

	// ListExams returns the most recently ingested exams first.
	ListExams(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
}
