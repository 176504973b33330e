package driving

import (
	"context"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// IngestService runs the archive ingestion pipeline.
type IngestService interface {
	// Run ingests the archives selected by req. Configuration problems are
	// returned as errors before any work starts; per-archive failures are
	// recorded in the report instead.
	Run(ctx context.Context, req domain.RunRequest) (*domain.RunReport, error)

	// Status returns the progress of the current run.
	Status() domain.IngestStatus
}

// Inspector decodes a single instance for troubleshooting.
type Inspector interface {
	// Inspect decodes path and applies the multi-echo check to it.
	Inspect(ctx context.Context, path string) (*InspectResult, error)
}

// InspectResult is the decoded view of one instance.
type InspectResult struct {
	Path   string
	Header *domain.Header
	Echo   domain.EchoDecision
}
