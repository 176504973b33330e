package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.IngestLedger = (*Ledger)(nil)

// Ledger is an in-memory implementation of driven.IngestLedger.
type Ledger struct {
	mu    sync.RWMutex
	exams map[string]domain.LedgerEntry
	runs  map[string]domain.RunReport
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		exams: make(map[string]domain.LedgerEntry),
		runs:  make(map[string]domain.RunReport),
	}
}

// HasExam reports whether examID has been recorded.
func (l *Ledger) HasExam(_ context.Context, examID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.exams[examID]
	return ok, nil
}

// RecordExam stores an ingested exam, replacing any earlier entry.
func (l *Ledger) RecordExam(_ context.Context, entry domain.LedgerEntry) error {
	if entry.ExamID == "" {
		return domain.ErrInvalidInput
	}
	if entry.IngestedAt.IsZero() {
		entry.IngestedAt = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exams[entry.ExamID] = entry
	return nil
}

// GetExam returns domain.ErrNotFound for an unknown exam.
func (l *Ledger) GetExam(_ context.Context, examID string) (*domain.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.exams[examID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// ListExams returns the most recently ingested exams first.
func (l *Ledger) ListExams(_ context.Context, limit int) ([]domain.LedgerEntry, error) {
	l.mu.RLock()
	entries := make([]domain.LedgerEntry, 0, len(l.exams))
	for _, e := range l.exams {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].IngestedAt.Equal(entries[j].IngestedAt) {
			return entries[i].IngestedAt.After(entries[j].IngestedAt)
		}
		return entries[i].ExamID < entries[j].ExamID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// RecordRun stores the summary of a finished run.
func (l *Ledger) RecordRun(_ context.Context, report *domain.RunReport) error {
	if report == nil || report.ID == "" {
		return domain.ErrInvalidInput
	}
	summary := *report
	summary.Archives = nil

	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[report.ID] = summary
	return nil
}

// ListRuns returns the most recent runs first.
func (l *Ledger) ListRuns(_ context.Context, limit int) ([]domain.RunReport, error) {
	l.mu.RLock()
	runs := make([]domain.RunReport, 0, len(l.runs))
	for _, r := range l.runs {
		runs = append(runs, r)
	}
	l.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
