package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

const examColumns = `exam_id, archive_path, checksum, checksum_algorithm, session_dir,
	scans, parser_version, run_id, ingested_at`

// ingestLedger records ingested exams and run summaries.
type ingestLedger struct {
	store *Store
}

var _ driven.IngestLedger = (*ingestLedger)(nil)

// HasExam reports whether examID has been recorded.
func (l *ingestLedger) HasExam(ctx context.Context, examID string) (bool, error) {
	var n int
	err := l.store.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM exams WHERE exam_id = ?", examID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking exam %s: %w", examID, err)
	}
	return n > 0, nil
}

// RecordExam upserts an ingested exam.
func (l *ingestLedger) RecordExam(ctx context.Context, entry domain.LedgerEntry) error {
	if entry.ExamID == "" {
		return fmt.Errorf("%w: exam id is required", domain.ErrInvalidInput)
	}
	if entry.IngestedAt.IsZero() {
		entry.IngestedAt = time.Now()
	}

	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO exams (`+examColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exam_id) DO UPDATE SET
			archive_path = excluded.archive_path,
			checksum = excluded.checksum,
			checksum_algorithm = excluded.checksum_algorithm,
			session_dir = excluded.session_dir,
			scans = excluded.scans,
			parser_version = excluded.parser_version,
			run_id = excluded.run_id,
			ingested_at = excluded.ingested_at
	`, entry.ExamID, entry.ArchivePath, entry.Checksum, entry.ChecksumAlgorithm,
		nullString(entry.SessionDir), entry.Scans, entry.ParserVersion,
		nullString(entry.RunID), formatNullableTime(entry.IngestedAt))
	if err != nil {
		return fmt.Errorf("recording exam %s: %w", entry.ExamID, err)
	}
	return nil
}

// GetExam returns domain.ErrNotFound for an unknown exam.
func (l *ingestLedger) GetExam(ctx context.Context, examID string) (*domain.LedgerEntry, error) {
	row := l.store.db.QueryRowContext(ctx,
		"SELECT "+examColumns+" FROM exams WHERE exam_id = ?", examID)
	return scanLedgerEntry(row)
}

// ListExams returns the most recently ingested exams first.
func (l *ingestLedger) ListExams(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx,
		"SELECT "+examColumns+" FROM exams ORDER BY ingested_at DESC, exam_id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying exams: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exams: %w", err)
	}
	return entries, nil
}

// RecordRun stores the run summary and its per-archive outcomes in one
// transaction.
func (l *ingestLedger) RecordRun(ctx context.Context, report *domain.RunReport) (err error) {
	if report == nil || report.ID == "" {
		return domain.ErrInvalidInput
	}
	started := report.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting run transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, ended_at, discovered, skipped, ingested, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			discovered = excluded.discovered,
			skipped = excluded.skipped,
			ingested = excluded.ingested,
			failed = excluded.failed
	`, report.ID, formatNullableTime(started), formatNullableTime(report.EndedAt),
		report.Discovered, report.Skipped, report.Ingested, report.Failed)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", report.ID, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM run_archives WHERE run_id = ?", report.ID); err != nil {
		return fmt.Errorf("clearing run archives: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO run_archives (run_id, archive_path, exam_id, state, error)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing run archive insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range report.Archives {
		if _, err = stmt.ExecContext(ctx, report.ID, a.Path, nullString(a.ExamID),
			a.State.String(), nullString(a.Error)); err != nil {
			return fmt.Errorf("recording run archive %s: %w", a.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", report.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without per-archive detail.
func (l *ingestLedger) ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, discovered, skipped, ingested, failed
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.RunReport
		var started, ended sql.NullString
		if err := rows.Scan(&r.ID, &started, &ended,
			&r.Discovered, &r.Skipped, &r.Ingested, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseNullableTime(started)
		r.EndedAt = parseNullableTime(ended)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func scanLedgerEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var sessionDir, runID, ingestedAt sql.NullString

	if err := row.Scan(&e.ExamID, &e.ArchivePath, &e.Checksum, &e.ChecksumAlgorithm,
		&sessionDir, &e.Scans, &e.ParserVersion, &runID, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning exam: %w", err)
	}

	e.SessionDir = sessionDir.String
	e.RunID = runID.String
	e.IngestedAt = parseNullableTime(ingestedAt)
	return &e, nil
}
