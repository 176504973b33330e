package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// ==================== ConfigStore Tests ====================

func TestConfigStore_Getters(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("ingest.batch_size", int64(4)))
	require.NoError(t, s.Set("ingest.keep_raw", true))
	require.NoError(t, s.Set("scanners.aliases.fmrif7t", []any{"FMRIFD7T", 7}))
	require.NoError(t, s.Set("paths.work_dir", "/work"))

	assert.Equal(t, 4, s.GetInt("ingest.batch_size"))
	assert.True(t, s.GetBool("ingest.keep_raw"))
	assert.Equal(t, "/work", s.GetString("paths.work_dir"))
	assert.Equal(t, []string{"FMRIFD7T"}, s.GetStringSlice("scanners.aliases.fmrif7t"))
	assert.Equal(t, map[string]any{"fmrif7t": []any{"FMRIFD7T", 7}}, s.Sub("scanners.aliases"))
	assert.Equal(t, ":memory:", s.Path())
	assert.NoError(t, s.Save())
	assert.NoError(t, s.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	s := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Set("k", n)
			_ = s.GetInt("k")
		}(i)
	}
	wg.Wait()
	_, ok := s.Get("k")
	assert.True(t, ok)
}

// ==================== Ledger Tests ====================

func TestLedger_Exams(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordExam(ctx, domain.LedgerEntry{ExamID: "a", IngestedAt: base}))
	require.NoError(t, l.RecordExam(ctx, domain.LedgerEntry{ExamID: "b", IngestedAt: base.Add(time.Hour)}))
	assert.ErrorIs(t, l.RecordExam(ctx, domain.LedgerEntry{}), domain.ErrInvalidInput)

	has, err := l.HasExam(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)

	_, err = l.GetExam(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := l.ListExams(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ExamID)
}

func TestLedger_Runs(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r1 := &domain.RunReport{ID: "r1", StartedAt: base}
	r1.Add(domain.ArchiveResult{Path: "/a.tgz", State: domain.StateCleanedUp})
	require.NoError(t, l.RecordRun(ctx, r1))
	require.NoError(t, l.RecordRun(ctx, &domain.RunReport{ID: "r2", StartedAt: base.Add(time.Hour)}))
	assert.ErrorIs(t, l.RecordRun(ctx, nil), domain.ErrInvalidInput)

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, 1, runs[1].Ingested)
	assert.Nil(t, runs[1].Archives)
	assert.Len(t, r1.Archives, 1, "caller's report is not modified")
}

// ==================== SchedulerStore Tests ====================

func TestSchedulerStore_Tasks(t *testing.T) {
	ctx := context.Background()
	s := NewSchedulerStore()

	got, err := s.GetTask(ctx, domain.TaskIDArchiveIngest)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDArchiveIngest, Interval: time.Hour}))
	assert.ErrorIs(t, s.SaveTask(ctx, nil), domain.ErrInvalidInput)

	got, err = s.GetTask(ctx, domain.TaskIDArchiveIngest)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got.Interval)

	require.NoError(t, s.DeleteTask(ctx, domain.TaskIDArchiveIngest))
	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSchedulerStore_History(t *testing.T) {
	ctx := context.Background()
	s := NewSchedulerStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.RecordResult(ctx, &domain.TaskResult{
			TaskID:         "t",
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			ItemsProcessed: i,
		}))
	}

	h, err := s.GetTaskHistory(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, 3, h[0].ItemsProcessed)

	require.NoError(t, s.PruneHistory(ctx, 1))
	h, err = s.GetTaskHistory(ctx, "t", 0)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, 3, h[0].ItemsProcessed)
}
