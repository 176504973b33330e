package services

import (
	"context"
	"sync"
	"time"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of task results kept per task.
const historyRetention = 100

// Scheduler runs the recurring ingest task.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	ingest   driving.IngestService
	lookback int

	// tick is how often due tasks are checked.
	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. Each ingest run covers the last
// schedule.LookbackDays days.
func NewScheduler(
	schedule domain.ScheduleSettings,
	store driven.SchedulerStore,
	ingest driving.IngestService,
) *Scheduler {
	return &Scheduler{
		config:   domain.SchedulerConfigFrom(schedule),
		store:    store,
		ingest:   ingest,
		lookback: schedule.LookbackDays,
		tick:     time.Minute,
		now:      time.Now,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Printf("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop shuts the loop down and waits for a running task to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	cfg := s.config.GetTaskConfig(domain.TaskIDArchiveIngest)
	return s.ensureTask(ctx, domain.TaskIDArchiveIngest, "Archive Ingest", cfg)
}

// ensureTask creates the task or brings a stored one in line with cfg.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// First start runs immediately.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  s.now(),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks runs enabled tasks whose NextRun has passed. Tasks run
// one at a time so that runs never overlap.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	if !s.config.Enabled {
		return
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Printf("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.wg.Add(1)
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task and records its outcome.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	defer s.wg.Done()

	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: s.now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDArchiveIngest:
		result.ItemsProcessed, err = s.runArchiveIngest(ctx)
	default:
		logger.Printf("scheduler: unknown task ID: %s", task.ID)
		return
	}

	result.EndedAt = s.now()
	if err != nil {
		result.Error = err.Error()
		task.LastError = err.Error()
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	// Persist even if the run was cancelled.
	storeCtx := context.WithoutCancel(ctx)
	if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
		logger.Printf("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
		logger.Printf("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(storeCtx, historyRetention); pruneErr != nil {
		logger.Printf("scheduler: failed to prune history: %v", pruneErr)
	}
}

// runArchiveIngest ingests the trailing lookback window and returns the
// number of archives ingested. Failed archives make the task unsuccessful.
func (s *Scheduler) runArchiveIngest(ctx context.Context) (int, error) {
	if s.ingest == nil {
		return 0, nil
	}

	to := s.now()
	req := domain.RunRequest{To: to}
	if s.lookback > 0 {
		req.From = to.AddDate(0, 0, -s.lookback)
	}

	report, err := s.ingest.Run(ctx, req)
	if err != nil {
		return 0, err
	}
	return report.Ingested, report.Err()
}
