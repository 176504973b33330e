package cli

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings domain.Settings
	getErr   error
	setErr   error
	set      map[string]string
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.Settings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"ingest.batch_size", "paths.data_dir"}
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	mu       sync.Mutex
	report   *domain.RunReport
	err      error
	requests []domain.RunRequest
}

func (m *mockIngestService) Run(_ context.Context, req domain.RunRequest) (*domain.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.RunReport{ID: "run-1"}, nil
}

func (m *mockIngestService) Status() domain.IngestStatus {
	return domain.IngestStatus{}
}

// mockInspector implements driving.Inspector for testing.
type mockInspector struct {
	result *driving.InspectResult
	err    error
}

func (m *mockInspector) Inspect(_ context.Context, path string) (*driving.InspectResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	res := *m.result
	res.Path = path
	return &res, nil
}

// mockVerifier implements driving.Verifier for testing.
type mockVerifier struct {
	report *driving.VerifyReport
	err    error
}

func (m *mockVerifier) Verify(_ context.Context, sessionDir string) (*driving.VerifyReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	r := *m.report
	r.SessionDir = sessionDir
	return &r, nil
}

// mockHistory implements driving.History for testing.
type mockHistory struct {
	runs  []domain.RunReport
	exams []domain.LedgerEntry
	err   error
	limit int
}

func (m *mockHistory) ListRuns(_ context.Context, limit int) ([]domain.RunReport, error) {
	m.limit = limit
	return m.runs, m.err
}

func (m *mockHistory) ListExams(_ context.Context, limit int) ([]domain.LedgerEntry, error) {
	m.limit = limit
	return m.exams, m.err
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	started chan struct{}
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	settings  *mockSettingsService
	ingest    *mockIngestService
	inspector *mockInspector
	verifier  *mockVerifier
	history   *mockHistory
	scheduler *mockScheduler
	built     []domain.Settings
}

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.DataDir = "/data"
	s.WorkDir = "/work"
	return s
}

// setupTestServices installs mocks for every service and resets command
// flags. The returned function restores the previous state.
func setupTestServices() (*testServices, func()) {
	oldSettings, oldVerifier, oldHistory := settingsService, verifier, history
	oldPipeline, oldClose, oldBootstrap := newPipeline, closeServices, bootstrap

	ts := &testServices{
		settings:  &mockSettingsService{settings: testSettings()},
		ingest:    &mockIngestService{},
		inspector: &mockInspector{result: &driving.InspectResult{}},
		verifier:  &mockVerifier{report: &driving.VerifyReport{}},
		history:   &mockHistory{},
		scheduler: &mockScheduler{started: make(chan struct{})},
	}
	bootstrap = nil
	SetServices(&Services{
		Settings: ts.settings,
		Verifier: ts.verifier,
		History:  ts.history,
		Pipeline: func(s domain.Settings) (*Pipeline, error) {
			ts.built = append(ts.built, s)
			return &Pipeline{Ingest: ts.ingest, Inspector: ts.inspector, Scheduler: ts.scheduler}, nil
		},
	})
	runOpts = runFlags{batchSize: -1, noLogFile: true}
	historyLimit, historyExams = 20, false
	verifyShowOrder = false
	watchSettle = time.Minute

	return ts, func() {
		settingsService, verifier, history = oldSettings, oldVerifier, oldHistory
		newPipeline, closeServices, bootstrap = oldPipeline, oldClose, oldBootstrap
	}
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	return executeContext(context.Background(), args...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// executeContext is execute with a parent context. Cobra keeps the first
// context a command sees, so every command is reset to ctx first.
func executeContext(ctx context.Context, args ...string) (string, error) {
	setContext(ctx, rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContext(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContext(ctx, sub)
	}
}
