package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// runFlags are the overrides accepted by run.
type runFlags struct {
	from      string
	to        string
	scanners  []string
	archives  []string
	dataDir   string
	workDir   string
	batchSize int
	dedup     string
	keepRaw   bool
	detailed  bool
	noLogFile bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest archives from the archive tree",
	Long: `Discovers archives under <data-dir>/<scanner>/<yyyy>/<mm>/<dd>/<exam>/,
skips exams that were already ingested, then extracts, classifies and writes
a study document and per-scan manifests for each remaining archive.

Dates use the MMDDYYYY form. Without --from the run starts at the earliest
year present on disk; without --to it ends today. --archive bypasses discovery.`,
	Example: `  osmium-ingest run --from 03012019 --to 03312019 --scanner fmrif3ta
  osmium-ingest run --archive /data/fmrif3tb/2019/03/07/E1234/E1234.tgz`,
	RunE: runIngest,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.from, "from", "", "first acquisition date (MMDDYYYY)")
	f.StringVar(&runOpts.to, "to", "", "last acquisition date (MMDDYYYY)")
	f.StringSliceVar(&runOpts.scanners, "scanner", nil, "scanner directory to visit (repeatable)")
	f.StringSliceVar(&runOpts.archives, "archive", nil, "ingest exactly this archive (repeatable)")
	f.StringVar(&runOpts.dataDir, "data-dir", "", "archive tree root")
	f.StringVar(&runOpts.workDir, "work-dir", "", "extraction and artifact directory")
	f.IntVar(&runOpts.batchSize, "batch-size", -1, "archives extracted together (0 = all)")
	f.StringVar(&runOpts.dedup, "dedup", "", "dedup mode: off, ledger or artifacts")
	f.BoolVar(&runOpts.keepRaw, "keep-raw", false, "keep extracted scan directories")
	f.BoolVar(&runOpts.detailed, "detailed", false, "list every archive in the summary")
	f.BoolVar(&runOpts.noLogFile, "no-log-file", false, "do not write a log file in the work directory")
	rootCmd.AddCommand(runCmd)
}

// applyOverrides copies command line overrides onto settings.
func (o runFlags) applyOverrides(s *domain.Settings) error {
	if o.dataDir != "" {
		s.DataDir = o.dataDir
	}
	if o.workDir != "" {
		s.WorkDir = o.workDir
	}
	if o.batchSize >= 0 {
		s.BatchSize = o.batchSize
	}
	if o.dedup != "" {
		mode := domain.DedupMode(o.dedup)
		if !mode.IsValid() {
			return fmt.Errorf("%w: unknown dedup mode %q", domain.ErrInvalidInput, o.dedup)
		}
		s.Dedup = mode
	}
	if o.keepRaw {
		s.KeepRaw = true
	}
	return nil
}

// request builds the run request from the flags.
func (o runFlags) request() (domain.RunRequest, error) {
	req := domain.RunRequest{Scanners: o.scanners, Archives: o.archives}
	var err error
	if req.From, err = parseDate(o.from); err != nil {
		return req, err
	}
	if req.To, err = parseDate(o.to); err != nil {
		return req, err
	}
	return req, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(domain.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not MMDDYYYY", domain.ErrInvalidInput, s)
	}
	return t, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	req, err := runOpts.request()
	if err != nil {
		return err
	}
	settings, pipeline, err := resolvePipeline(runOpts.applyOverrides)
	if err != nil {
		return err
	}
	if pipeline.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	if !runOpts.noLogFile {
		closeLog, err := teeRunLog(settings.WorkDir, time.Now())
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck // best effort on exit
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := ingestWithProgress(ctx, cmd, pipeline.Ingest, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Print(renderSummary(report, runOpts.detailed))
	if report.Failed > 0 {
		return fmt.Errorf("%d archive(s) failed", report.Failed)
	}
	return nil
}

// teeRunLog mirrors log output to <workDir>/ingest_<timestamp>.log.
func teeRunLog(workDir string, now time.Time) (func() error, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: work directory: %v", domain.ErrInvalidConfig, err)
	}
	path := filepath.Join(workDir, "ingest_"+now.Format("20060102_150405")+".log")
	closeLog, err := logger.Tee(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.Debug("logging to %s", path)
	return closeLog, nil
}

// ingestWithProgress runs ingestion while displaying progress updates on a terminal.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	svc driving.IngestService,
	req domain.RunRequest,
) (*domain.RunReport, error) {
	if !isTerminal(cmd) {
		return svc.Run(ctx, req)
	}

	type result struct {
		report *domain.RunReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := svc.Run(ctx, req)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := domain.IngestStatus{}
	for {
		select {
		case r := <-done:
			if last.Running {
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			status := svc.Status()
			if !status.Running || status == last {
				continue
			}
			cmd.Printf("\rBatch %d/%d: %d/%d archives %s",
				status.Batch, status.Batches, status.Completed, status.Total, status.Current)
			last = status
		}
	}
}

// isTerminal reports whether the command writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
