package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled ingestion in the foreground",
	Long: `Runs the archive-ingest task every schedule.interval over the last
schedule.lookback_days days. Task state is kept in the ledger database so
a restart resumes the existing schedule. Runs until interrupted.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	settings, pipeline, err := resolvePipeline(nil)
	if err != nil {
		return err
	}
	if pipeline.Scheduler == nil {
		return errors.New("scheduler not configured")
	}
	if !settings.Schedule.Enabled {
		cmd.Println("Scheduling is disabled (schedule.enabled = false).")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Ingesting every %s over the last %d days. Press Ctrl+C to stop.\n",
		settings.Schedule.Interval, settings.Schedule.LookbackDays)

	errCh := make(chan error, 1)
	go func() {
		errCh <- pipeline.Scheduler.Start(ctx)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		if stopErr := pipeline.Scheduler.Stop(); stopErr != nil {
			return stopErr
		}
		err = <-errCh
	}
	if err != nil && !errors.Is(err, ctx.Err()) {
		return err
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
