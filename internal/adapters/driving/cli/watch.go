package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmrif/osmium-ingest/internal/adapters/driving/watch"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest archives as they arrive",
	Long: `Watches the archive tree and ingests each new archive once it has not
been written to for the settle period. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "quiet period before an archive is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	settings, pipeline, err := resolvePipeline(nil)
	if err != nil {
		return err
	}
	if pipeline.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(settings, pipeline.Ingest, watchSettle)
	cmd.Printf("Watching %s (settle %s). Press Ctrl+C to stop.\n", settings.DataDir, watchSettle)
	if err := w.Run(ctx); err != nil {
		return err
	}
	cmd.Println("Watcher stopped.")
	return nil
}
