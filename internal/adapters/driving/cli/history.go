package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyExams bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs or ingested exams",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show")
	historyCmd.Flags().BoolVar(&historyExams, "exams", false, "list ingested exams instead of runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if history == nil {
		return errors.New("history not configured")
	}
	if historyExams {
		return printExams(cmd)
	}

	runs, err := history.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		cmd.Printf("%s  %s  %s discovered, %s ingested, %s skipped, %s failed (%s)\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.ID,
			count(r.Discovered), count(r.Ingested), count(r.Skipped), count(r.Failed),
			r.Duration().Round(time.Millisecond))
	}
	return nil
}

func printExams(cmd *cobra.Command) error {
	exams, err := history.ListExams(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list exams: %w", err)
	}
	if len(exams) == 0 {
		cmd.Println("No exams recorded.")
		return nil
	}
	for _, e := range exams {
		cmd.Printf("%s  %s  %d scans  %s\n",
			e.IngestedAt.Format("2006-01-02 15:04:05"), e.ExamID, e.Scans, e.ArchivePath)
	}
	return nil
}
