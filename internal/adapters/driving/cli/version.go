package cli

import (
	"github.com/spf13/cobra"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("osmium-ingest version %s (parser %s)\n", version, domain.ParserVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
