package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage settings",
	Long: `View and change the settings stored in the config file.

Keys are dotted (e.g. ingest.batch_size). List values are comma separated.
Scanner aliases are set per scanner with scanners.aliases.<scanner>.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Change one setting",
	Example: "  osmium-ingest config set ingest.dedup artifacts\n  osmium-ingest config set scanners.aliases.fmrif3ta 3TaFMRI,fmri3Ta",
	Args:    cobra.ExactArgs(2),
	RunE:    runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Data dir: %s\n", orUnset(settings.DataDir))
	cmd.Printf("  Work dir: %s\n", orUnset(settings.WorkDir))
	cmd.Println()

	cmd.Println("[Scanners]")
	cmd.Printf("  Names: %s\n", strings.Join(settings.Scanners, ", "))
	scanners := make([]string, 0, len(settings.ScannerAliases))
	for name := range settings.ScannerAliases {
		scanners = append(scanners, name)
	}
	sort.Strings(scanners)
	for _, name := range scanners {
		cmd.Printf("  Aliases of %s: %s\n", name, strings.Join(settings.ScannerAliases[name], ", "))
	}
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Archive suffixes: %s\n", strings.Join(settings.ArchiveSuffixes, ", "))
	cmd.Printf("  Instance suffix: %s\n", settings.InstanceSuffix)
	batch := count(settings.BatchSize)
	if settings.BatchSize == 0 {
		batch = "all"
	}
	cmd.Printf("  Batch size: %s\n", batch)
	cmd.Printf("  Workers: %d extract, %d decode\n", settings.ExtractWorkers, settings.DecodeWorkers)
	cmd.Printf("  Dedup: %s\n", settings.Dedup.Description())
	cmd.Printf("  Keep raw: %s\n", yesNo(settings.KeepRaw))
	cmd.Println()

	cmd.Println("[Checksum]")
	cmd.Printf("  Archive: %s\n", settings.ChecksumAlgorithm)
	cmd.Printf("  Manifest: %s\n", settings.ManifestChecksum)
	cmd.Println()

	cmd.Println("[Schedule]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Schedule.Enabled))
	cmd.Printf("  Interval: %s\n", settings.Schedule.Interval)
	cmd.Printf("  Lookback: %d days\n", settings.Schedule.LookbackDays)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'osmium-ingest config set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
