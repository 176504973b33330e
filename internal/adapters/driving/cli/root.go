// Package cli implements the osmium-ingest command line.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Pipeline holds the services built for one set of settings.
type Pipeline struct {
	Ingest    driving.IngestService
	Inspector driving.Inspector
	Scheduler driving.Scheduler
}

// PipelineFactory builds a Pipeline from resolved settings.
type PipelineFactory func(settings domain.Settings) (*Pipeline, error)

// Services are the driving ports the commands call.
type Services struct {
	Settings driving.SettingsService
	Verifier driving.Verifier
	History  driving.History
	Pipeline PipelineFactory

	// Close releases the resources behind the services. Optional.
	Close func() error
}

// Options are the global flags handed to a Bootstrap.
type Options struct {
	ConfigPath string
	NoLedger   bool
}

// Bootstrap builds the services once global flags are parsed.
type Bootstrap func(opts Options) (*Services, error)

var (
	settingsService driving.SettingsService
	verifier        driving.Verifier
	history         driving.History
	newPipeline     PipelineFactory
	closeServices   func() error

	bootstrap Bootstrap
)

var (
	verbose    bool
	configPath string
	noLedger   bool
)

var rootCmd = &cobra.Command{
	Use:   "osmium-ingest",
	Short: "Ingest MRI exam archives into study metadata and manifests",
	Long: `osmium-ingest discovers compressed exam archives in a scanner archive tree,
extracts them, decodes instance headers and writes a study document plus
per-scan checksum and instance manifests for downstream loaders.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.osmium/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&noLedger, "no-ledger", false, "keep the ingest ledger in memory for this invocation")
}

// SetBootstrap registers the function that wires services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly.
func SetServices(s *Services) {
	settingsService = s.Settings
	verifier = s.Verifier
	history = s.History
	newPipeline = s.Pipeline
	closeServices = s.Close
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd == versionCmd {
		return nil
	}
	services, err := bootstrap(Options{ConfigPath: configPath, NoLedger: noLedger})
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// loadSettings returns the stored settings with apply's overrides.
func loadSettings(apply func(*domain.Settings) error) (*domain.Settings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if apply != nil {
		if err := apply(settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

// buildPipeline builds the pipeline for settings without validating them.
func buildPipeline(settings domain.Settings) (*Pipeline, error) {
	if newPipeline == nil {
		return nil, errors.New("ingest pipeline not configured")
	}
	return newPipeline(settings)
}

// resolvePipeline loads and validates settings, then builds the pipeline
// for them. apply may adjust the loaded settings before validation.
func resolvePipeline(apply func(*domain.Settings) error) (domain.Settings, *Pipeline, error) {
	settings, err := loadSettings(apply)
	if err != nil {
		return domain.Settings{}, nil, err
	}
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, nil, err
	}
	p, err := buildPipeline(*settings)
	if err != nil {
		return domain.Settings{}, nil, err
	}
	return *settings, p, nil
}
