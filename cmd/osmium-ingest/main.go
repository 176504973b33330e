// Command osmium-ingest ingests MRI exam archives into study documents and
// per-scan manifests.
package main

import (
	"fmt"
	"os"

	"github.com/fmrif/osmium-ingest/internal/adapters/driven/archive"
	"github.com/fmrif/osmium-ingest/internal/adapters/driven/artifacts"
	"github.com/fmrif/osmium-ingest/internal/adapters/driven/checksum"
	"github.com/fmrif/osmium-ingest/internal/adapters/driven/config/file"
	"github.com/fmrif/osmium-ingest/internal/adapters/driven/storage/memory"
	"github.com/fmrif/osmium-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/fmrif/osmium-ingest/internal/adapters/driving/cli"
	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/core/services"
	"github.com/fmrif/osmium-ingest/internal/decoders/dicom"
)

func main() {
	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the driven adapters into the core services.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	var (
		configStore *file.ConfigStore
		err         error
	)
	if opts.ConfigPath != "" {
		configStore, err = file.NewConfigFile(opts.ConfigPath)
	} else {
		configStore, err = file.NewConfigStore("")
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var (
		ledger         driven.IngestLedger
		schedulerStore driven.SchedulerStore
		closeStore     func() error
	)
	if opts.NoLedger {
		ledger = memory.NewLedger()
		schedulerStore = memory.NewSchedulerStore()
	} else {
		store, err := sqlite.NewStore("")
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		ledger = store.Ledger()
		schedulerStore = store.SchedulerStore()
		closeStore = store.Close
	}

	artifactStore := artifacts.NewStore()

	return &cli.Services{
		Settings: services.NewSettingsService(configStore),
		Verifier: services.NewManifestVerifier(artifactStore),
		History:  ledger,
		Pipeline: func(settings domain.Settings) (*cli.Pipeline, error) {
			return newPipeline(settings, ledger, schedulerStore, artifactStore)
		},
		Close: closeStore,
	}, nil
}

// newPipeline builds the ingestion services for settings.
func newPipeline(
	settings domain.Settings,
	ledger driven.IngestLedger,
	schedulerStore driven.SchedulerStore,
	artifactStore *artifacts.Store,
) (*cli.Pipeline, error) {
	archiveSum, err := checksum.New(settings.ChecksumAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum.archive: %v", domain.ErrInvalidConfig, err)
	}
	manifestSum, err := checksum.New(settings.ManifestChecksum)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum.manifest: %v", domain.ErrInvalidConfig, err)
	}

	decoder := dicom.NewDecoder()
	classifier := services.NewClassifier(decoder, settings)

	ingest := services.NewIngestOrchestrator(
		settings,
		services.NewDiscovery(settings),
		services.NewIdentity(archiveSum),
		services.NewExtractor(archive.NewTarGz(), settings),
		classifier,
		services.NewHarvester(decoder, manifestSum, settings),
		artifactStore,
		ledger,
	)

	return &cli.Pipeline{
		Ingest:    ingest,
		Inspector: classifier,
		Scheduler: services.NewScheduler(settings.Schedule, schedulerStore, ingest),
	}, nil
}
