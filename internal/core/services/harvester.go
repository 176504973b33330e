package services

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// Harvester collects per-file data for a scan on the decode pool.
type Harvester struct {
	decoder driven.HeaderDecoder
	summer  driven.Checksummer
	workers int
}

// NewHarvester creates a harvester running settings.DecodeWorkers workers.
// summer computes the per-file checksums written to checksum manifests.
func NewHarvester(decoder driven.HeaderDecoder, summer driven.Checksummer, settings domain.Settings) *Harvester {
	return &Harvester{
		decoder: decoder,
		summer:  summer,
		workers: settings.DecodeWorkers,
	}
}

// Harvest decodes the instance record of every file in scanDir. A file that
// cannot be decoded still yields a line with an all-null record. Lines come
// back in completion order.
func (h *Harvester) Harvest(ctx context.Context, scanDir string, files []string) []domain.InstanceLine {
	decode := func(ctx context.Context, name string) domain.InstanceLine {
		rec, err := h.decoder.DecodeInstance(ctx, filepath.Join(scanDir, filepath.FromSlash(name)))
		if err != nil {
			logger.Error("Unable to read: %s: %v", filepath.Join(scanDir, name), err)
			rec = domain.InstanceRecord{}
		}
		return domain.InstanceLine{Filename: name, Record: rec}
	}

	lines := make([]domain.InstanceLine, 0, len(files))
	for r := range fanOut(ctx, h.workers, files, decode) {
		lines = append(lines, r.value)
	}
	return lines
}

// Checksums computes the manifest checksum of every file in scanDir, in the
// order of files. Any failure fails the whole scan.
func (h *Harvester) Checksums(ctx context.Context, scanDir string, files []string) ([]domain.ChecksumLine, error) {
	type summed struct {
		line domain.ChecksumLine
		err  error
	}
	sum := func(ctx context.Context, name string) summed {
		s, err := h.summer.Sum(ctx, filepath.Join(scanDir, filepath.FromSlash(name)))
		return summed{line: domain.ChecksumLine{Checksum: s, Filename: name}, err: err}
	}

	results := collectOrdered(len(files), fanOut(ctx, h.workers, files, sum))

	lines := make([]domain.ChecksumLine, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		lines = append(lines, r.line)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return lines, nil
}
