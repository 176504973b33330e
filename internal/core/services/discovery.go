package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// Discovery finds archives in the <scanner>/<yyyy>/<mm>/<dd>/<exam>/ tree.
type Discovery struct {
	dataDir  string
	scanners []string
	suffixes []string
	now      func() time.Time
}

// NewDiscovery creates a discovery walker over settings.DataDir.
func NewDiscovery(settings domain.Settings) *Discovery {
	return &Discovery{
		dataDir:  settings.DataDir,
		scanners: settings.Scanners,
		suffixes: settings.ArchiveSuffixes,
		now:      time.Now,
	}
}

// Discover returns the archives acquired between req.From and req.To on the
// requested scanners. A reversed range is a configuration error.
func (d *Discovery) Discover(ctx context.Context, req domain.RunRequest) ([]domain.Archive, error) {
	to := req.To
	if to.IsZero() {
		to = d.now()
	}
	to = truncateDay(to)
	if !req.From.IsZero() && truncateDay(req.From).After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidConfig,
			req.From.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}

	scanners := req.Scanners
	if len(scanners) == 0 {
		scanners = d.scanners
	}

	var archives []domain.Archive
	seen := make(map[string]bool)
	for _, scanner := range scanners {
		dates, err := d.dates(scanner, req.From, to)
		if err != nil {
			return nil, err
		}
		for _, day := range dates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			found, err := d.searchDay(scanner, day)
			if err != nil {
				return nil, err
			}
			for _, a := range found {
				if seen[a.Path] {
					continue
				}
				seen[a.Path] = true
				archives = append(archives, a)
			}
		}
	}
	return archives, nil
}

// dates lists the days to visit for scanner. Without a start date the range
// begins on Jan 1 of the earliest year directory, and only years present on
// disk are visited.
func (d *Discovery) dates(scanner string, from, to time.Time) ([]time.Time, error) {
	var years map[int]bool
	if from.IsZero() {
		var err error
		years, err = d.years(scanner)
		if err != nil {
			return nil, err
		}
		if len(years) == 0 {
			logger.Debug("no year directories for scanner %s", scanner)
			return nil, nil
		}
		earliest := to.Year()
		for y := range years {
			if y < earliest {
				earliest = y
			}
		}
		from = time.Date(earliest, time.January, 1, 0, 0, 0, 0, to.Location())
	}

	var dates []time.Time
	for day := truncateDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		if years != nil && !years[day.Year()] {
			continue
		}
		dates = append(dates, day)
	}
	return dates, nil
}

// years returns the four-digit year directories under a scanner.
func (d *Discovery) years(scanner string) (map[int]bool, error) {
	entries, err := os.ReadDir(filepath.Join(d.dataDir, scanner))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scanner directory %s: %w", scanner, err)
	}
	years := make(map[int]bool)
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) != 4 {
			continue
		}
		if y, err := strconv.Atoi(e.Name()); err == nil && y > 0 {
			years[y] = true
		}
	}
	return years, nil
}

func (d *Discovery) searchDay(scanner string, day time.Time) ([]domain.Archive, error) {
	dir := filepath.Join(d.dataDir, scanner, day.Format("2006"), day.Format("01"), day.Format("02"))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	logger.Debug("searching %s", dir)

	var paths []string
	for _, suffix := range d.suffixes {
		matches, err := filepath.Glob(filepath.Join(dir, "*", "*"+suffix))
		if err != nil {
			return nil, fmt.Errorf("%w: archive suffix %q: %v", domain.ErrInvalidConfig, suffix, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	archives := make([]domain.Archive, 0, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || !info.Mode().IsRegular() {
			continue
		}
		a, err := domain.NewArchive(p)
		if err != nil {
			logger.Warn("skipping %s: %v", p, err)
			continue
		}
		archives = append(archives, a)
	}
	return archives, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
