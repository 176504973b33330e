package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkmik/argsort"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
)

// Ensure ManifestVerifier implements the interface.
var _ driving.Verifier = (*ManifestVerifier)(nil)

// ManifestVerifier reconciles the manifests of a session directory by
// filename, the way downstream loaders consume them.
type ManifestVerifier struct {
	reader driven.ArtifactReader
}

// NewManifestVerifier creates a verifier reading artifacts through reader.
func NewManifestVerifier(reader driven.ArtifactReader) *ManifestVerifier {
	return &ManifestVerifier{reader: reader}
}

// Verify checks every checksum manifest in sessionDir against its instance
// manifest, if one exists.
func (v *ManifestVerifier) Verify(ctx context.Context, sessionDir string) (*driving.VerifyReport, error) {
	report := &driving.VerifyReport{SessionDir: sessionDir}

	studies, err := filepath.Glob(filepath.Join(sessionDir, "study_*"+domain.MetadataSuffix))
	if err != nil {
		return nil, err
	}
	if len(studies) != 1 {
		return nil, fmt.Errorf("%w: %d study documents in %s", domain.ErrStructural, len(studies), sessionDir)
	}
	study, err := v.reader.ReadStudy(studies[0])
	if err != nil {
		return nil, err
	}
	report.ExamID = study.Metadata.ExamID

	checksums, err := filepath.Glob(filepath.Join(sessionDir, "*_scan_*"+domain.ChecksumSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(checksums)

	for _, path := range checksums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scan, ok := domain.ScanFromArtifactName(filepath.Base(path))
		if !ok {
			continue
		}
		sv, err := v.verifyScan(path, scan)
		if err != nil {
			return nil, err
		}
		report.Scans = append(report.Scans, sv)
	}
	return report, nil
}

func (v *ManifestVerifier) verifyScan(checksumPath, scan string) (driving.ScanVerification, error) {
	sv := driving.ScanVerification{Scan: scan}

	sums, err := v.reader.ReadChecksumManifest(checksumPath)
	if err != nil {
		return sv, err
	}
	sv.Files = len(sums)

	checksummed := make(map[string]int, len(sums))
	for _, l := range sums {
		checksummed[l.Filename]++
	}

	instancePath := strings.TrimSuffix(checksumPath, domain.ChecksumSuffix) + domain.MetadataSuffix
	if _, err := os.Stat(instancePath); os.IsNotExist(err) {
		sv.Duplicates = duplicates(checksummed)
		return sv, nil
	}

	lines, err := v.reader.ReadInstanceManifest(instancePath)
	if err != nil {
		return sv, err
	}
	sv.Instances = len(lines)

	harvested := make(map[string]int, len(lines))
	for _, l := range lines {
		harvested[l.Filename]++
	}

	for name := range checksummed {
		if harvested[name] == 0 {
			sv.MissingInstances = append(sv.MissingInstances, name)
		}
	}
	for name := range harvested {
		if checksummed[name] == 0 {
			sv.ExtraInstances = append(sv.ExtraInstances, name)
		}
	}
	sort.Strings(sv.MissingInstances)
	sort.Strings(sv.ExtraInstances)
	sv.Duplicates = duplicates(checksummed, harvested)
	sv.Order = EchoOrder(lines)
	return sv, nil
}

// EchoOrder returns the filenames sorted by raw data run number, then echo
// number, then filename. Missing numbers sort first.
func EchoOrder(lines []domain.InstanceLine) []string {
	key := func(p *int64) int64 {
		if p == nil {
			return -1
		}
		return *p
	}
	idx := argsort.SortSlice(lines, func(i, j int) bool {
		a, b := lines[i].Record, lines[j].Record
		if ka, kb := key(a.RawDataRunNumber), key(b.RawDataRunNumber); ka != kb {
			return ka < kb
		}
		if ka, kb := key(a.EchoNumber), key(b.EchoNumber); ka != kb {
			return ka < kb
		}
		return lines[i].Filename < lines[j].Filename
	})

	order := make([]string, len(idx))
	for i, k := range idx {
		order[i] = lines[k].Filename
	}
	return order
}

// duplicates returns the names listed more than once in any of counts,
// each reported once.
func duplicates(counts ...map[string]int) []string {
	seen := make(map[string]bool)
	var dups []string
	for _, c := range counts {
		for name, n := range c {
			if n > 1 && !seen[name] {
				seen[name] = true
				dups = append(dups, name)
			}
		}
	}
	sort.Strings(dups)
	return dups
}
