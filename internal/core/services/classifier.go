package services

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// Ensure Classifier implements the inspector interface.
var _ driving.Inspector = (*Classifier)(nil)

// Classification is the outcome of inspecting one scan directory.
type Classification struct {
	Entry domain.ScanEntry
	Echo  domain.EchoDecision

	// Header is the representative decode, nil for file collections.
	Header *domain.Header
}

// Classifier decodes one representative instance per scan and decides
// whether the scan needs per-instance harvesting.
type Classifier struct {
	decoder       driven.HeaderDecoder
	suffix        string
	parserVersion string
}

// NewClassifier creates a classifier for instances ending in settings.InstanceSuffix.
func NewClassifier(decoder driven.HeaderDecoder, settings domain.Settings) *Classifier {
	return &Classifier{
		decoder:       decoder,
		suffix:        settings.InstanceSuffix,
		parserVersion: settings.ParserVersion,
	}
}

// Classify builds the scan entry for scanDir. files are paths relative to
// scanDir, as returned by ListScanFiles.
func (c *Classifier) Classify(ctx context.Context, examID, scanDir string, files []string) Classification {
	name := filepath.Base(scanDir)
	cls := Classification{
		Entry: domain.ScanEntry{
			Metadata: domain.ScanInfo{
				ParentExamID:  examID,
				ScanDir:       name,
				ScanID:        ScanID(examID, name),
				NumFiles:      len(files),
				ParserVersion: c.parserVersion,
			},
		},
		Echo: domain.EchoDecision{Reason: "not a DICOM scan"},
	}

	var candidates []string
	for _, f := range files {
		if strings.HasSuffix(f, c.suffix) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		logger.Debug("scan %s has no %s files, recording as file collection", name, c.suffix)
		return cls
	}

	for _, f := range candidates {
		if ctx.Err() != nil {
			break
		}
		h, err := c.decoder.DecodeHeader(ctx, filepath.Join(scanDir, f))
		if err != nil {
			logger.Error("Unable to open invalid DICOM file %s: %v", filepath.Join(scanDir, f), err)
			continue
		}
		cls.Header = h
		break
	}
	if cls.Header == nil {
		logger.Error("Unable to open any DICOMs for scan %s", scanDir)
		cls.Echo.Reason = "no decodable instance"
		return cls
	}

	logger.Info("Found %d DICOM files for scan %s", len(files), scanDir)

	private := cls.Header.Private
	cls.Entry.DICOMData = cls.Header.Dataset
	cls.Entry.PrivateData = &private
	cls.Echo = DetectMultiEcho(cls.Header.Dataset)
	logger.Debug("scan %s: %s", name, cls.Echo.Reason)

	if cls.Echo.Flagged {
		sortable := true
		cls.Entry.Metadata.PerInstanceSortable = &sortable
		cls.Entry.Metadata.EchoCount = cls.Echo.EchoCount
	}
	return cls
}

// DetectMultiEcho flags a scan for per-instance harvesting only when every
// condition holds: an MR image storage SOP class, a GE manufacturer, non-zero
// images and locations in acquisition where images is a larger multiple of
// locations, and a non-zero raw data run number.
func DetectMultiEcho(ds domain.Dataset) domain.EchoDecision {
	sopClass, _ := domain.LookupString(ds, domain.TagSOPClassUID, 0)
	if !slices.Contains(domain.MRImageStorageClasses, sopClass) {
		return domain.EchoDecision{Reason: fmt.Sprintf("SOP class %q is not MR image storage", sopClass)}
	}

	manufacturer, _ := domain.LookupString(ds, domain.TagManufacturer, 0)
	if domain.VendorFromManufacturer(manufacturer) != domain.VendorGE {
		return domain.EchoDecision{Reason: fmt.Sprintf("manufacturer %q is not GE", manufacturer)}
	}

	indices, _ := domain.LookupInt(ds, domain.TagImagesInAcquisition, 0)
	locations, _ := domain.LookupInt(ds, domain.TagLocationsInAcquisition, 0)
	if indices == 0 || locations == 0 {
		return domain.EchoDecision{Reason: "number of indices or slices missing"}
	}
	if indices == locations {
		return domain.EchoDecision{Reason: "indices equal slices"}
	}
	if indices%locations != 0 {
		return domain.EchoDecision{Reason: fmt.Sprintf("%d indices not divisible by %d slices", indices, locations)}
	}

	echoes := int(indices / locations)
	if runNumber, _ := domain.LookupInt(ds, domain.TagRawDataRunNumber, 0); runNumber == 0 {
		return domain.EchoDecision{Reason: "no slice index (raw data run number)"}
	}

	return domain.EchoDecision{
		Flagged:   true,
		EchoCount: echoes,
		Reason:    fmt.Sprintf("multi-echo: %d echoes", echoes),
	}
}

// Inspect decodes a single instance and applies the multi-echo check.
func (c *Classifier) Inspect(ctx context.Context, path string) (*driving.InspectResult, error) {
	h, err := c.decoder.DecodeHeader(ctx, path)
	if err != nil {
		return nil, err
	}
	return &driving.InspectResult{
		Path:   path,
		Header: h,
		Echo:   DetectMultiEcho(h.Dataset),
	}, nil
}

// ListScanFiles returns every regular file below scanDir as a slash-separated
// relative path, sorted, excluding readme files. A scan with no such file
// yields domain.ErrEmptyScan.
func ListScanFiles(scanDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(scanDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || domain.IsExcludedFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(scanDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", scanDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyScan, scanDir)
	}
	sort.Strings(files)
	return files, nil
}
