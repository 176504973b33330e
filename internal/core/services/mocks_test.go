package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// --- Mock implementations for pipeline testing ---

// mockDecoder implements driven.HeaderDecoder. Files whose content is
// "corrupt" fail to decode; every other file decodes to header.
type mockDecoder struct {
	mu       sync.Mutex
	header   *domain.Header
	records  map[string]domain.InstanceRecord
	decoded  []string
	instance int
}

func (m *mockDecoder) DecodeHeader(ctx context.Context, path string) (*domain.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.check(path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.decoded = append(m.decoded, filepath.Base(path))
	m.mu.Unlock()
	if m.header == nil {
		return &domain.Header{Dataset: domain.Dataset{}}, nil
	}
	h := *m.header
	return &h, nil
}

func (m *mockDecoder) DecodeInstance(_ context.Context, path string) (domain.InstanceRecord, error) {
	m.mu.Lock()
	m.instance++
	m.mu.Unlock()
	if err := m.check(path); err != nil {
		return domain.InstanceRecord{}, err
	}
	return m.records[filepath.Base(path)], nil
}

func (m *mockDecoder) check(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if string(data) == "corrupt" {
		return fmt.Errorf("%w: %s", domain.ErrDecode, path)
	}
	return nil
}

// fakeExtractor implements driven.ArchiveExtractor by materialising a
// predefined tree per archive file name.
type fakeExtractor struct {
	trees map[string]map[string]string
	err   map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(archivePath)
	if err := f.err[name]; err != nil {
		return err
	}
	tree, ok := f.trees[name]
	if !ok {
		return fmt.Errorf("%w: unknown archive %s", domain.ErrExtraction, name)
	}
	for rel, content := range tree {
		p := filepath.Join(destDir, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(p, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// stubChecksummer implements driven.Checksummer with a fixed digest derived
// from the file content.
type stubChecksummer struct {
	fail map[string]bool
}

func (s *stubChecksummer) Sum(_ context.Context, path string) (string, error) {
	if s.fail[filepath.Base(path)] {
		return "", fmt.Errorf("%w: %s", domain.ErrChecksum, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", data), nil
}

func (s *stubChecksummer) Algorithm() string { return "stub" }

// Ensure mocks implement interfaces
var _ driven.HeaderDecoder = (*mockDecoder)(nil)
var _ driven.ArchiveExtractor = (*fakeExtractor)(nil)
var _ driven.Checksummer = (*stubChecksummer)(nil)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func element(vr string, values ...any) domain.Element {
	return domain.Element{VR: vr, Value: values}
}

// geDataset builds a GE MR header with the given acquisition counts.
func geDataset(indices, locations, runNumber int64) domain.Dataset {
	return domain.Dataset{
		domain.TagSOPClassUID:            element("UI", "1.2.840.10008.5.1.4.1.1.4"),
		domain.TagManufacturer:           element("LO", "GE MEDICAL SYSTEMS"),
		domain.TagStationName:            element("SH", "fmri3Tb"),
		domain.TagImagesInAcquisition:    element("IS", indices),
		domain.TagLocationsInAcquisition: element("SS", locations),
		domain.TagRawDataRunNumber:       element("SL", runNumber),
	}
}

func testSettings(t *testing.T) domain.Settings {
	t.Helper()
	s := domain.DefaultSettings()
	s.DataDir = t.TempDir()
	s.WorkDir = t.TempDir()
	s.ExtractWorkers = 2
	s.DecodeWorkers = 3
	return s
}
