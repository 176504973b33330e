// Package artifacts writes and reads the study documents and per-scan
// manifests left in a session directory.
package artifacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// Verify interface compliance.
var (
	_ driven.ArtifactWriter = (*Store)(nil)
	_ driven.ArtifactReader = (*Store)(nil)
)

// Store reads and writes artifacts on the local filesystem.
type Store struct{}

// NewStore creates a new artifact store.
func NewStore() *Store {
	return &Store{}
}

// WriteStudy writes study_<exam_id>_metadata.txt into dir and returns its path.
func (s *Store) WriteStudy(dir string, study *domain.StudyMetadata) (string, error) {
	if study == nil || study.Metadata.ExamID == "" {
		return "", fmt.Errorf("%w: study without exam id", domain.ErrInvalidInput)
	}
	if study.Data == nil {
		study.Data = []domain.ScanEntry{}
	}
	path := filepath.Join(dir, domain.StudyFileName(study.Metadata.ExamID))
	err := writeAtomic(path, func(w *bufio.Writer) error {
		return json.NewEncoder(w).Encode(study)
	})
	if err != nil {
		return "", fmt.Errorf("write study: %w", err)
	}
	return path, nil
}

// WriteChecksumManifest writes "<checksum>  <filename>" lines.
func (s *Store) WriteChecksumManifest(path string, lines []domain.ChecksumLine) error {
	err := writeAtomic(path, func(w *bufio.Writer) error {
		for _, l := range lines {
			if _, err := fmt.Fprintf(w, "%s  %s\n", l.Checksum, l.Filename); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write checksum manifest: %w", err)
	}
	return nil
}

// WriteInstanceManifest writes "<filename>\t<json>" lines.
func (s *Store) WriteInstanceManifest(path string, lines []domain.InstanceLine) error {
	err := writeAtomic(path, func(w *bufio.Writer) error {
		for _, l := range lines {
			data, err := json.Marshal(l.Record)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\n", l.Filename, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write instance manifest: %w", err)
	}
	return nil
}

// writeAtomic writes through a temporary file renamed into place on success.
func writeAtomic(path string, fill func(w *bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
