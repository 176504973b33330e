package artifacts

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// ReadStudy loads a study document.
func (s *Store) ReadStudy(path string) (*domain.StudyMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, notFound(err)
	}
	var study domain.StudyMetadata
	if err := json.Unmarshal(data, &study); err != nil {
		return nil, fmt.Errorf("%w: study %s: %v", domain.ErrInvalidInput, path, err)
	}
	return &study, nil
}

// ReadChecksumManifest loads a checksum manifest. A leading "./" on file
// names is dropped so manifests produced by find(1) read the same.
func (s *Store) ReadChecksumManifest(path string) ([]domain.ChecksumLine, error) {
	var lines []domain.ChecksumLine
	err := scanLines(path, func(n int, line string) error {
		sum, name, ok := strings.Cut(line, "  ")
		if !ok {
			return fmt.Errorf("%w: %s line %d: missing separator", domain.ErrInvalidInput, path, n)
		}
		lines = append(lines, domain.ChecksumLine{
			Checksum: strings.TrimSpace(sum),
			Filename: strings.TrimPrefix(strings.TrimSpace(name), "./"),
		})
		return nil
	})
	return lines, err
}

// ReadInstanceManifest loads an instance metadata manifest.
func (s *Store) ReadInstanceManifest(path string) ([]domain.InstanceLine, error) {
	var lines []domain.InstanceLine
	err := scanLines(path, func(n int, line string) error {
		name, payload, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("%w: %s line %d: missing tab", domain.ErrInvalidInput, path, n)
		}
		var rec domain.InstanceRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return fmt.Errorf("%w: %s line %d: %v", domain.ErrInvalidInput, path, n, err)
		}
		lines = append(lines, domain.InstanceLine{Filename: strings.TrimPrefix(name, "./"), Record: rec})
		return nil
	})
	return lines, err
}

func scanLines(path string, fn func(n int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return notFound(err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
