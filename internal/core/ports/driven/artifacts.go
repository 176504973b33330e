package driven

import "github.com/fmrif/osmium-ingest/internal/core/domain"

// ArtifactWriter persists the documents produced for an exam.
// Each call writes one complete file; partial files are never left behind.
type ArtifactWriter interface {
	// WriteStudy writes the study document into dir.
	WriteStudy(dir string, study *domain.StudyMetadata) (string, error)

	// WriteChecksumManifest writes one "<checksum>  <filename>" line per entry.
	WriteChecksumManifest(path string, lines []domain.ChecksumLine) error

	// WriteInstanceManifest writes one "<filename>\t<json>" line per entry.
	WriteInstanceManifest(path string, lines []domain.InstanceLine) error
}

// ArtifactReader loads artifacts back, the way downstream loaders do.
type ArtifactReader interface {
	// ReadStudy loads a study document.
	ReadStudy(path string) (*domain.StudyMetadata, error)

	// ReadChecksumManifest loads a checksum manifest.
	ReadChecksumManifest(path string) ([]domain.ChecksumLine, error)

	// ReadInstanceManifest loads an instance metadata manifest.
	ReadInstanceManifest(path string) ([]domain.InstanceLine, error)
}
