package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveState is a step in an archive's ingestion lifecycle.
type ArchiveState int

const (
	// StateDiscovered indicates the archive was found on disk.
	StateDiscovered ArchiveState = iota

	// StateChecksummed indicates the content checksum and exam identity are known
	// and the archive passed deduplication.
	StateChecksummed

	// StateExtracted indicates the archive was decompressed into the work directory.
	StateExtracted

	// StateParsed indicates every scan directory was classified.
	StateParsed

	// StateManifestsWritten indicates the study document and manifests are on disk.
	StateManifestsWritten

	// StateCleanedUp indicates transient raw files were removed.
	StateCleanedUp

	// StateSkipped indicates the exam was already ingested.
	StateSkipped

	// StateFailed indicates ingestion of this archive was abandoned.
	StateFailed
)

// String returns the state name.
func (s ArchiveState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateChecksummed:
		return "checksummed"
	case StateExtracted:
		return "extracted"
	case StateParsed:
		return "parsed"
	case StateManifestsWritten:
		return "manifests_written"
	case StateCleanedUp:
		return "cleaned_up"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ArchiveState) IsTerminal() bool {
	return s == StateCleanedUp || s == StateSkipped || s == StateFailed
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Failed is reachable from every non-terminal state.
func (s ArchiveState) CanTransition(next ArchiveState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	switch s {
	case StateDiscovered:
		return next == StateChecksummed || next == StateSkipped
	case StateChecksummed:
		return next == StateExtracted
	case StateExtracted:
		return next == StateParsed
	case StateParsed:
		return next == StateManifestsWritten
	case StateManifestsWritten:
		return next == StateCleanedUp
	default:
		return false
	}
}

// Archive is one compressed exam transfer.
type Archive struct {
	// Path is the absolute location of the archive file.
	Path string

	// Scanner, Year, Month, Day and ExamDir are taken from the
	// <scanner>/<year>/<month>/<day>/<exam-dir>/<file> layout.
	Scanner string
	Year    string
	Month   string
	Day     string
	ExamDir string

	// Checksum is the whole-file content digest.
	Checksum string

	// ExamID is derived from Checksum and the canonical path.
	ExamID string

	// State is the current lifecycle step.
	State ArchiveState
}

// NewArchive builds an Archive from a path laid out as
// <scanner>/<year>/<month>/<day>/<exam-dir>/<file>.
func NewArchive(p string) (Archive, error) {
	parts := strings.Split(path.Clean(filepath.ToSlash(p)), "/")
	if len(parts) < 6 {
		return Archive{}, fmt.Errorf("%w: archive path %q is not <scanner>/<year>/<month>/<day>/<exam>/<file>",
			ErrInvalidInput, p)
	}
	n := len(parts)
	return Archive{
		Path:    p,
		Scanner: parts[n-6],
		Year:    parts[n-5],
		Month:   parts[n-4],
		Day:     parts[n-3],
		ExamDir: parts[n-2],
		State:   StateDiscovered,
	}, nil
}

// Name returns the archive file name.
func (a Archive) Name() string {
	return path.Base(filepath.ToSlash(a.Path))
}

// CanonicalPath returns the path re-rooted at the scanner directory, so that
// identities do not depend on where the archive tree is mounted.
func (a Archive) CanonicalPath() string {
	return strings.Join([]string{a.Scanner, a.Year, a.Month, a.Day, a.ExamDir, a.Name()}, "/")
}

// Date returns the acquisition date encoded in the directory layout.
func (a Archive) Date() (time.Time, error) {
	return time.Parse("2006/01/02", a.Year+"/"+a.Month+"/"+a.Day)
}

// BaseName returns the archive file name without its compression suffix.
func (a Archive) BaseName(suffixes []string) string {
	name := a.Name()
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s)
		}
	}
	return name
}

// Transition moves the archive to next, rejecting moves the lifecycle forbids.
func (a *Archive) Transition(next ArchiveState) error {
	if !a.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, next)
	}
	a.State = next
	return nil
}
