package services

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// Identity computes archive checksums and the exam and scan identities
// derived from them.
type Identity struct {
	checksummer driven.Checksummer
}

// NewIdentity creates an identity engine using checksummer for whole-archive digests.
func NewIdentity(checksummer driven.Checksummer) *Identity {
	return &Identity{checksummer: checksummer}
}

// Algorithm names the archive digest.
func (i *Identity) Algorithm() string {
	return i.checksummer.Algorithm()
}

// Stamp computes the archive checksum and exam identity and stores both on a.
func (i *Identity) Stamp(ctx context.Context, a *domain.Archive) error {
	sum, err := i.checksummer.Sum(ctx, a.Path)
	if err != nil {
		return err
	}
	if sum == "" {
		return fmt.Errorf("%w: empty checksum for %s", domain.ErrChecksum, a.Path)
	}
	a.Checksum = sum
	a.ExamID = ExamID(sum, a.CanonicalPath())
	return nil
}

// ExamID is the hex SHA-512/256 of base64(checksum + canonicalPath).
func ExamID(checksum, canonicalPath string) string {
	return digest(checksum + canonicalPath)
}

// ScanID is the hex SHA-512/256 of base64(examID + scanDir).
func ScanID(examID, scanDir string) string {
	return digest(examID + scanDir)
}

func digest(msg string) string {
	sum := sha512.Sum512_256([]byte(base64.StdEncoding.EncodeToString([]byte(msg))))
	return hex.EncodeToString(sum[:])
}
