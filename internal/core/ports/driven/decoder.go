package driven

import (
	"context"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// HeaderDecoder reads instance headers without touching pixel data.
type HeaderDecoder interface {
	// DecodeHeader decodes the full header of one instance together with
	// its vendor-private block. Returns an error wrapping domain.ErrDecode
	// when the file is not a readable instance.
	DecodeHeader(ctx context.Context, path string) (*domain.Header, error)

	// DecodeInstance decodes only the fields needed to order instances.
	// Returns an error wrapping domain.ErrDecode on failure.
	DecodeInstance(ctx context.Context, path string) (domain.InstanceRecord, error)
}
