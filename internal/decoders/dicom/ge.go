package dicom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

var gzipMagic = []byte{0x1f, 0x8b}

// maxGEBlob bounds the decompressed size of a GE private blob.
const maxGEBlob = 16 << 20

// decodeGEBlob decompresses the gzip stream embedded in a GE private blob
// and parses its "key value" lines. Bytes before the gzip magic are padding.
func decodeGEBlob(blob []byte) (map[string]any, error) {
	pos := bytes.Index(blob, gzipMagic)
	if pos < 0 {
		return nil, fmt.Errorf("%w: no gzip stream in GE blob", domain.ErrPrivateHeader)
	}

	zr, err := gzip.NewReader(bytes.NewReader(blob[pos:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPrivateHeader, err)
	}
	defer zr.Close()
	zr.Multistream(false)

	text, err := io.ReadAll(io.LimitReader(zr, maxGEBlob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPrivateHeader, err)
	}
	for _, c := range text {
		if c >= 0x80 {
			return nil, fmt.Errorf("%w: GE blob is not ASCII", domain.ErrPrivateHeader)
		}
	}

	out := map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(string(text)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(strings.ReplaceAll(val, `"`, ""))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: GE blob is empty", domain.ErrPrivateHeader)
	}
	return out, nil
}
