package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

const (
	csaMaxItems  = 1000
	csaTagHeader = 64 + 4 + 4 + 4*3
)

// csaTag is one named entry of a CSA header.
type csaTag struct {
	NItems  int32  `json:"n_items"`
	VM      int32  `json:"vm"`
	VR      string `json:"vr"`
	SyngoDT int32  `json:"syngodt"`
	Last3   int32  `json:"last3"`
	TagNo   int    `json:"tag_no"`
	Items   []any  `json:"items"`
}

// csaHeader is a decoded Siemens CSA header block.
type csaHeader struct {
	Type  int               `json:"type"`
	NTags uint32            `json:"n_tags"`
	Check uint32            `json:"check"`
	Tags  map[string]csaTag `json:"tags"`
}

// csaConverters parse numeric item text by VR.
var csaConverters = map[string]func(string) (any, error){
	"FL": parseCSAFloat,
	"FD": parseCSAFloat,
	"DS": parseCSAFloat,
	"IS": parseCSAInt,
	"SL": parseCSAInt,
	"SS": parseCSAInt,
	"UL": parseCSAInt,
	"US": parseCSAInt,
}

func parseCSAFloat(s string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseCSAInt(s string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// csaReader is a little-endian cursor over a CSA block.
type csaReader struct {
	buf []byte
	ptr int
}

func (r *csaReader) read(n int) ([]byte, error) {
	if n < 0 || r.ptr+n > len(r.buf) {
		return nil, fmt.Errorf("%w: CSA read of %d bytes at offset %d past end %d",
			domain.ErrPrivateHeader, n, r.ptr, len(r.buf))
	}
	b := r.buf[r.ptr : r.ptr+n]
	r.ptr += n
	return b, nil
}

func (r *csaReader) uint32() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *csaReader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

// ntString decodes bytes up to the first NUL as Latin-1.
func ntString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// parseCSA decodes a CSA1 or CSA2 ("SV10") header. The padding word that
// follows the CSA2 magic is read and discarded.
func parseCSA(data []byte) (*csaHeader, error) {
	r := &csaReader{buf: data}
	hdr := &csaHeader{Type: 1, Tags: map[string]csaTag{}}

	if len(data) >= 4 && string(data[:4]) == "SV10" {
		hdr.Type = 2
		r.ptr = 4
		if _, err := r.read(4); err != nil {
			return nil, err
		}
	}

	var err error
	if hdr.NTags, err = r.uint32(); err != nil {
		return nil, err
	}
	if hdr.Check, err = r.uint32(); err != nil {
		return nil, err
	}
	if hdr.NTags == 0 || hdr.NTags > csaMaxItems {
		return nil, fmt.Errorf("%w: CSA tag count %d outside 1..%d", domain.ErrPrivateHeader, hdr.NTags, csaMaxItems)
	}

	var tag0Items int32
	for tagNo := 0; tagNo < int(hdr.NTags); tagNo++ {
		tag, name, err := r.readTag(hdr.Type, tagNo, tag0Items)
		if err != nil {
			return nil, err
		}
		if tagNo == 0 {
			tag0Items = tag.NItems
		}
		hdr.Tags[name] = tag
	}
	return hdr, nil
}

func (r *csaReader) readTag(hdrType, tagNo int, tag0Items int32) (csaTag, string, error) {
	head, err := r.read(csaTagHeader)
	if err != nil {
		return csaTag{}, "", err
	}
	name := ntString(head[:64])
	tag := csaTag{
		VM:      int32(binary.LittleEndian.Uint32(head[64:68])),
		VR:      ntString(head[68:72]),
		SyngoDT: int32(binary.LittleEndian.Uint32(head[72:76])),
		NItems:  int32(binary.LittleEndian.Uint32(head[76:80])),
		Last3:   int32(binary.LittleEndian.Uint32(head[80:84])),
		TagNo:   tagNo,
		Items:   []any{},
	}
	if tag.NItems < 0 || tag.NItems > csaMaxItems {
		return csaTag{}, "", fmt.Errorf("%w: CSA tag %q has %d items", domain.ErrPrivateHeader, name, tag.NItems)
	}

	nValues := tag.VM
	if nValues == 0 {
		nValues = tag.NItems
	}
	convert := csaConverters[tag.VR]

	if tagNo == 0 {
		tag0Items = tag.NItems
	}

	for itemNo := int32(0); itemNo < tag.NItems; itemNo++ {
		var x [4]int32
		for i := range x {
			if x[i], err = r.int32(); err != nil {
				return csaTag{}, "", err
			}
		}

		var itemLen int
		if hdrType == 1 {
			itemLen = int(x[0] - tag0Items)
			if itemLen < 0 || r.ptr+itemLen > len(r.buf) {
				if itemNo < tag.VM {
					tag.Items = append(tag.Items, "")
				}
				break
			}
		} else {
			itemLen = int(x[1])
			if itemLen < 0 || r.ptr+itemLen > len(r.buf) {
				return csaTag{}, "", fmt.Errorf("%w: CSA item of %d bytes overruns block", domain.ErrPrivateHeader, itemLen)
			}
		}

		if itemNo >= nValues {
			if itemLen != 0 {
				return csaTag{}, "", fmt.Errorf("%w: CSA tag %q has data past its value count", domain.ErrPrivateHeader, name)
			}
			continue
		}

		raw, err := r.read(itemLen)
		if err != nil {
			return csaTag{}, "", err
		}
		item := ntString(raw)
		if convert != nil {
			// Trailing items of numeric tags may be empty; the first one ends the list.
			if item == "" {
				break
			}
			v, err := convert(item)
			if err != nil {
				return csaTag{}, "", fmt.Errorf("%w: CSA tag %q item %d: %v", domain.ErrPrivateHeader, name, itemNo, err)
			}
			tag.Items = append(tag.Items, v)
		} else {
			tag.Items = append(tag.Items, item)
		}

		if pad := itemLen % 4; pad != 0 {
			r.ptr += 4 - pad
		}
	}
	return tag, name, nil
}

// scalar returns the first item of a named tag.
func (h *csaHeader) scalar(name string) (any, bool) {
	tag, ok := h.Tags[name]
	if !ok || len(tag.Items) == 0 {
		return nil, false
	}
	return tag.Items[0], true
}

// isMosaic reports whether the image is a Siemens mosaic: the acquisition
// matrix text is present and the mosaic image count is present and non-zero.
func (h *csaHeader) isMosaic() bool {
	if _, ok := h.scalar("AcquisitionMatrixText"); !ok {
		return false
	}
	n, ok := h.scalar("NumberOfImagesInMosaic")
	if !ok {
		return false
	}
	switch v := n.(type) {
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != "" && v != "0"
	default:
		return n != nil
	}
}

// reencode applies the VR table to the items of every scalar tag. Items
// whose encoding fails are kept as read.
func (h *csaHeader) reencode() {
	for name, tag := range h.Tags {
		kind := domain.KindOf(tag.VR)
		if kind == domain.KindBulk || kind == domain.KindSequence || kind == domain.KindPersonName {
			continue
		}
		enc := encoderFor(tag.VR)
		items := make([]any, len(tag.Items))
		for i, item := range tag.Items {
			v, err := enc(item)
			if err != nil {
				v = item
			}
			items[i] = v
		}
		tag.Items = items
		h.Tags[name] = tag
	}
}
