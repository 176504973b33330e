package dicom

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

// TagKey renders a tag in canonical dataset key form ("00080016").
func TagKey(t tag.Tag) string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// EncodeDataset converts a parsed dataset into the vendor-neutral tree.
// Fields whose value cannot be encoded are skipped and logged.
func EncodeDataset(ds godicom.Dataset) domain.Dataset {
	return encodeElements(ds.Elements)
}

func encodeElements(elements []*godicom.Element) domain.Dataset {
	out := make(domain.Dataset, len(elements))
	for _, el := range elements {
		if el == nil {
			continue
		}
		key := TagKey(el.Tag)
		encoded, err := EncodeElement(el)
		if err != nil {
			logger.Warn("skipping tag %s (%s): %v", key, el.RawValueRepresentation, err)
			continue
		}
		out[key] = encoded
	}
	return out
}

// EncodeElement converts one element.
//
// Single-valued elements with an empty value carry no Value. In
// multi-valued elements every position is kept, with nil for empty
// entries, so that sibling arrays stay index-aligned.
//
// Private tags read as UN from Implicit VR files take their VR from
// domain.PrivateVR, and their bytes are reinterpreted under it.
func EncodeElement(el *godicom.Element) (domain.Element, error) {
	vr := el.RawValueRepresentation
	value := el.Value
	if vr == tag.UnknownVR {
		if known, ok := domain.PrivateVR(TagKey(el.Tag)); ok {
			vr = known
			if b, isBytes := bytesOf(value); isBytes && !domain.IsBulkVR(vr) {
				raw, err := unknownValues(vr, b)
				if err != nil {
					return domain.Element{}, err
				}
				return encodeRaw(domain.Element{VR: vr}, vr, raw)
			}
		}
	}
	out := domain.Element{VR: vr}

	if domain.IsBulkVR(vr) || value == nil || value.ValueType() == godicom.PixelData {
		if domain.IsBulkVR(vr) || value != nil {
			out.Available = true
		}
		return out, nil
	}

	if value.ValueType() == godicom.Sequences {
		items, _ := value.GetValue().([]*godicom.SequenceItemValue)
		for _, item := range items {
			var children []*godicom.Element
			if item != nil {
				children, _ = item.GetValue().([]*godicom.Element)
			}
			if len(children) == 0 {
				out.Value = append(out.Value, nil)
				continue
			}
			out.Value = append(out.Value, encodeElements(children))
		}
		return out, nil
	}

	return encodeRaw(out, vr, rawValues(vr, value))
}

// encodeRaw applies the encoder for vr to raw and stores the result in out.
func encodeRaw(out domain.Element, vr string, raw []any) (domain.Element, error) {
	enc := encoderFor(vr)

	switch len(raw) {
	case 0:
		return out, nil
	case 1:
		if isEmpty(raw[0]) {
			return out, nil
		}
		v, err := enc(raw[0])
		if err != nil {
			return domain.Element{}, err
		}
		if v != nil {
			out.Value = []any{v}
		}
		return out, nil
	}

	out.Value = make([]any, len(raw))
	for i, r := range raw {
		if isEmpty(r) {
			continue
		}
		v, err := enc(r)
		if err != nil {
			return domain.Element{}, fmt.Errorf("value %d: %w", i, err)
		}
		out.Value[i] = v
	}
	return out, nil
}

// rawValues flattens an element value into individual raw entries.
func rawValues(vr string, v godicom.Value) []any {
	switch v.ValueType() {
	case godicom.Strings:
		ss, _ := v.GetValue().([]string)
		out := make([]any, len(ss))
		for i, s := range ss {
			out[i] = s
		}
		return out
	case godicom.Ints:
		ns, _ := v.GetValue().([]int)
		if domain.KindOf(vr) == domain.KindTag {
			return packTags(ns)
		}
		out := make([]any, len(ns))
		for i, n := range ns {
			out[i] = n
		}
		return out
	case godicom.Floats:
		fs, _ := v.GetValue().([]float64)
		out := make([]any, len(fs))
		for i, f := range fs {
			out[i] = f
		}
		return out
	case godicom.Bytes:
		b, _ := v.GetValue().([]byte)
		return []any{string(b)}
	default:
		return nil
	}
}

// binaryWidths are the item sizes of the binary numeric VRs.
var binaryWidths = map[string]int{"SS": 2, "US": 2, "SL": 4, "UL": 4, "FL": 4, "FD": 8}

func bytesOf(v godicom.Value) ([]byte, bool) {
	if v == nil || v.ValueType() != godicom.Bytes {
		return nil, false
	}
	b, ok := v.GetValue().([]byte)
	return b, ok
}

// unknownValues splits an undecoded little-endian payload into raw entries
// for vr.
func unknownValues(vr string, b []byte) ([]any, error) {
	le := binary.LittleEndian
	width, ok := binaryWidths[vr]
	if !ok {
		s := string(b)
		if s == "" {
			return nil, nil
		}
		parts := strings.Split(s, "\\")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	}
	if len(b)%width != 0 {
		return nil, fmt.Errorf("%w: %s payload of %d bytes", domain.ErrDecode, vr, len(b))
	}

	out := make([]any, 0, len(b)/width)
	for i := 0; i < len(b); i += width {
		chunk := b[i : i+width]
		switch vr {
		case "SS":
			out = append(out, int(int16(le.Uint16(chunk))))
		case "US":
			out = append(out, int(le.Uint16(chunk)))
		case "SL":
			out = append(out, int(int32(le.Uint32(chunk))))
		case "UL":
			out = append(out, int64(le.Uint32(chunk)))
		case "FL":
			out = append(out, float64(math.Float32frombits(le.Uint32(chunk))))
		case "FD":
			out = append(out, math.Float64frombits(le.Uint64(chunk)))
		}
	}
	return out, nil
}

// packTags pairs group and element numbers read as separate integers.
func packTags(ns []int) []any {
	if len(ns)%2 != 0 {
		out := make([]any, len(ns))
		for i, n := range ns {
			out[i] = n
		}
		return out
	}
	out := make([]any, 0, len(ns)/2)
	for i := 0; i < len(ns); i += 2 {
		out = append(out, ns[i]<<16|ns[i+1]&0xFFFF)
	}
	return out
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return Sanitize(v) == ""
	default:
		return false
	}
}
