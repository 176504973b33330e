package dicom

import (
	"context"
	"fmt"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.HeaderDecoder = (*Decoder)(nil)

var (
	tagSOPInstanceUID       = tag.Tag{Group: 0x0008, Element: 0x0018}
	tagEchoNumber           = tag.Tag{Group: 0x0018, Element: 0x0086}
	tagRawDataRunNumber     = tag.Tag{Group: 0x0019, Element: 0x10A2}
	tagImagePositionPatient = tag.Tag{Group: 0x0020, Element: 0x0032}
)

// Decoder reads instance files with suyashkumar/dicom, skipping pixel data.
type Decoder struct{}

// NewDecoder creates a new decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) parse(ctx context.Context, path string) (godicom.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return godicom.Dataset{}, err
	}
	ds, err := godicom.ParseFile(path, nil, godicom.SkipPixelData())
	if err != nil {
		return godicom.Dataset{}, fmt.Errorf("%w: %s: %v", domain.ErrDecode, path, err)
	}
	return ds, nil
}

// DecodeHeader decodes the full header and private block of path.
func (d *Decoder) DecodeHeader(ctx context.Context, path string) (*domain.Header, error) {
	ds, err := d.parse(ctx, path)
	if err != nil {
		return nil, err
	}
	return DecodeDataset(ds), nil
}

// DecodeDataset builds a Header from an already parsed dataset.
func DecodeDataset(ds godicom.Dataset) *domain.Header {
	h := &domain.Header{Dataset: EncodeDataset(ds)}
	manufacturer, _ := domain.LookupString(h.Dataset, domain.TagManufacturer, 0)
	h.Private = DecodePrivate(ds, manufacturer)
	return h
}

// DecodeInstance decodes the fields used to order multi-echo instances.
func (d *Decoder) DecodeInstance(ctx context.Context, path string) (domain.InstanceRecord, error) {
	ds, err := d.parse(ctx, path)
	if err != nil {
		return domain.InstanceRecord{}, err
	}
	return InstanceFromDataset(ds), nil
}

// InstanceFromDataset extracts an InstanceRecord. Absent or unencodable
// fields are left nil.
func InstanceFromDataset(ds godicom.Dataset) domain.InstanceRecord {
	var rec domain.InstanceRecord

	if el, ok := findEncoded(ds, tagEchoNumber); ok {
		if n, ok := el.Int(0); ok {
			rec.EchoNumber = &n
		}
	}
	if el, ok := findEncoded(ds, tagRawDataRunNumber); ok {
		if n, ok := el.Int(0); ok {
			rec.RawDataRunNumber = &n
		}
	}
	if el, ok := findEncoded(ds, tagImagePositionPatient); ok && len(el.Value) > 0 {
		rec.ImagePositionPatient = el.Value
	}
	if el, ok := findEncoded(ds, tagSOPInstanceUID); ok {
		if s, ok := el.String(0); ok {
			rec.SOPInstanceUID = &s
		}
	}
	return rec
}

func findEncoded(ds godicom.Dataset, t tag.Tag) (domain.Element, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return domain.Element{}, false
	}
	enc, err := EncodeElement(el)
	if err != nil {
		return domain.Element{}, false
	}
	return enc, true
}
