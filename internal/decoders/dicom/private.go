package dicom

import (
	"encoding/json"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
	"github.com/fmrif/osmium-ingest/internal/logger"
)

var (
	tagSiemensCSA = tag.Tag{Group: 0x0029, Element: 0x1010}
	tagGEBlob     = tag.Tag{Group: 0x0025, Element: 0x101B}
)

type privateDecoder func(ds godicom.Dataset) (domain.PrivateData, error)

// vendorDecoders is the closed table of private header decoders.
var vendorDecoders = map[domain.VendorFamily]privateDecoder{
	domain.VendorSiemens: decodeSiemens,
	domain.VendorGE:      decodeGE,
}

// DecodePrivate extracts the vendor-private block for manufacturer.
// It never fails: a missing or malformed block yields empty private data.
func DecodePrivate(ds godicom.Dataset, manufacturer string) domain.PrivateData {
	vendor := domain.VendorFromManufacturer(manufacturer)
	decode, ok := vendorDecoders[vendor]
	if !ok {
		return domain.PrivateData{}
	}
	pd, err := decode(ds)
	if err != nil {
		logger.Debug("private header (%s): %v", vendor, err)
		return domain.PrivateData{}
	}
	return pd
}

func decodeSiemens(ds godicom.Dataset) (domain.PrivateData, error) {
	blob, err := elementBytes(ds, tagSiemensCSA)
	if err != nil {
		return domain.PrivateData{}, err
	}
	hdr, err := parseCSA(blob)
	if err != nil {
		return domain.PrivateData{}, err
	}

	pd := domain.PrivateData{IsMosaic: hdr.isMosaic()}
	hdr.reencode()

	data, err := toJSONMap(hdr)
	if err != nil {
		logger.Debug("dropping CSA header: %v", err)
		return pd, nil
	}
	pd.Data = data
	return pd, nil
}

func decodeGE(ds godicom.Dataset) (domain.PrivateData, error) {
	blob, err := elementBytes(ds, tagGEBlob)
	if err != nil {
		return domain.PrivateData{}, err
	}
	data, err := decodeGEBlob(blob)
	if err != nil {
		return domain.PrivateData{}, err
	}
	return domain.PrivateData{Data: data}, nil
}

// elementBytes returns the raw payload of a private element.
func elementBytes(ds godicom.Dataset, t tag.Tag) ([]byte, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, err
	}
	if el.Value == nil {
		return nil, domain.ErrNotFound
	}
	switch v := el.Value.GetValue().(type) {
	case []byte:
		return v, nil
	case []string:
		var out []byte
		for i, s := range v {
			if i > 0 {
				out = append(out, '\\')
			}
			out = append(out, s...)
		}
		return out, nil
	default:
		return nil, domain.ErrPrivateHeader
	}
}

// toJSONMap converts v to its generic JSON form, failing when v cannot be
// serialized.
func toJSONMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
