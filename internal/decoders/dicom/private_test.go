package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	godicom "github.com/suyashkumar/dicom"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

type testCSATag struct {
	name  string
	vr    string
	vm    int32
	items []string
	// empty is the number of trailing zero-length items.
	empty int
}

// buildCSA2 writes a CSA2 ("SV10") block.
func buildCSA2(tags []testCSATag) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("SV10")
	buf.Write([]byte{4, 3, 2, 1})
	_ = binary.Write(&buf, le, uint32(len(tags)))
	_ = binary.Write(&buf, le, uint32(77))

	for _, tg := range tags {
		name := make([]byte, 64)
		copy(name, tg.name)
		buf.Write(name)
		_ = binary.Write(&buf, le, tg.vm)
		vr := make([]byte, 4)
		copy(vr, tg.vr)
		buf.Write(vr)
		_ = binary.Write(&buf, le, int32(0))
		_ = binary.Write(&buf, le, int32(len(tg.items)+tg.empty))
		_ = binary.Write(&buf, le, int32(77))

		for _, item := range tg.items {
			data := append([]byte(item), 0)
			n := int32(len(data))
			for _, x := range []int32{n, n, 77, n} {
				_ = binary.Write(&buf, le, x)
			}
			buf.Write(data)
			if pad := len(data) % 4; pad != 0 {
				buf.Write(make([]byte, 4-pad))
			}
		}
		for i := 0; i < tg.empty; i++ {
			for _, x := range []int32{0, 0, 77, 0} {
				_ = binary.Write(&buf, le, x)
			}
		}
	}
	return buf.Bytes()
}

func mosaicTags(images string) []testCSATag {
	return []testCSATag{
		{name: "AcquisitionMatrixText", vr: "SH", vm: 1, items: []string{"64p*64"}, empty: 5},
		{name: "NumberOfImagesInMosaic", vr: "US", vm: 1, items: []string{images}, empty: 5},
		{name: "SliceNormalVector", vr: "FD", vm: 3, items: []string{"0.0", "0.1", "0.99"}, empty: 3},
		{name: "ImaCoilString", vr: "LO", vm: 1, items: []string{"HEA;HEP"}},
		{name: "EchoLinePosition", vr: "IS", vm: 1, items: []string{"32 "}},
	}
}

func TestParseCSA_CSA2(t *testing.T) {
	hdr, err := parseCSA(buildCSA2(mosaicTags("36")))
	require.NoError(t, err)

	assert.Equal(t, 2, hdr.Type)
	assert.Equal(t, uint32(5), hdr.NTags)
	assert.Equal(t, uint32(77), hdr.Check)
	require.Contains(t, hdr.Tags, "NumberOfImagesInMosaic")

	assert.Equal(t, []any{"64p*64"}, hdr.Tags["AcquisitionMatrixText"].Items)
	assert.Equal(t, []any{int64(36)}, hdr.Tags["NumberOfImagesInMosaic"].Items)
	assert.Equal(t, []any{0.0, 0.1, 0.99}, hdr.Tags["SliceNormalVector"].Items)
	assert.Equal(t, []any{int64(32)}, hdr.Tags["EchoLinePosition"].Items)
	assert.Equal(t, int32(6), hdr.Tags["AcquisitionMatrixText"].NItems)
	assert.Equal(t, 1, hdr.Tags["NumberOfImagesInMosaic"].TagNo)
	assert.True(t, hdr.isMosaic())
}

func TestParseCSA_NotMosaic(t *testing.T) {
	hdr, err := parseCSA(buildCSA2(mosaicTags("0")))
	require.NoError(t, err)
	assert.False(t, hdr.isMosaic())

	hdr, err = parseCSA(buildCSA2(mosaicTags("36")[1:]))
	require.NoError(t, err)
	assert.False(t, hdr.isMosaic(), "no acquisition matrix text")
}

func TestParseCSA_Malformed(t *testing.T) {
	valid := buildCSA2(mosaicTags("36"))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic only", []byte("SV10")},
		{"truncated", valid[:len(valid)-40]},
		{"zero tags", buildCSA2(nil)},
		{"too many tags", func() []byte {
			b := append([]byte{}, valid...)
			binary.LittleEndian.PutUint32(b[8:12], 5000)
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCSA(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrPrivateHeader))
		})
	}
}

func TestDecodePrivate_Siemens(t *testing.T) {
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, 0x0008, 0x0070, "LO", []string{"SIEMENS"}),
		mustElement(t, 0x0029, 0x1010, "OB", buildCSA2(mosaicTags("36"))),
	}}

	pd := DecodePrivate(ds, "SIEMENS")

	assert.True(t, pd.IsMosaic)
	require.NotNil(t, pd.Data)
	assert.NotContains(t, pd.Data, "unused0")
	tags, ok := pd.Data["tags"].(map[string]any)
	require.True(t, ok)
	mosaic := tags["NumberOfImagesInMosaic"].(map[string]any)
	assert.Equal(t, []any{36.0}, mosaic["items"])
	assert.Equal(t, "US", mosaic["vr"])
}

func TestDecodePrivate_MalformedSiemens(t *testing.T) {
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, 0x0029, 0x1010, "OB", []byte("SV10\x00\x00\x00\x00garbage")),
	}}

	pd := DecodePrivate(ds, "Siemens Healthineers")

	assert.Equal(t, domain.PrivateData{}, pd)
}

func TestDecodePrivate_MissingTag(t *testing.T) {
	pd := DecodePrivate(godicom.Dataset{}, "SIEMENS")
	assert.False(t, pd.IsMosaic)
	assert.Nil(t, pd.Data)

	pd = DecodePrivate(godicom.Dataset{}, "GE MEDICAL SYSTEMS")
	assert.Nil(t, pd.Data)
}

func TestDecodePrivate_UnknownVendor(t *testing.T) {
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, 0x0029, 0x1010, "OB", buildCSA2(mosaicTags("36"))),
	}}
	assert.Equal(t, domain.PrivateData{}, DecodePrivate(ds, "Philips"))
}

func gzipBlob(t *testing.T, padding []byte, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(padding)
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodeGEBlob(t *testing.T) {
	blob := gzipBlob(t, []byte{0, 0, 0, 7}, "bval 1000\ntensor_file \"tensor.dat\"\n\nnum_dirs 64 \nlonely_key\n")

	data, err := decodeGEBlob(blob)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"bval":        "1000",
		"tensor_file": "tensor.dat",
		"num_dirs":    "64",
	}, data)
}

func TestDecodeGEBlob_TrailingPadding(t *testing.T) {
	blob := append(gzipBlob(t, nil, "slquant 30\n"), 0)

	data, err := decodeGEBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"slquant": "30"}, data)
}

func TestDecodeGEBlob_Errors(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"no magic", []byte("plain text")},
		{"corrupt stream", []byte{0, 0x1f, 0x8b, 0x08, 0xff, 0xff}},
		{"not ascii", gzipBlob(t, nil, "key \xe9t\xe9")},
		{"empty text", gzipBlob(t, nil, "\n\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := decodeGEBlob(tt.blob)
			assert.Nil(t, data)
			assert.True(t, errors.Is(err, domain.ErrPrivateHeader))
		})
	}
}

func TestDecodePrivate_GE(t *testing.T) {
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, 0x0025, 0x101B, "OB", gzipBlob(t, []byte{1, 2}, "slquant 30\n")),
	}}

	pd := DecodePrivate(ds, "GE MEDICAL SYSTEMS")

	assert.False(t, pd.IsMosaic)
	assert.Equal(t, map[string]any{"slquant": "30"}, pd.Data)
}

func TestDecodePrivate_GECorrupt(t *testing.T) {
	ds := godicom.Dataset{Elements: []*godicom.Element{
		mustElement(t, 0x0025, 0x101B, "OB", []byte{9, 9, 0x1f, 0x8b, 1, 2, 3}),
	}}
	assert.Equal(t, domain.PrivateData{}, DecodePrivate(ds, "General Electric"))
}
