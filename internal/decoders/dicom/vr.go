package dicom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fmrif/osmium-ingest/internal/core/domain"
)

// ValueTooLargeError reports a string value at or above domain.MaxValueLength.
type ValueTooLargeError struct {
	VR     string
	Length int
}

func (e *ValueTooLargeError) Error() string {
	return fmt.Sprintf("%s value of %d bytes: %v", e.VR, e.Length, domain.ErrValueTooLarge)
}

// Unwrap lets errors.Is match domain.ErrValueTooLarge.
func (e *ValueTooLargeError) Unwrap() error {
	return domain.ErrValueTooLarge
}

// IsValueTooLarge reports whether err is a ValueTooLargeError.
func IsValueTooLarge(err error) bool {
	var tooLarge *ValueTooLargeError
	return errors.As(err, &tooLarge)
}

// encoderFunc converts one raw value into its metadata form. A nil result
// with a nil error marks an empty position.
type encoderFunc func(raw any) (any, error)

// vrTable maps every known VR code to its encoder. Bulk codes are absent:
// their payload is never encoded.
var vrTable map[string]encoderFunc

func init() {
	byKind := map[domain.VRKind]func(vr string) encoderFunc{
		domain.KindString:     stringEncoder,
		domain.KindUID:        uidEncoder,
		domain.KindTag:        tagEncoder,
		domain.KindInt:        intEncoder,
		domain.KindFloat:      floatEncoder,
		domain.KindPersonName: personNameEncoder,
	}
	vrTable = make(map[string]encoderFunc, len(domain.VRKinds))
	for vr, kind := range domain.VRKinds {
		if build, ok := byKind[kind]; ok {
			vrTable[vr] = build(vr)
		}
	}
}

// encoderFor returns the encoder for vr. Unknown codes are encoded as strings.
func encoderFor(vr string) encoderFunc {
	if enc, ok := vrTable[vr]; ok {
		return enc
	}
	return stringEncoder(vr)
}

// EncodeValue applies the VR table to a single raw value.
func EncodeValue(vr string, raw any) (any, error) {
	return encoderFor(vr)(raw)
}

// Sanitize strips NUL characters and surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

func rawString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func checkLength(vr, s string) error {
	if len(s) >= domain.MaxValueLength {
		return &ValueTooLargeError{VR: vr, Length: len(s)}
	}
	return nil
}

func stringEncoder(vr string) encoderFunc {
	return func(raw any) (any, error) {
		s := Sanitize(rawString(raw))
		if err := checkLength(vr, s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

func uidEncoder(vr string) encoderFunc {
	return func(raw any) (any, error) {
		s := strings.NewReplacer(`"`, "", "'", "").Replace(Sanitize(rawString(raw)))
		if err := checkLength(vr, s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// tagEncoder renders an attribute tag as 8 uppercase hex digits. Integer
// input is a packed group<<16|element value.
func tagEncoder(vr string) encoderFunc {
	return func(raw any) (any, error) {
		switch v := raw.(type) {
		case int:
			return fmt.Sprintf("%08X", uint32(v)), nil
		case int64:
			return fmt.Sprintf("%08X", uint32(v)), nil
		}
		s := strings.NewReplacer("(", "", ")", "", ",", "", " ", "").Replace(Sanitize(rawString(raw)))
		if err := checkLength(vr, s); err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil
	}
}

func intEncoder(vr string) encoderFunc {
	return func(raw any) (any, error) {
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case uint32:
			return int64(v), nil
		case float64:
			return int64(v), nil
		}
		s := Sanitize(rawString(raw))
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s value %q is not an integer", domain.ErrDecode, vr, s)
		}
		return int64(f), nil
	}
}

func floatEncoder(vr string) encoderFunc {
	return func(raw any) (any, error) {
		var f float64
		switch v := raw.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		default:
			s := Sanitize(rawString(raw))
			if s == "" {
				return nil, nil
			}
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s value %q is not a number", domain.ErrDecode, vr, s)
			}
			f = parsed
		}
		// JSON has no representation for these.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return f, nil
	}
}

func personNameEncoder(vr string) encoderFunc {
	return func(raw any) (any, error) {
		s := Sanitize(rawString(raw))
		if err := checkLength(vr, s); err != nil {
			return nil, err
		}
		return domain.ParsePersonName(s), nil
	}
}
