package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxValueLength is the byte length at which a decoded string value is
// rejected as too large to embed in metadata.
const MaxValueLength = 1024

// VRKind groups value representation codes by how their values are encoded.
type VRKind int

const (
	// KindString covers free-text and coded-string VRs.
	KindString VRKind = iota

	// KindUID covers unique identifiers.
	KindUID

	// KindTag covers attribute tags rendered as 8 hex digits.
	KindTag

	// KindInt covers integer VRs, including integer strings.
	KindInt

	// KindFloat covers floating point VRs, including decimal strings.
	KindFloat

	// KindPersonName covers person names.
	KindPersonName

	// KindSequence covers nested datasets.
	KindSequence

	// KindBulk covers binary payloads that are never materialized.
	KindBulk
)

// VRKinds is the closed table of known value representations.
// Codes missing from the table are treated as KindString.
var VRKinds = map[string]VRKind{
	"AE": KindString,
	"AS": KindString,
	"CS": KindString,
	"DA": KindString,
	"DT": KindString,
	"LO": KindString,
	"LT": KindString,
	"SH": KindString,
	"ST": KindString,
	"TM": KindString,
	"UC": KindString,
	"UR": KindString,
	"UT": KindString,
	"UI": KindUID,
	"AT": KindTag,
	"IS": KindInt,
	"SL": KindInt,
	"SS": KindInt,
	"SV": KindInt,
	"UL": KindInt,
	"US": KindInt,
	"UV": KindInt,
	"DS": KindFloat,
	"FL": KindFloat,
	"FD": KindFloat,
	"PN": KindPersonName,
	"SQ": KindSequence,
	"OB": KindBulk,
	"OD": KindBulk,
	"OF": KindBulk,
	"OL": KindBulk,
	"OV": KindBulk,
	"OW": KindBulk,
	"UN": KindBulk,
	"ox": KindBulk,
}

// KindOf returns the kind for a VR code.
func KindOf(vr string) VRKind {
	if k, ok := VRKinds[vr]; ok {
		return k
	}
	return KindString
}

// IsBulkVR reports whether vr names a binary payload.
func IsBulkVR(vr string) bool {
	return KindOf(vr) == KindBulk
}

// Element is one decoded header field.
//
// Value holds string, int64, float64, PersonName or Dataset entries. A nil
// entry marks an empty position in a multi-valued field. Bulk fields carry
// Available instead of a Value.
type Element struct {
	VR        string `json:"vr"`
	Value     []any  `json:"Value,omitempty"`
	Available bool   `json:"Available,omitempty"`
}

// Dataset maps uppercase 8-digit hex tags ("00080016") to decoded elements.
type Dataset map[string]Element

// String returns the i-th value as a string.
func (e Element) String(i int) (string, bool) {
	if i < 0 || i >= len(e.Value) {
		return "", false
	}
	switch v := e.Value[i].(type) {
	case string:
		return v, true
	case PersonName:
		return v.Alphabetic, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Int returns the i-th value as an integer.
func (e Element) Int(i int) (int64, bool) {
	if i < 0 || i >= len(e.Value) {
		return 0, false
	}
	switch v := e.Value[i].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Float returns the i-th value as a float.
func (e Element) Float(i int) (float64, bool) {
	if i < 0 || i >= len(e.Value) {
		return 0, false
	}
	switch v := e.Value[i].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// UnmarshalJSON restores typed values using the element's VR, so that an
// encoded dataset decodes back to the same Go values it was built from.
func (e *Element) UnmarshalJSON(data []byte) error {
	var raw struct {
		VR        string            `json:"vr"`
		Value     []json.RawMessage `json:"Value"`
		Available bool              `json:"Available"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.VR = raw.VR
	e.Available = raw.Available
	e.Value = nil
	if len(raw.Value) == 0 {
		return nil
	}

	kind := KindOf(raw.VR)
	e.Value = make([]any, len(raw.Value))
	for i, item := range raw.Value {
		v, err := decodeValue(kind, item)
		if err != nil {
			return fmt.Errorf("element %s value %d: %w", raw.VR, i, err)
		}
		e.Value[i] = v
	}
	return nil
}

func decodeValue(kind VRKind, item json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
		return nil, nil
	}

	switch kind {
	case KindInt:
		var n int64
		if err := json.Unmarshal(item, &n); err == nil {
			return n, nil
		}
	case KindFloat:
		var f float64
		if err := json.Unmarshal(item, &f); err == nil {
			return f, nil
		}
	case KindPersonName:
		var pn PersonName
		if err := json.Unmarshal(item, &pn); err == nil {
			return pn, nil
		}
	case KindSequence:
		var ds Dataset
		if err := json.Unmarshal(item, &ds); err == nil {
			return ds, nil
		}
	default:
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			return s, nil
		}
	}

	// Anything that does not match its VR is kept as generic JSON.
	var v any
	if err := json.Unmarshal(item, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// PersonName is the structured form of a PN value.
type PersonName struct {
	Alphabetic  string `json:"Alphabetic"`
	Ideographic string `json:"Ideographic,omitempty"`
	Phonetic    string `json:"Phonetic,omitempty"`
}

// NameComponents are the caret-delimited parts of a person name.
type NameComponents struct {
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
	MiddleName string `json:"middle_name"`
	Prefix     string `json:"prefix"`
	Suffix     string `json:"suffix"`
}

// ParsePersonName splits a raw PN value into its alphabetic, ideographic and
// phonetic groups.
func ParsePersonName(raw string) PersonName {
	groups := strings.SplitN(raw, "=", 3)
	pn := PersonName{Alphabetic: groups[0]}
	if len(groups) > 1 {
		pn.Ideographic = groups[1]
	}
	if len(groups) > 2 {
		pn.Phonetic = groups[2]
	}
	return pn
}

// Components splits the alphabetic group into up to five components.
// It returns false when the name is empty.
func (p PersonName) Components() (NameComponents, bool) {
	if p.Alphabetic == "" {
		return NameComponents{}, false
	}
	parts := strings.Split(p.Alphabetic, "^")
	var c NameComponents
	fields := []*string{&c.FamilyName, &c.GivenName, &c.MiddleName, &c.Prefix, &c.Suffix}
	for i, f := range fields {
		if i < len(parts) {
			*f = parts[i]
		}
	}
	return c, true
}

// Lookup returns the idx-th value of tag in ds. Missing tags, short value
// lists and null positions all report false.
func Lookup(ds Dataset, tag string, idx int) (any, bool) {
	if ds == nil {
		return nil, false
	}
	el, ok := ds[tag]
	if !ok || idx < 0 || idx >= len(el.Value) {
		return nil, false
	}
	v := el.Value[idx]
	return v, v != nil
}

// LookupInt is Lookup for integer values.
func LookupInt(ds Dataset, tag string, idx int) (int64, bool) {
	el, ok := ds[tag]
	if !ok {
		return 0, false
	}
	return el.Int(idx)
}

// LookupString is Lookup for string values.
func LookupString(ds Dataset, tag string, idx int) (string, bool) {
	el, ok := ds[tag]
	if !ok {
		return "", false
	}
	return el.String(idx)
}

// LookupAll returns the complete value list of tag.
func LookupAll(ds Dataset, tag string) ([]any, bool) {
	el, ok := ds[tag]
	if !ok || len(el.Value) == 0 {
		return nil, false
	}
	return el.Value, true
}
