package domain

import "strings"

// VendorFamily identifies a scanner manufacturer with a known private header layout.
type VendorFamily int

const (
	// VendorUnknown has no private header decoder.
	VendorUnknown VendorFamily = iota

	// VendorSiemens stores a CSA header in (0029,1010).
	VendorSiemens

	// VendorGE stores a gzip blob in (0025,101B).
	VendorGE
)

// String returns the family name.
func (v VendorFamily) String() string {
	switch v {
	case VendorSiemens:
		return "siemens"
	case VendorGE:
		return "ge"
	default:
		return "unknown"
	}
}

// VendorFromManufacturer matches a manufacturer string case-insensitively.
// Siemens is tested first; GE matches either "ge" or "general electric".
func VendorFromManufacturer(manufacturer string) VendorFamily {
	m := strings.ToLower(manufacturer)
	switch {
	case m == "":
		return VendorUnknown
	case strings.Contains(m, "siemens"):
		return VendorSiemens
	case strings.Contains(m, "ge"), strings.Contains(m, "general electric"):
		return VendorGE
	default:
		return VendorUnknown
	}
}

// PrivateData is the decoded vendor-proprietary block of a scan.
// Data is nil when the block is missing or could not be decoded.
type PrivateData struct {
	IsMosaic bool           `json:"is_mosaic"`
	Data     map[string]any `json:"data"`
}

// Header is the result of decoding one representative instance.
type Header struct {
	Dataset Dataset
	Private PrivateData
}
