package domain

// Header tags read by the pipeline, in canonical dataset key form.
const (
	TagSOPClassUID            = "00080016"
	TagSOPInstanceUID         = "00080018"
	TagManufacturer           = "00080070"
	TagStationName            = "00081010"
	TagPatientName            = "00100010"
	TagEchoNumber             = "00180086"
	TagRawDataRunNumber       = "001910A2"
	TagImagePositionPatient   = "00200032"
	TagImagesInAcquisition    = "00201002"
	TagLocationsInAcquisition = "0021104F"
)

// Private header blocks.
const (
	TagSiemensCSAImageHeader = "00291010"
	TagGEPrivateBlob         = "0025101B"
)

// MRImageStorageClasses are the SOP classes eligible for multi-echo detection.
var MRImageStorageClasses = []string{
	"1.2.840.10008.5.1.4.1.1.4",
	"1.2.840.10008.5.1.4.1.1.4.1",
}

// privateVRs is the closed table of value representations for the private
// tags the pipeline reads. Implicit VR files do not carry them.
var privateVRs = map[string]string{
	TagRawDataRunNumber:       "SL",
	TagLocationsInAcquisition: "SS",
	TagGEPrivateBlob:          "OB",
	TagSiemensCSAImageHeader:  "OB",
	"00291020":                "OB",
}

// PrivateVR returns the value representation of a private tag key. Private
// creator elements (gggg,0010-00FF) are always LO.
func PrivateVR(key string) (string, bool) {
	if vr, ok := privateVRs[key]; ok {
		return vr, true
	}
	if len(key) != 8 || !isOddGroup(key[:4]) {
		return "", false
	}
	if key[4:6] == "00" && key[6:8] >= "10" {
		return "LO", true
	}
	return "", false
}

func isOddGroup(group string) bool {
	switch group[3] {
	case '1', '3', '5', '7', '9', 'B', 'D', 'F':
		return true
	}
	return false
}
