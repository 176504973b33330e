package domain

// StudyMetadata is the per-exam document written once after parsing.
type StudyMetadata struct {
	Metadata StudyInfo   `json:"metadata"`
	Data     []ScanEntry `json:"data"`
}

// StudyInfo identifies the exam and where it came from.
type StudyInfo struct {
	ExamID            string `json:"exam_id"`
	SourcePath        string `json:"gold_fpath"`
	ArchiveChecksum   string `json:"gold_archive_checksum"`
	ChecksumAlgorithm string `json:"checksum_algorithm,omitempty"`
	Scanner           string `json:"scanner,omitempty"`
	ParserVersion     string `json:"parser_version"`
}

// ScanEntry describes one scan directory. DICOMData is nil for plain file
// collections and for scans where no instance could be decoded.
type ScanEntry struct {
	Metadata    ScanInfo     `json:"metadata"`
	DICOMData   Dataset      `json:"dicom_data"`
	PrivateData *PrivateData `json:"private_data"`
}

// ScanInfo identifies a scan within its exam.
type ScanInfo struct {
	ParentExamID        string `json:"parent_exam_id"`
	ScanDir             string `json:"gold_scan_dir"`
	ScanID              string `json:"scan_id"`
	NumFiles            int    `json:"num_files"`
	ParserVersion       string `json:"parser_version"`
	PerInstanceSortable *bool  `json:"per_instance_sortable,omitempty"`
	EchoCount           int    `json:"echo_count,omitempty"`
}

// IsDICOM reports whether the scan carries a decoded header.
func (s ScanEntry) IsDICOM() bool {
	return s.DICOMData != nil
}

// EchoDecision records the outcome of the multi-echo check for a scan.
type EchoDecision struct {
	// Flagged is true when every instance needs per-instance metadata.
	Flagged bool

	// EchoCount is indices / slices when Flagged.
	EchoCount int

	// Reason names the first unmet condition, or the detection itself.
	Reason string
}

// InstanceRecord is the per-file metadata needed to order multi-echo slices.
// Fields are nil when the file could not be decoded or lacks the tag.
type InstanceRecord struct {
	EchoNumber           *int64  `json:"echo_number"`
	RawDataRunNumber     *int64  `json:"raw_data_run_number"`
	ImagePositionPatient []any   `json:"image_position_patient"`
	SOPInstanceUID       *string `json:"sop_instance_uid"`
}

// InstanceLine is one row of the instance metadata manifest.
type InstanceLine struct {
	Filename string
	Record   InstanceRecord
}

// ChecksumLine is one row of the checksum manifest.
type ChecksumLine struct {
	Checksum string
	Filename string
}
