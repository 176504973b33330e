package domain

import (
	"fmt"
	"strings"
)

// Artifact file name suffixes. Anything else left in a session directory
// after ingestion is transient.
const (
	MetadataSuffix = "_metadata.txt"
	ChecksumSuffix = "_checksum.txt"
	FilelistSuffix = "_filelist.txt"
)

// IsExcludedFile reports whether a file is left out of every manifest.
func IsExcludedFile(name string) bool {
	return strings.Contains(strings.ToLower(name), "readme")
}

// IsArtifact reports whether name is a retained pipeline artifact.
func IsArtifact(name string) bool {
	return strings.HasSuffix(name, MetadataSuffix) ||
		strings.HasSuffix(name, ChecksumSuffix) ||
		strings.HasSuffix(name, FilelistSuffix)
}

// StudyFileName returns the study document name for an exam.
func StudyFileName(examID string) string {
	return fmt.Sprintf("study_%s%s", examID, MetadataSuffix)
}

// ScanMetadataFileName returns the instance manifest name for a scan.
func ScanMetadataFileName(archiveBase, examID, scan string) string {
	return fmt.Sprintf("%s_%s_scan_%s%s", archiveBase, examID, scan, MetadataSuffix)
}

// ScanChecksumFileName returns the checksum manifest name for a scan.
func ScanChecksumFileName(archiveBase, examID, scan string) string {
	return fmt.Sprintf("%s_%s_scan_%s%s", archiveBase, examID, scan, ChecksumSuffix)
}

// ScanFromArtifactName extracts the scan name from a per-scan artifact name.
func ScanFromArtifactName(name string) (string, bool) {
	i := strings.LastIndex(name, "_scan_")
	if i < 0 {
		return "", false
	}
	rest := name[i+len("_scan_"):]
	for _, suffix := range []string{MetadataSuffix, ChecksumSuffix} {
		if strings.HasSuffix(rest, suffix) {
			return strings.TrimSuffix(rest, suffix), true
		}
	}
	return "", false
}
