package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmrif/osmium-ingest/internal/core/ports/driving"
)

func TestVerifyCmd_Clean(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.verifier.report = &driving.VerifyReport{
		ExamID: "abc123",
		Scans: []driving.ScanVerification{
			{Scan: "1", Files: 3, Instances: 3, Order: []string{"0002", "0001", "0003"}},
			{Scan: "2", Files: 1200},
		},
	}

	out, err := execute("verify", "/work/E1/session", "--order")
	require.NoError(t, err)

	assert.Contains(t, out, "Exam abc123")
	assert.Contains(t, out, "1,200 files")
	assert.Contains(t, out, "order: 0002, 0001, 0003")
	assert.Contains(t, out, "All manifests reconcile.")
}

func TestVerifyCmd_Mismatch(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.verifier.report = &driving.VerifyReport{
		Scans: []driving.ScanVerification{
			{Scan: "1", Files: 2, Instances: 2, MissingInstances: []string{"b"}, ExtraInstances: []string{"z"}},
		},
	}

	out, err := execute("verify", "/work/E1/session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent")
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "missing from instance manifest: b")
	assert.Contains(t, out, "not checksummed: z")
}

func TestVerifyCmd_Errors(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.verifier.err = errors.New("no study document")

	_, err := execute("verify", "/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify failed")

	_, err = execute("verify")
	assert.Error(t, err, "session dir is required")

	verifier = nil
	_, err = execute("verify", "/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify service not configured")
}
