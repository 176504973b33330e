package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrStructural", ErrStructural},
		{"ErrExtraction", ErrExtraction},
		{"ErrChecksum", ErrChecksum},
		{"ErrEmptyScan", ErrEmptyScan},
		{"ErrInvalidTransition", ErrInvalidTransition},
		{"ErrDecode", ErrDecode},
		{"ErrValueTooLarge", ErrValueTooLarge},
		{"ErrPrivateHeader", ErrPrivateHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrStructural, ErrExtraction))
	assert.False(t, errors.Is(ErrDecode, ErrValueTooLarge))
	assert.False(t, errors.Is(ErrInvalidConfig, ErrInvalidInput))
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("archive %s: %w", "a.tgz", ErrStructural)
	assert.True(t, errors.Is(err, ErrStructural))
	assert.Contains(t, err.Error(), "unexpected archive structure")

	joined := errors.Join(err, fmt.Errorf("scan 3: %w", ErrDecode))
	assert.True(t, errors.Is(joined, ErrStructural))
	assert.True(t, errors.Is(joined, ErrDecode))
}
