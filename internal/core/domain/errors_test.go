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
		{"ErrInvalidDocument", ErrInvalidDocument},
		{"ErrInvalidPatch", ErrInvalidPatch},
		{"ErrObjectNotFound", ErrObjectNotFound},
		{"ErrDecode", ErrDecode},
		{"ErrConflict", ErrConflict},
		{"ErrCycle", ErrCycle},
		{"ErrStopped", ErrStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidPatch, ErrInvalidDocument))
	assert.False(t, errors.Is(ErrObjectNotFound, ErrNotFound))
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("apply /root/a: %w", ErrObjectNotFound)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
	assert.Contains(t, err.Error(), "object not found")
}
