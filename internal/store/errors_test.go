package store

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"generic not found", ErrNotFound, true},
		{"result not found", ErrResultNotFound, true},
		{"wrapped result not found", fmt.Errorf("open: %w", ErrResultNotFound), true},
		{"store error wrapping not found", NewStoreError("result", "open", "missing", ErrResultNotFound), true},
		{"invalid entity", ErrInvalidEntity, false},
		{"unrelated", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFoundError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	err := NewStoreError("result", "put", "write failed", os.ErrPermission)

	assert.Equal(t, "put operation on result failed: write failed: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)

	bare := NewStoreError("result", "put", "empty id", nil)
	assert.Equal(t, "put operation on result failed: empty id", bare.Error())
}
