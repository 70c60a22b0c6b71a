package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrNotFound, "archival object not found")
	assert.Equal(t, ErrNotFound, err.Code)
	assert.Equal(t, "[NOT_FOUND] archival object not found", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset by peer")
	err := Wrap(cause, ErrTransientNetwork, "repository request failed")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal, "should vanish"))
	assert.Nil(t, Wrapf(nil, ErrInternal, "should %s", "vanish"))
}

func TestIsMatchesByCode(t *testing.T) {
	err := Newf(ErrMultipleMatches, "multiple archival objects found: %s", "box-01")
	assert.True(t, errors.Is(err, New(ErrMultipleMatches, "")))
	assert.False(t, errors.Is(err, New(ErrNotFound, "")))
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct_match", New(ErrNotFound, "missing"), ErrNotFound, true},
		{"wrapped_match", fmt.Errorf("outer: %w", New(ErrWriteConflict, "dup")), ErrWriteConflict, true},
		{"code_mismatch", New(ErrNotFound, "missing"), ErrWriteConflict, false},
		{"plain_error", errors.New("plain"), ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCode(tt.err, tt.code))
		})
	}
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrBatchConflict, GetCode(New(ErrBatchConflict, "stage exists")))
	assert.Equal(t, ErrUnknown, GetCode(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrEmptyDirectory, "no files in entry").WithDetail("path", "/vol/source/item-1")
	assert.Equal(t, "/vol/source/item-1", err.Details["path"])
}
