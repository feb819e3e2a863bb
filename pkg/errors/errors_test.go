package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	err := New(ErrNotFound, "no source found")
	assert.Equal(t, "[NOT_FOUND] no source found", err.Error())
	assert.Equal(t, ErrNotFound, err.Code)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrSessionNotFound, "no backups under %s", "/tmp/x")
	assert.Equal(t, "[SESSION_NOT_FOUND] no backups under /tmp/x", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := Wrap(cause, ErrIOFailure, "failed to archive path")

	assert.Equal(t, "[IO_FAILURE] failed to archive path: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrIOFailure, "x"))
	assert.Nil(t, Wrapf(nil, ErrIOFailure, "x %d", 1))
}

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct match", New(ErrEmpty, "x"), ErrEmpty, true},
		{"different code", New(ErrEmpty, "x"), ErrNotFound, false},
		{"wrapped in fmt", fmt.Errorf("context: %w", New(ErrToolUnavailable, "x")), ErrToolUnavailable, true},
		{"double wrapped", Wrap(New(ErrNotFound, "inner"), ErrFetchFailure, "outer"), ErrFetchFailure, true},
		{"plain error", fmt.Errorf("plain"), ErrUnknown, false},
		{"nil", nil, ErrUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsErrorCode(tt.err, tt.code))
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrConfigParse, GetErrorCode(New(ErrConfigParse, "x")))
	assert.Equal(t, ErrUnknown, GetErrorCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrDirCreate, GetErrorCode(fmt.Errorf("ctx: %w", New(ErrDirCreate, "x"))))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := New(ErrValidationRejected, "first")
	b := New(ErrValidationRejected, "second")
	assert.True(t, stderrors.Is(a, b), "two MigrationErrors with the same code match")
}

func TestWithDetail(t *testing.T) {
	err := New(ErrToolExec, "dconf failed").WithDetail("tool", "dconf").WithDetail("exit", 1)
	assert.Equal(t, "dconf", err.Details["tool"])
	assert.Equal(t, 1, err.Details["exit"])
}
