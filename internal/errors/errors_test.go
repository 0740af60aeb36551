package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrResolve,
		ErrConnect,
		ErrTimeout,
		ErrRender,
		ErrSource,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	err := New(ErrResolve, "Could not open: petclinic", "Pass a pid, process name, host:port, recording file, or 'self'")

	assert.Equal(t, ErrResolve, err.Code)
	assert.Contains(t, err.Error(), "✗ Could not open: petclinic")
	assert.Contains(t, err.Error(), "Pass a pid")
	assert.Nil(t, err.Cause)
}

func TestWrapDefaultsToSourceCode(t *testing.T) {
	cause := errors.New("read: connection reset")
	err := Wrap(cause, "Stream ended unexpectedly")

	assert.Equal(t, ErrSource, err.Code)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := WrapWithCode(cause, ErrConnect, "Could not connect to localhost:9404", "Check the process is running")

	assert.Equal(t, ErrConnect, err.Code)
	assert.True(t, errors.Is(err, cause), "wrapped cause must survive errors.Is")
}

func TestErrorFormatWithoutSuggestion(t *testing.T) {
	err := New(ErrConfig, "Bad config", "")

	msg := err.Error()
	assert.Contains(t, msg, "✗ Bad config")
	assert.NotContains(t, msg, "\n\n  \n", "no trailing suggestion block")
}

func TestIsCode(t *testing.T) {
	err := New(ErrTimeout, "No flush for 15s", "")

	assert.True(t, IsCode(err, ErrTimeout))
	assert.False(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(nil, ErrTimeout))
	assert.False(t, IsCode(errors.New("plain"), ErrTimeout))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsCode(wrapped, ErrTimeout), "IsCode must see through wrapping")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "resolve", err: New(ErrResolve, "m", ""), want: true},
		{name: "connect", err: New(ErrConnect, "m", ""), want: true},
		{name: "timeout", err: New(ErrTimeout, "m", ""), want: true},
		{name: "source", err: New(ErrSource, "m", ""), want: true},
		{name: "config is permanent", err: New(ErrConfig, "m", ""), want: false},
		{name: "render is permanent", err: New(ErrRender, "m", ""), want: false},
		{name: "unclassified is transient", err: errors.New("plain"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
