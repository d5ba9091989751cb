package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("SK-TEST-1000", "test message"),
			expected: "[SK-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("SK-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[SK-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("SK-TEST-1000", "message 1")
	err2 := NewDomainError("SK-TEST-1000", "message 2")
	err3 := NewDomainError("SK-TEST-1001", "message 1")

	assert.ErrorIs(t, err1, err2, "same code should match")
	assert.NotErrorIs(t, err1, err3, "different code should not match")
	assert.NotErrorIs(t, err1, fmt.Errorf("some error"))

	wrapped := ErrCreateSnapshot.WithDetails("nightly").WithCause(errors.New("disk full"))
	assert.ErrorIs(t, wrapped, ErrCreateSnapshot)
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("SK-TEST-1000", "wrapper").WithCause(cause)

	assert.Same(t, cause, errors.Unwrap(err))
	assert.Nil(t, errors.Unwrap(NewDomainError("SK-TEST-1000", "no cause")))
}

func TestDomainError_CopiesLeaveOriginalUntouched(t *testing.T) {
	original := NewDomainError("SK-TEST-1000", "original message")

	withDetails := original.WithDetails("additional details")
	withCause := original.WithCause(errors.New("boom"))

	assert.Empty(t, original.Details)
	assert.Nil(t, original.Cause)
	assert.Equal(t, "additional details", withDetails.Details)
	assert.EqualError(t, withCause.Cause, "boom")
}

func TestDomainError_Describe(t *testing.T) {
	assert.Equal(t, "failed to create snapshot", ErrCreateSnapshot.Describe())
	assert.Equal(t, "failed to create snapshot: name=nightly",
		ErrCreateSnapshot.WithDetails("name=nightly").Describe())
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, "SK-SYS-5001", GetErrorCode(ErrCatalog.WithCause(errors.New("io"))))
	assert.Empty(t, GetErrorCode(errors.New("plain")))
	assert.Empty(t, GetErrorCode(nil))
}
