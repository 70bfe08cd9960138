package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	cause := stderrors.New("short row")
	err := NewFormatError("Xtr.csv line 3", cause)

	assert.Equal(t, "format: Xtr.csv line 3 (caused by: short row)", err.Error())
	assert.Equal(t, "not_fitted: vocabulary", NewNotFittedError("vocabulary").Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewProcessingError("sift", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		typ  ErrorType
		want bool
	}{
		{"direct", NewSamplingError("ratio", nil), ErrorTypeSampling, true},
		{"wrapped", fmt.Errorf("augment: %w", NewSamplingError("ratio", nil)), ErrorTypeSampling, true},
		{"other type", NewValidationError("x", nil), ErrorTypeFormat, false},
		{"plain error", stderrors.New("x"), ErrorTypeFormat, false},
		{"nil", nil, ErrorTypeFormat, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.typ))
		})
	}
}
