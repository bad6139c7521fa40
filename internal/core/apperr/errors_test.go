package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is_MatchesByCode(t *testing.T) {
	err := Validation("name", "name is required")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("save plugin: %w", err)
	assert.True(t, errors.Is(wrapped, ErrValidation), "Code matching should survive wrapping")
}

func TestError_Message_IncludesField(t *testing.T) {
	assert.Equal(t, "operations[0].selector: selector is required",
		Validation("operations[0].selector", "selector is required").Error())
	assert.Equal(t, `plugin "abc" not found`, NotFound("plugin", "abc").Error())
}

func TestInternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("persist plugins", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{name: "Nil", err: nil, expected: ""},
		{name: "Validation", err: Validation("x", "bad"), expected: CodeValidation},
		{name: "Wrapped parse", err: fmt.Errorf("import: %w", Parse("", "bad json", nil)), expected: CodeParse},
		{name: "Foreign error", err: errors.New("boom"), expected: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CodeOf(tt.err))
		})
	}
}

func TestFieldOf(t *testing.T) {
	assert.Equal(t, "targetDomains[2]", FieldOf(fmt.Errorf("wrap: %w", Validation("targetDomains[2]", "bad"))))
	assert.Empty(t, FieldOf(errors.New("plain")))
}
