package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FromDecode classifies an encoding/json decode failure. Input that is not
// well-formed JSON is a parse error; well-formed JSON that does not fit the
// target type (wrong value type, unknown field, rejected enum value) is a
// validation error. fallbackField names the offending field when json does
// not report one.
func FromDecode(fallbackField, subject string, err error) *Error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return Parse(fallbackField, fmt.Sprintf("malformed JSON at offset %d: %v", syntaxErr.Offset, syntaxErr), err)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return Parse(fallbackField, subject+" is truncated", err)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = fallbackField
		}
		return &Error{
			Code:    CodeValidation,
			Message: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
			Field:   field,
			Cause:   err,
		}
	default:
		field := fallbackField
		if name := unknownFieldName(err); name != "" {
			field = name
		}
		return &Error{Code: CodeValidation, Message: err.Error(), Field: field, Cause: err}
	}
}

// json reports unknown fields as: json: unknown field "name"
func unknownFieldName(err error) string {
	var name string
	if _, scanErr := fmt.Sscanf(err.Error(), "json: unknown field %q", &name); scanErr == nil {
		return name
	}
	return ""
}
