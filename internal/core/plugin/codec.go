package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"pagesmith.dev/engine/internal/core/apperr"
)

// Export serializes exactly the Plugin portion of a record as a portable,
// indented JSON document. Field order is fixed by the struct definition, so
// the output is stable for equal plugins.
func Export(p Plugin) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plugin: %w", err)
	}
	return data, nil
}

// Import parses and validates a plugin document produced by Export (or by
// any other producer following the same schema). A document without an id
// is accepted; the id is left empty for the caller to assign.
//
// Malformed JSON yields a PARSE_ERROR; schema violations yield a
// VALIDATION_ERROR. Both name the offending field when it is known.
func Import(data []byte) (Plugin, error) {
	p, err := Decode(data)
	if err != nil {
		return Plugin{}, err
	}

	check := p
	if check.ID == "" {
		// Validate against a placeholder so the remaining rules still apply.
		check.ID = "import"
	}
	if err := Validate(check); err != nil {
		return Plugin{}, err
	}
	return p, nil
}

// Decode parses a plugin document without validating it. The result is in
// the canonical form produced by Plugin.Clone.
func Decode(data []byte) (Plugin, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Plugin{}, apperr.Parse("", "plugin document is empty", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p Plugin
	if err := dec.Decode(&p); err != nil {
		return Plugin{}, apperr.FromDecode("", "plugin document", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Plugin{}, apperr.Parse("", "unexpected data after plugin document", err)
	}
	return p.Clone(), nil
}
