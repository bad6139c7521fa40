package plugin

import (
	"fmt"
	"regexp"
	"strings"

	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/matching"
)

const (
	maxIDLength      = 128
	maxNameLength    = 200
	maxElementDepth  = 32
	minIntervalMS    = 1
	fieldOperations  = "operations"
	fieldTargetHosts = "targetDomains"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// Validate checks the structural rules of a plugin. The returned error is an
// *apperr.Error with code VALIDATION_ERROR naming the offending field.
// An empty operation list is valid.
func Validate(p Plugin) error {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return apperr.Validation("id", "plugin id is required")
	}
	if id != p.ID || strings.ContainsAny(p.ID, " \t\r\n") {
		return apperr.Validation("id", "plugin id cannot contain whitespace")
	}
	if len(p.ID) > maxIDLength {
		return apperr.Validationf("id", "plugin id cannot exceed %d characters", maxIDLength)
	}

	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name", "plugin name is required")
	}
	if len(p.Name) > maxNameLength {
		return apperr.Validationf("name", "plugin name cannot exceed %d characters", maxNameLength)
	}

	seen := make(map[string]bool, len(p.TargetDomains))
	for i, pattern := range p.TargetDomains {
		field := fmt.Sprintf("%s[%d]", fieldTargetHosts, i)
		if err := matching.ValidatePattern(pattern); err != nil {
			return apperr.Validation(field, err.Error())
		}
		key := strings.ToLower(strings.TrimSuffix(pattern, "."))
		if seen[key] {
			return apperr.Validationf(field, "duplicate domain pattern %q", pattern)
		}
		seen[key] = true
	}

	for i, op := range p.Operations {
		if err := ValidateOperation(op, fmt.Sprintf("%s[%d]", fieldOperations, i)); err != nil {
			return err
		}
	}

	return nil
}

// ValidateOperation checks a single operation against its variant's shape.
// path prefixes reported field names.
func ValidateOperation(op Operation, path string) error {
	switch op.Type {
	case OperationInsert:
		if err := requireSelector(op, path); err != nil {
			return err
		}
		if err := forbid(path, op.Type, map[string]bool{
			"style":       op.Style != nil,
			"textContent": op.TextContent != nil,
			"attributes":  op.Attributes != nil,
			"code":        op.Code != "",
			"run":         op.Run != "",
			"intervalMs":  op.IntervalMS != 0,
		}); err != nil {
			return err
		}
		switch op.Position {
		case "", PositionBeforeBegin, PositionAfterBegin, PositionBeforeEnd, PositionAfterEnd:
		default:
			return apperr.Validationf(path+".position", "unknown insert position %q", op.Position)
		}
		if op.Element == nil {
			return apperr.Validation(path+".element", "insert operation requires an element")
		}
		return validateElement(*op.Element, path+".element", 1)

	case OperationUpdate:
		if err := requireSelector(op, path); err != nil {
			return err
		}
		if err := forbid(path, op.Type, map[string]bool{
			"position":   op.Position != "",
			"element":    op.Element != nil,
			"code":       op.Code != "",
			"run":        op.Run != "",
			"intervalMs": op.IntervalMS != 0,
		}); err != nil {
			return err
		}
		changes := 0
		if len(op.Style) > 0 {
			changes++
		}
		if op.TextContent != nil {
			changes++
		}
		if len(op.Attributes) > 0 {
			changes++
		}
		if changes != 1 {
			return apperr.Validation(path, "update operation requires exactly one of style, textContent or attributes")
		}
		for name := range op.Attributes {
			if strings.TrimSpace(name) == "" {
				return apperr.Validation(path+".attributes", "attribute name cannot be empty")
			}
		}
		for name := range op.Style {
			if strings.TrimSpace(name) == "" {
				return apperr.Validation(path+".style", "style property cannot be empty")
			}
		}
		return nil

	case OperationDelete:
		if err := requireSelector(op, path); err != nil {
			return err
		}
		return forbid(path, op.Type, map[string]bool{
			"position":    op.Position != "",
			"element":     op.Element != nil,
			"style":       op.Style != nil,
			"textContent": op.TextContent != nil,
			"attributes":  op.Attributes != nil,
			"code":        op.Code != "",
			"run":         op.Run != "",
			"intervalMs":  op.IntervalMS != 0,
		})

	case OperationExecute:
		if err := forbid(path, op.Type, map[string]bool{
			"selector":    op.Selector != "",
			"position":    op.Position != "",
			"element":     op.Element != nil,
			"style":       op.Style != nil,
			"textContent": op.TextContent != nil,
			"attributes":  op.Attributes != nil,
		}); err != nil {
			return err
		}
		if strings.TrimSpace(op.Code) == "" {
			return apperr.Validation(path+".code", "execute operation requires code")
		}
		switch op.Run {
		case RunOnce, RunAlways:
			if op.IntervalMS != 0 {
				return apperr.Validationf(path+".intervalMs", "intervalMs is only allowed when run is %q", RunInterval)
			}
		case RunInterval:
			if op.IntervalMS < minIntervalMS {
				return apperr.Validation(path+".intervalMs", "interval run mode requires a positive intervalMs")
			}
		case "":
			return apperr.Validation(path+".run", "execute operation requires a run mode")
		default:
			return apperr.Validationf(path+".run", "unknown run mode %q", op.Run)
		}
		return nil

	case "":
		return apperr.Validation(path+".type", "operation type is required")
	default:
		return apperr.Validationf(path+".type", "unknown operation type %q", op.Type)
	}
}

func requireSelector(op Operation, path string) error {
	if strings.TrimSpace(op.Selector) == "" {
		return apperr.Validationf(path+".selector", "%s operation requires a selector", op.Type)
	}
	return nil
}

// forbid reports the first field (in a stable order) that is set but does
// not belong to the variant.
func forbid(path string, t OperationType, set map[string]bool) error {
	for _, name := range []string{"selector", "position", "element", "style", "textContent", "attributes", "code", "run", "intervalMs"} {
		if set[name] {
			return apperr.Validationf(path+"."+name, "field %q is not allowed on %s operations", name, t)
		}
	}
	return nil
}

func validateElement(el Element, path string, depth int) error {
	if depth > maxElementDepth {
		return apperr.Validationf(path, "element nesting exceeds %d levels", maxElementDepth)
	}
	if !tagPattern.MatchString(el.Tag) {
		return apperr.Validationf(path+".tag", "invalid element tag %q", el.Tag)
	}
	if el.TextContent != "" && el.InnerHTML != "" {
		return apperr.Validation(path, "element cannot set both textContent and innerHTML")
	}
	for name := range el.Attributes {
		if strings.TrimSpace(name) == "" {
			return apperr.Validation(path+".attributes", "attribute name cannot be empty")
		}
	}
	for i, child := range el.Children {
		if err := validateElement(child, fmt.Sprintf("%s.children[%d]", path, i), depth+1); err != nil {
			return err
		}
	}
	return nil
}
