// Package plugin defines page modifier plugins: named, versioned bundles of
// DOM operations scoped to target domains, plus the store-managed wrapper
// that carries enablement and usage metadata.
package plugin

import (
	"slices"

	"pagesmith.dev/engine/internal/core/matching"
)

// Plugin is a page modifier definition. It is replaced as a whole record,
// never patched field by field.
type Plugin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	// Priority orders plugins that match the same page, highest first.
	Priority      int         `json:"priority"`
	TargetDomains []string    `json:"targetDomains"`
	Operations    []Operation `json:"operations"`
}

// AppliesTo reports whether any target domain pattern covers hostname.
func (p Plugin) AppliesTo(hostname string) bool {
	return matching.MatchesAny(hostname, p.TargetDomains)
}

// HasOperation reports whether the plugin contains an operation of type t.
func (p Plugin) HasOperation(t OperationType) bool {
	return slices.ContainsFunc(p.Operations, func(op Operation) bool { return op.Type == t })
}

// Clone returns a deep copy so callers cannot mutate cached records.
//
// The copy is in canonical form: empty attribute, style and children
// collections become nil, matching what an Export/Import round trip yields.
func (p Plugin) Clone() Plugin {
	out := p
	out.TargetDomains = slices.Clone(p.TargetDomains)
	if p.Operations != nil {
		out.Operations = make([]Operation, len(p.Operations))
		for i, op := range p.Operations {
			out.Operations[i] = op.Clone()
		}
	}
	return out
}

// OperationType tags the Operation variant.
type OperationType string

const (
	OperationInsert  OperationType = "insert"
	OperationUpdate  OperationType = "update"
	OperationDelete  OperationType = "delete"
	OperationExecute OperationType = "execute"
)

// InsertPosition says where an inserted element goes relative to the selector match.
type InsertPosition string

const (
	PositionBeforeBegin InsertPosition = "beforebegin"
	PositionAfterBegin  InsertPosition = "afterbegin"
	PositionBeforeEnd   InsertPosition = "beforeend"
	PositionAfterEnd    InsertPosition = "afterend"
)

// RunMode is the timing hint for execute operations.
type RunMode string

const (
	RunOnce     RunMode = "once"
	RunAlways   RunMode = "always"
	RunInterval RunMode = "interval"
)

// Operation is one DOM mutation or code execution instruction. Only the
// fields belonging to Type may be set; Validate enforces the variant shape.
//
// Executors apply update and delete to every element the selector matches,
// and insert relative to the first match.
type Operation struct {
	Type        OperationType `json:"type"`
	Description string        `json:"description,omitempty"`

	// insert, update, delete
	Selector string `json:"selector,omitempty"`

	// insert
	Position InsertPosition `json:"position,omitempty"`
	Element  *Element       `json:"element,omitempty"`

	// update: exactly one of Style, TextContent, Attributes
	Style       map[string]string `json:"style,omitempty"`
	TextContent *string           `json:"textContent,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`

	// execute
	Code       string  `json:"code,omitempty"`
	Run        RunMode `json:"run,omitempty"`
	IntervalMS int     `json:"intervalMs,omitempty"`
}

// Clone returns a deep copy of the operation.
func (op Operation) Clone() Operation {
	out := op
	if op.Element != nil {
		el := op.Element.Clone()
		out.Element = &el
	}
	out.Style = cloneMap(op.Style)
	out.Attributes = cloneMap(op.Attributes)
	if op.TextContent != nil {
		text := *op.TextContent
		out.TextContent = &text
	}
	return out
}

// Element describes a DOM element to insert.
type Element struct {
	Tag         string            `json:"tag"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	TextContent string            `json:"textContent,omitempty"`
	InnerHTML   string            `json:"innerHTML,omitempty"`
	Children    []Element         `json:"children,omitempty"`
}

// Clone returns a deep copy of the element tree.
func (e Element) Clone() Element {
	out := e
	out.Attributes = cloneMap(e.Attributes)
	out.Children = nil
	if len(e.Children) > 0 {
		out.Children = make([]Element, len(e.Children))
		for i, child := range e.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
