package testfixtures

import (
	"strings"

	"pgregory.net/rapid"

	"pagesmith.dev/engine/internal/core/plugin"
)

// Generators for property-based tests. Every generated plugin passes
// plugin.Validate. Optional collections are drawn as nil, empty or filled,
// so callers comparing across a JSON round trip should compare against
// p.Clone(), the canonical form.

// DomainPatternGen generates exact or wildcard domain patterns
func DomainPatternGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		labels := rapid.SliceOfN(rapid.StringMatching(`[a-z][a-z0-9]{0,6}`), 1, 3).Draw(t, "labels")
		domain := strings.Join(labels, ".") + ".test"
		if rapid.Bool().Draw(t, "wildcard") {
			return "*." + domain
		}
		return domain
	})
}

func stringMapGen(label string) *rapid.Generator[map[string]string] {
	return rapid.Custom(func(t *rapid.T) map[string]string {
		m := rapid.MapOfN(
			rapid.StringMatching(`[a-z][a-z-]{0,8}`),
			rapid.StringMatching(`[ -~]{0,12}`),
			0, 3,
		).Draw(t, label)
		if len(m) == 0 && rapid.Bool().Draw(t, label+"-nil") {
			return nil
		}
		return m
	})
}

// ElementGen generates element trees up to the given depth
func ElementGen(depth int) *rapid.Generator[plugin.Element] {
	return rapid.Custom(func(t *rapid.T) plugin.Element {
		el := plugin.Element{
			Tag:        rapid.SampledFrom([]string{"div", "span", "p", "a", "section", "my-widget"}).Draw(t, "tag"),
			Attributes: stringMapGen("attributes").Draw(t, "attributes"),
		}
		switch rapid.IntRange(0, 2).Draw(t, "content") {
		case 1:
			el.TextContent = rapid.StringMatching(`[ -~]{1,20}`).Draw(t, "text")
		case 2:
			el.InnerHTML = "<b>" + rapid.StringMatching(`[a-z ]{1,10}`).Draw(t, "html") + "</b>"
		}
		if depth > 1 {
			children := rapid.SliceOfN(ElementGen(depth-1), 0, 2).Draw(t, "children")
			if len(children) > 0 || rapid.Bool().Draw(t, "empty-children") {
				el.Children = children
			}
		}
		return el
	})
}

// OperationGen generates any valid operation variant
func OperationGen() *rapid.Generator[plugin.Operation] {
	return rapid.Custom(func(t *rapid.T) plugin.Operation {
		selector := rapid.SampledFrom([]string{"body", "#main", ".ads", "header > nav", "a[href]"}).Draw(t, "selector")
		description := rapid.StringMatching(`[a-zA-Z ]{0,16}`).Draw(t, "description")

		switch rapid.SampledFrom([]plugin.OperationType{
			plugin.OperationInsert, plugin.OperationUpdate, plugin.OperationDelete, plugin.OperationExecute,
		}).Draw(t, "type") {
		case plugin.OperationInsert:
			el := ElementGen(3).Draw(t, "element")
			return plugin.Operation{
				Type:        plugin.OperationInsert,
				Description: description,
				Selector:    selector,
				Position: rapid.SampledFrom([]plugin.InsertPosition{
					"", plugin.PositionBeforeBegin, plugin.PositionAfterBegin, plugin.PositionBeforeEnd, plugin.PositionAfterEnd,
				}).Draw(t, "position"),
				Element: &el,
			}
		case plugin.OperationUpdate:
			op := plugin.Operation{Type: plugin.OperationUpdate, Description: description, Selector: selector}
			// An empty map does not count as a requested change.
			if rapid.Bool().Draw(t, "empty-style") {
				op.Style = map[string]string{}
			}
			switch rapid.IntRange(0, 2).Draw(t, "change") {
			case 0:
				op.Style = map[string]string{"color": rapid.SampledFrom([]string{"red", "#fff", "inherit"}).Draw(t, "color")}
			case 1:
				text := rapid.StringMatching(`[ -~]{0,20}`).Draw(t, "text")
				op.TextContent = &text
			default:
				op.Attributes = map[string]string{"title": rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "title")}
			}
			return op
		case plugin.OperationDelete:
			return plugin.Operation{Type: plugin.OperationDelete, Description: description, Selector: selector}
		default:
			op := plugin.Operation{
				Type:        plugin.OperationExecute,
				Description: description,
				Code:        "console.log(" + rapid.StringMatching(`[0-9]{1,4}`).Draw(t, "arg") + ")",
				Run:         rapid.SampledFrom([]plugin.RunMode{plugin.RunOnce, plugin.RunAlways, plugin.RunInterval}).Draw(t, "run"),
			}
			if op.Run == plugin.RunInterval {
				op.IntervalMS = rapid.IntRange(1, 60000).Draw(t, "interval")
			}
			return op
		}
	})
}

// PluginGen generates valid plugins with a fresh ID
func PluginGen() *rapid.Generator[plugin.Plugin] {
	return rapid.Custom(func(t *rapid.T) plugin.Plugin {
		domains := rapid.SliceOfNDistinct(DomainPatternGen(), 0, 3, func(s string) string { return s }).Draw(t, "domains")
		operations := rapid.SliceOfN(OperationGen(), 0, 4).Draw(t, "operations")
		// Empty lists export as [] and decode back as empty, non-nil slices.
		if len(domains) == 0 {
			domains = []string{}
		}
		if len(operations) == 0 {
			operations = []plugin.Operation{}
		}
		return plugin.Plugin{
			ID:            plugin.NewID(),
			Name:          rapid.StringMatching(`[A-Z][a-zA-Z0-9 ]{0,20}`).Draw(t, "name"),
			Description:   rapid.StringMatching(`[ -~]{0,30}`).Draw(t, "description"),
			Version:       rapid.StringMatching(`[0-9]\.[0-9]\.[0-9]`).Draw(t, "version"),
			Priority:      rapid.IntRange(-10, 10).Draw(t, "priority"),
			TargetDomains: domains,
			Operations:    operations,
		}
	})
}
