package testfixtures

import (
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/security"
	"pagesmith.dev/engine/internal/core/settings"
)

// PluginBuilder provides a builder pattern for creating test plugins
type PluginBuilder struct {
	p plugin.Plugin
}

// NewPluginBuilder creates a PluginBuilder with a generated ID and sensible defaults
func NewPluginBuilder() *PluginBuilder {
	return &PluginBuilder{p: plugin.Plugin{
		ID:            plugin.NewID(),
		Name:          "Test Plugin",
		Version:       "1.0.0",
		TargetDomains: []string{"example.com"},
		Operations:    []plugin.Operation{},
	}}
}

// WithID sets a specific ID. An empty ID asks the store to assign one.
func (b *PluginBuilder) WithID(id string) *PluginBuilder {
	b.p.ID = id
	return b
}

// WithName sets the plugin name
func (b *PluginBuilder) WithName(name string) *PluginBuilder {
	b.p.Name = name
	return b
}

// WithPriority sets the ordering priority
func (b *PluginBuilder) WithPriority(priority int) *PluginBuilder {
	b.p.Priority = priority
	return b
}

// WithDomains replaces the target domain patterns
func (b *PluginBuilder) WithDomains(patterns ...string) *PluginBuilder {
	b.p.TargetDomains = append([]string{}, patterns...)
	return b
}

// WithOperation appends an operation
func (b *PluginBuilder) WithOperation(op plugin.Operation) *PluginBuilder {
	b.p.Operations = append(b.p.Operations, op)
	return b
}

// WithInsert appends an insert of a single text element under selector
func (b *PluginBuilder) WithInsert(selector, tag, text string) *PluginBuilder {
	return b.WithOperation(plugin.Operation{
		Type:     plugin.OperationInsert,
		Selector: selector,
		Element:  &plugin.Element{Tag: tag, TextContent: text},
	})
}

// WithStyle appends a style update
func (b *PluginBuilder) WithStyle(selector string, style map[string]string) *PluginBuilder {
	return b.WithOperation(plugin.Operation{Type: plugin.OperationUpdate, Selector: selector, Style: style})
}

// WithDelete appends a delete
func (b *PluginBuilder) WithDelete(selector string) *PluginBuilder {
	return b.WithOperation(plugin.Operation{Type: plugin.OperationDelete, Selector: selector})
}

// WithExecute appends a run-once execute operation
func (b *PluginBuilder) WithExecute(code string) *PluginBuilder {
	return b.WithOperation(plugin.Operation{Type: plugin.OperationExecute, Code: code, Run: plugin.RunOnce})
}

// Build returns a copy of the assembled plugin
func (b *PluginBuilder) Build() plugin.Plugin {
	return b.p.Clone()
}

// SettingsBuilder provides a builder pattern for settings records
type SettingsBuilder struct {
	s settings.Settings
}

// NewSettingsBuilder starts from the default settings
func NewSettingsBuilder() *SettingsBuilder {
	return &SettingsBuilder{s: settings.Default()}
}

// WithSecurityLevel sets the configured level
func (b *SettingsBuilder) WithSecurityLevel(level security.Level) *SettingsBuilder {
	b.s.SecurityLevel = level
	return b
}

// WithPluginsEnabled sets the global kill switch
func (b *SettingsBuilder) WithPluginsEnabled(enabled bool) *SettingsBuilder {
	b.s.PluginsEnabled = enabled
	return b
}

// WithAutoApply sets auto-enable for new plugins
func (b *SettingsBuilder) WithAutoApply(enabled bool) *SettingsBuilder {
	b.s.AutoApplyPlugins = enabled
	return b
}

// WithAPIKey sets the API key
func (b *SettingsBuilder) WithAPIKey(key string) *SettingsBuilder {
	b.s.APIKey = key
	return b
}

// Build returns the settings record
func (b *SettingsBuilder) Build() settings.Settings {
	return b.s
}

// SafePlugin returns a plugin whose operations all require the safe level
func SafePlugin() plugin.Plugin {
	return NewPluginBuilder().
		WithName("Banner").
		WithDomains("*.example.com").
		WithInsert("body", "div", "Hello").
		WithStyle("header", map[string]string{"background": "red"}).
		WithDelete(".ads").
		Build()
}

// AdvancedPlugin returns a plugin with an execute operation
func AdvancedPlugin() plugin.Plugin {
	return NewPluginBuilder().
		WithName("Script").
		WithDomains("*.example.com").
		WithInsert("body", "div", "Hello").
		WithExecute("console.log('hi')").
		Build()
}

// SamplePlugins returns a mixed set of plugins
func SamplePlugins() []plugin.Plugin {
	return []plugin.Plugin{
		SafePlugin(),
		AdvancedPlugin(),
		NewPluginBuilder().WithName("Docs").WithDomains("docs.example.org").WithDelete("#cookie-banner").Build(),
		NewPluginBuilder().WithName("NoOp").WithDomains().Build(),
	}
}
