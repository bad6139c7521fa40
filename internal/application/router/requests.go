package router

import (
	"context"

	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/settings"
)

// Request type tags.
const (
	TypeGetPluginsForDomain = "get-plugins-for-domain"
	TypeRecordUsage         = "record-usage"
	TypeSavePlugin          = "save-plugin"
	TypeGetAllPlugins       = "get-all-plugins"
	TypeDeletePlugin        = "delete-plugin"
	TypeTogglePlugin        = "toggle-plugin"
	TypeGetSettings         = "get-settings"
	TypeUpdateSettings      = "update-settings"
	TypeImportPlugin        = "import-plugin"
	TypeExportPlugin        = "export-plugin"
)

// Request is the closed set of router requests. Only types in this package
// implement it, and each one carries its own handler.
type Request interface {
	// Type returns the request's wire tag.
	Type() string

	dispatch(ctx context.Context, r *Router) Response
}

// GetPluginsForDomainRequest asks which plugins apply to a page.
type GetPluginsForDomainRequest struct {
	Hostname string `json:"hostname"`
}

// RecordUsageRequest reports that a plugin was applied to a page.
type RecordUsageRequest struct {
	PluginID string `json:"pluginId"`
}

// SavePluginRequest creates or replaces a plugin.
type SavePluginRequest struct {
	Plugin plugin.Plugin `json:"plugin"`
}

// GetAllPluginsRequest lists every stored plugin.
type GetAllPluginsRequest struct{}

// DeletePluginRequest removes a plugin.
type DeletePluginRequest struct {
	PluginID string `json:"pluginId"`
}

// TogglePluginRequest enables or disables a plugin.
type TogglePluginRequest struct {
	PluginID string `json:"pluginId"`
	Enabled  bool   `json:"enabled"`
}

// GetSettingsRequest reads the settings.
type GetSettingsRequest struct{}

// UpdateSettingsRequest replaces the settings.
type UpdateSettingsRequest struct {
	Settings settings.Settings `json:"settings"`
}

// ImportPluginRequest stores a plugin from an exported document.
type ImportPluginRequest struct {
	Document string `json:"document"`
}

// ExportPluginRequest serializes a stored plugin.
type ExportPluginRequest struct {
	PluginID string `json:"pluginId"`
}

func (GetPluginsForDomainRequest) Type() string { return TypeGetPluginsForDomain }
func (RecordUsageRequest) Type() string         { return TypeRecordUsage }
func (SavePluginRequest) Type() string          { return TypeSavePlugin }
func (GetAllPluginsRequest) Type() string       { return TypeGetAllPlugins }
func (DeletePluginRequest) Type() string        { return TypeDeletePlugin }
func (TogglePluginRequest) Type() string        { return TypeTogglePlugin }
func (GetSettingsRequest) Type() string         { return TypeGetSettings }
func (UpdateSettingsRequest) Type() string      { return TypeUpdateSettings }
func (ImportPluginRequest) Type() string        { return TypeImportPlugin }
func (ExportPluginRequest) Type() string        { return TypeExportPlugin }

func (q GetPluginsForDomainRequest) dispatch(_ context.Context, r *Router) Response {
	return Response{Plugins: r.GetPluginsForDomain(q.Hostname)}
}

func (q RecordUsageRequest) dispatch(ctx context.Context, r *Router) Response {
	r.RecordUsage(ctx, q.PluginID)
	return Response{}
}

func (q SavePluginRequest) dispatch(ctx context.Context, r *Router) Response {
	saved, err := r.SavePlugin(ctx, q.Plugin)
	if err != nil {
		return failure(q.Type(), err)
	}
	return Response{Record: &saved}
}

func (GetAllPluginsRequest) dispatch(_ context.Context, r *Router) Response {
	return Response{Records: r.GetAllPlugins()}
}

func (q DeletePluginRequest) dispatch(ctx context.Context, r *Router) Response {
	if err := r.DeletePlugin(ctx, q.PluginID); err != nil {
		return failure(q.Type(), err)
	}
	return Response{}
}

func (q TogglePluginRequest) dispatch(ctx context.Context, r *Router) Response {
	toggled, err := r.TogglePlugin(ctx, q.PluginID, q.Enabled)
	if err != nil {
		return failure(q.Type(), err)
	}
	return Response{Record: &toggled}
}

func (GetSettingsRequest) dispatch(_ context.Context, r *Router) Response {
	current := r.GetSettings()
	return Response{Settings: &current}
}

func (q UpdateSettingsRequest) dispatch(ctx context.Context, r *Router) Response {
	disabled, err := r.UpdateSettings(ctx, q.Settings)
	if err != nil {
		return failure(q.Type(), err)
	}
	current := r.GetSettings()
	return Response{Settings: &current, Disabled: disabled}
}

func (q ImportPluginRequest) dispatch(ctx context.Context, r *Router) Response {
	added, err := r.ImportPlugin(ctx, []byte(q.Document))
	if err != nil {
		return failure(q.Type(), err)
	}
	return Response{Record: &added}
}

func (q ExportPluginRequest) dispatch(_ context.Context, r *Router) Response {
	doc, err := r.ExportPlugin(q.PluginID)
	if err != nil {
		return failure(q.Type(), err)
	}
	return Response{Document: string(doc)}
}
