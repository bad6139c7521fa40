// Package router is the single entry point for plugin engine requests. It
// joins the store with the security policy and the codec, and broadcasts a
// reload notification to page contexts after every successful mutation.
package router

import (
	"context"
	"time"

	"pagesmith.dev/engine/internal/application/ports"
	"pagesmith.dev/engine/internal/application/store"
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/security"
	"pagesmith.dev/engine/internal/core/settings"
)

// ReloadMessage is broadcast to page contexts after a mutation.
var ReloadMessage = []byte(`{"type":"reload-plugins"}`)

// Router dispatches requests to the store.
type Router struct {
	store       *store.Store
	broadcaster ports.Broadcaster
	metrics     ports.Metrics
	logger      ports.LoggingGateway
}

// Option configures a Router.
type Option func(*Router)

// WithBroadcaster sets where reload notifications go.
func WithBroadcaster(b ports.Broadcaster) Option {
	return func(r *Router) {
		if b != nil {
			r.broadcaster = b
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m ports.Metrics) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithLogger sets the logging gateway.
func WithLogger(l ports.LoggingGateway) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a router over s.
func New(s *store.Store, opts ...Option) *Router {
	r := &Router{
		store:       s,
		broadcaster: noBroadcast{},
		metrics:     ports.NoopMetrics{},
		logger:      ports.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch handles req and folds any failure into the response.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	if req == nil {
		return failure("", errMissingRequest)
	}

	start := time.Now()
	resp := req.dispatch(ctx, r)
	resp.Type = req.Type()
	resp.Success = resp.Error == nil

	code := ""
	if resp.Error != nil {
		code = string(resp.Error.Code)
	}
	r.metrics.ObserveRequest(req.Type(), code, time.Since(start))
	return resp
}

// GetPluginsForDomain returns the plugins that apply to hostname, highest
// priority first. Plugins above the configured security level are left out
// even when enabled.
func (r *Router) GetPluginsForDomain(hostname string) []plugin.Plugin {
	level := r.store.GetSettings().SecurityLevel
	records := r.store.GetPluginsForDomain(hostname)

	out := make([]plugin.Plugin, 0, len(records))
	for _, d := range records {
		if !security.CanExecute(d.Plugin, level) {
			r.metrics.ObservePolicyDenial(TypeGetPluginsForDomain)
			r.logger.Log(ports.LogLevelWarn, "enabled plugin exceeds security level; skipped", map[string]interface{}{
				"plugin_id": d.ID(),
				"hostname":  hostname,
			})
			continue
		}
		out = append(out, d.Plugin)
	}
	return out
}

// RecordUsage counts one application of a plugin. Failures are logged and
// never reported to the caller.
func (r *Router) RecordUsage(ctx context.Context, id string) {
	if err := r.store.RecordPluginUsage(ctx, id); err != nil {
		r.logger.LogError(err, "failed to record plugin usage", map[string]interface{}{"plugin_id": id})
	}
}

// SavePlugin creates or replaces a plugin.
func (r *Router) SavePlugin(ctx context.Context, p plugin.Plugin) (plugin.PluginData, error) {
	saved, err := r.store.SavePlugin(ctx, p, r.authorize(TypeSavePlugin))
	if err != nil {
		return plugin.PluginData{}, err
	}
	r.reload()
	return saved, nil
}

// GetAllPlugins returns every stored record in insertion order.
func (r *Router) GetAllPlugins() []plugin.PluginData {
	return r.store.GetAllPlugins()
}

// GetPlugin returns one stored record.
func (r *Router) GetPlugin(id string) (plugin.PluginData, error) {
	return r.store.GetPlugin(id)
}

// DeletePlugin removes a plugin.
func (r *Router) DeletePlugin(ctx context.Context, id string) error {
	if err := r.store.DeletePlugin(ctx, id); err != nil {
		return err
	}
	r.reload()
	return nil
}

// TogglePlugin enables or disables a plugin. Enabling a plugin whose
// operations exceed the configured security level fails with
// *security.PolicyDenied and changes nothing. Toggling to the current state
// is a no-op and does not broadcast.
func (r *Router) TogglePlugin(ctx context.Context, id string, enabled bool) (plugin.PluginData, error) {
	toggled, changed, err := r.store.TogglePlugin(ctx, id, enabled, r.authorize(TypeTogglePlugin))
	if err != nil {
		return plugin.PluginData{}, err
	}
	if changed {
		r.reload()
	}
	return toggled, nil
}

// GetSettings returns the current settings.
func (r *Router) GetSettings() settings.Settings {
	return r.store.GetSettings()
}

// UpdateSettings replaces the settings and returns the ids of plugins that
// were disabled because the new security level no longer allows them.
func (r *Router) UpdateSettings(ctx context.Context, s settings.Settings) ([]string, error) {
	disabled, err := r.store.UpdateSettings(ctx, s, r.authorize(TypeUpdateSettings))
	if err != nil {
		return nil, err
	}
	r.reload()
	return disabled, nil
}

// ImportPlugin parses a plugin document and stores it as a new record. An id
// that is missing or already taken is replaced with a fresh one.
func (r *Router) ImportPlugin(ctx context.Context, document []byte) (plugin.PluginData, error) {
	p, err := plugin.Import(document)
	if err != nil {
		return plugin.PluginData{}, err
	}
	added, err := r.store.AddPlugin(ctx, p, r.authorize(TypeImportPlugin))
	if err != nil {
		return plugin.PluginData{}, err
	}
	r.reload()
	return added, nil
}

// ExportPlugin serializes a stored plugin without its store metadata.
func (r *Router) ExportPlugin(id string) ([]byte, error) {
	d, err := r.store.GetPlugin(id)
	if err != nil {
		return nil, err
	}
	return plugin.Export(d.Plugin)
}

func (r *Router) authorize(requestType string) store.AuthorizeFunc {
	return func(p plugin.Plugin, current settings.Settings) error {
		err := security.Authorize(p, current.SecurityLevel)
		if err != nil {
			r.metrics.ObservePolicyDenial(requestType)
			r.logger.Log(ports.LogLevelInfo, "plugin denied by security policy", map[string]interface{}{
				"plugin_id":  p.ID,
				"request":    requestType,
				"required":   security.RequiredLevel(p).String(),
				"configured": current.SecurityLevel.String(),
			})
		}
		return err
	}
}

// reload notifies page contexts. Delivery is best effort and never fails
// the request that triggered it.
func (r *Router) reload() {
	delivered := r.broadcaster.Broadcast(ReloadMessage)
	r.metrics.ObserveBroadcast(delivered)
	r.logger.Log(ports.LogLevelDebug, "reload broadcast", map[string]interface{}{"delivered": delivered})
}

type noBroadcast struct{}

func (noBroadcast) Broadcast([]byte) int { return 0 }
