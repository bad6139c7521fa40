// Package store is the authoritative plugin store. It keeps the plugin
// collection and the settings record in an in-memory cache backed by a
// durable ports.KeyValueStore.
//
// Every mutation runs as one read-modify-write cycle under a single writer
// lock and is flushed to the backend before the cache is updated, so a failed
// flush leaves both the cache and the backend unchanged. Readers take a
// snapshot under a read lock and never observe a partially applied write.
package store

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"pagesmith.dev/engine/internal/application/ports"
	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/settings"
)

// AuthorizeFunc decides whether a plugin may be enabled under the given
// settings. It is evaluated inside the write section so that the decision
// and the write see the same settings. A nil AuthorizeFunc allows everything.
type AuthorizeFunc func(p plugin.Plugin, current settings.Settings) error

// Store is the plugin and settings store.
type Store struct {
	kv     ports.KeyValueStore
	logger ports.LoggingGateway
	now    func() time.Time
	newID  func() string

	// writeMu serializes mutations including the backend flush.
	writeMu sync.Mutex

	mu       sync.RWMutex
	plugins  []plugin.PluginData
	index    map[string]int
	settings settings.Settings
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logging gateway.
func WithLogger(logger ports.LoggingGateway) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for usage timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides plugin id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Open loads both records from kv. Missing records start as an empty
// collection and default settings.
func Open(ctx context.Context, kv ports.KeyValueStore, opts ...Option) (*Store, error) {
	s := &Store{
		kv:       kv,
		logger:   ports.NoopLogger{},
		now:      time.Now,
		newID:    plugin.NewID,
		index:    make(map[string]int),
		settings: settings.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.logger.Log(ports.LogLevelDebug, "plugin store loaded", map[string]interface{}{
		"plugins":        len(s.plugins),
		"security_level": s.settings.SecurityLevel.String(),
	})
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	raw, found, err := s.kv.Get(ctx, ports.PluginsKey)
	if err != nil {
		return apperr.Internal("load plugins", err)
	}
	if found {
		var records []plugin.PluginData
		if err := json.Unmarshal(raw, &records); err != nil {
			return apperr.Internal("decode stored plugins", err)
		}
		for _, r := range records {
			if _, dup := s.index[r.ID()]; dup || r.ID() == "" {
				s.logger.Log(ports.LogLevelWarn, "skipping stored plugin with duplicate or empty id", map[string]interface{}{
					"plugin_id": r.ID(),
				})
				continue
			}
			s.index[r.ID()] = len(s.plugins)
			s.plugins = append(s.plugins, r)
		}
	}

	raw, found, err = s.kv.Get(ctx, ports.SettingsKey)
	if err != nil {
		return apperr.Internal("load settings", err)
	}
	if found {
		var stored settings.Settings
		if err := json.Unmarshal(raw, &stored); err != nil {
			return apperr.Internal("decode stored settings", err)
		}
		s.settings = stored
	}
	return nil
}

// GetAllPlugins returns every record in insertion order.
func (s *Store) GetAllPlugins() []plugin.PluginData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]plugin.PluginData, len(s.plugins))
	for i, d := range s.plugins {
		out[i] = d.Clone()
	}
	return out
}

// GetPlugin returns the record with the given id.
func (s *Store) GetPlugin(id string) (plugin.PluginData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return plugin.PluginData{}, apperr.NotFound("plugin", id)
	}
	return s.plugins[i].Clone(), nil
}

// GetPluginsForDomain returns the enabled plugins whose target domains
// match hostname, highest priority first. Equal priorities keep insertion
// order. Nothing matches while the global kill switch is off.
func (s *Store) GetPluginsForDomain(hostname string) []plugin.PluginData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []plugin.PluginData{}
	if !s.settings.PluginsEnabled {
		return out
	}
	for _, d := range s.plugins {
		if d.Enabled && d.Plugin.AppliesTo(hostname) {
			out = append(out, d.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b plugin.PluginData) int {
		return cmp.Compare(b.Plugin.Priority, a.Plugin.Priority)
	})
	return out
}

// GetSettings returns the current settings record.
func (s *Store) GetSettings() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SavePlugin creates or replaces a plugin. An empty id creates a new record
// with a fresh id. Replacing keeps the record's enablement and usage, except
// that an enabled record whose new revision authorize rejects is disabled in
// the same write. New records start disabled unless auto-apply is on and
// authorize accepts them.
func (s *Store) SavePlugin(ctx context.Context, p plugin.Plugin, authorize AuthorizeFunc) (plugin.PluginData, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if err := plugin.Validate(p); err != nil {
		return plugin.PluginData{}, err
	}
	p = p.Clone()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	i, exists := s.index[p.ID]
	if !exists {
		return s.insertLocked(ctx, p, authorize)
	}

	record := s.plugins[i]
	record.Plugin = p
	revoked := false
	if record.Enabled {
		if err := check(authorize, p, s.settings); err != nil {
			record.Enabled = false
			revoked = true
		}
	}

	next := slices.Clone(s.plugins)
	next[i] = record
	if err := s.commit(ctx, next, nil); err != nil {
		return plugin.PluginData{}, err
	}

	fields := map[string]interface{}{"plugin_id": p.ID, "enabled": record.Enabled}
	if revoked {
		s.logger.Log(ports.LogLevelWarn, "plugin revision exceeds security level; disabled", fields)
	} else {
		s.logger.Log(ports.LogLevelInfo, "plugin updated", fields)
	}
	return record.Clone(), nil
}

// AddPlugin inserts p as a new record. If p has no id, or its id is already
// taken when the write runs, a fresh id is assigned so both plugins coexist.
func (s *Store) AddPlugin(ctx context.Context, p plugin.Plugin, authorize AuthorizeFunc) (plugin.PluginData, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if err := plugin.Validate(p); err != nil {
		return plugin.PluginData{}, err
	}
	p = p.Clone()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, taken := s.index[p.ID]; taken {
		original := p.ID
		for taken {
			p.ID = s.newID()
			_, taken = s.index[p.ID]
		}
		s.logger.Log(ports.LogLevelInfo, "plugin id already in use; assigned a new id", map[string]interface{}{
			"requested_id": original,
			"plugin_id":    p.ID,
		})
	}
	return s.insertLocked(ctx, p, authorize)
}

func (s *Store) insertLocked(ctx context.Context, p plugin.Plugin, authorize AuthorizeFunc) (plugin.PluginData, error) {
	record := plugin.PluginData{Plugin: p}
	if s.settings.AutoApplyPlugins && check(authorize, p, s.settings) == nil {
		record.Enabled = true
	}

	next := append(slices.Clone(s.plugins), record)
	if err := s.commit(ctx, next, nil); err != nil {
		return plugin.PluginData{}, err
	}

	s.logger.Log(ports.LogLevelInfo, "plugin created", map[string]interface{}{
		"plugin_id": p.ID,
		"enabled":   record.Enabled,
	})
	return record.Clone(), nil
}

// DeletePlugin removes the record with the given id.
func (s *Store) DeletePlugin(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return apperr.NotFound("plugin", id)
	}

	next := slices.Delete(slices.Clone(s.plugins), i, i+1)
	if err := s.commit(ctx, next, nil); err != nil {
		return err
	}

	s.logger.Log(ports.LogLevelInfo, "plugin deleted", map[string]interface{}{"plugin_id": id})
	return nil
}

// TogglePlugin sets the enabled flag. Enabling runs authorize against the
// current settings first; a rejection leaves the record untouched. changed
// is false when the record already had the requested state, in which case
// nothing is written.
func (s *Store) TogglePlugin(ctx context.Context, id string, enabled bool, authorize AuthorizeFunc) (_ plugin.PluginData, changed bool, _ error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return plugin.PluginData{}, false, apperr.NotFound("plugin", id)
	}

	record := s.plugins[i]
	if enabled {
		if err := check(authorize, record.Plugin, s.settings); err != nil {
			return plugin.PluginData{}, false, err
		}
	}
	if record.Enabled == enabled {
		return record.Clone(), false, nil
	}

	record.Enabled = enabled
	next := slices.Clone(s.plugins)
	next[i] = record
	if err := s.commit(ctx, next, nil); err != nil {
		return plugin.PluginData{}, false, err
	}

	s.logger.Log(ports.LogLevelInfo, "plugin toggled", map[string]interface{}{
		"plugin_id": id,
		"enabled":   enabled,
	})
	return record.Clone(), true, nil
}

// RecordPluginUsage increments the usage counter and stamps the last-used
// time. Unknown ids are ignored.
func (s *Store) RecordPluginUsage(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil
	}

	record := s.plugins[i]
	record.UsageCount++
	usedAt := s.now().UTC()
	record.LastUsedAt = &usedAt

	next := slices.Clone(s.plugins)
	next[i] = record
	return s.commit(ctx, next, nil)
}

// UpdateSettings replaces the settings record. Enabled plugins that
// authorize rejects under the new settings are disabled in the same write;
// their ids are returned.
func (s *Store) UpdateSettings(ctx context.Context, updated settings.Settings, authorize AuthorizeFunc) ([]string, error) {
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var disabled []string
	var next []plugin.PluginData
	for i, d := range s.plugins {
		if !d.Enabled || check(authorize, d.Plugin, updated) == nil {
			continue
		}
		if next == nil {
			next = slices.Clone(s.plugins)
		}
		next[i].Enabled = false
		disabled = append(disabled, d.ID())
	}

	if err := s.commit(ctx, next, &updated); err != nil {
		return nil, err
	}

	s.logger.Log(ports.LogLevelInfo, "settings updated", map[string]interface{}{
		"security_level":  updated.SecurityLevel.String(),
		"plugins_enabled": updated.PluginsEnabled,
		"auto_apply":      updated.AutoApplyPlugins,
		"disabled":        len(disabled),
	})
	return disabled, nil
}

// commit flushes the changed records and then publishes them to the cache.
// A nil plugins slice or settings pointer means that record is unchanged.
// Callers must hold writeMu.
func (s *Store) commit(ctx context.Context, plugins []plugin.PluginData, updated *settings.Settings) error {
	var entries []ports.Entry
	if plugins != nil {
		payload, err := json.Marshal(plugins)
		if err != nil {
			return apperr.Internal("encode plugins", err)
		}
		entries = append(entries, ports.Entry{Key: ports.PluginsKey, Value: payload})
	}
	if updated != nil {
		payload, err := json.Marshal(updated)
		if err != nil {
			return apperr.Internal("encode settings", err)
		}
		entries = append(entries, ports.Entry{Key: ports.SettingsKey, Value: payload})
	}
	if len(entries) == 0 {
		return nil
	}

	if err := s.kv.Put(ctx, entries...); err != nil {
		s.logger.LogError(err, "failed to persist store", nil)
		return apperr.Internal("persist store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if plugins != nil {
		s.plugins = plugins
		s.index = make(map[string]int, len(plugins))
		for i, d := range plugins {
			s.index[d.ID()] = i
		}
	}
	if updated != nil {
		s.settings = *updated
	}
	return nil
}

func check(authorize AuthorizeFunc, p plugin.Plugin, current settings.Settings) error {
	if authorize == nil {
		return nil
	}
	return authorize(p, current)
}
