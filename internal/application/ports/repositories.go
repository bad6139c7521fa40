package ports

import (
	"context"
	"errors"
)

// Keys under which the engine persists its two records.
const (
	PluginsKey  = "plugins"
	SettingsKey = "settings"
)

// ErrBackendClosed is returned by a KeyValueStore used after Close.
var ErrBackendClosed = errors.New("storage backend is closed")

// Entry is one key/value pair written by KeyValueStore.Put.
type Entry struct {
	Key   string
	Value []byte
}

// KeyValueStore defines the durable backend behind the plugin store
type KeyValueStore interface {
	// Get returns the value stored under key; found is false when the key is absent
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put writes all entries in a single atomic transaction
	Put(ctx context.Context, entries ...Entry) error

	// Close releases the backend
	Close() error
}
