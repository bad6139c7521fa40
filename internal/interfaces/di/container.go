package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"pagesmith.dev/engine/internal/application/ports"
	"pagesmith.dev/engine/internal/application/router"
	"pagesmith.dev/engine/internal/application/store"
	"pagesmith.dev/engine/internal/infrastructure/broadcast"
	"pagesmith.dev/engine/internal/infrastructure/config"
	"pagesmith.dev/engine/internal/infrastructure/logging"
	"pagesmith.dev/engine/internal/infrastructure/metrics"
	"pagesmith.dev/engine/internal/infrastructure/storage/bolt"
	"pagesmith.dev/engine/internal/infrastructure/storage/memory"
	"pagesmith.dev/engine/internal/infrastructure/storage/sqlite"
	"pagesmith.dev/engine/internal/interfaces/httpapi"
)

// Container holds all application dependencies
type Container struct {
	Config config.Config

	// Logging
	Logger  *slog.Logger
	Gateway *logging.SlogGateway

	// Storage
	Backend ports.KeyValueStore
	Store   *store.Store

	// Delivery
	Hub     *broadcast.Hub
	Metrics *metrics.Collector
	Router  *router.Router
}

// NewContainer opens the configured backend and wires every component.
// Logs go to logOut.
func NewContainer(ctx context.Context, cfg config.Config, logOut io.Writer) (*Container, error) {
	if logOut == nil {
		logOut = os.Stderr
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Gateway: logging.NewSlogGateway(logger),
	}

	if err := c.initializeComponents(ctx); err != nil {
		if c.Backend != nil {
			_ = c.Backend.Close()
		}
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return c, nil
}

// initializeComponents initializes all components with proper dependencies
func (c *Container) initializeComponents(ctx context.Context) error {
	// 1. Storage backend
	backend, err := OpenBackend(c.Config)
	if err != nil {
		return err
	}
	c.Backend = backend

	// 2. Persistent store
	c.Store, err = store.Open(ctx, backend, store.WithLogger(c.Gateway))
	if err != nil {
		return fmt.Errorf("failed to load plugin store: %w", err)
	}

	// 3. Delivery
	c.Hub = broadcast.NewHub(c.Config.BroadcastBuffer, c.Gateway)
	routerOpts := []router.Option{
		router.WithBroadcaster(c.Hub),
		router.WithLogger(c.Gateway),
	}
	if c.Config.MetricsEnabled {
		c.Metrics = metrics.NewCollector()
		routerOpts = append(routerOpts, router.WithMetrics(c.Metrics))
	}
	c.Router = router.New(c.Store, routerOpts...)

	c.Gateway.Log(ports.LogLevelDebug, "container initialized", map[string]interface{}{
		"backend":   c.Config.StorageBackend,
		"data_path": c.Config.DataPath,
		"plugins":   len(c.Store.GetAllPlugins()),
	})
	return nil
}

// OpenBackend opens the key-value backend named by cfg, creating the data
// directory when needed.
func OpenBackend(cfg config.Config) (ports.KeyValueStore, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendBolt, config.BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if dir := filepath.Dir(cfg.DataPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if cfg.StorageBackend == config.BackendSQLite {
		kv, err := sqlite.Open(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return kv, nil
	}
	kv, err := bolt.Open(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}
	return kv, nil
}

// HTTPServer builds the HTTP transport over the router.
func (c *Container) HTTPServer() *httpapi.Server {
	opts := []httpapi.Option{httpapi.WithLogger(c.Gateway)}
	if c.Metrics != nil {
		opts = append(opts, httpapi.WithMetricsHandler(c.Metrics.Handler()))
	}
	return httpapi.NewServer(c.Router, c.Hub, opts...)
}

// HealthCheck verifies the backend is reachable.
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.Backend == nil {
		return errors.New("storage backend not initialized")
	}
	if _, _, err := c.Backend.Get(ctx, ports.SettingsKey); err != nil {
		return fmt.Errorf("storage backend unhealthy: %w", err)
	}
	return nil
}

// Shutdown releases the storage backend.
func (c *Container) Shutdown() error {
	if c.Backend == nil {
		return nil
	}
	if err := c.Backend.Close(); err != nil && !errors.Is(err, ports.ErrBackendClosed) {
		return fmt.Errorf("failed to close storage backend: %w", err)
	}
	return nil
}
