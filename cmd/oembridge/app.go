package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/oembridge/config"
	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/api"
	"github.com/goclaw/oembridge/pkg/api/events"
	"github.com/goclaw/oembridge/pkg/api/handlers"
	"github.com/goclaw/oembridge/pkg/bridge"
	"github.com/goclaw/oembridge/pkg/executor"
	grpcpkg "github.com/goclaw/oembridge/pkg/grpc"
	"github.com/goclaw/oembridge/pkg/identity"
	"github.com/goclaw/oembridge/pkg/listener"
	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/metrics"
	"github.com/goclaw/oembridge/pkg/storage"
	badgerjournal "github.com/goclaw/oembridge/pkg/storage/badger"
	memoryjournal "github.com/goclaw/oembridge/pkg/storage/memory"
	"github.com/goclaw/oembridge/pkg/telemetry/tracing"
)

// app owns every long-lived component of a serving process.
type app struct {
	cfg *config.Config
	log logger.Logger

	transport adapter.Adapter
	local     *adapter.Local
	redis     *redis.Client
	bridge    *bridge.Bridge
	listener  *listener.Listener
	journal   storage.Journal
	executor  executor.Executor
	stopExec  func()

	metrics     *metrics.Manager
	broadcaster *events.Broadcaster
	websocket   *handlers.WebSocketHandler
	http        *api.HTTPServer
	grpc        *grpcpkg.Server

	stopTracing tracing.ShutdownFunc
	watcher     *config.Watcher
	wg          sync.WaitGroup
}

// newApp builds the component graph and registers the built-in listener.
// Nothing listens on the network until run.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	stopTracing, err := tracing.Init(ctx, cfg.Tracing, tracing.Service{
		Name:        cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		AdapterType: cfg.Adapter.Type,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.stopTracing = stopTracing

	a.metrics = metrics.NewManager(metrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		Port:                    cfg.Metrics.Port,
		Path:                    cfg.Metrics.Path,
		DispatchDurationBuckets: metrics.DefaultConfig().DispatchDurationBuckets,
		HTTPDurationBuckets:     metrics.DefaultConfig().HTTPDurationBuckets,
	})
	if a.metrics.Enabled() {
		bridge.SetMetricsRecorder(a.metrics)
		adapter.SetMetricsRecorder(a.metrics)
	}

	if err := a.initTransport(); err != nil {
		a.release(ctx)
		return nil, err
	}

	a.executor, a.stopExec, err = executor.New(executor.Config{
		Type:      executor.Type(cfg.Bridge.Executor.Type),
		Workers:   cfg.Bridge.Executor.Workers,
		QueueSize: cfg.Bridge.Executor.QueueSize,
	})
	if err != nil {
		a.release(ctx)
		return nil, fmt.Errorf("create executor: %w", err)
	}

	a.broadcaster = events.NewBroadcaster()
	a.bridge = bridge.New(a.transport,
		bridge.WithLogger(log),
		bridge.WithResponseTimeout(cfg.Bridge.ResponseTimeout),
		bridge.WithWarnInterval(cfg.Bridge.WarnInterval),
		bridge.WithIdentityScope(identityScope(cfg.Bridge.Identity)),
		bridge.WithObserver(a.broadcaster),
	)

	if cfg.Bridge.Listener.Enabled {
		if a.journal, err = openJournal(cfg.Bridge.Listener.Journal); err != nil {
			a.release(ctx)
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.listener = listener.New(listener.Config{
			SessionConfigStatus: cfg.Bridge.Listener.SessionConfigStatus,
			ReportTags:          cfg.Bridge.Listener.ReportTags,
			History:             cfg.Bridge.Listener.History,
			Journal:             a.journal,
		}, log)
		if err := a.bridge.Register(ctx, a.executor, a.listener); err != nil {
			a.release(ctx)
			return nil, fmt.Errorf("register built-in listener: %w", err)
		}
		log.Info("Built-in listener registered",
			"session_config_status", cfg.Bridge.Listener.SessionConfigStatus,
			"report_tags", len(cfg.Bridge.Listener.ReportTags),
		)
	}

	a.websocket = handlers.NewWebSocketHandler(log, handlers.WebSocketConfig{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		MaxConnections: cfg.Server.HTTP.MaxWebSocketConnections,
	})
	a.http = api.NewHTTPServer(cfg, log, a.handlers())

	if cfg.Server.GRPC.Enabled {
		a.grpc, err = grpcpkg.New(
			cfg.Server.GRPC.ToGRPCConfig(cfg.Server.Host, cfg.Tracing.Enabled),
			grpcpkg.WithLogger(log.With("component", "grpc")),
			grpcpkg.WithProbe(a.ready),
		)
		if err != nil {
			a.release(ctx)
			return nil, fmt.Errorf("create grpc server: %w", err)
		}
	}

	return a, nil
}

func (a *app) initTransport() error {
	switch a.cfg.Adapter.Type {
	case "redis":
		rc := a.cfg.Adapter.Redis
		a.redis = redis.NewClient(&redis.Options{
			Addr:     rc.Address,
			Password: rc.Password,
			DB:       rc.DB,
		})
		a.transport = adapter.NewRedis(a.redis, rc.ChannelPrefix, a.log.With("component", "adapter.redis"))
		a.log.Info("Initialized Redis adapter", "address", rc.Address, "channel_prefix", rc.ChannelPrefix)
	case "local", "":
		a.local = adapter.NewLocal()
		a.transport = a.local
		a.log.Info("Initialized local adapter")
	default:
		return fmt.Errorf("unknown adapter type %q", a.cfg.Adapter.Type)
	}
	return nil
}

// openJournal returns nil for the "none" type.
func openJournal(cfg config.JournalConfig) (storage.Journal, error) {
	switch cfg.Type {
	case "badger":
		j, err := badgerjournal.NewBadgerJournal(&badgerjournal.Config{
			Path:       cfg.Path,
			SyncWrites: cfg.SyncWrites,
			TTL:        cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return j, nil
	case "memory":
		return memoryjournal.NewMemoryJournal(cfg.MaxEntries), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

func identityScope(name string) identity.Scope {
	if name == "nop" {
		return identity.Nop{}
	}
	return identity.NewSystem()
}

func (a *app) handlers() *api.Handlers {
	h := &api.Handlers{
		Health: handlers.NewHealthHandler(a.transport, a.bridge, a.cfg.Adapter.Type),
		Events: a.websocket,
	}

	// A nil *listener.Listener must not become a non-nil HistorySource.
	var history handlers.HistorySource
	if a.listener != nil {
		history = a.listener
	}
	h.Bridge = handlers.NewBridgeHandler(a.bridge, a.cfg.Device.SpecInfo, history, a.log)
	if a.journal != nil {
		h.Journal = handlers.NewJournalHandler(a.journal, a.log)
	}

	if a.local != nil {
		h.Notifications = handlers.NewNotificationHandler(a.local, a.log)
	}
	if a.metrics.Enabled() {
		h.Metrics = a.metrics
		if a.cfg.Metrics.Port == 0 {
			h.MetricsHandler = a.metrics.Handler()
		}
	}
	return h
}

// ready reports whether notifications can currently reach a listener.
func (a *app) ready() bool {
	return a.transport.Healthy() && a.bridge.Registered()
}

// watchConfig applies hot-reloadable settings when the config file changes.
func (a *app) watchConfig(ctx context.Context, path string, loader *config.Loader) error {
	w, err := config.NewWatcher(path, loader, config.WithWatcherLogger(a.log.With("component", "config.watcher")))
	if err != nil {
		return err
	}

	var mu sync.Mutex
	current := config.ExtractHotReloadable(a.cfg)
	w.OnChange(func(next *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		updated := config.ExtractHotReloadable(next)
		if !current.Changed(updated) {
			return
		}
		a.applyHotReload(current, updated)
		current = updated
	})

	a.watcher = w
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("Config watcher stopped", "error", err)
		}
	}()
	return nil
}

func (a *app) applyHotReload(prev, next config.HotReloadableConfig) {
	if prev.LogLevel != next.LogLevel {
		a.log.SetLevel(logger.ParseLevel(next.LogLevel))
		a.log.Info("Log level changed", "from", prev.LogLevel, "to", next.LogLevel)
	}
	if prev.ResponseTimeout != next.ResponseTimeout {
		a.bridge.SetTimeout(next.ResponseTimeout)
		a.log.Info("Response timeout changed", "from", prev.ResponseTimeout, "to", next.ResponseTimeout)
	}
}

// run serves until ctx is done or a server fails, then shuts everything down.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.websocket.Stream(ctx, a.broadcaster)
	}()

	errCh := make(chan error, 3)
	go func() {
		if err := a.http.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.grpc != nil {
		if err := a.grpc.Start(); err != nil {
			cancel()
			a.shutdown()
			return fmt.Errorf("grpc server: %w", err)
		}
	}

	if a.metrics.Enabled() && a.cfg.Metrics.Port > 0 {
		go func() {
			a.log.Info("Starting metrics server", "port", a.cfg.Metrics.Port, "path", a.cfg.Metrics.Path)
			if err := a.metrics.StartServer(ctx, a.cfg.Metrics.Port, a.cfg.Metrics.Path); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	a.log.Info("oembridge is running",
		"http_port", a.cfg.Server.Port,
		"grpc_enabled", a.grpc != nil,
		"adapter", a.cfg.Adapter.Type,
		"registered", a.bridge.Registered(),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("Received shutdown signal")
	case runErr = <-errCh:
		a.log.Error("Server error", "error", runErr)
	}

	cancel()
	a.shutdown()
	return runErr
}

// shutdown stops serving, unregisters the listener and releases resources.
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.http.Shutdown(ctx); err != nil {
		a.log.Error("Error shutting down HTTP server", "error", err)
	}
	if a.grpc != nil {
		if err := a.grpc.Stop(ctx); err != nil {
			a.log.Error("Error stopping gRPC server", "error", err)
		}
	}
	if a.watcher != nil {
		_ = a.watcher.Stop()
	}
	a.websocket.Close()

	if a.listener != nil && a.bridge.Registered() {
		if err := a.bridge.Unregister(ctx, a.listener); err != nil {
			a.log.Warn("Unregister failed during shutdown", "error", err)
		}
	}

	a.broadcaster.Close()
	a.wg.Wait()
	a.release(ctx)
}

// release frees what newApp acquired. It is safe on a partially built app.
func (a *app) release(ctx context.Context) {
	if a.stopExec != nil {
		a.stopExec()
	}
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.log.Error("Error closing adapter", "error", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Error("Error closing journal", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("Error closing Redis client", "error", err)
		}
	}
	if a.metrics != nil && a.metrics.Enabled() {
		bridge.SetMetricsRecorder(nil)
		adapter.SetMetricsRecorder(nil)
	}
	if a.stopTracing != nil {
		if err := a.stopTracing(ctx); err != nil {
			a.log.Error("Error shutting down tracing", "error", err)
		}
	}
}

func (a *app) shutdownTimeout() time.Duration {
	if d := a.cfg.Server.HTTP.ShutdownTimeout; d > 0 {
		return d
	}
	return 30 * time.Second
}
