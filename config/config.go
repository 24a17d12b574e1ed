// Package config provides configuration management for oembridge.
package config

import (
	"fmt"
	"time"

	"github.com/goclaw/oembridge/pkg/specinfo"
)

// Config is the global configuration for oembridge.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`
	// Server is the admin HTTP and gRPC configuration.
	Server ServerConfig `mapstructure:"server" validate:"required"`
	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`
	// Bridge configures the callback bridge.
	Bridge BridgeConfig `mapstructure:"bridge" validate:"required"`
	// Adapter selects the transport notifications arrive on.
	Adapter AdapterConfig `mapstructure:"adapter" validate:"required"`
	// Device describes the UWB stack served by this bridge.
	Device DeviceConfig `mapstructure:"device"`
	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Version string `mapstructure:"version"`
	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"env"`
}

// ServerConfig holds the HTTP/gRPC server configuration.
type ServerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host"`
	// Port is the HTTP API port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
	// GRPC is the gRPC health server configuration.
	GRPC GRPCConfig `mapstructure:"grpc"`
	// HTTP is the HTTP server configuration.
	HTTP HTTPConfig `mapstructure:"http"`
	// CORS is the CORS configuration.
	CORS CORSConfig `mapstructure:"cors"`
}

// HTTPConfig holds HTTP-specific settings.
type HTTPConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxWebSocketConnections limits concurrent event stream clients.
	MaxWebSocketConnections int `mapstructure:"max_ws_connections" validate:"min=1"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`
	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// BridgeConfig holds callback bridge settings.
type BridgeConfig struct {
	// ResponseTimeout bounds the wait for session config and ranging report answers.
	ResponseTimeout time.Duration `mapstructure:"response_timeout" validate:"gt=0"`
	// WarnInterval throttles timeout warnings per notification kind. Zero logs every timeout.
	WarnInterval time.Duration `mapstructure:"warn_interval" validate:"gte=0"`
	// Identity is the identity scope listener code runs under (nop, system).
	Identity string `mapstructure:"identity" validate:"oneof=nop system"`
	// Executor runs fire-and-forget notifications for the built-in listener.
	Executor ExecutorConfig `mapstructure:"executor"`
	// Listener configures the built-in listener.
	Listener ListenerConfig `mapstructure:"listener"`
}

// ExecutorConfig holds executor settings.
type ExecutorConfig struct {
	Type      string `mapstructure:"type" validate:"oneof=inline goroutine pool"`
	Workers   int    `mapstructure:"workers" validate:"min=1"`
	QueueSize int    `mapstructure:"queue_size" validate:"min=1"`
}

// ListenerConfig holds settings for the built-in listener.
type ListenerConfig struct {
	// Enabled registers the built-in listener at startup.
	Enabled bool `mapstructure:"enabled"`
	// SessionConfigStatus is the status answered for session configurations.
	SessionConfigStatus int32 `mapstructure:"session_config_status"`
	// ReportTags are added to every ranging report.
	ReportTags map[string]string `mapstructure:"report_tags"`
	// History is the number of recent notifications kept for inspection.
	History int `mapstructure:"history" validate:"min=1"`
	// Journal persists every notification the listener receives.
	Journal JournalConfig `mapstructure:"journal"`
}

// JournalConfig holds notification journal settings.
type JournalConfig struct {
	// Type is the journal backend (none, memory, badger).
	Type string `mapstructure:"type" validate:"oneof=none memory badger"`
	// Path is the Badger data directory.
	Path string `mapstructure:"path"`
	// SyncWrites flushes every append to disk.
	SyncWrites bool `mapstructure:"sync_writes"`
	// TTL expires Badger entries after the given age. Zero keeps them.
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
	// MaxEntries bounds the memory journal.
	MaxEntries int `mapstructure:"max_entries" validate:"min=0"`
}

// AdapterConfig holds transport settings.
type AdapterConfig struct {
	// Type is the adapter implementation (local, redis).
	Type  string      `mapstructure:"type" validate:"oneof=local redis"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	// ChannelPrefix namespaces the notify and reply channels.
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// DeviceConfig describes the device stack.
type DeviceConfig struct {
	SpecInfo specinfo.Info `mapstructure:"spec_info"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`
	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`
	// Port serves metrics on a dedicated listener. Zero mounts Path on the HTTP API.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Exporter string            `mapstructure:"exporter" validate:"omitempty,oneof=otlpgrpc"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	// Sampler is always_on, always_off or parentbased_traceidratio.
	Sampler string `mapstructure:"sampler" validate:"omitempty,oneof=always_on always_off parentbased_traceidratio"`
	// SampleRate is the fraction of traces to sample (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Adapter.Type == "redis" && c.Adapter.Redis.Address == "" {
		return fmt.Errorf("config validation failed: adapter.redis.address is required for the redis adapter")
	}
	if c.Bridge.Listener.Journal.Type == "badger" && c.Bridge.Listener.Journal.Path == "" {
		return fmt.Errorf("config validation failed: bridge.listener.journal.path is required for the badger journal")
	}
	return nil
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Server: :%d, Env: %s, Adapter: %s, Timeout: %s}",
		c.App.Name, c.Server.Port, c.App.Environment, c.Adapter.Type, c.Bridge.ResponseTimeout)
}
