package config

import (
	"time"

	"github.com/goclaw/oembridge/pkg/specinfo"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "oembridge",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			GRPC: GRPCConfig{
				Enabled:           false,
				Port:              9090,
				EnableHealthCheck: true,
				HealthInterval:    5 * time.Second,
				MaxRecvMsgSize:    1 << 20, // 1MB
				Keepalive: GRPCKeepaliveConfig{
					MaxIdle:     5 * time.Minute,
					MaxAge:      time.Hour,
					MaxAgeGrace: time.Minute,
					Time:        time.Minute,
					Timeout:     20 * time.Second,
					MinTime:     30 * time.Second,
				},
			},
			HTTP: HTTPConfig{
				ReadTimeout:             15 * time.Second,
				WriteTimeout:            15 * time.Second,
				IdleTimeout:             60 * time.Second,
				ShutdownTimeout:         10 * time.Second,
				MaxWebSocketConnections: 32,
			},
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
				MaxAge:         300,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Bridge: BridgeConfig{
			ResponseTimeout: 2000 * time.Millisecond,
			WarnInterval:    10 * time.Second,
			Identity:        "system",
			Executor: ExecutorConfig{
				Type:      "pool",
				Workers:   4,
				QueueSize: 64,
			},
			Listener: ListenerConfig{
				Enabled:             true,
				SessionConfigStatus: 0,
				History:             128,
				Journal: JournalConfig{
					Type:       "none",
					Path:       "data/journal",
					MaxEntries: 1024,
				},
			},
		},
		Adapter: AdapterConfig{
			Type: "local",
			Redis: RedisConfig{
				Address:       "localhost:6379",
				DB:            0,
				ChannelPrefix: "oembridge:",
			},
		},
		Device: DeviceConfig{
			SpecInfo: specinfo.Info{
				UCI:     specinfo.Version{Major: 2, Minor: 0},
				MAC:     specinfo.Version{Major: 1, Minor: 1},
				PHY:     specinfo.Version{Major: 1, Minor: 0},
				UCITest: specinfo.Version{Major: 1, Minor: 0},
				FiRa:    specinfo.DefaultFiRa,
				CCC:     specinfo.DefaultCCC,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlpgrpc",
			Endpoint:   "localhost:4317",
			Insecure:   true,
			Timeout:    5 * time.Second,
			Sampler:    "parentbased_traceidratio",
			SampleRate: 0.1,
		},
	}
}
