package config

import (
	"fmt"
	"time"

	grpcpkg "github.com/goclaw/oembridge/pkg/grpc"
)

// GRPCConfig holds gRPC health server settings.
type GRPCConfig struct {
	// Enabled enables the gRPC server.
	Enabled bool `mapstructure:"enabled"`
	// Port is the gRPC server port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// MaxRecvMsgSize is the maximum message size the server can receive (bytes).
	MaxRecvMsgSize int `mapstructure:"max_recv_msg_size" validate:"min=0"`
	// EnableReflection enables gRPC server reflection for debugging.
	EnableReflection bool `mapstructure:"enable_reflection"`
	// EnableHealthCheck enables the gRPC health check service.
	EnableHealthCheck bool `mapstructure:"enable_health_check"`
	// HealthInterval is how often bridge readiness is mirrored into the health service.
	HealthInterval time.Duration `mapstructure:"health_interval" validate:"gte=0"`
	// TLS is the TLS/mTLS configuration.
	TLS GRPCTLSConfig `mapstructure:"tls"`
	// Keepalive is the keepalive configuration.
	Keepalive GRPCKeepaliveConfig `mapstructure:"keepalive"`
}

// GRPCTLSConfig holds gRPC TLS/mTLS settings.
type GRPCTLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertFile   string `mapstructure:"cert_file" validate:"file_exists"`
	KeyFile    string `mapstructure:"key_file" validate:"file_exists"`
	CAFile     string `mapstructure:"ca_file" validate:"file_exists"`
	ClientAuth bool   `mapstructure:"client_auth"`
}

// GRPCKeepaliveConfig holds gRPC keepalive settings.
type GRPCKeepaliveConfig struct {
	MaxIdle             time.Duration `mapstructure:"max_idle"`
	MaxAge              time.Duration `mapstructure:"max_age"`
	MaxAgeGrace         time.Duration `mapstructure:"max_age_grace"`
	Time                time.Duration `mapstructure:"time"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MinTime             time.Duration `mapstructure:"min_time"`
	PermitWithoutStream bool          `mapstructure:"permit_without_stream"`
}

// ToGRPCConfig converts config.GRPCConfig to pkg/grpc.Config.
func (g *GRPCConfig) ToGRPCConfig(host string, enableTracing bool) *grpcpkg.Config {
	cfg := &grpcpkg.Config{
		Address:           fmt.Sprintf("%s:%d", host, g.Port),
		MaxRecvMsgSize:    g.MaxRecvMsgSize,
		EnableReflection:  g.EnableReflection,
		EnableHealthCheck: g.EnableHealthCheck,
		EnableTracing:     enableTracing,
		HealthInterval:    g.HealthInterval,
		Keepalive: &grpcpkg.KeepaliveConfig{
			MaxIdle:             g.Keepalive.MaxIdle,
			MaxAge:              g.Keepalive.MaxAge,
			MaxAgeGrace:         g.Keepalive.MaxAgeGrace,
			Time:                g.Keepalive.Time,
			Timeout:             g.Keepalive.Timeout,
			MinTime:             g.Keepalive.MinTime,
			PermitWithoutStream: g.Keepalive.PermitWithoutStream,
		},
	}

	if g.TLS.Enabled {
		cfg.TLS = &grpcpkg.TLSConfig{
			Enabled:    true,
			CertFile:   g.TLS.CertFile,
			KeyFile:    g.TLS.KeyFile,
			CAFile:     g.TLS.CAFile,
			ClientAuth: g.TLS.ClientAuth,
		}
	}

	return cfg
}
