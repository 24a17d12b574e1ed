package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/oembridge/config"
	"github.com/goclaw/oembridge/pkg/logger"
)

func testServerConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 18080
	cfg.Server.HTTP.ReadTimeout = 5 * time.Second
	cfg.Server.HTTP.WriteTimeout = 5 * time.Second
	return cfg
}

func TestNewHTTPServer(t *testing.T) {
	cfg := testServerConfig()
	server := NewHTTPServer(cfg, logger.Discard(), &Handlers{})

	require.NotNil(t, server)
	assert.Equal(t, "127.0.0.1:18080", server.Addr())
	assert.NotNil(t, server.Handler())
	assert.Equal(t, cfg.Server.HTTP.ReadTimeout, server.server.ReadTimeout)
}

func TestHTTPServer_StartAndShutdown(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.Port = 0
	stack := newTestStack(t, cfg)
	server := NewHTTPServer(cfg, logger.Discard(), stack.handlers)

	require.NoError(t, server.Listen())
	addr := server.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	client := &http.Client{Timeout: 2 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestHTTPServer_ListenTwice(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.Port = 0
	server := NewHTTPServer(cfg, logger.Discard(), &Handlers{})

	require.NoError(t, server.Listen())
	first := server.Addr()
	require.NoError(t, server.Listen())
	assert.Equal(t, first, server.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _ = server.Start() }()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, server.Shutdown(ctx))
}
