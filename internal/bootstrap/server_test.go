package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewServers(t *testing.T) {
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Address: ":0", ReadTimeoutSeconds: 3, WriteTimeoutSeconds: 4},
		GRPC: config.GRPCConfig{Address: ":0"},
	}

	s := newServers(cfg, http.NotFoundHandler(), testLogger())

	require.NotNil(t, s.grpcServer)
	assert.Equal(t, ":0", s.httpServer.Addr)
	assert.Equal(t, "3s", s.httpServer.ReadTimeout.String())
	assert.Equal(t, "4s", s.httpServer.WriteTimeout.String())

	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, s.stop())

	resp, err = s.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestNewServers_WithoutGRPC(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: ":0"}}

	s := newServers(cfg, http.NotFoundHandler(), testLogger())

	assert.Nil(t, s.grpcServer)
	assert.Nil(t, s.health)
	assert.NoError(t, s.stop())
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Address: "127.0.0.1:0"},
		GRPC: config.GRPCConfig{Address: "127.0.0.1:0"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, Run(ctx, cfg, http.NotFoundHandler(), testLogger()))
}
