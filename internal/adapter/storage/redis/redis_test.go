package redis

import (
	"context"
	"strconv"
	"testing"

	"wallet-ledger/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	status := NewHealthCheck(client).Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "redis", status.Name)
	assert.Equal(t, s.Addr(), status.Target)
	assert.Empty(t, status.Error)
}

func TestHealthCheck_ServerGone(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	status := NewHealthCheck(client).Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, s.Addr(), status.Target)
	assert.NotEmpty(t, status.Error)
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}
	s.Close()

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func mustPort(t *testing.T, s *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	return port
}
