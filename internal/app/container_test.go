package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

func testConfig(redisAddr string) config.Config {
	return config.Config{
		Redis:  config.RedisConfig{Addr: redisAddr},
		Auth:   config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4},
		Worker: config.WorkerConfig{Queue: "default", Concurrency: 1},
	}
}

func TestContainerWithRedisUsesRedisReferences(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	c, err := New(ctx, testConfig(srv.Addr()), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Redis.Available())

	call, _, err := c.Calls.CreateServiceCall(ctx, nil, service.CreateCallInput{
		CallType:     domain.CallTypeRepair,
		CustomerName: "Asha",
	})
	require.NoError(t, err)
	assert.Contains(t, call.Reference, "REPR-")
	assert.True(t, srv.Exists("seq:REPR-"+call.CallDate.Format("200601")))
	assert.Equal(t, int64(1), c.Metrics.Snapshot().Events["call_created"])
}

func TestContainerWithoutRedisFallsBack(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()
	ctx := context.Background()

	c, err := New(ctx, testConfig(addr), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	assert.False(t, c.Redis.Available())

	call, _, err := c.Calls.CreateServiceCall(ctx, nil, service.CreateCallInput{
		CallType:     domain.CallTypeInstallation,
		CustomerName: "Ravi",
	})
	require.NoError(t, err)
	assert.Contains(t, call.Reference, "INST-")
}
