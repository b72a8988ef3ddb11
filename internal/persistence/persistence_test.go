package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
)

func TestNewRedisReportsAvailability(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	addr := srv.Addr()

	up := NewRedis(ctx, config.RedisConfig{Addr: addr}, zap.NewNop())
	defer up.Close()
	assert.True(t, up.Available())
	require.NoError(t, up.Ping(ctx))

	srv.Close()
	down := NewRedis(ctx, config.RedisConfig{Addr: addr}, zap.NewNop())
	defer down.Close()
	assert.False(t, down.Available())
}

func TestNewRepositoriesFallsBackToMemory(t *testing.T) {
	repos := NewRepositories(nil)
	require.NotNil(t, repos.Calls)
	require.NotNil(t, repos.Operators)

	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
	assert.NoError(t, RunMigrations(context.Background(), pg.PoolHandle(), zap.NewNop()))
}
