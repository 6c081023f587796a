package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PUERTO_STORE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.False(t, cfg.Store.AtomicCodes)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 50, cfg.Analytics.LowStockThreshold)
	assert.Equal(t, "sqlite", cfg.Auth.UserDBDriver)
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	t.Setenv("PUERTO_STORE_DRIVER", "postgres")
	t.Setenv("PUERTO_DB_DSN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUERTO_DB_DSN")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("PUERTO_STORE_DRIVER", "firestore")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadProdRequiresSecret(t *testing.T) {
	t.Setenv("PUERTO_STORE_DRIVER", "memory")
	t.Setenv("PUERTO_APP_ENV", "prod")
	t.Setenv("PUERTO_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("PUERTO_JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProd())
}

func TestLoadRedisAndThreshold(t *testing.T) {
	t.Setenv("PUERTO_STORE_DRIVER", "redis")
	t.Setenv("PUERTO_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUERTO_LOW_STOCK_THRESHOLD", "10")
	t.Setenv("PUERTO_ATOMIC_CODES", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.True(t, cfg.Store.AtomicCodes)
	assert.Equal(t, 10, cfg.Analytics.LowStockThreshold)
}
