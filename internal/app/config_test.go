package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "storefront.orders", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Notifications.TTL)
	assert.Equal(t, 50, cfg.Notifications.Capacity)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.Kafka.PublishTimeout)
	assert.Equal(t, 120, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"/api/cart"}, cfg.RateLimit.Prefixes)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHOP_DATABASE_URL", "postgres://shop@db/shop")
	t.Setenv("SHOP_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SHOP_NOTIFICATIONS_TTL", "5s")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://shop@db/shop", cfg.DatabaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Notifications.TTL)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SHOP_ADMIN_PEPPER=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SHOP_ADMIN_PEPPER") })

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Admin.Pepper)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHOP_NOTIFICATIONS_TTL", "0s")

	_, err := loadConfig([]string{})
	require.Error(t, err)
}
