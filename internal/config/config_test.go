package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8090", cfg.HTTPAddr)
	assert.Equal(t, "sat", cfg.Unit)
	assert.False(t, cfg.RecoveryEnabled)
	assert.Equal(t, 10*time.Minute, cfg.RecoveryInterval)
	assert.Equal(t, time.Hour, cfg.RecoveryThreshold)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("MINT_URL", "fake://mint")
	t.Setenv("RECOVERY_ENABLED", "true")
	t.Setenv("RECOVERY_INTERVAL", "30s")
	t.Setenv("RECOVERY_THRESHOLD", "bogus")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "fake://mint", cfg.MintURL)
	assert.True(t, cfg.RecoveryEnabled)
	assert.Equal(t, 30*time.Second, cfg.RecoveryInterval)
	assert.Equal(t, time.Hour, cfg.RecoveryThreshold, "unparseable duration falls back")
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "wallets",
	}
	assert.Equal(t, "postgres://u:p@db:5433/wallets?sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://explicit"
	assert.Equal(t, "postgres://explicit", cfg.DSN())
}
