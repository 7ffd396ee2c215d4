package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DSN", "DB_HOST", "MM_CALCULATION_BASE", "CATALOG_CACHE_TTL",
		"CORS_ALLOWED_ORIGINS", "SETTLEMENT_INTERNAL_MARKER", "SETTLEMENT_EXTERNAL_MARKER", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "APP_ENV"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 21.0, cfg.Estimation.MMCalculationBase)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, "위엠비", cfg.Settlement.InternalMarker)
	assert.Equal(t, "외주", cfg.Settlement.ExternalMarker)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MM_CALCULATION_BASE", "20.5")
	t.Setenv("CATALOG_CACHE_TTL", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pms.wemb.co.kr, ,https://admin.wemb.co.kr")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20.5, cfg.Estimation.MMCalculationBase)
	assert.Equal(t, 90*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"https://pms.wemb.co.kr", "https://admin.wemb.co.kr"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "8080", RateLimitRPS: 1, RateLimitBurst: 1},
			Database:   DatabaseConfig{Host: "localhost"},
			Estimation: EstimationConfig{MMCalculationBase: 21},
		}
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Server.Port = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Database.Host = ""
	assert.Error(t, c.Validate())
	c.Database.DSN = "postgres://localhost/pms"
	assert.NoError(t, c.Validate())

	c = valid()
	c.Estimation.MMCalculationBase = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Server.RateLimitBurst = 0
	assert.Error(t, c.Validate())
}
