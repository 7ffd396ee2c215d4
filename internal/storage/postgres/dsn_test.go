package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wemb-pms/pms-backend/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 5433, User: "pms", Password: "p@ss word", Name: "pms"}
	assert.Equal(t, "postgres://pms:p%40ss%20word@db:5433/pms?sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")

	cfg.DSN = "postgres://override/pms"
	assert.Equal(t, "postgres://override/pms", DSN(cfg))
}
