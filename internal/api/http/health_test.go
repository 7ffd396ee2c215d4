package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, h *HealthHandler, path string) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	up := pingFunc(func(context.Context) error { return nil })
	code, resp := serveHealth(t, NewHealthHandler("pms-backend", "1.0.0", up, rdb), "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "pms-backend", resp.Service)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "up", resp.DB)
	assert.Equal(t, "up", resp.Redis)
}

func TestHealthCheck_Disabled(t *testing.T) {
	code, resp := serveHealth(t, NewHealthHandler("pms-backend", "1.0.0", nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disabled", resp.DB)
	assert.Equal(t, "disabled", resp.Redis)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	code, resp := serveHealth(t, NewHealthHandler("pms-backend", "1.0.0", down, nil), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "down", resp.DB)
}

func TestHealthCheck_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	up := pingFunc(func(context.Context) error { return nil })
	code, resp := serveHealth(t, NewHealthHandler("pms-backend", "1.0.0", up, rdb), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Redis)
}

func TestHealthCheckMethodNotAllowed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	NewHealthHandler("pms-backend", "1.0.0", nil, nil).RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
