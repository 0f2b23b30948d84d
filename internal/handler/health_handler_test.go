package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPinger implements a minimal interface for testing health checks
type mockPinger struct {
	pingErr error
	calls   int
}

func (m *mockPinger) Ping(ctx context.Context) error {
	m.calls++
	return m.pingErr
}

func checkHealth(t *testing.T, checks map[string]Pinger) (int, string) {
	t.Helper()
	app := fiber.New()
	app.Get("/health", NewHealthHandler(checks).Check)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthHandler_Check_Healthy(t *testing.T) {
	store := &mockPinger{}
	sessions := &mockPinger{}

	status, body := checkHealth(t, map[string]Pinger{"store": store, "sessions": sessions})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, sessions.calls)
}

func TestHealthHandler_Check_Unhealthy(t *testing.T) {
	status, body := checkHealth(t, map[string]Pinger{
		"store":    &mockPinger{pingErr: errors.New("connection refused")},
		"sessions": &mockPinger{},
	})

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"status":"unhealthy"`)
	assert.Contains(t, body, `"error":"store unreachable"`)
}

func TestHealthHandler_Check_FirstFailureByName(t *testing.T) {
	status, body := checkHealth(t, map[string]Pinger{
		"store":    &mockPinger{pingErr: errors.New("down")},
		"sessions": PingFunc(func(ctx context.Context) error { return errors.New("timeout") }),
	})

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"error":"sessions unreachable"`)
}

func TestHealthHandler_Check_NoDependencies(t *testing.T) {
	status, body := checkHealth(t, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
}
