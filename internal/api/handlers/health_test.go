package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{"all up", map[string]Pinger{"postgres": up, "redis": up}, fiber.StatusOK, "ok"},
		{"redis down", map[string]Pinger{"postgres": up, "redis": down}, fiber.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)
			app := newTestApp(uuid.Nil, "", func(app *fiber.App) { app.Get("/health", h.Check) })

			status, body := doJSON(t, app, http.MethodGet, "/health", nil)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantState, body["status"])
			assert.Len(t, body["components"], len(tt.checks))
		})
	}
}
