package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/app"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/config"
)

type apiClient struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (a *apiClient) do(method, path string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func newTestAPI(t *testing.T, rl config.RateLimitConfig) *apiClient {
	t.Helper()
	srv := miniredis.RunT(t)
	cfg := config.Config{
		App:       config.AppConfig{Name: "field-service", Version: "test"},
		Redis:     config.RedisConfig{Addr: srv.Addr()},
		Auth:      config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4},
		Worker:    config.WorkerConfig{Queue: "default", Concurrency: 1},
		RateLimit: rl,
	}
	logger := zap.NewNop()
	container, err := app.New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)
	require.NoError(t, container.Operators.EnsureBootstrapAdmin(context.Background(), "admin@example.com", "changeme123"))

	server := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, container.Metrics)})
	RegisterMiddlewares(server, logger, container.Metrics, 0)
	RegisterRoutes(server, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, container.Postgres, container.Redis, container.Metrics),
		Auth:           handlers.NewAuthHandler(container.Auth, container.Operators),
		Calls:          handlers.NewCallsHandler(container.Calls, container.Activity),
		Technicians:    handlers.NewTechniciansHandler(container.Technicians, container.Activity),
		Feedback:       handlers.NewFeedbackHandler(container.Feedback),
		Claims:         handlers.NewClaimsHandler(container.Claims),
		AuthMiddleware: auth.NewAuthMiddleware(container.Auth.TokenManager(), container.Repos.Operators),
		OTPLimiter:     RateLimit(rl, logger),
	})
	return &apiClient{t: t, app: server}
}

func (a *apiClient) login() {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/auth/login", map[string]any{"email": "admin@example.com", "password": "changeme123"})
	require.Equal(a.t, http.StatusOK, status)
	a.token = body["data"].(map[string]any)["token"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, config.RateLimitConfig{OTPPerMinute: 100, OTPBurst: 100})
	status, body := api.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "memory", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, config.RateLimitConfig{OTPPerMinute: 100, OTPBurst: 100})
	status, body := api.do(http.MethodGet, "/api/v1/calls", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])
}

func TestCallLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, config.RateLimitConfig{OTPPerMinute: 100, OTPBurst: 100})
	api.login()

	status, body := api.do(http.MethodPost, "/api/v1/calls", map[string]any{"customer_name": "Asha"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "required", details["call_type"])

	status, body = api.do(http.MethodPost, "/api/v1/calls", map[string]any{
		"call_type":     "repair",
		"customer_name": "Asha",
		"mobile":        "9876543210",
		"postal_code":   "560001",
	})
	require.Equal(t, http.StatusCreated, status)
	call := body["data"].(map[string]any)
	assert.Equal(t, "draft", call["state"])
	assignment := body["assignment"].(map[string]any)
	assert.Equal(t, false, assignment["assigned"])
	id := call["id"].(string)

	status, body = api.do(http.MethodPost, "/api/v1/calls/"+id+"/close", map[string]any{"otp": "12345"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", body["error"].(map[string]any)["code"])

	status, body = api.do(http.MethodPost, "/api/v1/calls/"+id+"/cancel", map[string]any{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", body["data"].(map[string]any)["state"])

	status, body = api.do(http.MethodGet, "/api/v1/calls/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestOTPRoutesAreRateLimited(t *testing.T) {
	api := newTestAPI(t, config.RateLimitConfig{OTPPerMinute: 1, OTPBurst: 2})
	for i := 0; i < 2; i++ {
		status, _ := api.do(http.MethodPost, "/auth/login", map[string]any{"email": "admin@example.com", "password": "nope-nope"})
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := api.do(http.MethodPost, "/auth/login", map[string]any{"email": "admin@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["error"].(map[string]any)["code"])
}

func TestClaimWorkflowOverHTTP(t *testing.T) {
	api := newTestAPI(t, config.RateLimitConfig{OTPPerMinute: 100, OTPBurst: 100})
	api.login()

	status, body := api.do(http.MethodPost, "/api/v1/partners", map[string]any{"name": "CoolFix"})
	require.Equal(t, http.StatusCreated, status)
	partnerID := body["data"].(map[string]any)["id"].(string)

	status, body = api.do(http.MethodPost, "/api/v1/claims", map[string]any{
		"service_partner_id": partnerID,
		"period_start":       "2026-03-01",
		"period_end":         "2026-03-31",
	})
	require.Equal(t, http.StatusCreated, status)
	claim := body["data"].(map[string]any)
	assert.Equal(t, []any{"calculate", "submit", "reject", "cancel"}, claim["allowed_actions"])
	id := claim["id"].(string)

	status, body = api.do(http.MethodPost, "/api/v1/claims/"+id+"/submit", nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	status, _ = api.do(http.MethodPost, "/api/v1/claims/"+id+"/reject", map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodPost, "/api/v1/claims/"+id+"/reject", map[string]any{"reason": "Wrong period"})
	require.Equal(t, http.StatusOK, status)
	claim = body["data"].(map[string]any)
	assert.Equal(t, "rejected", claim["state"])
	assert.Equal(t, "Wrong period", claim["rejection_reason"])
	assert.Equal(t, []any{"cancel"}, claim["allowed_actions"])

	status, body = api.do(http.MethodPost, "/api/v1/claims/"+id+"/pay", map[string]any{"payment_reference": "UTR-1"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", body["error"].(map[string]any)["code"])
}
