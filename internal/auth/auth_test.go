package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository/memory"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	token, exp, err := tokens.GenerateToken("op-1", domain.OperatorRoleDispatcher)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.OperatorID)
	assert.Equal(t, domain.OperatorRoleDispatcher, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret-pass"))
	assert.Error(t, ComparePassword(hash, "nope"))
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tokens := NewTokenManager("secret", 5)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(tokens, store.Operators())
	app.Get("/claims", mw.Handle, RequireRole(domain.OperatorRoleAdmin), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(*principal.ID())
	})
	return app, tokens, store
}

func TestMiddlewareRoles(t *testing.T) {
	app, tokens, store := newTestApp(t)
	admin := &domain.Operator{Name: "Admin", Email: "admin@example.com", Role: domain.OperatorRoleAdmin, Active: true}
	desk := &domain.Operator{Name: "Desk", Email: "desk@example.com", Role: domain.OperatorRoleDispatcher, Active: true}
	require.NoError(t, store.Operators().Create(context.Background(), admin))
	require.NoError(t, store.Operators().Create(context.Background(), desk))

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/claims", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	adminToken, _, err := tokens.GenerateToken(admin.ID, admin.Role)
	require.NoError(t, err)
	deskToken, _, err := tokens.GenerateToken(desk.ID, desk.Role)
	require.NoError(t, err)
	ghostToken, _, err := tokens.GenerateToken("ghost", domain.OperatorRoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call("Bearer "+adminToken))
	assert.Equal(t, http.StatusForbidden, call("Bearer "+deskToken))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+ghostToken))
	assert.Equal(t, http.StatusUnauthorized, call("Token "+adminToken))
	assert.Equal(t, http.StatusUnauthorized, call(""))
}

func TestPasswordPolicy(t *testing.T) {
	assert.Error(t, CheckPasswordPolicy("short"))
	assert.NoError(t, CheckPasswordPolicy("long-enough"))
}
