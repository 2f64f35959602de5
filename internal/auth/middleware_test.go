package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passchecker/internal/model"
)

func newGuardedServer(svc *JWTService) *echo.Echo {
	e := echo.New()
	guard := Middleware(svc)
	e.GET("/me", func(c echo.Context) error {
		id, err := CurrentUserID(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, id.String())
	}, guard)
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, guard, RequireRole(model.RoleAdmin))
	return e
}

func doRequest(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute, time.Hour)
	e := newGuardedServer(svc)

	user := &model.User{ID: uuid.New(), Email: "u@example.com", Role: model.RoleUser}
	access, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	_, refresh, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(e, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(e, "/me", "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token is not a bearer token", func(t *testing.T) {
		rec := doRequest(e, "/me", refresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid access token", func(t *testing.T) {
		rec := doRequest(e, "/me", access)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.ID.String(), rec.Body.String())
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		rec := doRequest(e, "/admin", access)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")
	})

	t.Run("admin passes", func(t *testing.T) {
		admin := &model.User{ID: uuid.New(), Email: "a@example.com", Role: model.RoleAdmin}
		token, err := svc.GenerateAccessToken(admin)
		require.NoError(t, err)

		rec := doRequest(e, "/admin", token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
