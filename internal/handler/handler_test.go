package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"passchecker/internal/auth"
	"passchecker/internal/errors"
	"passchecker/internal/model"
	"passchecker/internal/service"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	return e
}

// newContext builds a request context. A non-nil userID is attached as the
// authenticated caller.
func newContext(e *echo.Echo, method, target, body string, userID *uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user", &jwt.Token{Claims: &auth.Claims{
			Role:             model.RoleUser,
			Type:             auth.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
		}})
	}
	return c, rec
}

// requireHTTPError asserts err is an echo.HTTPError carrying status and code.
func requireHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	require.Equal(t, status, he.Code)
	body, ok := he.Message.(errors.ErrorResponse)
	require.True(t, ok, "expected errors.ErrorResponse message, got %T", he.Message)
	require.Equal(t, code, body.Code)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password string, name *string) (*model.User, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) Enable2FA(ctx context.Context, userID uuid.UUID, password string) (*service.TwoFactorSetup, error) {
	args := m.Called(ctx, userID, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TwoFactorSetup), args.Error(1)
}

func (m *MockAuthService) Confirm2FA(ctx context.Context, userID uuid.UUID, code string) (*model.User, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Verify2FA(ctx context.Context, userID uuid.UUID, code string) (*service.LoginResult, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) Disable2FA(ctx context.Context, userID uuid.UUID, password, code string) error {
	args := m.Called(ctx, userID, password, code)
	return args.Error(0)
}

// MockPasswordService is a mock implementation of service.PasswordService.
type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) CheckPassword(password string) service.PasswordStrength {
	args := m.Called(password)
	return args.Get(0).(service.PasswordStrength)
}

func (m *MockPasswordService) CheckPwnedPassword(ctx context.Context, password string) service.BreachResult {
	args := m.Called(ctx, password)
	return args.Get(0).(service.BreachResult)
}

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*model.PublicUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicUser), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublicUser), args.Error(1)
}
