package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "passchecker/internal/errors"
	"passchecker/internal/model"
	"passchecker/internal/service"
)

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockAuthService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			body: `{"email":"new@example.com","password":"Secret123!","name":"New"}`,
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "new@example.com", "Secret123!", mock.Anything).
					Return(&model.User{ID: uuid.New(), Email: "new@example.com", PasswordHash: "hash", Role: model.RoleUser}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: `{"email":"dup@example.com","password":"Secret123!"}`,
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "dup@example.com", "Secret123!", mock.Anything).
					Return(nil, apperrors.ErrUserAlreadyExists)
			},
			wantStatus: http.StatusConflict,
			wantCode:   "USER_ALREADY_EXISTS",
		},
		{
			name:       "invalid email",
			body:       `{"email":"not-an-email","password":"Secret123!"}`,
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "short password",
			body:       `{"email":"a@example.com","password":"short"}`,
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			tt.setupMock(svc)
			h := NewAuthHandler(svc)
			c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/register", tt.body, nil)

			err := h.Register(c)

			if tt.wantCode != "" {
				requireHTTPError(t, err, tt.wantStatus, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "hash")

			var got model.PublicUser
			decode(t, rec, &got)
			assert.Equal(t, "new@example.com", got.Email)
			assert.Equal(t, model.RoleUser, got.Role)
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("tokens when 2FA is off", func(t *testing.T) {
		user := &model.User{ID: uuid.New(), Email: "a@example.com", Role: model.RoleUser}
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, "a@example.com", "Secret123!").Return(&service.LoginResult{
			UserID:       user.ID,
			AccessToken:  "access",
			RefreshToken: "refresh",
			User:         user,
		}, nil)

		c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"Secret123!"}`, nil)
		require.NoError(t, NewAuthHandler(svc).Login(c))

		var got AuthResponse
		decode(t, rec, &got)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, got.RequiresTwoFactor)
		assert.Equal(t, "access", got.AccessToken)
		assert.Equal(t, "refresh", got.RefreshToken)
		require.NotNil(t, got.User)
		assert.Equal(t, user.ID, got.User.ID)
	})

	t.Run("challenge when 2FA is on", func(t *testing.T) {
		id := uuid.New()
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, "a@example.com", "Secret123!").
			Return(&service.LoginResult{RequiresTwoFactor: true, UserID: id}, nil)

		c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"Secret123!"}`, nil)
		require.NoError(t, NewAuthHandler(svc).Login(c))

		var raw map[string]interface{}
		decode(t, rec, &raw)
		assert.Equal(t, true, raw["requiresTwoFactor"])
		assert.Equal(t, id.String(), raw["userId"])
		assert.Equal(t, "2FA code required", raw["message"])
		assert.NotContains(t, raw, "access_token")
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, "a@example.com", "wrong").Return(nil, apperrors.ErrInvalidCredentials)

		c, _ := newContext(newTestEcho(), http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"wrong"}`, nil)
		requireHTTPError(t, NewAuthHandler(svc).Login(c), http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})

	t.Run("unexpected failure keeps cause internal", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, "a@example.com", "x").Return(nil, fmt.Errorf("find user: %w", assert.AnError))

		c, _ := newContext(newTestEcho(), http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"x"}`, nil)
		err := NewAuthHandler(svc).Login(c)
		requireHTTPError(t, err, http.StatusInternalServerError, "INTERNAL_ERROR")
		assert.ErrorIs(t, err.(*echo.HTTPError).Internal, assert.AnError)
	})
}

func TestAuthHandler_Verify2FA(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockAuthService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "valid code",
			body: fmt.Sprintf(`{"userId":%q,"code":"123456"}`, id),
			setupMock: func(m *MockAuthService) {
				m.On("Verify2FA", mock.Anything, id, "123456").Return(&service.LoginResult{
					UserID:      id,
					AccessToken: "access",
					User:        &model.User{ID: id, TwoFactorEnabled: true},
				}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "wrong code",
			body: fmt.Sprintf(`{"userId":%q,"code":"654321"}`, id),
			setupMock: func(m *MockAuthService) {
				m.On("Verify2FA", mock.Anything, id, "654321").Return(nil, apperrors.ErrInvalid2FACode)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_2FA_CODE",
		},
		{
			name: "not set up",
			body: fmt.Sprintf(`{"userId":%q,"code":"123456"}`, id),
			setupMock: func(m *MockAuthService) {
				m.On("Verify2FA", mock.Anything, id, "123456").Return(nil, apperrors.Err2FANotSetUp)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "2FA_NOT_SET_UP",
		},
		{
			name:       "five digit code",
			body:       fmt.Sprintf(`{"userId":%q,"code":"12345"}`, id),
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "non numeric code",
			body:       fmt.Sprintf(`{"userId":%q,"code":"12345a"}`, id),
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "malformed user id",
			body:       `{"userId":"nope","code":"123456"}`,
			setupMock:  func(m *MockAuthService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			tt.setupMock(svc)
			c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/verify", tt.body, nil)

			err := NewAuthHandler(svc).Verify2FA(c)

			if tt.wantCode != "" {
				requireHTTPError(t, err, tt.wantStatus, tt.wantCode)
				return
			}
			require.NoError(t, err)
			var got AuthResponse
			decode(t, rec, &got)
			assert.Equal(t, "access", got.AccessToken)
			require.NotNil(t, got.User)
			assert.True(t, got.User.TwoFactorEnabled)
		})
	}
}

func TestAuthHandler_Enable2FA(t *testing.T) {
	id := uuid.New()

	t.Run("returns setup payload", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Enable2FA", mock.Anything, id, "Secret123!").Return(&service.TwoFactorSetup{
			Secret:     "JBSWY3DPEHPK3PXP",
			QRCode:     "data:image/png;base64,AAAA",
			OTPAuthURL: "otpauth://totp/Test:a@example.com?secret=JBSWY3DPEHPK3PXP",
		}, nil)

		c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/enable", `{"password":"Secret123!"}`, &id)
		require.NoError(t, NewAuthHandler(svc).Enable2FA(c))

		var got TwoFactorSetupResponse
		decode(t, rec, &got)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", got.Secret)
		assert.Equal(t, "data:image/png;base64,AAAA", got.QRCode)
		assert.NotEmpty(t, got.OTPAuthURL)
		assert.NotEmpty(t, got.Message)
	})

	t.Run("already enabled", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Enable2FA", mock.Anything, id, "Secret123!").Return(nil, apperrors.Err2FAAlreadyEnabled)

		c, _ := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/enable", `{"password":"Secret123!"}`, &id)
		requireHTTPError(t, NewAuthHandler(svc).Enable2FA(c), http.StatusBadRequest, "2FA_ALREADY_ENABLED")
	})

	t.Run("no caller", func(t *testing.T) {
		c, _ := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/enable", `{"password":"Secret123!"}`, nil)
		requireHTTPError(t, NewAuthHandler(new(MockAuthService)).Enable2FA(c), http.StatusUnauthorized, "UNAUTHORIZED")
	})
}

func TestAuthHandler_Confirm2FA(t *testing.T) {
	id := uuid.New()
	svc := new(MockAuthService)
	svc.On("Confirm2FA", mock.Anything, id, "123456").
		Return(&model.User{ID: id, Email: "a@example.com", TwoFactorEnabled: true}, nil)
	svc.On("Confirm2FA", mock.Anything, id, "000000").Return(nil, apperrors.Err2FASetupNotStarted)

	c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/confirm", `{"code":"123456"}`, &id)
	require.NoError(t, NewAuthHandler(svc).Confirm2FA(c))
	var got model.PublicUser
	decode(t, rec, &got)
	assert.True(t, got.TwoFactorEnabled)

	c, _ = newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/confirm", `{"code":"000000"}`, &id)
	requireHTTPError(t, NewAuthHandler(svc).Confirm2FA(c), http.StatusUnauthorized, "2FA_SETUP_NOT_STARTED")
}

func TestAuthHandler_Disable2FA(t *testing.T) {
	id := uuid.New()

	t.Run("disabled", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Disable2FA", mock.Anything, id, "Secret123!", "123456").Return(nil)

		c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/disable", `{"password":"Secret123!","code":"123456"}`, &id)
		require.NoError(t, NewAuthHandler(svc).Disable2FA(c))

		var got MessageResponse
		decode(t, rec, &got)
		assert.Equal(t, "2FA has been disabled successfully", got.Message)
	})

	t.Run("wrong code", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Disable2FA", mock.Anything, id, "Secret123!", "000000").Return(apperrors.ErrInvalid2FACode)

		c, _ := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/disable", `{"password":"Secret123!","code":"000000"}`, &id)
		requireHTTPError(t, NewAuthHandler(svc).Disable2FA(c), http.StatusUnauthorized, "INVALID_2FA_CODE")
	})

	t.Run("code required", func(t *testing.T) {
		c, _ := newContext(newTestEcho(), http.MethodPost, "/api/auth/2fa/disable", `{"password":"Secret123!"}`, &id)
		requireHTTPError(t, NewAuthHandler(new(MockAuthService)).Disable2FA(c), http.StatusBadRequest, "VALIDATION_ERROR")
	})
}

func TestAuthHandler_RefreshAndLogout(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("RefreshToken", mock.Anything, "good").Return("new-access", nil)
	svc.On("RefreshToken", mock.Anything, "revoked").Return("", apperrors.ErrInvalidToken)
	svc.On("Logout", mock.Anything, "good").Return(nil)
	h := NewAuthHandler(svc)

	c, rec := newContext(newTestEcho(), http.MethodPost, "/api/auth/refresh", `{"refresh_token":"good"}`, nil)
	require.NoError(t, h.Refresh(c))
	var tok TokenResponse
	decode(t, rec, &tok)
	assert.Equal(t, "new-access", tok.AccessToken)

	c, _ = newContext(newTestEcho(), http.MethodPost, "/api/auth/refresh", `{"refresh_token":"revoked"}`, nil)
	requireHTTPError(t, h.Refresh(c), http.StatusUnauthorized, "INVALID_TOKEN")

	c, rec = newContext(newTestEcho(), http.MethodPost, "/api/auth/logout", `{"refresh_token":"good"}`, nil)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = newContext(newTestEcho(), http.MethodPost, "/api/auth/logout", `{}`, nil)
	requireHTTPError(t, h.Logout(c), http.StatusBadRequest, "VALIDATION_ERROR")
}
