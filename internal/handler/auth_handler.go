package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"passchecker/internal/auth"
	"passchecker/internal/model"
	"passchecker/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Enable2FARequest starts 2FA enrollment.
type Enable2FARequest struct {
	Password string `json:"password" validate:"required"`
}

// Confirm2FARequest finishes 2FA enrollment.
type Confirm2FARequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Verify2FARequest is the second login step.
type Verify2FARequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// Disable2FARequest turns 2FA off.
type Disable2FARequest struct {
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// AuthResponse represents an authentication response. When RequiresTwoFactor
// is set only UserID and Message are filled.
type AuthResponse struct {
	RequiresTwoFactor bool              `json:"requiresTwoFactor"`
	UserID            string            `json:"userId,omitempty"`
	Message           string            `json:"message,omitempty"`
	AccessToken       string            `json:"access_token,omitempty"`
	RefreshToken      string            `json:"refresh_token,omitempty"`
	User              *model.PublicUser `json:"user,omitempty"`
}

// TokenResponse carries a refreshed access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// TwoFactorSetupResponse is returned when enrollment starts.
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qrCode"`
	OTPAuthURL string `json:"otpauthUrl"`
	Message    string `json:"message"`
}

func newAuthResponse(res *service.LoginResult) AuthResponse {
	if res.RequiresTwoFactor {
		return AuthResponse{
			RequiresTwoFactor: true,
			UserID:            res.UserID.String(),
			Message:           "2FA code required",
		}
	}
	resp := AuthResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if res.User != nil {
		public := res.User.Public()
		resp.User = &public
	}
	return resp
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.PublicUser
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, user.Public())
}

// Login godoc
// @Summary Login user
// @Description Returns tokens, or a 2FA challenge when 2FA is enabled.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, newAuthResponse(res))
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, TokenResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary Logout user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LogoutRequest true "Refresh token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Enable2FA godoc
// @Summary Start 2FA setup
// @Description Stores a new secret (not yet enabled) and returns it with a QR code.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Enable2FARequest true "Current password"
// @Success 200 {object} TwoFactorSetupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/2fa/enable [post]
func (h *AuthHandler) Enable2FA(c echo.Context) error {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return unauthorized()
	}

	var req Enable2FARequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	setup, err := h.authService.Enable2FA(c.Request().Context(), userID, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, TwoFactorSetupResponse{
		Secret:     setup.Secret,
		QRCode:     setup.QRCode,
		OTPAuthURL: setup.OTPAuthURL,
		Message:    "Scan this QR code with your authenticator app, then verify with a code",
	})
}

// Confirm2FA godoc
// @Summary Confirm 2FA setup
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Confirm2FARequest true "Authenticator code"
// @Success 200 {object} model.PublicUser
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/2fa/confirm [post]
func (h *AuthHandler) Confirm2FA(c echo.Context) error {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return unauthorized()
	}

	var req Confirm2FARequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Confirm2FA(c.Request().Context(), userID, req.Code)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, user.Public())
}

// Verify2FA godoc
// @Summary Verify 2FA code during login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body Verify2FARequest true "User id and authenticator code"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/2fa/verify [post]
func (h *AuthHandler) Verify2FA(c echo.Context) error {
	var req Verify2FARequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return validationError("invalid userId")
	}

	res, err := h.authService.Verify2FA(c.Request().Context(), userID, req.Code)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, newAuthResponse(res))
}

// Disable2FA godoc
// @Summary Disable 2FA
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Disable2FARequest true "Password and authenticator code"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/2fa/disable [post]
func (h *AuthHandler) Disable2FA(c echo.Context) error {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return unauthorized()
	}

	var req Disable2FARequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.Disable2FA(c.Request().Context(), userID, req.Password, req.Code); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "2FA has been disabled successfully"})
}
