package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"passchecker/internal/service"
)

// PasswordHandler serves the password analysis endpoints.
type PasswordHandler struct {
	passwordService service.PasswordService
}

// NewPasswordHandler creates a new password handler.
func NewPasswordHandler(passwordService service.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwordService: passwordService}
}

// CheckPasswordRequest carries the password to analyse. It is never stored.
type CheckPasswordRequest struct {
	Password string `json:"password" validate:"required,max=1024"`
}

// CheckPassword godoc
// @Summary Check password strength
// @Tags password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckPasswordRequest true "Password"
// @Success 200 {object} service.PasswordStrength
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /password/check [post]
func (h *PasswordHandler) CheckPassword(c echo.Context) error {
	var req CheckPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.passwordService.CheckPassword(req.Password))
}

// CheckPwnedPassword godoc
// @Summary Check whether a password appears in known breaches
// @Description Only the first five characters of the SHA-1 hash leave the server.
// @Tags password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckPasswordRequest true "Password"
// @Success 200 {object} service.BreachResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /password/check-pwned [post]
func (h *PasswordHandler) CheckPwnedPassword(c echo.Context) error {
	var req CheckPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.passwordService.CheckPwnedPassword(c.Request().Context(), req.Password))
}
