package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"passchecker/internal/errors"
)

// MessageResponse is returned by endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return validationError("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return validationError(err.Error())
	}
	return nil
}

func validationError(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: msg,
		Code:  "VALIDATION_ERROR",
	})
}

// toHTTPError translates a service error. Unmapped errors keep the cause as
// the internal error so the error handler can log it.
func toHTTPError(err error) *echo.HTTPError {
	mapped := errors.MapErrorToHTTP(err)
	he := echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
	if mapped.StatusCode >= http.StatusInternalServerError {
		he.Internal = err
	}
	return he
}

func unauthorized() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "missing or invalid token",
		Code:  "UNAUTHORIZED",
	})
}
