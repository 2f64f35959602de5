package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"passchecker/internal/errors"
	"passchecker/internal/model"
)

// contextKey is where echo-jwt stores the parsed *jwt.Token.
const contextKey = "user"

// Middleware builds the bearer-token guard for protected routes. Only access
// tokens pass; refresh tokens are rejected even though they share the key.
func Middleware(jwtService *JWTService) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey:  jwtService.Secret(),
		ContextKey:  contextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthorized()
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			if _, err := CurrentClaims(c); err != nil {
				return unauthorized()
			}
			return next(c)
		})
	}
}

// RequireRole rejects callers whose token does not carry role. It must run
// after Middleware.
func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := CurrentClaims(c)
			if err != nil {
				return unauthorized()
			}
			if claims.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: errors.ErrForbidden.Error(),
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}

// CurrentClaims returns the access token claims attached by Middleware.
func CurrentClaims(c echo.Context) (*Claims, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok {
		return nil, errors.ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Type != TokenTypeAccess {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c echo.Context) (uuid.UUID, error) {
	claims, err := CurrentClaims(c)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, errors.ErrInvalidToken
	}
	return id, nil
}

func unauthorized() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "missing or invalid token",
		Code:  "UNAUTHORIZED",
	})
}
