package router

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"passchecker/internal/auth"
	"passchecker/internal/config"
	"passchecker/internal/db"
	"passchecker/internal/errors"
	"passchecker/internal/handler"
	"passchecker/internal/logging"
	"passchecker/internal/model"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	gormDB *gorm.DB,
	jwtService *auth.JWTService,
	authHandler *handler.AuthHandler,
	passwordHandler *handler.PasswordHandler,
	userHandler *handler.UserHandler,
) {
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.ContextLogger(logger))
	e.Use(logging.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		if err := db.Ping(gormDB); err != nil {
			logging.FromContext(c.Request().Context()).Error("health check failed", "err", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, errors.ErrorResponse{
				Error: "database unavailable",
				Code:  "DB_UNAVAILABLE",
			})
		}
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	bearer := auth.Middleware(jwtService)

	// Public auth routes share one per-IP limiter.
	public := api.Group("/auth", rateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/refresh", authHandler.Refresh)
	public.POST("/logout", authHandler.Logout)
	public.POST("/2fa/verify", authHandler.Verify2FA)

	twoFactor := api.Group("/auth/2fa", bearer)
	twoFactor.POST("/enable", authHandler.Enable2FA)
	twoFactor.POST("/confirm", authHandler.Confirm2FA)
	twoFactor.POST("/disable", authHandler.Disable2FA)

	password := api.Group("/password", bearer)
	password.POST("/check", passwordHandler.CheckPassword)
	password.POST("/check-pwned", passwordHandler.CheckPwnedPassword)

	users := api.Group("/users", bearer)
	users.GET("/profile", userHandler.Profile)
	users.GET("", userHandler.ListUsers, auth.RequireRole(model.RoleAdmin))
	users.GET("/:id", userHandler.GetUser, auth.RequireRole(model.RoleAdmin))
}

// rateLimiter is an in-memory token bucket per client IP.
func rateLimiter(rps float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(rps),
		Burst: burst,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "unable to identify client",
				Code:  "FORBIDDEN",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

// httpErrorHandler renders every error as errors.ErrorResponse. Errors that
// reach it as 5xx are logged with the request id.
func httpErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := errors.ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
		cause := err

		var he *echo.HTTPError
		if stderrors.As(err, &he) {
			status = he.Code
			if he.Internal != nil {
				cause = he.Internal
			}
			switch msg := he.Message.(type) {
			case errors.ErrorResponse:
				body = msg
			case string:
				body = errors.ErrorResponse{Error: msg, Code: codeForStatus(status)}
			default:
				body = errors.ErrorResponse{Error: http.StatusText(status), Code: codeForStatus(status)}
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"err", cause,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("write error response", "err", err)
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator installed on the echo instance.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
