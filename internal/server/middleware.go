package server

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ArionMiles/budgify/pkg/aggregate"
)

// errorHandler answers every error as {"error": "..."}. Rejected queries
// are 400s.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.Is(err, aggregate.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		if he == nil {
			msg = "internal error"
		}
	}
	s.logger.Log(c.Request().Context(), level, "request failed",
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"status", status,
		"path", c.Request().URL.Path,
		"error", err,
	)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Error("writing error response", "error", err)
	}
}

// requestLogger logs each request and records it in the metrics.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := v.RoutePath
			if route == "" {
				route = "unmatched"
			}
			s.metrics.Request(route, v.Method, v.Status, v.Latency)
			s.logger.Debug("request",
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	})
}

// auth requires the configured password as a bearer token or as the basic
// auth password. /healthz stays open. A request carrying Basic credentials
// is checked by BasicAuth, everything else by KeyAuth.
func (s *Server) auth() []echo.MiddlewareFunc {
	if s.config.Password == "" {
		return nil
	}
	open := func(c echo.Context) bool { return c.Path() == "/healthz" }
	basic := func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Basic ")
	}

	return []echo.MiddlewareFunc{
		middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper: func(c echo.Context) bool { return open(c) || basic(c) },
			Validator: func(key string, _ echo.Context) (bool, error) {
				return s.checkPassword(key), nil
			},
			ErrorHandler: func(_ error, c echo.Context) error {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="budgify"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			},
		}),
		middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
			Skipper: func(c echo.Context) bool { return open(c) || !basic(c) },
			Validator: func(_, password string, _ echo.Context) (bool, error) {
				return s.checkPassword(password), nil
			},
			Realm: "budgify",
		}),
	}
}

func (s *Server) checkPassword(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.config.Password)) == 1
}
