package server

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

// requestLogger routes echo request logs through a tinted slog handler
// backed by the zap std writer.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	stdOutLogger := zap.NewStdLog(s.logger)

	var slogLevel slog.Level = slog.LevelInfo
	switch s.logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	}

	requestLog := slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.DateTime,
	}))

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			requestLog.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status))
			return nil
		},
	})
}
