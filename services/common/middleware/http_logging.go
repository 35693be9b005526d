package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/common/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger emits one "http_request" line per request: error for 5xx,
// warn for 4xx, info otherwise. Health checks are logged at debug. The
// session a request acts on is logged from the ":id" route parameter.
//
// Usage:
//
//	router.Use(logger.RequestID(), middleware.RequestLogger(log))
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if rid := c.GetString(logger.RequestIDKey); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		if sid := c.Param("id"); sid != "" {
			fields = append(fields, zap.String("session_id", sid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if ce := log.Check(levelFor(path, status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func levelFor(path string, status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	case path == "/health":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
