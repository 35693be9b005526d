package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// RequestIDHeader is propagated from and echoed back to clients.
const RequestIDHeader = "X-Request-ID"

// New builds a logger for env: "production" gives JSON with ISO8601 times,
// anything else a colored console logger. level overrides the env default
// when set. A non-nil cloudWatch receives every entry as JSON as well.
func New(env, level string, cloudWatch io.Writer) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level.SetLevel(lvl)
	}
	if cloudWatch == nil {
		return config.Build()
	}

	console := zapcore.NewConsoleEncoder(config.EncoderConfig)
	if env == "production" {
		console = zapcore.NewJSONEncoder(config.EncoderConfig)
	}
	shipped := config.EncoderConfig
	shipped.EncodeLevel = zapcore.LowercaseLevelEncoder
	core := zapcore.NewTee(
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), config.Level),
		zapcore.NewCore(zapcore.NewJSONEncoder(shipped), zapcore.AddSync(cloudWatch), config.Level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// RequestID assigns every request an ID, reusing the client's X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// For returns log with the request ID of c attached.
func For(c *gin.Context, log *zap.Logger) *zap.Logger {
	if rid := c.GetString(RequestIDKey); rid != "" {
		return log.With(zap.String("request_id", rid))
	}
	return log
}
