package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	commonlogger "github.com/rmtechsolution/valentine-backend/services/common/logger"
	"go.uber.org/zap"
)

// Error is an error carrying the HTTP status it should be reported with.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error.
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrorMiddleware renders the last error attached with c.Error as
// {"error": msg, "request_id": id}. An expired request context becomes a 504;
// any other error that is not *Error becomes a generic 500.
func ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := classify(c.Errors.Last().Err)
		if appErr.Code >= http.StatusInternalServerError {
			commonlogger.For(c, logger).Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Int("status", appErr.Code),
				zap.Error(appErr),
			)
		}
		c.AbortWithStatusJSON(appErr.Code, errorBody(c, appErr.Message))
	}
}

func classify(err error) *Error {
	var appErr *Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, context.DeadlineExceeded):
		return New(http.StatusGatewayTimeout, "Request timed out", err)
	default:
		return New(http.StatusInternalServerError, "Internal server error", err)
	}
}

func errorBody(c *gin.Context, message string) gin.H {
	h := gin.H{"error": message}
	if rid := c.GetString(commonlogger.RequestIDKey); rid != "" {
		h["request_id"] = rid
	}
	return h
}

// Recovery turns panics into a logged 500 with a JSON body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		commonlogger.For(c, logger).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c, "Internal server error"))
	})
}
