package middleware

import (
	"log/slog"
	"time"

	"filmrate/backend/pkg/logctx"
	"github.com/gin-gonic/gin"
)

// Logging puts a request-scoped logger (with request_id) into the request context
// and writes one record per request when it is done.
// It must be used AFTER RequestID.
func Logging(l *slog.Logger) gin.HandlerFunc {
	if l == nil {
		l = slog.Default()
	}
	return func(c *gin.Context) {
		reqLogger := l
		if rid := GetRequestID(c); rid != "" {
			reqLogger = reqLogger.With(slog.String("request_id", rid))
		}
		c.Request = c.Request.WithContext(logctx.Into(c.Request.Context(), reqLogger))

		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		reqLogger.LogAttrs(c.Request.Context(), level, "http",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("dur", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
		)
	}
}
