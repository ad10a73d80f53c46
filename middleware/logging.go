package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-server/utils"
)

const (
	TraceHeader    = "X-Trace-ID"
	ContextTraceID = "trace_id"
)

// Logger logs one line per request with a trace id echoed to the client
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(TraceHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}
		c.Set(ContextTraceID, traceID)
		c.Header(TraceHeader, traceID)

		c.Next()

		userID, _ := CurrentUser(c)
		fields := []zap.Field{
			zap.String("trace_id", traceID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID != 0 {
			fields = append(fields, zap.Uint("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			utils.GetLogger().Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			utils.GetLogger().Warn("Request rejected", fields...)
		default:
			utils.GetLogger().Info("Request handled", fields...)
		}
	}
}

// Recovery turns a panic into a 500 envelope and logs the stack
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.GetLogger().Error("Panic recovered",
			zap.String("trace_id", c.GetString(ContextTraceID)),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
			"message": "Something went wrong",
		})
	})
}
