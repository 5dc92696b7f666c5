package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-insights/internal/shared/telemetry"
)

// Context keys handlers set so the request log can correlate entities.
const (
	DocumentIDKey       = "documentId"
	AnalysisIDKey       = "analysisId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits one structured log line per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"document_id":       c.GetString(DocumentIDKey),
			"analysis_id":       c.GetString(AnalysisIDKey),
			"is_guest":          IsGuest(c),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
