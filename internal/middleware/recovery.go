package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 that carries the request id, so
// the answer can be matched with the log line.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			requestID := GetRequestID(c)
			event := log.Error().
				Interface("error", r).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("request_id", requestID)
			if ws := CurrentWorkspace(c); ws != nil {
				event = event.Str("session", ws.ID)
			}
			event.Msg("panic recovered")

			body := gin.H{"error": "internal_server_error"}
			if requestID != "" {
				body["request_id"] = requestID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
