package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backpro/internal/ids"
	"backpro/internal/session"
)

const workspaceKey = "workspace"

// Session binds each request to its browser's workspace, issuing a new
// cookie when the browser has none or presents an unknown one.
func Session(registry *session.Registry, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(cookieName)
		if !ids.Valid(id) {
			id = ""
		}

		ws, created := registry.Acquire(id)
		if created {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     cookieName,
				Value:    ws.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(workspaceKey, ws)
		c.Next()
	}
}

func CurrentWorkspace(c *gin.Context) *session.Workspace {
	v, ok := c.Get(workspaceKey)
	if !ok {
		return nil
	}
	ws, _ := v.(*session.Workspace)
	return ws
}
