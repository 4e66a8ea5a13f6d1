package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backpro/internal/export"
	"backpro/internal/generation"
)

func (h HandlerSet) Generate(c *gin.Context) {
	ws := workspace(c)

	st, err := ws.Generation.Generate(c.Request.Context())
	if errors.Is(err, generation.ErrBusy) {
		h.finish(c, http.StatusConflict, gin.H{"error": "generation_in_progress"})
		return
	}

	status := http.StatusOK
	if st.Phase == generation.PhaseFailed {
		status = http.StatusBadGateway
		if generation.KindOf(st.Cause) == generation.ErrorKindValidation {
			status = http.StatusBadRequest
		}
	}
	h.finish(c, status, newStateResponse(ws, st))
}

func (h HandlerSet) Reset(c *gin.Context) {
	ws := workspace(c)

	if err := ws.Generation.Reset(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Str("session", ws.ID).Msg("reset left previews behind")
	}

	h.finish(c, http.StatusOK, newStateResponse(ws, ws.Generation.Status()))
}

// Result serves the generated image inline for the page's <img> tag.
func (h HandlerSet) Result(c *gin.Context) {
	st := workspace(c).Generation.Status()
	if st.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_result"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, st.Result.MediaType, st.Result.Data)
}

func (h HandlerSet) Download(c *gin.Context) {
	st := workspace(c).Generation.Status()
	if !export.Download(c.Writer, st.Result) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_result"})
	}
}
