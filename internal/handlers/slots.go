package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backpro/internal/media/sniffer"
	"backpro/internal/storage"
	"backpro/internal/upload"
)

// previewPolicy keeps a served SVG from running anything even if markup
// slipped past sanitising.
const previewPolicy = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

type selectResponse struct {
	Slot       string `json:"slot"`
	Name       string `json:"name"`
	MediaType  string `json:"mediaType"`
	SizeBytes  int64  `json:"sizeBytes"`
	PreviewURL string `json:"previewUrl"`
}

func (h HandlerSet) SelectSlot(c *gin.Context) {
	ws := workspace(c)

	slot, err := upload.ParseSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_slot"})
		return
	}

	source := upload.Source(c.PostForm("source"))
	if source != upload.SourceDrop {
		source = upload.SourcePicker
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if source == upload.SourceDrop {
			h.finish(c, http.StatusNoContent, nil)
			return
		}
		h.finish(c, http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	sel, err := ws.Uploads.Select(c.Request.Context(), slot, upload.Candidate{
		Name:      header.Filename,
		MediaType: sniffer.Normalize(header.Header.Get("Content-Type")),
		Source:    source,
		Body:      file,
	})
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrRejected), errors.Is(err, upload.ErrEmpty):
		if source == upload.SourceDrop {
			// Dropped non-images are ignored, leaving the slot as it was.
			h.log.Debug().Err(err).Str("slot", string(slot)).Msg("dropped file ignored")
			h.finish(c, http.StatusNoContent, nil)
			return
		}
		h.finishAt(c, http.StatusUnsupportedMediaType, gin.H{"error": "unsupported_media_type"}, "/?rejected="+string(slot))
		return
	default:
		h.log.Error().Err(err).Str("session", ws.ID).Str("slot", string(slot)).Msg("select failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
		return
	}

	h.finish(c, http.StatusOK, selectResponse{
		Slot:       string(slot),
		Name:       sel.File.Name,
		MediaType:  sel.File.MediaType,
		SizeBytes:  sel.File.Size,
		PreviewURL: sel.PreviewURL,
	})
}

func (h HandlerSet) ClearSlot(c *gin.Context) {
	ws := workspace(c)

	slot, err := upload.ParseSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_slot"})
		return
	}

	if err := ws.Uploads.Clear(c.Request.Context(), slot); err != nil {
		// The slot is empty either way; only the stored bytes may linger.
		h.log.Warn().Err(err).Str("session", ws.ID).Str("slot", string(slot)).Msg("clear slot")
	}

	h.finish(c, http.StatusOK, gin.H{"slot": string(slot), "cleared": true})
}

// Preview serves a selection's bytes, only to the workspace that owns it.
func (h HandlerSet) Preview(c *gin.Context) {
	ws := workspace(c)
	key := c.Param("key")

	if !ws.Uploads.Owns(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview_not_found"})
		return
	}

	rc, obj, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "preview_not_found"})
			return
		}
		h.log.Error().Err(err).Str("key", key).Msg("open preview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preview_unavailable"})
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.MediaType, rc, map[string]string{
		"Cache-Control":           "private, max-age=3600",
		"X-Content-Type-Options":  "nosniff",
		"Content-Security-Policy": previewPolicy,
	})
}
