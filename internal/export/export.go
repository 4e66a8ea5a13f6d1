package export

import (
	"mime"
	"net/http"
	"strconv"

	"backpro/internal/generation"
)

// Filename is the name every download is offered under.
const Filename = "BackPro-result.png"

// Download writes the result as a file attachment. Without a result it
// writes nothing and returns false.
func Download(w http.ResponseWriter, r *generation.Result) bool {
	if r == nil || len(r.Data) == 0 {
		return false
	}

	mediaType := r.MediaType
	if mediaType == "" {
		mediaType = generation.ResultMediaType
	}

	h := w.Header()
	h.Set("Content-Type", mediaType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": Filename}))
	h.Set("Content-Length", strconv.Itoa(len(r.Data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(r.Data)
	return true
}
