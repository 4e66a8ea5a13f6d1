package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"backpro/internal/export"
	"backpro/internal/generation"
	"backpro/internal/session"
	"backpro/internal/upload"
)

type slotResponse struct {
	Name       string `json:"name"`
	MediaType  string `json:"mediaType"`
	SizeBytes  int64  `json:"sizeBytes"`
	PreviewURL string `json:"previewUrl"`
}

type stateResponse struct {
	Phase         string        `json:"phase"`
	Error         string        `json:"error,omitempty"`
	Child         *slotResponse `json:"child,omitempty"`
	Adult         *slotResponse `json:"adult,omitempty"`
	CanGenerate   bool          `json:"canGenerate"`
	ResultURL     string        `json:"resultUrl,omitempty"`
	ResultDataURL string        `json:"resultDataUrl,omitempty"`
	DownloadURL   string        `json:"downloadUrl,omitempty"`
}

func newSlotResponse(ws *session.Workspace, slot upload.Slot) *slotResponse {
	sel, ok := ws.Uploads.Get(slot)
	if !ok {
		return nil
	}
	return &slotResponse{
		Name:       sel.File.Name,
		MediaType:  sel.File.MediaType,
		SizeBytes:  sel.File.Size,
		PreviewURL: sel.PreviewURL,
	}
}

func newStateResponse(ws *session.Workspace, st generation.Status) stateResponse {
	resp := stateResponse{
		Phase:       st.Phase.String(),
		Error:       st.Message,
		Child:       newSlotResponse(ws, upload.SlotChild),
		Adult:       newSlotResponse(ws, upload.SlotAdult),
		CanGenerate: ws.Generation.CanGenerate(),
	}
	if st.Result != nil {
		resp.ResultURL = "/result"
		resp.ResultDataURL = st.Result.DataURL()
		resp.DownloadURL = "/result/download"
	}
	return resp
}

func (h HandlerSet) State(c *gin.Context) {
	ws := workspace(c)
	c.JSON(http.StatusOK, newStateResponse(ws, ws.Generation.Status()))
}

type slotView struct {
	Slot       upload.Slot
	Title      string
	Selected   bool
	Name       string
	PreviewURL string
}

type pageView struct {
	Slots        []slotView
	Accept       string
	CanGenerate  bool
	Loading      bool
	Error        string
	Notice       string
	HasResult    bool
	ShowReset    bool
	DownloadName string
}

func (h HandlerSet) Page(c *gin.Context) {
	ws := workspace(c)
	st := ws.Generation.Status()

	view := pageView{
		Accept:       upload.PickerAccept,
		CanGenerate:  ws.Generation.CanGenerate(),
		Loading:      st.Phase == generation.PhaseLoading,
		Error:        st.Message,
		HasResult:    st.Result != nil,
		DownloadName: export.Filename,
	}
	if slot, err := upload.ParseSlot(c.Query("rejected")); err == nil {
		view.Notice = fmt.Sprintf("Only image files can be used for the %s photo.", slot)
	}
	for _, slot := range upload.Slots {
		v := slotView{Slot: slot, Title: slot.Title()}
		if sel, ok := ws.Uploads.Get(slot); ok {
			v.Selected = true
			v.Name = sel.File.Name
			v.PreviewURL = sel.PreviewURL
			view.ShowReset = true
		}
		view.Slots = append(view.Slots, v)
	}
	if view.HasResult {
		view.ShowReset = true
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "index.html", view)
}
