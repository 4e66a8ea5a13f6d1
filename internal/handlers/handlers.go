package handlers

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"backpro/internal/config"
	"backpro/internal/middleware"
	"backpro/internal/session"
	"backpro/internal/storage"
)

// Pinger is implemented by dependencies the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	registry *session.Registry
	store    storage.Store
	cache    *redis.Client
	tmpl     *template.Template
}

// NewHandlerSet wires the HTTP actions. cache may be nil when no Redis is
// configured.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, registry *session.Registry, store storage.Store, cache *redis.Client, tmpl *template.Template) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		registry: registry,
		store:    store,
		cache:    cache,
		tmpl:     tmpl,
	}
}

func (h HandlerSet) Register(router *gin.Engine) {
	if h.tmpl != nil {
		router.SetHTMLTemplate(h.tmpl)
	}

	router.GET("/healthz", h.Health)

	app := router.Group("/")
	app.Use(middleware.Session(h.registry, h.cfg.Session.CookieName, h.cfg.IsProduction()))
	{
		app.GET("/", h.Page)
		app.GET("/api/state", h.State)

		app.POST("/slots/:slot", h.SelectSlot)
		app.POST("/slots/:slot/clear", h.ClearSlot)
		app.DELETE("/slots/:slot", h.ClearSlot)
		app.GET("/previews/:key", h.Preview)

		app.POST("/generate", h.Generate)
		app.POST("/reset", h.Reset)

		app.GET("/result", h.Result)
		app.GET("/result/download", h.Download)
	}
}

func workspace(c *gin.Context) *session.Workspace {
	return middleware.CurrentWorkspace(c)
}

// wantsJSON decides between a JSON answer and a redirect back to the page,
// so the same routes serve plain HTML forms and script clients.
func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEJSON
}

// finish answers an action: JSON clients get status and body, browsers are
// sent back to the page.
func (h HandlerSet) finish(c *gin.Context, status int, body any) {
	h.finishAt(c, status, body, "/")
}

// finishAt is finish with a custom page location, used to carry a one-shot
// notice back to form clients.
func (h HandlerSet) finishAt(c *gin.Context, status int, body any, location string) {
	if wantsJSON(c) {
		c.JSON(status, body)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}
