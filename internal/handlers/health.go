package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Cache       string `json:"cache"`
	Workspaces  int    `json:"workspaces"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storageStatus := "ok"
	if p, ok := h.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			storageStatus = "error"
			h.log.Error().Err(err).Msg("storage ping failed")
		}
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		cacheStatus = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			cacheStatus = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	status := "ok"
	if storageStatus == "error" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      status,
		Storage:     storageStatus,
		Cache:       cacheStatus,
		Workspaces:  h.registry.Len(),
		Environment: h.cfg.Environment,
	})
}
