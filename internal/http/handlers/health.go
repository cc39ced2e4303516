package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/config"
)

// Pinger is what readiness needs from the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	cache *cache.Cache[bool]
}

// NewHealthHandler throttles readiness checks through a short TTL cache so
// probe storms don't stampede the pool.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache.New[bool](2 * time.Second),
	}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if ready, ok := h.cache.Get("readyz"); ok {
		respondReady(ctx, ready)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	ready := h.db != nil && h.db.Ping(cctx) == nil
	h.cache.Set("readyz", ready)

	respondReady(ctx, ready)
}

func respondReady(ctx *gin.Context, ready bool) {
	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "database": "up"})
}
