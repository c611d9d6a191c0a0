package handlers

import "github.com/gin-gonic/gin"

// PingFunc checks one downstream dependency. Nil checks are skipped.
type PingFunc func() error

type HealthHandler struct {
	dbPing    PingFunc
	cachePing PingFunc
}

func NewHealthHandler(dbPing, cachePing PingFunc) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, cachePing: cachePing}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	checks := gin.H{}
	ready := true

	if h.dbPing != nil {
		if err := h.dbPing(); err != nil {
			checks["db"] = "down"
			ready = false
		} else {
			checks["db"] = "up"
		}
	}

	if h.cachePing != nil {
		if err := h.cachePing(); err != nil {
			checks["cache"] = "down"
			ready = false
		} else {
			checks["cache"] = "up"
		}
	}

	if !ready {
		ctx.JSON(503, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(200, gin.H{"status": "ready", "checks": checks})
}
