package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
)

// CatalogReader is the read side of the catalog service.
type CatalogReader interface {
	Kind(ctx context.Context, kind string) (any, error)
}

type Handler struct {
	svc CatalogReader
}

func New(svc CatalogReader) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the md-weights routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/modeling-3d", h.weights(domain.KindModeling3DWeights))
	rg.GET("/pid", h.weights(domain.KindPIDWeights))
	rg.GET("/modeling-3d-rates", h.items(domain.KindModeling3DRates))
	rg.GET("/pid-rates", h.items(domain.KindPIDRates))
	rg.GET("/difficulty-items", h.items(domain.KindDifficultyItems))
	rg.GET("/field-difficulty-items", h.items(domain.KindFieldDifficultyItems))
	rg.GET("/development-items", h.items(domain.KindDevelopmentItems))
}

func (h *Handler) weights(kind string) gin.HandlerFunc {
	return h.serve(kind, "weights")
}

func (h *Handler) items(kind string) gin.HandlerFunc {
	return h.serve(kind, "items")
}

func (h *Handler) serve(kind, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := h.svc.Kind(c.Request.Context(), kind)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownKind) {
				c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "unknown catalog"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to load catalog"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, field: v})
	}
}
