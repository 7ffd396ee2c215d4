package unitprices

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Store interface {
	List(ctx context.Context, f Filter) ([]UnitPrice, error)
	Get(ctx context.Context, id int64) (*UnitPrice, error)
	Create(ctx context.Context, in Input) (*UnitPrice, error)
	Update(ctx context.Context, id int64, in Input) (*UnitPrice, error)
	Delete(ctx context.Context, id int64) error
	CopyYear(ctx context.Context, source, target int) (int64, error)
}

type Handler struct {
	store Store
	log   *zap.Logger
}

func NewHandler(store Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, log: log}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/averages", h.averages)
	rg.POST("/copy-year", h.copyYear)
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}

func parseFilter(c *gin.Context) (Filter, bool) {
	f := Filter{AffiliationGroup: c.Query("affiliationGroup")}
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid year"})
			return f, false
		}
		f.Year = &y
	}
	if raw := c.Query("isActive"); raw != "" {
		active := raw == "true"
		f.IsActive = &active
	}
	return f, true
}

func (h *Handler) list(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	items, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "unitPrices": items})
}

func (h *Handler) averages(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	items, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "averages": Averages(items)})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "unitPrice": p})
}

func (h *Handler) create(c *gin.Context) {
	var req Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	for _, f := range []*string{req.AffiliationGroup, req.JobGroup, req.JobLevel, req.Grade} {
		if f == nil || strings.TrimSpace(*f) == "" {
			h.writeError(c, ErrRequired)
			return
		}
	}
	if req.Year == nil || *req.Year <= 0 {
		h.writeError(c, ErrRequired)
		return
	}
	p, err := h.store.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "unitPrice": p})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	p, err := h.store.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "unitPrice": p})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type copyYearReq struct {
	SourceYear int `json:"sourceYear"`
	TargetYear int `json:"targetYear"`
}

func (h *Handler) copyYear(c *gin.Context) {
	var req copyYearReq
	if err := c.ShouldBindJSON(&req); err != nil || req.SourceYear <= 0 || req.TargetYear <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "sourceYear and targetYear are required"})
		return
	}
	n, err := h.store.CopyYear(c.Request.Context(), req.SourceYear, req.TargetYear)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": n})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrRequired), errors.Is(err, ErrSameYear):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error("unit price request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid id"})
		return 0, false
	}
	return id, true
}
