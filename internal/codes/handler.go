package codes

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
	List(ctx context.Context, f Filter) ([]Code, error)
	Get(ctx context.Context, id int64) (*Code, error)
	Create(ctx context.Context, in CreateInput) (*Code, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*Code, error)
	Delete(ctx context.Context, id int64) error
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
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}

// list accepts parentCode, parentId (or "null" for top-level codes) and
// includeInactive.
func (h *Handler) list(c *gin.Context) {
	f := Filter{
		ParentCode:      c.Query("parentCode"),
		IncludeInactive: c.Query("includeInactive") == "true",
	}
	if raw, ok := c.GetQuery("parentId"); ok && f.ParentCode == "" {
		if raw == "null" {
			f.RootOnly = true
		} else {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid parentId"})
				return
			}
			f.ParentID = &id
		}
	}

	items, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "codes": items})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	code, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "code": code})
}

func (h *Handler) create(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		h.writeError(c, ErrRequired)
		return
	}
	code, err := h.store.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "code": code})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if (req.Code != nil && strings.TrimSpace(*req.Code) == "") || (req.Name != nil && strings.TrimSpace(*req.Name) == "") {
		h.writeError(c, ErrRequired)
		return
	}
	code, err := h.store.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "code": code})
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

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrSystemCode):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, ErrRequired), errors.Is(err, ErrInvalidParent):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error("code request failed", zap.String("path", c.FullPath()), zap.Error(err))
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
