package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/service"
	"github.com/wemb-pms/pms-backend/internal/estimation/sheet"
)

// Service is the estimation use-case surface used by the handlers.
type Service interface {
	Create(ctx context.Context, projectID int64, createdBy string) (*domain.Estimation, bool, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Estimation, error)
	Get(ctx context.Context, id int64, projectID *int64) (*service.View, error)
	Update(ctx context.Context, id int64, p sheet.Payload) (*service.View, error)
	Delete(ctx context.Context, id int64, projectID *int64) error
}

type Handler struct {
	svc Service
	log *zap.Logger
}

func New(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Register mounts the md-estimations routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}

type createReq struct {
	ProjectID int64  `json:"project_id"`
	CreatedBy string `json:"created_by"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "project_id is required"})
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = c.GetHeader("X-User-Id")
	}

	e, created, err := h.svc.Create(c.Request.Context(), req.ProjectID, req.CreatedBy)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"ok": true, "estimation": e, "created": created})
}

func (h *Handler) list(c *gin.Context) {
	projectID, ok := queryID(c, "projectId")
	if !ok {
		return
	}
	items, err := h.svc.List(c.Request.Context(), domain.ListFilter{
		ProjectID: projectID,
		Status:    c.Query("status"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "estimations": items})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	projectID, ok := queryID(c, "projectId")
	if !ok {
		return
	}

	v, err := h.svc.Get(c.Request.Context(), id, projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": v})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var p sheet.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	v, err := h.svc.Update(c.Request.Context(), id, p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": v})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	projectID, ok := queryID(c, "projectId")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, projectID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEstimationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrProjectMismatch):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrEstimationCompleted):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownWeight):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error("md estimation request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, key string) (*int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid " + key})
		return nil, false
	}
	return &id, true
}
