package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
	"github.com/wemb-pms/pms-backend/internal/settlement/service"
)

type Service interface {
	ListProfitability(ctx context.Context, projectID int64) ([]domain.Profitability, error)
	CreateProfitability(ctx context.Context, projectID int64, createdBy *int64) (*domain.Profitability, error)
	ApproveProfitability(ctx context.Context, projectID, id int64) (*domain.Profitability, error)
	Plan(ctx context.Context, projectID, id int64) (domain.Plan, error)
	ReplacePlan(ctx context.Context, projectID, id int64, parts domain.PlanPart, plan domain.Plan) (*domain.Profitability, error)

	Get(ctx context.Context, projectID int64) (*service.View, error)
	Create(ctx context.Context, projectID int64, createdBy *int64, notes string) (*service.View, error)
	Update(ctx context.Context, projectID int64, in service.UpdateInput) (*service.View, error)
	Delete(ctx context.Context, projectID int64) error
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

// Register mounts the profitability, plan and settlement routes on the
// projects group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/:id/profitability", h.listProfitability)
	rg.POST("/:id/profitability", h.createProfitability)
	rg.POST("/:id/profitability/:pid/approve", h.approveProfitability)

	rg.GET("/:id/product-plan", h.getPlan(domain.PartProducts))
	rg.PUT("/:id/product-plan", h.putPlan(domain.PartProducts))
	rg.GET("/:id/manpower-plan", h.getPlan(domain.PartManpower))
	rg.PUT("/:id/manpower-plan", h.putPlan(domain.PartManpower))
	rg.GET("/:id/expense-plan", h.getPlan(domain.PartExpenses))
	rg.PUT("/:id/expense-plan", h.putPlan(domain.PartExpenses))

	rg.GET("/:id/settlement", h.getSettlement)
	rg.POST("/:id/settlement", h.createSettlement)
	rg.PUT("/:id/settlement", h.updateSettlement)
	rg.DELETE("/:id/settlement", h.deleteSettlement)
}

func (h *Handler) listProfitability(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListProfitability(c.Request.Context(), projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profitability": items})
}

func (h *Handler) createProfitability(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.CreateProfitability(c.Request.Context(), projectID, userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "profitability": p})
}

func (h *Handler) approveProfitability(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	id, ok := paramID(c, "pid")
	if !ok {
		return
	}
	p, err := h.svc.ApproveProfitability(c.Request.Context(), projectID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profitability": p})
}

// planKey is the response and request field carrying a plan part's rows.
func planKey(part domain.PlanPart) string {
	switch part {
	case domain.PartProducts:
		return "products"
	case domain.PartManpower:
		return "manpower"
	}
	return "expenses"
}

func (h *Handler) getPlan(part domain.PlanPart) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := paramID(c, "id")
		if !ok {
			return
		}
		id, ok := profitabilityID(c)
		if !ok {
			return
		}
		plan, err := h.svc.Plan(c.Request.Context(), projectID, id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		var rows any
		switch part {
		case domain.PartProducts:
			rows = plan.Products
		case domain.PartManpower:
			rows = plan.Manpower
		default:
			rows = plan.Expenses
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, planKey(part): rows})
	}
}

type planReq struct {
	Products []domain.ProductPlanItem  `json:"products"`
	Manpower []domain.ManpowerPlanItem `json:"manpower"`
	Expenses []domain.ExpensePlanItem  `json:"expenses"`
}

func (h *Handler) putPlan(part domain.PlanPart) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := paramID(c, "id")
		if !ok {
			return
		}
		id, ok := profitabilityID(c)
		if !ok {
			return
		}
		var req planReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
			return
		}
		plan := domain.Plan{Products: req.Products, Manpower: req.Manpower, Expenses: req.Expenses}
		p, err := h.svc.ReplacePlan(c.Request.Context(), projectID, id, part, plan)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "profitability": p})
	}
}

func (h *Handler) getSettlement(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), projectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

type createSettlementReq struct {
	Notes string `json:"notes"`
}

func (h *Handler) createSettlement(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req createSettlementReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
			return
		}
	}
	v, err := h.svc.Create(c.Request.Context(), projectID, userID(c), req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeView(c, http.StatusCreated, v)
}

func (h *Handler) updateSettlement(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in service.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	v, err := h.svc.Update(c.Request.Context(), projectID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeView(c, http.StatusOK, v)
}

func (h *Handler) deleteSettlement(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), projectID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func writeView(c *gin.Context, status int, v *service.View) {
	c.JSON(status, gin.H{
		"ok":             true,
		"settlement":     v.Settlement,
		"labor":          v.Labor,
		"extCompanies":   v.ExtCompanies,
		"reconciliation": v.Reconciliation,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSettlementNotFound),
		errors.Is(err, domain.ErrProfitabilityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrSettlementExists),
		errors.Is(err, domain.ErrSettlementCompleted),
		errors.Is(err, domain.ErrPlanLocked):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidMonthKey),
		errors.Is(err, domain.ErrInvalidProductType),
		errors.Is(err, domain.ErrInvalidExpenseKind):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error("settlement request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

func paramID(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid " + key})
		return 0, false
	}
	return id, true
}

func profitabilityID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("profitabilityId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "profitabilityId is required"})
		return 0, false
	}
	return id, true
}

// userID reads the acting user from X-User-Id. Missing or malformed values
// are treated as anonymous.
func userID(c *gin.Context) *int64 {
	id, err := strconv.ParseInt(c.GetHeader("X-User-Id"), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
