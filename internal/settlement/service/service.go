package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
	"github.com/wemb-pms/pms-backend/internal/settlement/reconcile"
)

// ProjectStatusSettled is set on the project when its settlement completes.
const ProjectStatusSettled = "settlement_completed"

type ProfitabilityStore interface {
	List(ctx context.Context, projectID int64) ([]domain.Profitability, error)
	Get(ctx context.Context, projectID, id int64) (*domain.Profitability, error)
	Create(ctx context.Context, projectID int64, createdBy *int64) (*domain.Profitability, error)
	Approve(ctx context.Context, projectID, id int64) (*domain.Profitability, error)
	ApprovedIDs(ctx context.Context, projectID int64) ([]int64, error)
	Plan(ctx context.Context, id int64) (domain.Plan, error)
	ReplacePlan(ctx context.Context, id int64, parts domain.PlanPart, plan domain.Plan, total func(domain.Plan) domain.PlanTotals) (*domain.Profitability, error)
}

type SettlementStore interface {
	GetByProject(ctx context.Context, projectID int64) (*domain.Settlement, error)
	Create(ctx context.Context, s *domain.Settlement) error
	Save(ctx context.Context, s *domain.Settlement, labor []domain.LaborItem, ext []domain.ExtCompanyItem) error
	Labor(ctx context.Context, settlementID int64) ([]domain.LaborItem, error)
	ExtCompanies(ctx context.Context, settlementID int64) ([]domain.ExtCompanyItem, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectUpdater moves the owning project along its lifecycle. An empty phase
// leaves the current phase unchanged.
type ProjectUpdater interface {
	SetStatusPhase(ctx context.Context, projectID int64, status, phase string) error
}

// View is a settlement with its rows and the reconciliation against the
// approved plans. Settlement is nil when the project has none yet.
type View struct {
	Settlement     *domain.Settlement      `json:"settlement"`
	Labor          []domain.LaborItem      `json:"labor"`
	ExtCompanies   []domain.ExtCompanyItem `json:"extCompanies"`
	Reconciliation reconcile.Result        `json:"reconciliation"`
}

// UpdateInput carries a settlement PUT. Nil fields are left as stored; nil
// row slices keep the stored rows.
type UpdateInput struct {
	Status       *string                 `json:"status"`
	Notes        *string                 `json:"notes"`
	Actuals      *domain.Actuals         `json:"actuals"`
	Labor        []domain.LaborItem      `json:"labor"`
	ExtCompanies []domain.ExtCompanyItem `json:"extCompanies"`
}

type SettlementService struct {
	plans       ProfitabilityStore
	settlements SettlementStore
	projects    ProjectUpdater
	markers     reconcile.Markers
	log         *zap.Logger
}

func NewSettlementService(plans ProfitabilityStore, settlements SettlementStore, projects ProjectUpdater, markers reconcile.Markers, log *zap.Logger) *SettlementService {
	if log == nil {
		log = zap.NewNop()
	}
	if markers.Internal == "" && markers.External == "" {
		markers = reconcile.DefaultMarkers
	}
	return &SettlementService{
		plans:       plans,
		settlements: settlements,
		projects:    projects,
		markers:     markers,
		log:         log,
	}
}

func (s *SettlementService) ListProfitability(ctx context.Context, projectID int64) ([]domain.Profitability, error) {
	return s.plans.List(ctx, projectID)
}

func (s *SettlementService) CreateProfitability(ctx context.Context, projectID int64, createdBy *int64) (*domain.Profitability, error) {
	p, err := s.plans.Create(ctx, projectID, createdBy)
	if err != nil {
		return nil, err
	}
	s.log.Info("profitability version created",
		zap.Int64("project_id", projectID),
		zap.Int64("profitability_id", p.ID),
		zap.Int("version", p.Version),
	)
	return p, nil
}

func (s *SettlementService) ApproveProfitability(ctx context.Context, projectID, id int64) (*domain.Profitability, error) {
	p, err := s.plans.Approve(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("profitability approved", zap.Int64("project_id", projectID), zap.Int64("profitability_id", id))
	return p, nil
}

// Plan returns the plan rows of a version after checking it belongs to the
// project.
func (s *SettlementService) Plan(ctx context.Context, projectID, id int64) (domain.Plan, error) {
	if _, err := s.plans.Get(ctx, projectID, id); err != nil {
		return domain.Plan{}, err
	}
	return s.plans.Plan(ctx, id)
}

// ReplacePlan swaps the given parts of a version and refreshes its totals.
func (s *SettlementService) ReplacePlan(ctx context.Context, projectID, id int64, parts domain.PlanPart, plan domain.Plan) (*domain.Profitability, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	p, err := s.plans.Get(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if p.Locked() {
		return nil, domain.ErrPlanLocked
	}
	return s.plans.ReplacePlan(ctx, id, parts, plan, s.totals)
}

func (s *SettlementService) totals(p domain.Plan) domain.PlanTotals {
	c := reconcile.NewColumn(reconcile.SummarizePlan(p, s.markers))
	return domain.PlanTotals{
		Revenue:    c.Revenue,
		Cost:       c.Cost,
		Profit:     c.Profit,
		ProfitRate: c.ProfitRate,
	}
}

// approvedPlans loads the earliest and the most recent approved plan. Both
// are nil when nothing is approved; they share one value when only one
// version is approved.
func (s *SettlementService) approvedPlans(ctx context.Context, projectID int64) (base, latest *domain.Plan, err error) {
	ids, err := s.plans.ApprovedIDs(ctx, projectID)
	if err != nil || len(ids) == 0 {
		return nil, nil, err
	}
	first, last := ids[0], ids[len(ids)-1]

	var b, l domain.Plan
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		b, err = s.plans.Plan(gctx, first)
		return err
	})
	if last != first {
		g.Go(func() error {
			var err error
			l, err = s.plans.Plan(gctx, last)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if last == first {
		return &b, &b, nil
	}
	return &b, &l, nil
}

// Get returns the project's settlement view. A project without a settlement
// still gets its plan columns reconciled against zero actuals.
func (s *SettlementService) Get(ctx context.Context, projectID int64) (*View, error) {
	base, latest, err := s.approvedPlans(ctx, projectID)
	if err != nil {
		return nil, err
	}

	st, err := s.settlements.GetByProject(ctx, projectID)
	if errors.Is(err, domain.ErrSettlementNotFound) {
		return &View{
			Labor:          []domain.LaborItem{},
			ExtCompanies:   []domain.ExtCompanyItem{},
			Reconciliation: reconcile.Reconcile(base, latest, domain.Actuals{}, s.markers),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	v := &View{Settlement: st}
	if v.Labor, err = s.settlements.Labor(ctx, st.ID); err != nil {
		return nil, err
	}
	if v.ExtCompanies, err = s.settlements.ExtCompanies(ctx, st.ID); err != nil {
		return nil, err
	}
	v.Reconciliation = reconcile.Reconcile(base, latest, st.Actuals, s.markers)
	return v, nil
}

// Create opens a draft settlement with planned figures taken from the base
// plan.
func (s *SettlementService) Create(ctx context.Context, projectID int64, createdBy *int64, notes string) (*View, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("%w: project id required", domain.ErrInvalidInput)
	}
	base, _, err := s.approvedPlans(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st := &domain.Settlement{
		ProjectID: projectID,
		Status:    domain.SettlementDraft,
		Planned:   reconcile.PlannedFrom(base, s.markers),
		Notes:     notes,
		CreatedBy: createdBy,
	}
	if err := s.settlements.Create(ctx, st); err != nil {
		return nil, err
	}
	s.log.Info("settlement created", zap.Int64("project_id", projectID), zap.Int64("settlement_id", st.ID))
	return s.Get(ctx, projectID)
}

// Update writes actuals and rows. Planned figures are always re-derived from
// the base plan. A completed settlement is read-only.
func (s *SettlementService) Update(ctx context.Context, projectID int64, in UpdateInput) (*View, error) {
	st, err := s.settlements.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if st.Status == domain.SettlementCompleted {
		return nil, domain.ErrSettlementCompleted
	}
	if in.Status != nil && !domain.IsValidSettlementStatus(*in.Status) {
		return nil, domain.ErrInvalidStatus
	}
	for _, it := range in.ExtCompanies {
		if err := it.Validate(); err != nil {
			return nil, err
		}
	}

	base, _, err := s.approvedPlans(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		st.Status = *in.Status
	}
	if in.Notes != nil {
		st.Notes = *in.Notes
	}
	if in.Actuals != nil {
		st.Actuals = *in.Actuals
	}
	st.Planned = reconcile.PlannedFrom(base, s.markers)
	reconcile.ApplyActualTotals(st)

	labor := in.Labor
	if labor == nil {
		if labor, err = s.settlements.Labor(ctx, st.ID); err != nil {
			return nil, err
		}
	}
	ext := in.ExtCompanies
	if ext == nil {
		if ext, err = s.settlements.ExtCompanies(ctx, st.ID); err != nil {
			return nil, err
		}
	}

	if err := s.settlements.Save(ctx, st, labor, ext); err != nil {
		return nil, err
	}

	if st.Status == domain.SettlementCompleted && s.projects != nil {
		if err := s.projects.SetStatusPhase(ctx, projectID, ProjectStatusSettled, ""); err != nil {
			return nil, fmt.Errorf("settlement saved but project status not updated: %w", err)
		}
		s.log.Info("settlement completed", zap.Int64("project_id", projectID), zap.Int64("settlement_id", st.ID))
	}
	return s.Get(ctx, projectID)
}

// Delete removes a draft settlement.
func (s *SettlementService) Delete(ctx context.Context, projectID int64) error {
	st, err := s.settlements.GetByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if st.Status == domain.SettlementCompleted {
		return domain.ErrSettlementCompleted
	}
	return s.settlements.Delete(ctx, st.ID)
}
