package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	catdomain "github.com/wemb-pms/pms-backend/internal/catalog/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/sheet"
)

// Project status and phase set when an estimation completes.
const (
	ProjectStatusMDCompleted = "md_estimation_completed"
	ProjectPhaseVRB          = "vrb"
)

// Repository persists estimations.
type Repository interface {
	Get(ctx context.Context, id int64) (*domain.Estimation, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Estimation, error)
	FindStandby(ctx context.Context, projectID int64) (*domain.Estimation, error)
	CreateStandby(ctx context.Context, projectID int64, createdBy string) (*domain.Estimation, bool, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Save(ctx context.Context, e *domain.Estimation, p sheet.Payload) error
	Payload(ctx context.Context, id int64) (sheet.Payload, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogSource provides the current M/D catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) (catdomain.Catalog, error)
}

// ProjectUpdater moves the owning project along its lifecycle.
type ProjectUpdater interface {
	SetStatusPhase(ctx context.Context, projectID int64, status, phase string) error
}

// View is an estimation with everything derived from it.
type View struct {
	Estimation *domain.Estimation `json:"estimation"`
	Payload    sheet.Payload      `json:"payload"`
	Summary    calc.Summary       `json:"summary"`
	Report     sheet.Report       `json:"load_report"`
	Catalog    catdomain.Catalog  `json:"catalog"`
}

// EstimationService implements the estimation lifecycle. Writes are
// last-write-wins; there is no version check between concurrent saves.
type EstimationService struct {
	repo     Repository
	catalog  CatalogSource
	projects ProjectUpdater
	mmBase   float64
	log      *zap.Logger
}

func NewEstimationService(repo Repository, catalog CatalogSource, projects ProjectUpdater, mmBase float64, log *zap.Logger) *EstimationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EstimationService{
		repo:     repo,
		catalog:  catalog,
		projects: projects,
		mmBase:   mmBase,
		log:      log,
	}
}

// Create returns the project's STANDBY estimation, creating it when missing.
// The bool reports whether a new row was inserted.
func (s *EstimationService) Create(ctx context.Context, projectID int64, createdBy string) (*domain.Estimation, bool, error) {
	if projectID <= 0 {
		return nil, false, fmt.Errorf("%w: project id required", domain.ErrInvalidInput)
	}

	e, err := s.repo.FindStandby(ctx, projectID)
	if err == nil {
		return e, false, nil
	}
	if !errors.Is(err, domain.ErrEstimationNotFound) {
		return nil, false, err
	}

	e, created, err := s.repo.CreateStandby(ctx, projectID, createdBy)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Info("estimation created",
			zap.Int64("estimation_id", e.ID),
			zap.Int64("project_id", projectID),
			zap.Int("version", e.Version),
		)
	}
	return e, created, nil
}

func (s *EstimationService) List(ctx context.Context, f domain.ListFilter) ([]domain.Estimation, error) {
	if f.Status != "" && !domain.IsValidStatus(f.Status) {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

// Get loads the estimation and the catalog concurrently and re-derives the
// summary from the stored rows.
func (s *EstimationService) Get(ctx context.Context, id int64, projectID *int64) (*View, error) {
	var (
		e   *domain.Estimation
		p   sheet.Payload
		cat catdomain.Catalog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = s.catalog.Catalog(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if e, err = s.repo.Get(gctx, id); err != nil {
			return err
		}
		p, err = s.repo.Payload(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if projectID != nil && *projectID != e.ProjectID {
		return nil, domain.ErrProjectMismatch
	}

	sh, rep, err := sheet.Deserialize(p, DefaultsFromCatalog(cat, s.mmBase))
	if err != nil {
		return nil, err
	}
	if rep.StaleSelection() {
		s.log.Warn("estimation references a weight that no longer exists",
			zap.Int64("estimation_id", id),
			zap.Any("modeling_3d", rep.Modeling3DWeights),
			zap.Any("pid", rep.PIDWeights),
		)
	}

	return &View{
		Estimation: e,
		Payload:    sheet.Serialize(sh),
		Summary:    sh.Summary(),
		Report:     rep,
		Catalog:    cat,
	}, nil
}

// Update applies a full payload or a bare status change.
func (s *EstimationService) Update(ctx context.Context, id int64, p sheet.Payload) (*View, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminal(e.Status) {
		return nil, domain.ErrEstimationCompleted
	}
	if p.ProjectID != nil && *p.ProjectID != e.ProjectID {
		return nil, domain.ErrProjectMismatch
	}

	next, err := nextStatus(e.Status, p.Status)
	if err != nil {
		return nil, err
	}

	if !p.HasContent() {
		if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
			return nil, err
		}
	} else {
		cat, err := s.catalog.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		sh, _, err := sheet.Deserialize(p, DefaultsFromCatalog(cat, s.mmBase))
		if err != nil {
			return nil, err
		}

		applySummary(e, sh)
		e.Status = next
		if err := s.repo.Save(ctx, e, sheet.Serialize(sh)); err != nil {
			return nil, err
		}
	}

	if next == domain.StatusCompleted {
		if err := s.projects.SetStatusPhase(ctx, e.ProjectID, ProjectStatusMDCompleted, ProjectPhaseVRB); err != nil {
			return nil, fmt.Errorf("update project after completion: %w", err)
		}
		s.log.Info("estimation completed", zap.Int64("estimation_id", id), zap.Int64("project_id", e.ProjectID))
	}

	return s.Get(ctx, id, nil)
}

// Delete removes an estimation that has not been completed.
func (s *EstimationService) Delete(ctx context.Context, id int64, projectID *int64) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if projectID != nil && *projectID != e.ProjectID {
		return domain.ErrProjectMismatch
	}
	if domain.IsTerminal(e.Status) {
		return domain.ErrEstimationCompleted
	}
	return s.repo.Delete(ctx, id)
}

// RecalcResult counts what Recalc touched.
type RecalcResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Recalc re-derives the stored totals of every open estimation matching f
// with the current catalog. Completed estimations are left as they were
// closed.
func (s *EstimationService) Recalc(ctx context.Context, f domain.ListFilter) (RecalcResult, error) {
	var res RecalcResult
	items, err := s.List(ctx, f)
	if err != nil {
		return res, err
	}
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return res, err
	}
	return s.recalcItems(ctx, items, DefaultsFromCatalog(cat, s.mmBase))
}

func (s *EstimationService) recalcItems(ctx context.Context, items []domain.Estimation, defaults sheet.Defaults) (RecalcResult, error) {
	var res RecalcResult
	for i := range items {
		e := &items[i]
		if domain.IsTerminal(e.Status) {
			res.Skipped++
			continue
		}
		p, err := s.repo.Payload(ctx, e.ID)
		if err != nil {
			return res, fmt.Errorf("load estimation %d: %w", e.ID, err)
		}
		sh, _, err := sheet.Deserialize(p, defaults)
		if err != nil {
			return res, fmt.Errorf("rebuild estimation %d: %w", e.ID, err)
		}
		applySummary(e, sh)
		err = s.repo.Save(ctx, e, sheet.Serialize(sh))
		if errors.Is(err, domain.ErrEstimationCompleted) {
			// completed after the list was read
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("save estimation %d: %w", e.ID, err)
		}
		res.Updated++
	}
	s.log.Info("estimations recalculated", zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped))
	return res, nil
}

// nextStatus applies an explicit status or moves STANDBY to IN_PROGRESS.
func nextStatus(current string, requested *string) (string, error) {
	if requested != nil {
		if !domain.IsValidStatus(*requested) {
			return "", domain.ErrInvalidStatus
		}
		return *requested, nil
	}
	if current == domain.StatusStandby {
		return domain.StatusInProgress, nil
	}
	return current, nil
}

func applySummary(e *domain.Estimation, sh *sheet.Sheet) {
	sum := sh.Summary()
	e.CommonDifficultySum = sum.Difficulty.CommonSum
	e.FieldDifficultySum = sum.Difficulty.FieldSum
	e.ProjectDifficulty = sum.Difficulty.Coefficient
	e.TotalDevelopmentMD = sum.Development.FinalMD
	e.TotalModeling3DMD = sum.Modeling3D.FinalMD
	e.TotalPIDMD = sum.PID.FinalMD
	e.TotalDevelopmentMM = sum.Development.MM
	e.TotalModeling3DMM = sum.Modeling3D.MM
	e.TotalPIDMM = sum.PID.MM
	e.TotalMM = sum.TotalMM

	e.SelectedModeling3D = selected(sh.Weights(sheet.Modeling3DWeights))
	e.SelectedPID = selected(sh.Weights(sheet.PIDWeights))
	base := sh.MMCalculationBase()
	e.MMCalculationBase = &base
}

func selected(t *calc.WeightTable) *int64 {
	if id, ok := t.Selected(); ok {
		return &id
	}
	return nil
}
