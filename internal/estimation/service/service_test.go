package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catdomain "github.com/wemb-pms/pms-backend/internal/catalog/domain"
	"github.com/wemb-pms/pms-backend/internal/catalog/seed"
	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/sheet"
)

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	rows     map[int64]*domain.Estimation
	payloads map[int64]sheet.Payload
	saves    int
	// afterGet runs once Get has copied the row, outside the lock
	afterGet func(id int64)
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]*domain.Estimation{}, payloads: map[int64]sheet.Payload{}}
}

func (m *memRepo) add(e domain.Estimation) *domain.Estimation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.rows[e.ID] = &e
	return &e
}

func (m *memRepo) Get(_ context.Context, id int64) (*domain.Estimation, error) {
	m.mu.Lock()
	e, ok := m.rows[id]
	if !ok {
		m.mu.Unlock()
		return nil, domain.ErrEstimationNotFound
	}
	cp := *e
	hook := m.afterGet
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return &cp, nil
}

func (m *memRepo) setStatus(id int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = status
}

// writable mirrors the guarded writes of the postgres repository.
func (m *memRepo) writable(id int64) (*domain.Estimation, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrEstimationNotFound
	}
	if domain.IsTerminal(e.Status) {
		return nil, domain.ErrEstimationCompleted
	}
	return e, nil
}

func (m *memRepo) List(_ context.Context, f domain.ListFilter) ([]domain.Estimation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Estimation
	for _, e := range m.rows {
		if f.ProjectID != nil && *f.ProjectID != e.ProjectID {
			continue
		}
		if f.Status != "" && f.Status != e.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) FindStandby(_ context.Context, projectID int64) (*domain.Estimation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ProjectID == projectID && e.Status == domain.StatusStandby {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrEstimationNotFound
}

func (m *memRepo) CreateStandby(_ context.Context, projectID int64, createdBy string) (*domain.Estimation, bool, error) {
	m.mu.Lock()
	maxVersion := 0
	for _, e := range m.rows {
		if e.ProjectID == projectID && e.Status == domain.StatusCompleted && e.Version > maxVersion {
			maxVersion = e.Version
		}
	}
	m.mu.Unlock()
	e := m.add(domain.Estimation{
		ProjectID: projectID,
		Version:   maxVersion + 1,
		Status:    domain.StatusStandby,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	})
	return e, true, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.writable(id)
	if err != nil {
		return err
	}
	e.Status = status
	return nil
}

func (m *memRepo) Save(_ context.Context, e *domain.Estimation, p sheet.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.writable(e.ID); err != nil {
		return err
	}
	cp := *e
	m.rows[e.ID] = &cp
	m.payloads[e.ID] = p
	m.saves++
	return nil
}

func (m *memRepo) Payload(_ context.Context, id int64) (sheet.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return sheet.Payload{}, domain.ErrEstimationNotFound
	}
	return m.payloads[id], nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.writable(id); err != nil {
		return err
	}
	delete(m.rows, id)
	delete(m.payloads, id)
	return nil
}

type staticCatalog struct{ err error }

func (s staticCatalog) Catalog(context.Context) (catdomain.Catalog, error) {
	if s.err != nil {
		return catdomain.Catalog{}, s.err
	}
	return seed.MustLoad(), nil
}

type projectCalls struct {
	mu    sync.Mutex
	calls []string
}

func (p *projectCalls) SetStatusPhase(_ context.Context, projectID int64, status, phase string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, status+"/"+phase)
	return nil
}

func newTestService() (*EstimationService, *memRepo, *projectCalls) {
	repo := newMemRepo()
	projects := &projectCalls{}
	return NewEstimationService(repo, staticCatalog{}, projects, 21, nil), repo, projects
}

func ptr[T any](v T) *T { return &v }

func devPayload(qty calc.Number) sheet.Payload {
	dev := []sheet.DevelopmentRecord{{DevelopmentItemID: ptr(int64(4)), Classification: "개발", Quantity: qty, StandardMD: 10}}
	return sheet.Payload{DevelopmentItems: &dev}
}

func TestCreate_FindOrCreateStandby(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	repo.add(domain.Estimation{ProjectID: 7, Version: 1, Status: domain.StatusCompleted})
	repo.add(domain.Estimation{ProjectID: 7, Version: 2, Status: domain.StatusCompleted})

	e, created, err := svc.Create(ctx, 7, "홍길동")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, e.Version)
	assert.Equal(t, domain.StatusStandby, e.Status)

	again, created, err := svc.Create(ctx, 7, "홍길동")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e.ID, again.ID)

	first, _, err := svc.Create(ctx, 8, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	_, _, err = svc.Create(ctx, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGet_NewEstimationUsesCatalogDefaults(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	e, _, err := svc.Create(ctx, 1, "")
	require.NoError(t, err)

	v, err := svc.Get(ctx, e.ID, ptr(int64(1)))
	require.NoError(t, err)
	assert.Equal(t, sheet.LoadDefaulted, v.Report.Development)
	assert.Len(t, *v.Payload.DevelopmentItems, 25)
	assert.True(t, v.Summary.Modeling3DUnselected)
	assert.Zero(t, v.Summary.Development.RawMD)

	_, err = svc.Get(ctx, e.ID, ptr(int64(2)))
	assert.ErrorIs(t, err, domain.ErrProjectMismatch)

	_, err = svc.Get(ctx, 999, nil)
	assert.ErrorIs(t, err, domain.ErrEstimationNotFound)
}

func TestGet_CatalogFailure(t *testing.T) {
	repo := newMemRepo()
	e := repo.add(domain.Estimation{ProjectID: 1, Status: domain.StatusStandby})
	boom := errors.New("catalog down")
	svc := NewEstimationService(repo, staticCatalog{err: boom}, &projectCalls{}, 21, nil)

	_, err := svc.Get(context.Background(), e.ID, nil)
	assert.ErrorIs(t, err, boom)
}

func TestUpdate_Lifecycle(t *testing.T) {
	svc, repo, projects := newTestService()
	ctx := context.Background()
	e, _, err := svc.Create(ctx, 1, "")
	require.NoError(t, err)

	t.Run("payload without status moves standby to in progress", func(t *testing.T) {
		v, err := svc.Update(ctx, e.ID, devPayload(3))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, v.Estimation.Status)
		assert.Equal(t, sheet.LoadReplaced, v.Report.Development)
		assert.InDelta(t, 30.0, v.Summary.Development.RawMD, 1e-9)

		stored, _ := repo.Get(ctx, e.ID)
		assert.InDelta(t, v.Summary.TotalMM, stored.TotalMM, 1e-9)
		require.NotNil(t, stored.MMCalculationBase)
		assert.Equal(t, 21.0, *stored.MMCalculationBase)
	})

	t.Run("project mismatch is rejected", func(t *testing.T) {
		p := devPayload(1)
		p.ProjectID = ptr(int64(99))
		_, err := svc.Update(ctx, e.ID, p)
		assert.ErrorIs(t, err, domain.ErrProjectMismatch)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, e.ID, sheet.Payload{Status: ptr("DONE")})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("bare status completes and updates the project", func(t *testing.T) {
		saves := repo.saves
		v, err := svc.Update(ctx, e.ID, sheet.Payload{Status: ptr(domain.StatusCompleted)})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, v.Estimation.Status)
		assert.Equal(t, saves, repo.saves, "status-only update keeps stored rows")
		assert.InDelta(t, 30.0, v.Summary.Development.RawMD, 1e-9)
		assert.Equal(t, []string{"md_estimation_completed/vrb"}, projects.calls)
	})

	t.Run("completed estimation is immutable", func(t *testing.T) {
		_, err := svc.Update(ctx, e.ID, devPayload(9))
		assert.ErrorIs(t, err, domain.ErrEstimationCompleted)
		_, err = svc.Update(ctx, e.ID, sheet.Payload{Status: ptr(domain.StatusInProgress)})
		assert.ErrorIs(t, err, domain.ErrEstimationCompleted)
		assert.ErrorIs(t, svc.Delete(ctx, e.ID, nil), domain.ErrEstimationCompleted)
	})

	t.Run("next estimation takes the next version", func(t *testing.T) {
		next, created, err := svc.Create(ctx, 1, "")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 2, next.Version)
	})
}

func TestUpdate_LastWriteWins(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	e, _, err := svc.Create(ctx, 1, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, q := range []calc.Number{2, 5} {
		wg.Add(1)
		go func(q calc.Number) {
			defer wg.Done()
			_, err := svc.Update(ctx, e.ID, devPayload(q))
			assert.NoError(t, err)
		}(q)
	}
	wg.Wait()

	v, err := svc.Get(ctx, e.ID, nil)
	require.NoError(t, err)
	got := v.Summary.Development.RawMD
	assert.True(t, got == 20 || got == 50, "one complete write survives, got %v", got)

	_, err = svc.Update(ctx, e.ID, devPayload(7))
	require.NoError(t, err)
	v, err = svc.Get(ctx, e.ID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, v.Summary.Development.RawMD, 1e-9)
}

func TestUpdate_ClearedDevelopmentSurvivesReload(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	e, _, err := svc.Create(ctx, 1, "")
	require.NoError(t, err)

	empty := []sheet.DevelopmentRecord{}
	_, err = svc.Update(ctx, e.ID, sheet.Payload{DevelopmentItems: &empty})
	require.NoError(t, err)

	v, err := svc.Get(ctx, e.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, sheet.LoadCleared, v.Report.Development)
	assert.Empty(t, *v.Payload.DevelopmentItems)
	assert.Len(t, *v.Payload.Modeling3DItems, 12)
}

func TestDelete(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	e := repo.add(domain.Estimation{ProjectID: 3, Status: domain.StatusInProgress})

	assert.ErrorIs(t, svc.Delete(ctx, e.ID, ptr(int64(4))), domain.ErrProjectMismatch)
	require.NoError(t, svc.Delete(ctx, e.ID, ptr(int64(3))))
	assert.ErrorIs(t, svc.Delete(ctx, e.ID, nil), domain.ErrEstimationNotFound)
}

func TestList_ValidatesStatus(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.add(domain.Estimation{ProjectID: 1, Status: domain.StatusCompleted})
	repo.add(domain.Estimation{ProjectID: 1, Status: domain.StatusStandby})

	got, err := svc.List(context.Background(), domain.ListFilter{Status: domain.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.List(context.Background(), domain.ListFilter{Status: "draft"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestRecalc(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	open := repo.add(domain.Estimation{ProjectID: 3, Version: 1, Status: domain.StatusInProgress})
	repo.payloads[open.ID] = devPayload(3)
	closed := repo.add(domain.Estimation{ProjectID: 3, Version: 2, Status: domain.StatusCompleted, TotalMM: 1.5})
	repo.add(domain.Estimation{ProjectID: 4, Version: 1, Status: domain.StatusInProgress})

	res, err := svc.Recalc(ctx, domain.ListFilter{ProjectID: ptr(int64(3))})
	require.NoError(t, err)
	assert.Equal(t, RecalcResult{Updated: 1, Skipped: 1}, res)

	v, err := svc.Get(ctx, open.ID, nil)
	require.NoError(t, err)
	stored, _ := repo.Get(ctx, open.ID)
	assert.Greater(t, stored.TotalMM, 0.0)
	assert.InDelta(t, v.Summary.TotalMM, stored.TotalMM, 1e-9)

	untouched, _ := repo.Get(ctx, closed.ID)
	assert.Equal(t, 1.5, untouched.TotalMM)
}

func TestUpdate_CompletedBetweenReadAndWrite(t *testing.T) {
	for name, p := range map[string]sheet.Payload{
		"payload":     devPayload(5),
		"bare status": {Status: ptr(domain.StatusInProgress)},
	} {
		t.Run(name, func(t *testing.T) {
			svc, repo, projects := newTestService()
			ctx := context.Background()
			e := repo.add(domain.Estimation{ProjectID: 2, Version: 1, Status: domain.StatusInProgress, TotalMM: 4})

			repo.afterGet = func(id int64) {
				repo.afterGet = nil
				repo.setStatus(id, domain.StatusCompleted)
			}

			_, err := svc.Update(ctx, e.ID, p)
			assert.ErrorIs(t, err, domain.ErrEstimationCompleted)

			stored, err := repo.Get(ctx, e.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCompleted, stored.Status)
			assert.Equal(t, 4.0, stored.TotalMM)
			assert.Empty(t, projects.calls)
		})
	}
}

func TestRecalc_SkipsRowCompletedMeanwhile(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	e := repo.add(domain.Estimation{ProjectID: 5, Version: 1, Status: domain.StatusInProgress})
	repo.payloads[e.ID] = devPayload(2)

	// List has already returned the row as in progress when it completes
	repo.setStatus(e.ID, domain.StatusCompleted)
	items := []domain.Estimation{{ID: e.ID, ProjectID: 5, Version: 1, Status: domain.StatusInProgress}}
	res, err := svc.recalcItems(ctx, items, DefaultsFromCatalog(seed.MustLoad(), 21))
	require.NoError(t, err)
	assert.Equal(t, RecalcResult{Skipped: 1}, res)
}
