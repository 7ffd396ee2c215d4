package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/sheet"
	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

// Repo persists estimations in md_estimations and its child tables.
type Repo struct {
	db postgres.Querier
}

func NewRepo(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const headerColumns = `
id, project_id, version, status,
common_difficulty_sum, field_difficulty_sum, project_difficulty,
total_development_md, total_modeling_3d_md, total_pid_md,
total_development_mm, total_modeling_3d_mm, total_pid_mm, total_mm,
selected_modeling_3d_weight_id, selected_pid_weight_id, mm_calculation_base,
coalesce(created_by, ''), created_at, updated_at`

func scanHeader(row pgx.Row) (*domain.Estimation, error) {
	var e domain.Estimation
	err := row.Scan(
		&e.ID, &e.ProjectID, &e.Version, &e.Status,
		&e.CommonDifficultySum, &e.FieldDifficultySum, &e.ProjectDifficulty,
		&e.TotalDevelopmentMD, &e.TotalModeling3DMD, &e.TotalPIDMD,
		&e.TotalDevelopmentMM, &e.TotalModeling3DMM, &e.TotalPIDMM, &e.TotalMM,
		&e.SelectedModeling3D, &e.SelectedPID, &e.MMCalculationBase,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEstimationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*domain.Estimation, error) {
	q := `select ` + headerColumns + ` from md_estimations where id = $1;`
	return scanHeader(r.db.QueryRow(ctx, q, id))
}

func (r *Repo) List(ctx context.Context, f domain.ListFilter) ([]domain.Estimation, error) {
	q := `select ` + headerColumns + `
from md_estimations
where ($1::bigint is null or project_id = $1)
  and ($2 = '' or status = $2)
order by project_id, version desc, id desc;`

	rows, err := r.db.Query(ctx, q, f.ProjectID, f.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Estimation, 0, 16)
	for rows.Next() {
		e, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// FindStandby returns the project's STANDBY estimation.
func (r *Repo) FindStandby(ctx context.Context, projectID int64) (*domain.Estimation, error) {
	q := `select ` + headerColumns + `
from md_estimations
where project_id = $1 and status = 'STANDBY'
order by id desc
limit 1;`
	return scanHeader(r.db.QueryRow(ctx, q, projectID))
}

// CreateStandby inserts a STANDBY estimation numbered after the latest
// completed version. A concurrent insert for the same project loses on the
// partial unique index and reads back the winner.
func (r *Repo) CreateStandby(ctx context.Context, projectID int64, createdBy string) (*domain.Estimation, bool, error) {
	const q = `
insert into md_estimations (project_id, version, status, created_by)
select $1, coalesce(max(version) filter (where status = 'COMPLETED'), 0) + 1, 'STANDBY', nullif($2, '')
from md_estimations
where project_id = $1
returning ` + headerColumns + `;`

	for i := 0; i < 3; i++ {
		e, err := scanHeader(r.db.QueryRow(ctx, q, projectID, createdBy))
		if err == nil {
			return e, true, nil
		}

		// unique violation on the standby index → someone else created it
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, ferr := r.FindStandby(ctx, projectID)
			if ferr == nil {
				return existing, false, nil
			}
			if errors.Is(ferr, domain.ErrEstimationNotFound) {
				continue
			}
			return nil, false, ferr
		}
		return nil, false, err
	}
	return nil, false, fmt.Errorf("failed to create standby estimation")
}

// UpdateStatus changes only the status. A completed estimation is never
// touched.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, status string) error {
	const q = `update md_estimations set status = $2, updated_at = now() where id = $1 and status <> 'COMPLETED';`
	ct, err := r.db.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return missReason(ctx, r.db, id)
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// missReason explains a guarded write that matched no row.
func missReason(ctx context.Context, q rowQuerier, id int64) error {
	var status string
	err := q.QueryRow(ctx, `select status from md_estimations where id = $1;`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrEstimationNotFound
	}
	if err != nil {
		return err
	}
	if domain.IsTerminal(status) {
		return domain.ErrEstimationCompleted
	}
	return domain.ErrEstimationNotFound
}

// Save writes the header and replaces every child row in one transaction.
// The update only matches while the stored row is not completed.
func (r *Repo) Save(ctx context.Context, e *domain.Estimation, p sheet.Payload) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	weightTable, err := jsonOrNull(p.WeightTable)
	if err != nil {
		return err
	}
	pidWeightTable, err := jsonOrNull(p.PIDWeightTable)
	if err != nil {
		return err
	}
	fieldCategories, err := jsonOrNull(p.FieldCategories)
	if err != nil {
		return err
	}

	const q = `
update md_estimations set
  status = $2,
  common_difficulty_sum = $3, field_difficulty_sum = $4, project_difficulty = $5,
  total_development_md = $6, total_modeling_3d_md = $7, total_pid_md = $8,
  total_development_mm = $9, total_modeling_3d_mm = $10, total_pid_mm = $11, total_mm = $12,
  selected_modeling_3d_weight_id = $13, selected_pid_weight_id = $14, mm_calculation_base = $15,
  weight_table = $16, pid_weight_table = $17, field_categories = $18,
  updated_at = now()
where id = $1 and status <> 'COMPLETED'
returning updated_at;`

	err = tx.QueryRow(ctx, q,
		e.ID, e.Status,
		e.CommonDifficultySum, e.FieldDifficultySum, e.ProjectDifficulty,
		e.TotalDevelopmentMD, e.TotalModeling3DMD, e.TotalPIDMD,
		e.TotalDevelopmentMM, e.TotalModeling3DMM, e.TotalPIDMM, e.TotalMM,
		e.SelectedModeling3D, e.SelectedPID, e.MMCalculationBase,
		weightTable, pidWeightTable, fieldCategories,
	).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return missReason(ctx, tx, e.ID)
	}
	if err != nil {
		return fmt.Errorf("update estimation: %w", err)
	}

	b := &pgx.Batch{}
	for _, t := range childTables {
		b.Queue(`delete from `+pgx.Identifier{t}.Sanitize()+` where md_estimation_id = $1;`, e.ID)
	}
	queueChildren(b, e.ID, p)

	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("replace estimation rows: %w", err)
	}
	return tx.Commit(ctx)
}

// Delete removes the estimation unless it is completed; child rows cascade.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `delete from md_estimations where id = $1 and status <> 'COMPLETED';`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return missReason(ctx, r.db, id)
	}
	return nil
}

// Payload reads the stored rows back in payload form. An estimation that was
// never saved has no collections at all, so the catalog defaults apply.
// Once saved, a collection with no rows comes back present and empty.
func (r *Repo) Payload(ctx context.Context, id int64) (sheet.Payload, error) {
	var (
		p                      sheet.Payload
		weightTable, pidTable  []byte
		fieldCategories        []byte
		selected3D, selectedPD *int64
		mmBase                 *float64
	)

	const hq = `
select weight_table, pid_weight_table, field_categories,
       selected_modeling_3d_weight_id, selected_pid_weight_id, mm_calculation_base
from md_estimations where id = $1;`
	err := r.db.QueryRow(ctx, hq, id).Scan(&weightTable, &pidTable, &fieldCategories, &selected3D, &selectedPD, &mmBase)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, domain.ErrEstimationNotFound
	}
	if err != nil {
		return p, err
	}

	p.SelectedModeling3DWeightID = sheet.SetID(selected3D)
	p.SelectedPIDWeightID = sheet.SetID(selectedPD)
	if mmBase != nil {
		n := calc.Number(*mmBase)
		p.MMCalculationBase = &n
	}
	if weightTable == nil {
		return p, nil
	}

	if p.WeightTable, err = decodeOptional[domain.WeightEntry](weightTable); err != nil {
		return p, err
	}
	if p.PIDWeightTable, err = decodeOptional[domain.WeightEntry](pidTable); err != nil {
		return p, err
	}
	if p.FieldCategories, err = decodeOptional[string](fieldCategories); err != nil {
		return p, err
	}

	if err := r.loadChildren(ctx, id, &p); err != nil {
		return p, err
	}
	return p, nil
}

func jsonOrNull[T any](v *[]T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(*v)
}

func decodeOptional[T any](raw []byte) (*[]T, error) {
	if raw == nil {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode stored json: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return &out, nil
}
