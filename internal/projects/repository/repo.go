package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/wemb-pms/pms-backend/internal/projects/domain"
)

const maxCodeAttempts = 5

const projectColumns = `id, project_code, name, description, category_id, field_id, customer_id,
	manager_id, contract_start_date, contract_end_date, expected_amount, currency,
	status, current_phase, created_by, created_at, updated_at`

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p                              domain.Project
		code, desc                     sql.NullString
		category, field, customer, mgr sql.NullInt64
		createdBy                      sql.NullInt64
		start, end                     sql.NullTime
		amount                         decimal.NullDecimal
	)
	err := row.Scan(&p.ID, &code, &p.Name, &desc, &category, &field, &customer,
		&mgr, &start, &end, &amount, &p.Currency,
		&p.Status, &p.CurrentPhase, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if code.Valid {
		p.Code = &code.String
	}
	p.Description = desc.String
	p.CategoryID = ptrInt(category)
	p.FieldID = ptrInt(field)
	p.CustomerID = ptrInt(customer)
	p.ManagerID = ptrInt(mgr)
	p.CreatedBy = ptrInt(createdBy)
	if start.Valid {
		p.ContractStart = &start.Time
	}
	if end.Valid {
		p.ContractEnd = &end.Time
	}
	if amount.Valid {
		p.ExpectedAmount = &amount.Decimal
	}
	p.CurrentPhase = domain.ComputedPhase(p.Status, p.CurrentPhase)
	return &p, nil
}

func ptrInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a project. Without an explicit code the next code of the
// current year is generated; a concurrent insert that takes the same code is
// retried with the following one.
func (r *ProjectRepository) Create(ctx context.Context, in domain.CreateInput) (*domain.Project, error) {
	if in.Name == "" {
		return nil, domain.ErrNameRequired
	}
	if in.Currency == "" {
		in.Currency = domain.DefaultCurrency
	}
	if in.CurrentPhase == "" {
		in.CurrentPhase = domain.PhaseSales
	}

	if in.Code != "" {
		p, err := r.insert(ctx, in.Code, in)
		if isUniqueViolation(err) {
			return nil, domain.ErrCodeTaken
		}
		return p, err
	}

	year := r.now().Year()
	for i := 0; i < maxCodeAttempts; i++ {
		var last sql.NullString
		err := r.db.QueryRowContext(ctx, `
			SELECT project_code FROM projects
			WHERE project_code LIKE $1
			ORDER BY length(project_code) DESC, project_code DESC
			LIMIT 1`, domain.CodePrefix(year)+"%").Scan(&last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to read last project code: %w", err)
		}

		p, err := r.insert(ctx, domain.NextCode(year, last.String), in)
		if err == nil {
			return p, nil
		}
		// unique violation on project_code → retry
		if isUniqueViolation(err) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to generate unique project code")
}

func (r *ProjectRepository) insert(ctx context.Context, code string, in domain.CreateInput) (*domain.Project, error) {
	var amount decimal.NullDecimal
	if in.ExpectedAmount != nil {
		amount = decimal.NewNullDecimal(*in.ExpectedAmount)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO projects (
			project_code, name, description, category_id, field_id, customer_id,
			manager_id, contract_start_date, contract_end_date, expected_amount,
			currency, status, current_phase, created_by
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+projectColumns,
		code, in.Name, in.Description, in.CategoryID, in.FieldID, in.CustomerID,
		in.ManagerID, in.ContractStart, in.ContractEnd, amount,
		in.Currency, domain.StatusSalesOpportunity, in.CurrentPhase, in.CreatedBy)
	p, err := scanProject(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

// List returns non-deleted projects, newest first.
func (r *ProjectRepository) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE deleted_at IS NULL
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR project_code ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`, f.Search, f.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int64) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// Update applies a partial update. Nil fields keep their stored value.
func (r *ProjectRepository) Update(ctx context.Context, id int64, in domain.UpdateInput) (*domain.Project, error) {
	var amount decimal.NullDecimal
	if in.ExpectedAmount != nil {
		amount = decimal.NewNullDecimal(*in.ExpectedAmount)
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE projects SET
			project_code = COALESCE($2, project_code),
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			category_id = COALESCE($5, category_id),
			field_id = COALESCE($6, field_id),
			customer_id = COALESCE($7, customer_id),
			manager_id = COALESCE($8, manager_id),
			contract_start_date = COALESCE($9, contract_start_date),
			contract_end_date = COALESCE($10, contract_end_date),
			expected_amount = COALESCE($11, expected_amount),
			currency = COALESCE($12, currency),
			status = COALESCE($13, status),
			current_phase = COALESCE($14, current_phase),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+projectColumns,
		id, in.Code, in.Name, in.Description, in.CategoryID, in.FieldID, in.CustomerID,
		in.ManagerID, in.ContractStart, in.ContractEnd, amount,
		in.Currency, in.Status, in.CurrentPhase)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, domain.ErrCodeTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// SetStatusPhase moves a project along its lifecycle. An empty phase keeps
// the stored one.
func (r *ProjectRepository) SetStatusPhase(ctx context.Context, id int64, status, phase string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET status = $2, current_phase = COALESCE(NULLIF($3, ''), current_phase), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, status, phase)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SoftDelete marks a project as deleted.
func (r *ProjectRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
