package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

type Repo struct {
	db postgres.Querier
}

func NewRepo(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const columns = `id, name, parent_department_id, manager_id, coalesce(description, '') as description,
	display_order, created_at, updated_at`

func (r *Repo) List(ctx context.Context) ([]Department, error) {
	rows, err := r.db.Query(ctx, `select `+columns+` from we_departments order by display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Department])
}

func (r *Repo) Get(ctx context.Context, id int64) (*Department, error) {
	rows, err := r.db.Query(ctx, `select `+columns+` from we_departments where id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	d, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Department])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *Repo) Create(ctx context.Context, in CreateInput) (*Department, error) {
	const q = `
insert into we_departments (name, parent_department_id, manager_id, description, display_order)
values ($1, $2, $3, $4, $5)
returning ` + columns
	rows, err := r.db.Query(ctx, q, in.Name, in.ParentID, in.ManagerID, in.Description, in.DisplayOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	d, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Department])
	if postgres.IsForeignKeyViolation(err) {
		return nil, ErrInvalidParent
	}
	return d, err
}

func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (*Department, error) {
	const q = `
update we_departments set
  name = coalesce($2, name),
  parent_department_id = case when $3 then null else coalesce($4, parent_department_id) end,
  manager_id = case when $5 then null else coalesce($6, manager_id) end,
  description = coalesce($7, description),
  display_order = coalesce($8, display_order),
  updated_at = now()
where id = $1
returning ` + columns
	rows, err := r.db.Query(ctx, q, id, in.Name, in.ClearParent, in.ParentID,
		in.ClearManager, in.ManagerID, in.Description, in.DisplayOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}
	d, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Department])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case postgres.IsForeignKeyViolation(err):
		return nil, ErrInvalidParent
	}
	return d, err
}

// Delete removes a leaf department.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	var children int
	if err := r.db.QueryRow(ctx,
		`select count(*) from we_departments where parent_department_id = $1`, id).Scan(&children); err != nil {
		return fmt.Errorf("failed to check sub-departments: %w", err)
	}
	if children > 0 {
		return ErrHasChildren
	}
	tag, err := r.db.Exec(ctx, `delete from we_departments where id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
