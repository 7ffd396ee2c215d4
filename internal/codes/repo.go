package codes

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

const columns = `c.id, c.parent_id, c.code, c.name, coalesce(c.description, '') as description,
	c.display_order, c.is_active, c.is_system, c.created_at, c.updated_at`

func (r *Repo) List(ctx context.Context, f Filter) ([]Code, error) {
	const q = `
select ` + columns + `
from we_codes c
left join we_codes p on p.id = c.parent_id
where ($1 = '' or p.code = $1)
  and ($1 <> '' or not $2 or c.parent_id is null)
  and ($1 <> '' or $3::bigint is null or c.parent_id = $3)
  and ($4 or c.is_active)
order by c.display_order, c.name`
	rows, err := r.db.Query(ctx, q, f.ParentCode, f.RootOnly, f.ParentID, f.IncludeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Code])
}

func (r *Repo) Get(ctx context.Context, id int64) (*Code, error) {
	rows, err := r.db.Query(ctx, `select `+columns+` from we_codes c where c.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %w", err)
	}
	c, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Code])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Create inserts a code. Codes are unique per level; the
// we_codes_level_code index enforces it.
func (r *Repo) Create(ctx context.Context, in CreateInput) (*Code, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	const q = `
insert into we_codes as c (parent_id, code, name, description, display_order, is_active)
values ($1, $2, $3, $4, $5, $6)
returning ` + columns
	rows, err := r.db.Query(ctx, q, in.ParentID, in.Code, in.Name, in.Description, in.DisplayOrder, active)
	if err != nil {
		return nil, fmt.Errorf("failed to create code: %w", err)
	}
	c, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Code])
	switch {
	case postgres.IsUniqueViolation(err):
		return nil, ErrDuplicate
	case postgres.IsForeignKeyViolation(err):
		return nil, ErrInvalidParent
	}
	return c, err
}

func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (*Code, error) {
	const q = `
update we_codes as c set
  code = coalesce($2, c.code),
  name = coalesce($3, c.name),
  description = coalesce($4, c.description),
  display_order = coalesce($5, c.display_order),
  is_active = coalesce($6, c.is_active),
  updated_at = now()
where c.id = $1
returning ` + columns
	rows, err := r.db.Query(ctx, q, id, in.Code, in.Name, in.Description, in.DisplayOrder, in.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to update code: %w", err)
	}
	c, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Code])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case postgres.IsUniqueViolation(err):
		return nil, ErrDuplicate
	}
	return c, err
}

// Delete removes a non-system code.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	var system bool
	err := r.db.QueryRow(ctx, `select is_system from we_codes where id = $1`, id).Scan(&system)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}
	if system {
		return ErrSystemCode
	}
	if _, err := r.db.Exec(ctx, `delete from we_codes where id = $1`, id); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}
