package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

type Repo struct {
	db postgres.Querier
}

func NewRepo(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const selectUsers = `
select
  u.id, u.username, u.name, u.email, u.employee_number, u.phone,
  u.department_id, d.name as department_name,
  u.rank_id, rk.name as rank_name,
  u.grade, u.title, u.status, u.contract_type, u.joined_date, u.resignation_date,
  coalesce(
    json_agg(json_build_object('id', ur.role_id, 'name', r.name, 'is_primary', ur.is_primary)
      order by ur.is_primary desc, r.name)
      filter (where ur.role_id is not null),
    '[]'::json
  ) as roles
from we_users u
left join we_departments d on d.id = u.department_id
left join we_codes rk on rk.id = u.rank_id
left join we_user_roles ur on ur.user_id = u.id
left join we_codes r on r.id = ur.role_id
`

const groupUsers = `group by u.id, d.name, rk.name, rk.display_order`

// List orders users by department, then rank, then name.
func (r *Repo) List(ctx context.Context, f Filter) ([]User, error) {
	q := selectUsers + `
where ($1 = '' or u.name ilike '%' || $1 || '%' or u.email ilike '%' || $1 || '%')
  and ($2 = '' or exists (
    select 1 from we_user_roles ur2 join we_codes r2 on r2.id = ur2.role_id
    where ur2.user_id = u.id and r2.name = $2))
  and ($3::bigint is null or u.department_id = $3)
` + groupUsers + `
order by d.name nulls last, coalesce(rk.display_order, 999), u.name`
	rows, err := r.db.Query(ctx, q, strings.TrimSpace(f.Search), f.Role, f.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[User])
}

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	return r.get(ctx, r.db, id)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repo) get(ctx context.Context, q queryer, id int64) (*User, error) {
	rows, err := q.Query(ctx, selectUsers+`where u.id = $1 `+groupUsers, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// Create inserts the user and its roles in one transaction.
func (r *Repo) Create(ctx context.Context, in Input) (*User, error) {
	status := StatusActive
	if in.Status != nil {
		status = *in.Status
	}
	var out *User
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
insert into we_users (
  username, name, email, employee_number, phone, department_id, rank_id,
  grade, title, status, contract_type, joined_date, resignation_date
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
returning id;
`
		var id int64
		if err := tx.QueryRow(ctx, q, in.Username, in.Name, in.Email, in.EmployeeNumber, in.Phone,
			in.DepartmentID, in.RankID, in.Grade, in.Title, status, in.ContractType,
			in.JoinedDate, in.ResignationDate).Scan(&id); err != nil {
			return err
		}
		if err := replaceRoles(ctx, tx, id, in.RoleIDs); err != nil {
			return err
		}
		u, err := r.get(ctx, tx, id)
		out = u
		return err
	})
	if err != nil {
		return nil, mapWriteError(err, "create")
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, id int64, in Input) (*User, error) {
	var out *User
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
update we_users set
  username = coalesce($2, username),
  name = coalesce($3, name),
  email = coalesce($4, email),
  employee_number = coalesce($5, employee_number),
  phone = coalesce($6, phone),
  department_id = coalesce($7, department_id),
  rank_id = coalesce($8, rank_id),
  grade = coalesce($9, grade),
  title = coalesce($10, title),
  status = coalesce($11, status),
  contract_type = coalesce($12, contract_type),
  joined_date = coalesce($13, joined_date),
  resignation_date = coalesce($14, resignation_date),
  updated_at = now()
where id = $1;
`
		tag, err := tx.Exec(ctx, q, id, in.Username, in.Name, in.Email, in.EmployeeNumber, in.Phone,
			in.DepartmentID, in.RankID, in.Grade, in.Title, in.Status, in.ContractType,
			in.JoinedDate, in.ResignationDate)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if in.RoleIDs != nil {
			if err := replaceRoles(ctx, tx, id, in.RoleIDs); err != nil {
				return err
			}
		}
		u, err := r.get(ctx, tx, id)
		out = u
		return err
	})
	if err != nil {
		return nil, mapWriteError(err, "update")
	}
	return out, nil
}

func replaceRoles(ctx context.Context, tx pgx.Tx, userID int64, roleIDs []int64) error {
	if _, err := tx.Exec(ctx, `delete from we_user_roles where user_id = $1`, userID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		_, err := tx.Exec(ctx, `update we_users set role_id = null where id = $1`, userID)
		return err
	}

	b := &pgx.Batch{}
	for i, rid := range roleIDs {
		b.Queue(`insert into we_user_roles (user_id, role_id, is_primary) values ($1, $2, $3)`, userID, rid, i == 0)
	}
	// primary role mirrored on we_users for older readers
	b.Queue(`update we_users set role_id = $2 where id = $1`, userID, roleIDs[0])
	return tx.SendBatch(ctx, b).Close()
}

func mapWriteError(err error, op string) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if postgres.IsUniqueViolation(err) {
		if strings.Contains(postgres.ConstraintName(err), "email") {
			return ErrEmailTaken
		}
		return ErrUsernameTaken
	}
	return fmt.Errorf("failed to %s user: %w", op, err)
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `delete from we_users where id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
