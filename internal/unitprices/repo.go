package unitprices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

type Repo struct {
	db postgres.Querier
}

func NewRepo(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const columns = `id, affiliation_group, job_group, job_level, grade, year,
	proposed_standard, proposed_applied, proposed_discount_rate,
	internal_applied, internal_increase_rate, is_active, display_order, created_at, updated_at`

// seriesKey identifies one grade across years.
type seriesKey struct {
	group, jobGroup, jobLevel, grade string
}

func (r *Repo) List(ctx context.Context, f Filter) ([]UnitPrice, error) {
	const q = `
select ` + columns + `
from we_unit_prices
where ($1::int is null or year = $1)
  and ($2 = '' or affiliation_group = $2)
  and ($3::boolean is null or is_active = $3)
order by
  case affiliation_group
    when '위엠비_컨설팅' then 1
    when '위엠비_개발' then 2
    when '외주_컨설팅' then 3
    when '외주_개발' then 4
    else 5
  end,
  year desc, job_group, job_level, grade, display_order, id`
	rows, err := r.db.Query(ctx, q, f.Year, f.AffiliationGroup, f.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit prices: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[UnitPrice])
}

func (r *Repo) Get(ctx context.Context, id int64) (*UnitPrice, error) {
	return get(ctx, r.db, id)
}

func get(ctx context.Context, q postgres.Querier, id int64) (*UnitPrice, error) {
	rows, err := q.Query(ctx, `select `+columns+` from we_unit_prices where id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get unit price: %w", err)
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[UnitPrice])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Create inserts a price and re-derives the increase rates of its series.
func (r *Repo) Create(ctx context.Context, in Input) (*UnitPrice, error) {
	active, order := true, 0
	if in.IsActive != nil {
		active = *in.IsActive
	}
	if in.DisplayOrder != nil {
		order = *in.DisplayOrder
	}

	var out *UnitPrice
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
insert into we_unit_prices (
  affiliation_group, job_group, job_level, grade, year,
  proposed_standard, proposed_applied, proposed_discount_rate, internal_applied,
  is_active, display_order
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
returning id;
`
		var id int64
		if err := tx.QueryRow(ctx, q, in.AffiliationGroup, in.JobGroup, in.JobLevel, in.Grade, in.Year,
			in.ProposedStandard, in.ProposedApplied, in.ProposedDiscountRate, in.InternalApplied,
			active, order).Scan(&id); err != nil {
			return err
		}
		k := seriesKey{*in.AffiliationGroup, *in.JobGroup, *in.JobLevel, *in.Grade}
		if err := recompute(ctx, tx, k); err != nil {
			return err
		}
		p, err := get(ctx, tx, id)
		out = p
		return err
	})
	if err != nil {
		return nil, mapWriteError(err, "create")
	}
	return out, nil
}

// Update applies a partial update. When the row moves to another series
// both the old and the new series are re-derived.
func (r *Repo) Update(ctx context.Context, id int64, in Input) (*UnitPrice, error) {
	var out *UnitPrice
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var before seriesKey
		err := tx.QueryRow(ctx, `
select affiliation_group, job_group, job_level, grade
from we_unit_prices where id = $1 for update`, id).
			Scan(&before.group, &before.jobGroup, &before.jobLevel, &before.grade)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		const q = `
update we_unit_prices set
  affiliation_group = coalesce($2, affiliation_group),
  job_group = coalesce($3, job_group),
  job_level = coalesce($4, job_level),
  grade = coalesce($5, grade),
  year = coalesce($6, year),
  proposed_standard = coalesce($7, proposed_standard),
  proposed_applied = coalesce($8, proposed_applied),
  proposed_discount_rate = coalesce($9, proposed_discount_rate),
  internal_applied = coalesce($10, internal_applied),
  is_active = coalesce($11, is_active),
  display_order = coalesce($12, display_order),
  updated_at = now()
where id = $1
returning affiliation_group, job_group, job_level, grade;
`
		var after seriesKey
		if err := tx.QueryRow(ctx, q, id, in.AffiliationGroup, in.JobGroup, in.JobLevel, in.Grade, in.Year,
			in.ProposedStandard, in.ProposedApplied, in.ProposedDiscountRate, in.InternalApplied,
			in.IsActive, in.DisplayOrder).
			Scan(&after.group, &after.jobGroup, &after.jobLevel, &after.grade); err != nil {
			return err
		}

		if err := recompute(ctx, tx, after); err != nil {
			return err
		}
		if after != before {
			if err := recompute(ctx, tx, before); err != nil {
				return err
			}
		}
		p, err := get(ctx, tx, id)
		out = p
		return err
	})
	if err != nil {
		return nil, mapWriteError(err, "update")
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var k seriesKey
		err := tx.QueryRow(ctx, `
delete from we_unit_prices where id = $1
returning affiliation_group, job_group, job_level, grade`, id).
			Scan(&k.group, &k.jobGroup, &k.jobLevel, &k.grade)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return recompute(ctx, tx, k)
	})
	if err != nil {
		return mapWriteError(err, "delete")
	}
	return nil
}

// CopyYear replaces the target year's table with a copy of the source year
// and returns the number of copied rows.
func (r *Repo) CopyYear(ctx context.Context, source, target int) (int64, error) {
	if source == target {
		return 0, ErrSameYear
	}
	var n int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `delete from we_unit_prices where year = $1`, target); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
insert into we_unit_prices (
  affiliation_group, job_group, job_level, grade, year,
  proposed_standard, proposed_applied, proposed_discount_rate, internal_applied,
  internal_increase_rate, is_active, display_order
)
select affiliation_group, job_group, job_level, grade, $1,
  proposed_standard, proposed_applied, proposed_discount_rate, internal_applied,
  internal_increase_rate, is_active, display_order
from we_unit_prices
where year = $2`, target, source)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()

		rows, err := tx.Query(ctx, `
select distinct affiliation_group, job_group, job_level, grade
from we_unit_prices where year = $1`, target)
		if err != nil {
			return err
		}
		keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (seriesKey, error) {
			var k seriesKey
			err := row.Scan(&k.group, &k.jobGroup, &k.jobLevel, &k.grade)
			return k, err
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := recompute(ctx, tx, k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy unit prices: %w", err)
	}
	return n, nil
}

// recompute re-derives the increase rate of every year in the series.
func recompute(ctx context.Context, tx pgx.Tx, k seriesKey) error {
	rows, err := tx.Query(ctx, `
select id, year, internal_applied
from we_unit_prices
where affiliation_group = $1 and job_group = $2 and job_level = $3 and grade = $4`,
		k.group, k.jobGroup, k.jobLevel, k.grade)
	if err != nil {
		return err
	}
	series, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (yearPoint, error) {
		var p yearPoint
		err := row.Scan(&p.ID, &p.Year, &p.Internal)
		return p, err
	})
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for id, rate := range chainRates(series) {
		b.Queue(`update we_unit_prices set internal_increase_rate = $2 where id = $1`, id, rateArg(rate))
	}
	return tx.SendBatch(ctx, b).Close()
}

func rateArg(r *decimal.Decimal) any {
	if r == nil {
		return nil
	}
	return *r
}

func mapWriteError(err error, op string) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("failed to %s unit price: %w", op, err)
}
