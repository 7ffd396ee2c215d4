package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
	estdomain "github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

// Repo reads and seeds the md_* catalog tables.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Load reads the whole active catalog.
func (r *Repo) Load(ctx context.Context) (domain.Catalog, error) {
	var c domain.Catalog
	var err error

	if c.DevelopmentItems, err = r.developmentItems(ctx); err != nil {
		return c, fmt.Errorf("load development items: %w", err)
	}
	if c.Modeling3DRates, err = r.rates(ctx, "md_modeling_3d_rates"); err != nil {
		return c, fmt.Errorf("load 3d rates: %w", err)
	}
	if c.PIDRates, err = r.rates(ctx, "md_pid_rates"); err != nil {
		return c, fmt.Errorf("load pid rates: %w", err)
	}
	if c.Modeling3DWeights, err = r.weights(ctx, "md_modeling_3d_weights"); err != nil {
		return c, fmt.Errorf("load 3d weights: %w", err)
	}
	if c.PIDWeights, err = r.weights(ctx, "md_pid_weights"); err != nil {
		return c, fmt.Errorf("load pid weights: %w", err)
	}
	if c.DifficultyItems, err = r.difficulty(ctx, "md_difficulty_items"); err != nil {
		return c, fmt.Errorf("load difficulty items: %w", err)
	}
	if c.FieldDifficultyItems, err = r.difficulty(ctx, "md_field_difficulty_items"); err != nil {
		return c, fmt.Errorf("load field difficulty items: %w", err)
	}

	c.Normalize()
	return c, nil
}

func (r *Repo) developmentItems(ctx context.Context) ([]domain.DevelopmentItem, error) {
	const q = `
select id, classification, content, standard_md, display_order
from md_development_items
where is_active
order by display_order, id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DevelopmentItem, 0, 32)
	for rows.Next() {
		var it domain.DevelopmentItem
		if err := rows.Scan(&it.ID, &it.Classification, &it.Content, &it.StandardMD, &it.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) rates(ctx context.Context, table string) ([]domain.RateItem, error) {
	q := `
select id, category, coalesce(difficulty, ''), quantity, base_md, coalesce(remarks, ''), display_order
from ` + pgx.Identifier{table}.Sanitize() + `
where is_active
order by display_order, id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RateItem, 0, 16)
	for rows.Next() {
		var it domain.RateItem
		if err := rows.Scan(&it.ID, &it.Category, &it.Difficulty, &it.Quantity, &it.BaseMD, &it.Remarks, &it.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) weights(ctx context.Context, table string) ([]estdomain.WeightEntry, error) {
	q := `
select id, coalesce(item, ''), content, coalesce(weight, 0), coalesce(description, '')
from ` + pgx.Identifier{table}.Sanitize() + `
where is_active
order by display_order, id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]estdomain.WeightEntry, 0, 8)
	for rows.Next() {
		var w estdomain.WeightEntry
		if err := rows.Scan(&w.ID, &w.Item, &w.Content, &w.Weight, &w.Description); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) difficulty(ctx context.Context, table string) ([]estdomain.DifficultyItem, error) {
	q := `
select id, category, content, coalesce(description, ''), difficulty
from ` + pgx.Identifier{table}.Sanitize() + `
where is_active
order by display_order, id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]estdomain.DifficultyItem, 0, 48)
	for rows.Next() {
		var it estdomain.DifficultyItem
		if err := rows.Scan(&it.ID, &it.Category, &it.Content, &it.Description, &it.Difficulty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Upsert writes the catalog rows by id in a single transaction.
func (r *Repo) Upsert(ctx context.Context, c domain.Catalog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, it := range c.DevelopmentItems {
		b.Queue(`
insert into md_development_items (id, classification, content, standard_md, display_order, is_active)
values ($1, $2, $3, $4, $5, true)
on conflict (id) do update
set classification = excluded.classification, content = excluded.content,
    standard_md = excluded.standard_md, display_order = excluded.display_order, updated_at = now();
`, it.ID, it.Classification, it.Content, it.StandardMD, it.DisplayOrder)
	}
	queueRates(b, "md_modeling_3d_rates", c.Modeling3DRates)
	queueRates(b, "md_pid_rates", c.PIDRates)
	queueWeights(b, "md_modeling_3d_weights", c.Modeling3DWeights)
	queueWeights(b, "md_pid_weights", c.PIDWeights)
	queueDifficulty(b, "md_difficulty_items", c.DifficultyItems)
	queueDifficulty(b, "md_field_difficulty_items", c.FieldDifficultyItems)

	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	return tx.Commit(ctx)
}

func queueRates(b *pgx.Batch, table string, items []domain.RateItem) {
	q := `
insert into ` + pgx.Identifier{table}.Sanitize() + ` (id, category, difficulty, quantity, base_md, remarks, display_order, is_active)
values ($1, $2, $3, $4, $5, $6, $7, true)
on conflict (id) do update
set category = excluded.category, difficulty = excluded.difficulty, quantity = excluded.quantity,
    base_md = excluded.base_md, remarks = excluded.remarks, display_order = excluded.display_order, updated_at = now();
`
	for _, it := range items {
		b.Queue(q, it.ID, it.Category, it.Difficulty, it.Quantity, it.BaseMD, it.Remarks, it.DisplayOrder)
	}
}

func queueWeights(b *pgx.Batch, table string, items []estdomain.WeightEntry) {
	q := `
insert into ` + pgx.Identifier{table}.Sanitize() + ` (id, item, content, weight, description, display_order, is_active)
values ($1, $2, $3, $4, $5, $6, true)
on conflict (id) do update
set item = excluded.item, content = excluded.content, weight = excluded.weight,
    description = excluded.description, display_order = excluded.display_order, updated_at = now();
`
	for i, w := range items {
		b.Queue(q, w.ID, w.Item, w.Content, w.Weight, w.Description, i)
	}
}

func queueDifficulty(b *pgx.Batch, table string, items []estdomain.DifficultyItem) {
	q := `
insert into ` + pgx.Identifier{table}.Sanitize() + ` (id, category, content, description, difficulty, display_order, is_active)
values ($1, $2, $3, $4, $5, $6, true)
on conflict (id) do update
set category = excluded.category, content = excluded.content, description = excluded.description,
    difficulty = excluded.difficulty, display_order = excluded.display_order, updated_at = now();
`
	for i, it := range items {
		b.Queue(q, it.ID, it.Category, it.Content, it.Description, it.Difficulty, i)
	}
}
