package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/sheet"
)

var childTables = []string{
	"md_estimation_difficulties",
	"md_estimation_development_items",
	"md_estimation_modeling_3d_items",
	"md_estimation_pid_items",
}

func queueChildren(b *pgx.Batch, estimationID int64, p sheet.Payload) {
	if p.Difficulties != nil {
		for _, d := range *p.Difficulties {
			b.Queue(`
insert into md_estimation_difficulties (md_estimation_id, difficulty_item_id, field_difficulty_item_id, selected_difficulty)
values ($1, $2, $3, $4);`,
				estimationID, d.DifficultyItemID, d.FieldDifficultyItemID, d.SelectedDifficulty)
		}
	}

	if p.DevelopmentItems != nil {
		for _, it := range *p.DevelopmentItems {
			b.Queue(`
insert into md_estimation_development_items
  (md_estimation_id, development_item_id, local_id, classification, content, quantity, standard_md, calculated_md, remarks, display_order)
values ($1, $2, nullif($3, ''), $4, $5, $6, $7, $8, $9, $10);`,
				estimationID, it.DevelopmentItemID, it.LocalID, it.Classification, it.Content,
				it.Quantity.Float(), it.StandardMD.Float(), it.CalculatedMD.Float(), it.Remarks, it.DisplayOrder)
		}
	}

	if p.Modeling3DItems != nil {
		for _, it := range *p.Modeling3DItems {
			b.Queue(`
insert into md_estimation_modeling_3d_items
  (md_estimation_id, modeling_3d_item_id, local_id, category, content, difficulty, quantity, base_md, calculated_md, remarks, display_order)
values ($1, $2, nullif($3, ''), $4, $5, $6, $7, $8, $9, $10, $11);`,
				estimationID, it.Modeling3DItemID, it.LocalID, it.Category, it.Content, it.Difficulty,
				it.Quantity.Float(), it.BaseMD.Float(), it.CalculatedMD.Float(), it.Remarks, it.DisplayOrder)
		}
	}

	if p.PIDItems != nil {
		for _, it := range *p.PIDItems {
			b.Queue(`
insert into md_estimation_pid_items
  (md_estimation_id, pid_item_id, local_id, category, content, quantity, base_md, calculated_md, remarks, display_order)
values ($1, $2, nullif($3, ''), $4, $5, $6, $7, $8, $9, $10);`,
				estimationID, it.PIDItemID, it.LocalID, it.Category, it.Content,
				it.Quantity.Float(), it.BaseMD.Float(), it.CalculatedMD.Float(), it.Remarks, it.DisplayOrder)
		}
	}
}

func (r *Repo) loadChildren(ctx context.Context, id int64, p *sheet.Payload) error {
	diffs, err := r.difficulties(ctx, id)
	if err != nil {
		return err
	}
	p.Difficulties = &diffs

	dev, err := r.developmentItems(ctx, id)
	if err != nil {
		return err
	}
	p.DevelopmentItems = &dev

	m3, err := r.modeling3DItems(ctx, id)
	if err != nil {
		return err
	}
	p.Modeling3DItems = &m3

	pid, err := r.pidItems(ctx, id)
	if err != nil {
		return err
	}
	p.PIDItems = &pid
	return nil
}

func (r *Repo) difficulties(ctx context.Context, id int64) ([]sheet.DifficultyRecord, error) {
	const q = `
select difficulty_item_id, field_difficulty_item_id, selected_difficulty
from md_estimation_difficulties
where md_estimation_id = $1
order by id;`
	rows, err := r.db.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sheet.DifficultyRecord, 0, 48)
	for rows.Next() {
		var d sheet.DifficultyRecord
		if err := rows.Scan(&d.DifficultyItemID, &d.FieldDifficultyItemID, &d.SelectedDifficulty); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) developmentItems(ctx context.Context, id int64) ([]sheet.DevelopmentRecord, error) {
	const q = `
select development_item_id, coalesce(local_id, ''), coalesce(classification, ''), coalesce(content, ''),
       quantity, standard_md, calculated_md, coalesce(remarks, ''), display_order
from md_estimation_development_items
where md_estimation_id = $1
order by display_order, id;`
	rows, err := r.db.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sheet.DevelopmentRecord, 0, 32)
	for rows.Next() {
		var (
			it               sheet.DevelopmentRecord
			qty, std, calced float64
		)
		if err := rows.Scan(&it.DevelopmentItemID, &it.LocalID, &it.Classification, &it.Content,
			&qty, &std, &calced, &it.Remarks, &it.DisplayOrder); err != nil {
			return nil, err
		}
		it.Quantity, it.StandardMD, it.CalculatedMD = calc.Number(qty), calc.Number(std), calc.Number(calced)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) modeling3DItems(ctx context.Context, id int64) ([]sheet.Modeling3DRecord, error) {
	const q = `
select modeling_3d_item_id, coalesce(local_id, ''), coalesce(category, ''), coalesce(content, ''), coalesce(difficulty, ''),
       quantity, base_md, calculated_md, coalesce(remarks, ''), display_order
from md_estimation_modeling_3d_items
where md_estimation_id = $1
order by display_order, id;`
	rows, err := r.db.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sheet.Modeling3DRecord, 0, 16)
	for rows.Next() {
		var (
			it                sheet.Modeling3DRecord
			qty, base, calced float64
		)
		if err := rows.Scan(&it.Modeling3DItemID, &it.LocalID, &it.Category, &it.Content, &it.Difficulty,
			&qty, &base, &calced, &it.Remarks, &it.DisplayOrder); err != nil {
			return nil, err
		}
		it.Quantity, it.BaseMD, it.CalculatedMD = calc.Number(qty), calc.Number(base), calc.Number(calced)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) pidItems(ctx context.Context, id int64) ([]sheet.PIDRecord, error) {
	const q = `
select pid_item_id, coalesce(local_id, ''), coalesce(category, ''), coalesce(content, ''),
       quantity, base_md, calculated_md, coalesce(remarks, ''), display_order
from md_estimation_pid_items
where md_estimation_id = $1
order by display_order, id;`
	rows, err := r.db.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sheet.PIDRecord, 0, 8)
	for rows.Next() {
		var (
			it                sheet.PIDRecord
			qty, base, calced float64
		)
		if err := rows.Scan(&it.PIDItemID, &it.LocalID, &it.Category, &it.Content,
			&qty, &base, &calced, &it.Remarks, &it.DisplayOrder); err != nil {
			return nil, err
		}
		it.Quantity, it.BaseMD, it.CalculatedMD = calc.Number(qty), calc.Number(base), calc.Number(calced)
		out = append(out, it)
	}
	return out, rows.Err()
}
