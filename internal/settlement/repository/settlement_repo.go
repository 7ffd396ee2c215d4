package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
)

const settlementColumns = `id, project_id, status,
	planned_revenue, planned_cost, planned_labor_cost, planned_other_cost,
	planned_profit, planned_profit_rate, planned_svc_mm_own, planned_svc_mm_ext,
	actual_revenue, actual_cost, actual_labor_cost, actual_other_cost,
	actual_prod_rev_own, actual_prod_rev_ext, actual_svc_rev_own, actual_svc_rev_ext,
	actual_prod_cost_own, actual_prod_cost_ext, actual_svc_cost_own, actual_svc_cost_ext,
	actual_svc_mm_own, actual_svc_mm_ext, actual_expense_general, actual_expense_special,
	notes, created_by, created_at, updated_at`

const uniqueViolation = "23505"

// SettlementRepository persists a project's settlement with its labor and
// external company rows.
type SettlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func scanSettlement(row rowScanner) (*domain.Settlement, error) {
	var s domain.Settlement
	var notes sql.NullString
	var createdBy sql.NullInt64
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Status,
		&s.Planned.Revenue, &s.Planned.Cost, &s.Planned.LaborCost, &s.Planned.OtherCost,
		&s.Planned.Profit, &s.Planned.ProfitRate, &s.Planned.SvcMMOwn, &s.Planned.SvcMMExt,
		&s.ActualRevenue, &s.ActualCost, &s.ActualLaborCost, &s.ActualOtherCost,
		&s.ProdRevOwn, &s.ProdRevExt, &s.SvcRevOwn, &s.SvcRevExt,
		&s.ProdCostOwn, &s.ProdCostExt, &s.SvcCostOwn, &s.SvcCostExt,
		&s.Actuals.SvcMMOwn, &s.Actuals.SvcMMExt, &s.ExpenseGeneral, &s.ExpenseSpecial,
		&notes, &createdBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Notes = notes.String
	if createdBy.Valid {
		id := createdBy.Int64
		s.CreatedBy = &id
	}
	return &s, nil
}

// GetByProject returns the project's settlement or ErrSettlementNotFound.
func (r *SettlementRepository) GetByProject(ctx context.Context, projectID int64) (*domain.Settlement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+settlementColumns+`
		FROM project_settlement
		WHERE project_id = $1`, projectID)
	s, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSettlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

// Create inserts a draft settlement. A second settlement for the same project
// violates the unique index and is reported as ErrSettlementExists.
func (r *SettlementRepository) Create(ctx context.Context, s *domain.Settlement) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO project_settlement (
			project_id, status,
			planned_revenue, planned_cost, planned_labor_cost, planned_other_cost,
			planned_profit, planned_profit_rate, planned_svc_mm_own, planned_svc_mm_ext,
			notes, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		s.ProjectID, s.Status,
		s.Planned.Revenue, s.Planned.Cost, s.Planned.LaborCost, s.Planned.OtherCost,
		s.Planned.Profit, s.Planned.ProfitRate, s.Planned.SvcMMOwn, s.Planned.SvcMMExt,
		s.Notes, nullInt(s.CreatedBy))
	err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrSettlementExists
	}
	if err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	return nil
}

// Save updates the header and replaces the labor and external company rows in
// one transaction. A settlement stored as completed is never overwritten.
func (r *SettlementRepository) Save(ctx context.Context, s *domain.Settlement, labor []domain.LaborItem, ext []domain.ExtCompanyItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE project_settlement SET
			status = $2,
			planned_revenue = $3, planned_cost = $4, planned_labor_cost = $5, planned_other_cost = $6,
			planned_profit = $7, planned_profit_rate = $8, planned_svc_mm_own = $9, planned_svc_mm_ext = $10,
			actual_revenue = $11, actual_cost = $12, actual_labor_cost = $13, actual_other_cost = $14,
			actual_prod_rev_own = $15, actual_prod_rev_ext = $16, actual_svc_rev_own = $17, actual_svc_rev_ext = $18,
			actual_prod_cost_own = $19, actual_prod_cost_ext = $20, actual_svc_cost_own = $21, actual_svc_cost_ext = $22,
			actual_svc_mm_own = $23, actual_svc_mm_ext = $24, actual_expense_general = $25, actual_expense_special = $26,
			notes = $27, updated_at = NOW()
		WHERE id = $1 AND status <> 'completed'
		RETURNING updated_at`,
		s.ID, s.Status,
		s.Planned.Revenue, s.Planned.Cost, s.Planned.LaborCost, s.Planned.OtherCost,
		s.Planned.Profit, s.Planned.ProfitRate, s.Planned.SvcMMOwn, s.Planned.SvcMMExt,
		s.ActualRevenue, s.ActualCost, s.ActualLaborCost, s.ActualOtherCost,
		s.ProdRevOwn, s.ProdRevExt, s.SvcRevOwn, s.SvcRevExt,
		s.ProdCostOwn, s.ProdCostExt, s.SvcCostOwn, s.SvcCostExt,
		s.Actuals.SvcMMOwn, s.Actuals.SvcMMExt, s.ExpenseGeneral, s.ExpenseSpecial,
		s.Notes,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return settlementMiss(ctx, tx, s.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update settlement: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_settlement_labor WHERE settlement_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear labor rows: %w", err)
	}
	for i, it := range labor {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO project_settlement_labor (
				settlement_id, user_id, user_name, role, planned_mm, planned_cost,
				actual_mm, actual_cost, display_order
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.ID, nullInt(it.UserID), it.UserName, it.Role, it.PlannedMM, it.PlannedCost,
			it.ActualMM, it.ActualCost, i)
		if err != nil {
			return fmt.Errorf("failed to insert labor row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_settlement_ext_company WHERE settlement_id = $1`, s.ID); err != nil {
		return fmt.Errorf("failed to clear ext company rows: %w", err)
	}
	for i, it := range ext {
		planMM, planAmt, execMM, execAmt, err := encodeExtMonths(it)
		if err != nil {
			return fmt.Errorf("failed to encode ext company row: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO project_settlement_ext_company (
				settlement_id, company_name, role1, role2,
				plan_mm, plan_amt, exec_mm, exec_amt, display_order
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.ID, it.CompanyName, it.Role1, it.Role2, planMM, planAmt, execMM, execAmt, i)
		if err != nil {
			return fmt.Errorf("failed to insert ext company row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

func (r *SettlementRepository) Labor(ctx context.Context, settlementID int64) ([]domain.LaborItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, role, planned_mm, planned_cost, actual_mm, actual_cost, display_order
		FROM project_settlement_labor
		WHERE settlement_id = $1
		ORDER BY display_order, id`, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load labor rows: %w", err)
	}
	defer rows.Close()

	out := []domain.LaborItem{}
	for rows.Next() {
		var it domain.LaborItem
		var userID sql.NullInt64
		if err := rows.Scan(&it.ID, &userID, &it.UserName, &it.Role, &it.PlannedMM,
			&it.PlannedCost, &it.ActualMM, &it.ActualCost, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan labor row: %w", err)
		}
		if userID.Valid {
			v := userID.Int64
			it.UserID = &v
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *SettlementRepository) ExtCompanies(ctx context.Context, settlementID int64) ([]domain.ExtCompanyItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_name, role1, role2, plan_mm, plan_amt, exec_mm, exec_amt, display_order
		FROM project_settlement_ext_company
		WHERE settlement_id = $1
		ORDER BY display_order, id`, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ext company rows: %w", err)
	}
	defer rows.Close()

	out := []domain.ExtCompanyItem{}
	for rows.Next() {
		var it domain.ExtCompanyItem
		var planMM, planAmt, execMM, execAmt []byte
		if err := rows.Scan(&it.ID, &it.CompanyName, &it.Role1, &it.Role2,
			&planMM, &planAmt, &execMM, &execAmt, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan ext company row: %w", err)
		}
		it.PlanMM = decodeValues(planMM)
		it.PlanAmt = decodeAmounts(planAmt)
		it.ExecMM = decodeValues(execMM)
		it.ExecAmt = decodeAmounts(execAmt)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Delete removes a draft settlement. Child rows cascade.
func (r *SettlementRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_settlement WHERE id = $1 AND status <> 'completed'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	if n == 0 {
		return settlementMiss(ctx, r.db, id)
	}
	return nil
}

type statusReader interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// settlementMiss tells a missing settlement from a completed one after a
// guarded write matched no row.
func settlementMiss(ctx context.Context, q statusReader, id int64) error {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM project_settlement WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrSettlementNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read settlement status: %w", err)
	}
	if status == domain.SettlementCompleted {
		return domain.ErrSettlementCompleted
	}
	return domain.ErrSettlementNotFound
}

func encodeExtMonths(it domain.ExtCompanyItem) (planMM, planAmt, execMM, execAmt []byte, err error) {
	if planMM, err = json.Marshal(nonNilValues(it.PlanMM)); err != nil {
		return
	}
	if planAmt, err = json.Marshal(nonNilAmounts(it.PlanAmt)); err != nil {
		return
	}
	if execMM, err = json.Marshal(nonNilValues(it.ExecMM)); err != nil {
		return
	}
	execAmt, err = json.Marshal(nonNilAmounts(it.ExecAmt))
	return
}
