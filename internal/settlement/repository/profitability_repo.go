package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
)

const profitabilityColumns = `id, project_id, version, status, total_revenue, total_cost,
	net_profit, profit_rate, approved_date, created_by, created_at, updated_at`

// ProfitabilityRepository handles profitability versions and their plan rows.
type ProfitabilityRepository struct {
	db *sql.DB
}

func NewProfitabilityRepository(db *sql.DB) *ProfitabilityRepository {
	return &ProfitabilityRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfitability(row rowScanner) (*domain.Profitability, error) {
	var p domain.Profitability
	var approved sql.NullTime
	var createdBy sql.NullInt64
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.Version, &p.Status,
		&p.TotalRevenue, &p.TotalCost, &p.NetProfit, &p.ProfitRate,
		&approved, &createdBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approved.Valid {
		t := approved.Time
		p.ApprovedDate = &t
	}
	if createdBy.Valid {
		id := createdBy.Int64
		p.CreatedBy = &id
	}
	return &p, nil
}

func (r *ProfitabilityRepository) List(ctx context.Context, projectID int64) ([]domain.Profitability, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profitabilityColumns+`
		FROM profitability
		WHERE project_id = $1
		ORDER BY version DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profitability: %w", err)
	}
	defer rows.Close()

	out := []domain.Profitability{}
	for rows.Next() {
		p, err := scanProfitability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profitability: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ProfitabilityRepository) Get(ctx context.Context, projectID, id int64) (*domain.Profitability, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profitabilityColumns+`
		FROM profitability
		WHERE project_id = $1 AND id = $2`, projectID, id)
	p, err := scanProfitability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfitabilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profitability: %w", err)
	}
	return p, nil
}

// Create inserts the next draft version for the project.
func (r *ProfitabilityRepository) Create(ctx context.Context, projectID int64, createdBy *int64) (*domain.Profitability, error) {
	var by sql.NullInt64
	if createdBy != nil {
		by = sql.NullInt64{Int64: *createdBy, Valid: true}
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profitability (project_id, version, status, created_by)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3
		FROM profitability
		WHERE project_id = $1
		RETURNING `+profitabilityColumns, projectID, domain.ProfitabilityDraft, by)
	p, err := scanProfitability(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create profitability: %w", err)
	}
	return p, nil
}

// Approve marks a version approved and stamps the approval date.
func (r *ProfitabilityRepository) Approve(ctx context.Context, projectID, id int64) (*domain.Profitability, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE profitability
		SET status = $3, approved_date = NOW(), updated_at = NOW()
		WHERE project_id = $1 AND id = $2
		RETURNING `+profitabilityColumns, projectID, id, domain.ProfitabilityApproved)
	p, err := scanProfitability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfitabilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve profitability: %w", err)
	}
	return p, nil
}

// ApprovedIDs returns the approved versions of a project, earliest approval
// first.
func (r *ProfitabilityRepository) ApprovedIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM profitability
		WHERE project_id = $1 AND status = ANY($2)
		ORDER BY approved_date ASC NULLS LAST, version ASC`,
		projectID, pq.Array([]string{domain.ProfitabilityApproved, domain.ProfitabilityCompleted}))
	if err != nil {
		return nil, fmt.Errorf("failed to list approved profitability: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profitability id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Plan loads every plan row of a version.
func (r *ProfitabilityRepository) Plan(ctx context.Context, id int64) (domain.Plan, error) {
	return loadPlan(ctx, r.db, id)
}

func loadPlan(ctx context.Context, q querier, id int64) (domain.Plan, error) {
	var (
		p   domain.Plan
		err error
	)
	if p.Products, err = loadProducts(ctx, q, id); err != nil {
		return p, err
	}
	if p.Manpower, err = loadManpower(ctx, q, id); err != nil {
		return p, err
	}
	if p.Expenses, err = loadExpenses(ctx, q, id); err != nil {
		return p, err
	}
	return p, nil
}

// ReplacePlan swaps the selected parts of a version's plan in one
// transaction and stores the totals computed from the resulting full plan.
// An approved version is rejected with ErrPlanLocked.
func (r *ProfitabilityRepository) ReplacePlan(ctx context.Context, id int64, parts domain.PlanPart, plan domain.Plan, total func(domain.Plan) domain.PlanTotals) (*domain.Profitability, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM profitability WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfitabilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock profitability: %w", err)
	}
	if (&domain.Profitability{Status: status}).Locked() {
		return nil, domain.ErrPlanLocked
	}

	if parts&domain.PartProducts != 0 {
		if err := replaceProducts(ctx, tx, id, plan.Products); err != nil {
			return nil, err
		}
	}
	if parts&domain.PartManpower != 0 {
		if err := replaceManpower(ctx, tx, id, plan.Manpower); err != nil {
			return nil, err
		}
	}
	if parts&domain.PartExpenses != 0 {
		if err := replaceExpenses(ctx, tx, id, plan.Expenses); err != nil {
			return nil, err
		}
	}

	full, err := loadPlan(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	t := total(full)
	p, err := scanProfitability(tx.QueryRowContext(ctx, `
		UPDATE profitability
		SET total_revenue = $2, total_cost = $3, net_profit = $4, profit_rate = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profitabilityColumns, id, t.Revenue, t.Cost, t.Profit, t.ProfitRate))
	if err != nil {
		return nil, fmt.Errorf("failed to update profitability totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	return p, nil
}

func replaceProducts(ctx context.Context, tx *sql.Tx, id int64, items []domain.ProductPlanItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM profitability_product_plan WHERE profitability_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear product plan: %w", err)
	}
	for i, it := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profitability_product_plan (
				profitability_id, type, company_name, product_name,
				proposal_price, cost_price, display_order
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, it.Type, it.CompanyName, it.ProductName, it.ProposalPrice, it.CostPrice, i)
		if err != nil {
			return fmt.Errorf("failed to insert product plan: %w", err)
		}
	}
	return nil
}

func replaceManpower(ctx context.Context, tx *sql.Tx, id int64, items []domain.ManpowerPlanItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM profitability_manpower_plan WHERE profitability_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear manpower plan: %w", err)
	}
	for i, it := range items {
		plan, err := json.Marshal(nonNilValues(it.MonthlyAllocation))
		if err != nil {
			return fmt.Errorf("failed to encode monthly allocation: %w", err)
		}
		actual, err := json.Marshal(nonNilValues(it.ActualMonthlyAllocation))
		if err != nil {
			return fmt.Errorf("failed to encode actual allocation: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO profitability_manpower_plan (
				profitability_id, project_name, role, detailed_task, company_name,
				affiliation_group, wmb_rank, grade, name, user_id,
				monthly_allocation, actual_monthly_allocation,
				proposed_unit_price, proposed_amount, internal_unit_price,
				internal_amount, actual_internal_amount, display_order
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			id, it.ProjectName, it.Role, it.DetailedTask, it.CompanyName,
			it.AffiliationGroup, it.WmbRank, it.Grade, it.Name, nullInt(it.UserID),
			plan, actual,
			nullDecimal(it.ProposedUnitPrice), nullDecimal(it.ProposedAmount), nullDecimal(it.InternalUnitPrice),
			nullDecimal(it.InternalAmount), nullDecimal(it.ActualInternalAmount), i)
		if err != nil {
			return fmt.Errorf("failed to insert manpower plan: %w", err)
		}
	}
	return nil
}

func replaceExpenses(ctx context.Context, tx *sql.Tx, id int64, items []domain.ExpensePlanItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM profitability_expense_plan WHERE profitability_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear expense plan: %w", err)
	}
	for i, it := range items {
		values, err := json.Marshal(nonNilAmounts(it.MonthlyValues))
		if err != nil {
			return fmt.Errorf("failed to encode monthly values: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO profitability_expense_plan (profitability_id, category, item, monthly_values, display_order)
			VALUES ($1, $2, $3, $4, $5)`,
			id, it.Category, it.Item, values, i)
		if err != nil {
			return fmt.Errorf("failed to insert expense plan: %w", err)
		}
	}
	return nil
}

func loadProducts(ctx context.Context, q querier, id int64) ([]domain.ProductPlanItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, type, company_name, product_name, proposal_price, cost_price, display_order
		FROM profitability_product_plan
		WHERE profitability_id = $1
		ORDER BY display_order, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product plan: %w", err)
	}
	defer rows.Close()

	out := []domain.ProductPlanItem{}
	for rows.Next() {
		var it domain.ProductPlanItem
		if err := rows.Scan(&it.ID, &it.Type, &it.CompanyName, &it.ProductName,
			&it.ProposalPrice, &it.CostPrice, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan product plan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func loadManpower(ctx context.Context, q querier, id int64) ([]domain.ManpowerPlanItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_name, role, detailed_task, company_name, affiliation_group,
		       wmb_rank, grade, name, user_id, monthly_allocation, actual_monthly_allocation,
		       proposed_unit_price, proposed_amount, internal_unit_price, internal_amount,
		       actual_internal_amount, display_order
		FROM profitability_manpower_plan
		WHERE profitability_id = $1
		ORDER BY display_order, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load manpower plan: %w", err)
	}
	defer rows.Close()

	out := []domain.ManpowerPlanItem{}
	for rows.Next() {
		var (
			it                  domain.ManpowerPlanItem
			userID              sql.NullInt64
			planJSON, actJSON   []byte
			pup, pa, iup, ia, a decimal.NullDecimal
		)
		if err := rows.Scan(&it.ID, &it.ProjectName, &it.Role, &it.DetailedTask, &it.CompanyName,
			&it.AffiliationGroup, &it.WmbRank, &it.Grade, &it.Name, &userID,
			&planJSON, &actJSON, &pup, &pa, &iup, &ia, &a, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan manpower plan: %w", err)
		}
		if userID.Valid {
			v := userID.Int64
			it.UserID = &v
		}
		it.MonthlyAllocation = decodeValues(planJSON)
		it.ActualMonthlyAllocation = decodeValues(actJSON)
		it.ProposedUnitPrice = fromNull(pup)
		it.ProposedAmount = fromNull(pa)
		it.InternalUnitPrice = fromNull(iup)
		it.InternalAmount = fromNull(ia)
		it.ActualInternalAmount = fromNull(a)
		out = append(out, it)
	}
	return out, rows.Err()
}

func loadExpenses(ctx context.Context, q querier, id int64) ([]domain.ExpensePlanItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, category, item, monthly_values, display_order
		FROM profitability_expense_plan
		WHERE profitability_id = $1
		ORDER BY display_order, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense plan: %w", err)
	}
	defer rows.Close()

	out := []domain.ExpensePlanItem{}
	for rows.Next() {
		var it domain.ExpensePlanItem
		var values []byte
		if err := rows.Scan(&it.ID, &it.Category, &it.Item, &values, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan expense plan: %w", err)
		}
		it.MonthlyValues = decodeAmounts(values)
		out = append(out, it)
	}
	return out, rows.Err()
}
