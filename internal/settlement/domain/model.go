package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSettlementNotFound    = errors.New("settlement not found")
	ErrSettlementExists      = errors.New("settlement already exists for project")
	ErrSettlementCompleted   = errors.New("settlement is completed")
	ErrProfitabilityNotFound = errors.New("profitability not found")
	ErrPlanLocked            = errors.New("profitability plan is approved and locked")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidMonthKey       = errors.New("invalid month key, expected YYYY-MM")
	ErrInvalidProductType    = errors.New("invalid product type")
	ErrInvalidExpenseKind    = errors.New("invalid expense category")
)

// Profitability statuses.
const (
	ProfitabilityDraft     = "draft"
	ProfitabilityReview    = "review"
	ProfitabilityApproved  = "approved"
	ProfitabilityRejected  = "rejected"
	ProfitabilityCompleted = "completed"
)

// Settlement statuses.
const (
	SettlementDraft     = "draft"
	SettlementCompleted = "completed"
)

// Product types and expense categories as stored.
const (
	ProductOwn      = "자사"
	ProductExternal = "타사"

	ExpenseGeneral = "일반경비"
	ExpenseSpecial = "특별경비"
)

func IsValidProfitabilityStatus(s string) bool {
	switch s {
	case ProfitabilityDraft, ProfitabilityReview, ProfitabilityApproved,
		ProfitabilityRejected, ProfitabilityCompleted:
		return true
	}
	return false
}

func IsValidSettlementStatus(s string) bool {
	return s == SettlementDraft || s == SettlementCompleted
}

// Profitability is one version of a project's profitability plan.
type Profitability struct {
	ID           int64           `json:"id"`
	ProjectID    int64           `json:"project_id"`
	Version      int             `json:"version"`
	Status       string          `json:"status"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitRate   float64         `json:"profit_rate"`
	ApprovedDate *time.Time      `json:"approved_date,omitempty"`
	CreatedBy    *int64          `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Locked reports whether the plan rows of this version can no longer change.
func (p *Profitability) Locked() bool {
	return p.Status == ProfitabilityApproved || p.Status == ProfitabilityCompleted
}

type ProductPlanItem struct {
	ID            int64           `json:"id,omitempty"`
	Type          string          `json:"type"`
	CompanyName   string          `json:"company_name"`
	ProductName   string          `json:"product_name"`
	ProposalPrice decimal.Decimal `json:"proposal_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	DisplayOrder  int             `json:"display_order"`
}

// ManpowerPlanItem is one staffed role. Amounts, when present, win over
// unit price times the month allocation.
type ManpowerPlanItem struct {
	ID                      int64            `json:"id,omitempty"`
	ProjectName             string           `json:"project_name"`
	Role                    string           `json:"role"`
	DetailedTask            string           `json:"detailed_task"`
	CompanyName             string           `json:"company_name"`
	AffiliationGroup        string           `json:"affiliation_group"`
	WmbRank                 string           `json:"wmb_rank"`
	Grade                   string           `json:"grade"`
	Name                    string           `json:"name"`
	UserID                  *int64           `json:"user_id,omitempty"`
	MonthlyAllocation       MonthValues      `json:"monthly_allocation"`
	ActualMonthlyAllocation MonthValues      `json:"actual_monthly_allocation"`
	ProposedUnitPrice       *decimal.Decimal `json:"proposed_unit_price,omitempty"`
	ProposedAmount          *decimal.Decimal `json:"proposed_amount,omitempty"`
	InternalUnitPrice       *decimal.Decimal `json:"internal_unit_price,omitempty"`
	InternalAmount          *decimal.Decimal `json:"internal_amount,omitempty"`
	ActualInternalAmount    *decimal.Decimal `json:"actual_internal_amount,omitempty"`
	DisplayOrder            int              `json:"display_order"`
}

type ExpensePlanItem struct {
	ID            int64        `json:"id,omitempty"`
	Category      string       `json:"category"`
	Item          string       `json:"item"`
	MonthlyValues MonthAmounts `json:"monthly_values"`
	DisplayOrder  int          `json:"display_order"`
}

// Plan is the full set of rows belonging to one profitability version.
type Plan struct {
	Products []ProductPlanItem  `json:"products"`
	Manpower []ManpowerPlanItem `json:"manpower"`
	Expenses []ExpensePlanItem  `json:"expenses"`
}

// Actuals are the user-entered settlement figures.
type Actuals struct {
	ProdRevOwn     decimal.Decimal `json:"actual_prod_rev_own"`
	ProdRevExt     decimal.Decimal `json:"actual_prod_rev_ext"`
	SvcRevOwn      decimal.Decimal `json:"actual_svc_rev_own"`
	SvcRevExt      decimal.Decimal `json:"actual_svc_rev_ext"`
	ProdCostOwn    decimal.Decimal `json:"actual_prod_cost_own"`
	ProdCostExt    decimal.Decimal `json:"actual_prod_cost_ext"`
	SvcCostOwn     decimal.Decimal `json:"actual_svc_cost_own"`
	SvcCostExt     decimal.Decimal `json:"actual_svc_cost_ext"`
	SvcMMOwn       float64         `json:"actual_svc_mm_own"`
	SvcMMExt       float64         `json:"actual_svc_mm_ext"`
	ExpenseGeneral decimal.Decimal `json:"actual_expense_general"`
	ExpenseSpecial decimal.Decimal `json:"actual_expense_special"`
}

// Planned figures are derived from the earliest approved profitability plan.
type Planned struct {
	Revenue    decimal.Decimal `json:"planned_revenue"`
	Cost       decimal.Decimal `json:"planned_cost"`
	LaborCost  decimal.Decimal `json:"planned_labor_cost"`
	OtherCost  decimal.Decimal `json:"planned_other_cost"`
	Profit     decimal.Decimal `json:"planned_profit"`
	ProfitRate float64         `json:"planned_profit_rate"`
	SvcMMOwn   float64         `json:"planned_svc_mm_own"`
	SvcMMExt   float64         `json:"planned_svc_mm_ext"`
}

type Settlement struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Status    string `json:"status"`
	Planned
	Actuals
	ActualRevenue   decimal.Decimal `json:"actual_revenue"`
	ActualCost      decimal.Decimal `json:"actual_cost"`
	ActualLaborCost decimal.Decimal `json:"actual_labor_cost"`
	ActualOtherCost decimal.Decimal `json:"actual_other_cost"`
	Notes           string          `json:"notes"`
	CreatedBy       *int64          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type LaborItem struct {
	ID           int64           `json:"id,omitempty"`
	UserID       *int64          `json:"user_id,omitempty"`
	UserName     string          `json:"user_name"`
	Role         string          `json:"role"`
	PlannedMM    float64         `json:"planned_mm"`
	PlannedCost  decimal.Decimal `json:"planned_cost"`
	ActualMM     float64         `json:"actual_mm"`
	ActualCost   decimal.Decimal `json:"actual_cost"`
	DisplayOrder int             `json:"display_order"`
}

type ExtCompanyItem struct {
	ID           int64        `json:"id,omitempty"`
	CompanyName  string       `json:"company_name"`
	Role1        string       `json:"role1"`
	Role2        string       `json:"role2"`
	PlanMM       MonthValues  `json:"plan_mm"`
	PlanAmt      MonthAmounts `json:"plan_amt"`
	ExecMM       MonthValues  `json:"exec_mm"`
	ExecAmt      MonthAmounts `json:"exec_amt"`
	DisplayOrder int          `json:"display_order"`
}

// PlanPart selects which plan tables a replace touches.
type PlanPart uint8

const (
	PartProducts PlanPart = 1 << iota
	PartManpower
	PartExpenses

	PartAll = PartProducts | PartManpower | PartExpenses
)

// PlanTotals are the headline figures stored on the profitability row.
type PlanTotals struct {
	Revenue    decimal.Decimal
	Cost       decimal.Decimal
	Profit     decimal.Decimal
	ProfitRate float64
}
