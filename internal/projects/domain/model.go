package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrCodeTaken     = errors.New("project code already in use")
	ErrInvalidCode   = errors.New("invalid project code")
	ErrInvalidStatus = errors.New("invalid project status")
	ErrNameRequired  = errors.New("project name required")
)

// Project statuses, in lifecycle order.
const (
	StatusSalesOpportunity       = "sales_opportunity"
	StatusMDEstimationCompleted  = "md_estimation_completed"
	StatusVRBCompleted           = "vrb_completed"
	StatusProfitabilityCompleted = "profitability_completed"
	StatusSettlementCompleted    = "settlement_completed"
	StatusCompleted              = "completed"
)

// Phases.
const (
	PhaseSales         = "sales"
	PhaseMDEstimation  = "md_estimation"
	PhaseVRB           = "vrb"
	PhaseProfitability = "profitability"
	PhaseSettlement    = "settlement"
	PhaseCompleted     = "completed"
)

const DefaultCurrency = "KRW"

func IsValidStatus(s string) bool {
	switch s {
	case StatusSalesOpportunity, StatusMDEstimationCompleted, StatusVRBCompleted,
		StatusProfitabilityCompleted, StatusSettlementCompleted, StatusCompleted:
		return true
	}
	return false
}

// ComputedPhase derives the phase shown for a project. A status that implies
// a later phase wins over the stored phase.
func ComputedPhase(status, stored string) string {
	switch status {
	case StatusCompleted, StatusSettlementCompleted:
		return PhaseCompleted
	case StatusProfitabilityCompleted:
		return PhaseSettlement
	case StatusVRBCompleted:
		return PhaseProfitability
	case StatusMDEstimationCompleted:
		return PhaseVRB
	}
	if stored == "" {
		return PhaseSales
	}
	return stored
}

type Project struct {
	ID             int64            `json:"id"`
	Code           *string          `json:"project_code"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	CategoryID     *int64           `json:"category_id,omitempty"`
	FieldID        *int64           `json:"field_id,omitempty"`
	CustomerID     *int64           `json:"customer_id,omitempty"`
	ManagerID      *int64           `json:"manager_id,omitempty"`
	ContractStart  *time.Time       `json:"contract_start_date,omitempty"`
	ContractEnd    *time.Time       `json:"contract_end_date,omitempty"`
	ExpectedAmount *decimal.Decimal `json:"expected_amount,omitempty"`
	Currency       string           `json:"currency"`
	Status         string           `json:"status"`
	CurrentPhase   string           `json:"current_phase"`
	CreatedBy      *int64           `json:"created_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CreateInput is a new project. An empty Code asks for a generated one.
type CreateInput struct {
	Code           string           `json:"project_code"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	CategoryID     *int64           `json:"category_id"`
	FieldID        *int64           `json:"field_id"`
	CustomerID     *int64           `json:"customer_id"`
	ManagerID      *int64           `json:"manager_id"`
	ContractStart  *time.Time       `json:"contract_start_date"`
	ContractEnd    *time.Time       `json:"contract_end_date"`
	ExpectedAmount *decimal.Decimal `json:"expected_amount"`
	Currency       string           `json:"currency"`
	CurrentPhase   string           `json:"current_phase"`
	CreatedBy      *int64           `json:"created_by"`
}

// UpdateInput is a partial update. Nil fields keep their stored value.
type UpdateInput struct {
	Code           *string          `json:"project_code"`
	Name           *string          `json:"name"`
	Description    *string          `json:"description"`
	CategoryID     *int64           `json:"category_id"`
	FieldID        *int64           `json:"field_id"`
	CustomerID     *int64           `json:"customer_id"`
	ManagerID      *int64           `json:"manager_id"`
	ContractStart  *time.Time       `json:"contract_start_date"`
	ContractEnd    *time.Time       `json:"contract_end_date"`
	ExpectedAmount *decimal.Decimal `json:"expected_amount"`
	Currency       *string          `json:"currency"`
	Status         *string          `json:"status"`
	CurrentPhase   *string          `json:"current_phase"`
}

type ListFilter struct {
	Search string
	Status string
}
