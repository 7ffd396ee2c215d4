package unitprices

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("unit price not found")
	ErrRequired  = errors.New("affiliation group, job group, job level, grade and year are required")
	ErrDuplicate = errors.New("unit price already exists for this grade and year")
	ErrSameYear  = errors.New("source year and target year cannot be the same")
)

// UnitPrice is the standard monthly rate of one grade in one year.
// InternalIncreaseRate is derived from the previous year's InternalApplied.
type UnitPrice struct {
	ID                   int64            `json:"id" db:"id"`
	AffiliationGroup     string           `json:"affiliationGroup" db:"affiliation_group"`
	JobGroup             string           `json:"jobGroup" db:"job_group"`
	JobLevel             string           `json:"jobLevel" db:"job_level"`
	Grade                string           `json:"grade" db:"grade"`
	Year                 int              `json:"year" db:"year"`
	ProposedStandard     *decimal.Decimal `json:"proposedStandard" db:"proposed_standard"`
	ProposedApplied      *decimal.Decimal `json:"proposedApplied" db:"proposed_applied"`
	ProposedDiscountRate *decimal.Decimal `json:"proposedDiscountRate" db:"proposed_discount_rate"`
	InternalApplied      *decimal.Decimal `json:"internalApplied" db:"internal_applied"`
	InternalIncreaseRate *decimal.Decimal `json:"internalIncreaseRate" db:"internal_increase_rate"`
	IsActive             bool             `json:"isActive" db:"is_active"`
	DisplayOrder         int              `json:"displayOrder" db:"display_order"`
	CreatedAt            time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time        `json:"updatedAt" db:"updated_at"`
}

type Filter struct {
	Year             *int
	AffiliationGroup string
	IsActive         *bool
}

// Input is shared by create and update. On update nil fields keep their
// stored value.
type Input struct {
	AffiliationGroup     *string          `json:"affiliationGroup"`
	JobGroup             *string          `json:"jobGroup"`
	JobLevel             *string          `json:"jobLevel"`
	Grade                *string          `json:"grade"`
	Year                 *int             `json:"year"`
	ProposedStandard     *decimal.Decimal `json:"proposedStandard"`
	ProposedApplied      *decimal.Decimal `json:"proposedApplied"`
	ProposedDiscountRate *decimal.Decimal `json:"proposedDiscountRate"`
	InternalApplied      *decimal.Decimal `json:"internalApplied"`
	IsActive             *bool            `json:"isActive"`
	DisplayOrder         *int             `json:"displayOrder"`
}

// GroupAverage summarizes one affiliation group for a year.
type GroupAverage struct {
	AffiliationGroup            string           `json:"affiliationGroup"`
	AverageProposedApplied      decimal.Decimal  `json:"averageProposedApplied"`
	AverageProposedDiscountRate decimal.Decimal  `json:"averageProposedDiscountRate"`
	AverageInternalApplied      decimal.Decimal  `json:"averageInternalApplied"`
	AverageIncreaseRate         *decimal.Decimal `json:"averageIncreaseRate"`
}
