package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
)

// Bucket aggregates plan and actual man-months for a group of manpower rows.
type Bucket struct {
	Rows              int                `json:"rows"`
	PlanByMonth       domain.MonthValues `json:"plan_by_month"`
	ActualByMonth     domain.MonthValues `json:"actual_by_month"`
	TotalPlanMM       float64            `json:"total_plan_mm"`
	TotalActualMM     float64            `json:"total_actual_mm"`
	TotalPlanAmount   decimal.Decimal    `json:"total_plan_amount"`
	TotalActualAmount decimal.Decimal    `json:"total_actual_amount"`
}

func newBucket() Bucket {
	return Bucket{PlanByMonth: domain.MonthValues{}, ActualByMonth: domain.MonthValues{}}
}

func (b *Bucket) add(it domain.ManpowerPlanItem) {
	b.Rows++
	for k, v := range it.MonthlyAllocation {
		b.PlanByMonth[k] += v
	}
	for k, v := range it.ActualMonthlyAllocation {
		b.ActualByMonth[k] += v
	}
	plan := it.MonthlyAllocation.Sum()
	actual := it.ActualMonthlyAllocation.Sum()
	b.TotalPlanMM += plan
	b.TotalActualMM += actual
	b.TotalPlanAmount = b.TotalPlanAmount.Add(amountOr(it.InternalAmount, it.InternalUnitPrice, plan))
	b.TotalActualAmount = b.TotalActualAmount.Add(amountOr(it.ActualInternalAmount, it.InternalUnitPrice, actual))
}

// Manpower is the per-month staffing reconciliation. Every row lands in
// exactly one of Internal or External; All holds every row.
type Manpower struct {
	Months   []string `json:"months"`
	Internal Bucket   `json:"internal"`
	External Bucket   `json:"external"`
	All      Bucket   `json:"all"`
}

func SummarizeManpower(items []domain.ManpowerPlanItem, m Markers) Manpower {
	out := Manpower{Internal: newBucket(), External: newBucket(), All: newBucket()}
	var maps []domain.MonthValues
	for _, it := range items {
		if m.externalCost(it) {
			out.External.add(it)
		} else {
			out.Internal.add(it)
		}
		out.All.add(it)
		maps = append(maps, it.MonthlyAllocation, it.ActualMonthlyAllocation)
	}
	out.Months = domain.SortedMonths(maps...)
	return out
}
