// Package reconcile derives plan figures from profitability plan rows and
// compares them with a settlement's actuals.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
)

// Markers classify manpower rows. A row is internal for revenue when its
// affiliation starts with Internal, and external for cost when its
// affiliation starts with External (외주_개발, 외주_컨설팅).
type Markers struct {
	Internal string
	External string
}

var DefaultMarkers = Markers{Internal: "위엠비", External: "외주"}

func (m Markers) ownRevenue(it domain.ManpowerPlanItem) bool {
	return m.Internal != "" && strings.HasPrefix(strings.TrimSpace(it.AffiliationGroup), m.Internal)
}

func (m Markers) externalCost(it domain.ManpowerPlanItem) bool {
	return m.External != "" && strings.HasPrefix(strings.TrimSpace(it.AffiliationGroup), m.External)
}

// Figures is one column of the reconciliation.
type Figures struct {
	ProductRevenue decimal.Decimal `json:"product_revenue"`
	ServiceRevenue decimal.Decimal `json:"service_revenue"`
	ProductCost    decimal.Decimal `json:"product_cost"`
	ServiceCost    decimal.Decimal `json:"service_cost"`
	Expense        decimal.Decimal `json:"expense"`
}

func (f Figures) Revenue() decimal.Decimal { return f.ProductRevenue.Add(f.ServiceRevenue) }

// Cost includes expense.
func (f Figures) Cost() decimal.Decimal {
	return f.ProductCost.Add(f.ServiceCost).Add(f.Expense)
}

func (f Figures) Profit() decimal.Decimal { return f.Revenue().Sub(f.Cost()) }

// ProfitRate is profit over revenue in percent, 0 when there is no revenue.
func (f Figures) ProfitRate() float64 {
	return rate(f.Profit(), f.Revenue())
}

func rate(profit, revenue decimal.Decimal) float64 {
	if !revenue.IsPositive() {
		return 0
	}
	return profit.Div(revenue).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Breakdown splits plan figures the way the settlement sheet shows them.
type Breakdown struct {
	ProdRevOwn     decimal.Decimal `json:"prod_rev_own"`
	ProdRevExt     decimal.Decimal `json:"prod_rev_ext"`
	SvcRevOwn      decimal.Decimal `json:"svc_rev_own"`
	SvcRevExt      decimal.Decimal `json:"svc_rev_ext"`
	ProdCostOwn    decimal.Decimal `json:"prod_cost_own"`
	ProdCostExt    decimal.Decimal `json:"prod_cost_ext"`
	SvcCostOwn     decimal.Decimal `json:"svc_cost_own"`
	SvcCostExt     decimal.Decimal `json:"svc_cost_ext"`
	SvcMMOwn       float64         `json:"svc_mm_own"`
	SvcMMExt       float64         `json:"svc_mm_ext"`
	ExpenseGeneral decimal.Decimal `json:"expense_general"`
	ExpenseSpecial decimal.Decimal `json:"expense_special"`
}

// Figures collapses the breakdown. Own product cost is informational and
// stays out of the profit cost base.
func (b Breakdown) Figures() Figures {
	return Figures{
		ProductRevenue: b.ProdRevOwn.Add(b.ProdRevExt),
		ServiceRevenue: b.SvcRevOwn.Add(b.SvcRevExt),
		ProductCost:    b.ProdCostExt,
		ServiceCost:    b.SvcCostOwn.Add(b.SvcCostExt),
		Expense:        b.ExpenseGeneral.Add(b.ExpenseSpecial).Round(0),
	}
}

// SummarizePlan derives the breakdown of one profitability version.
func SummarizePlan(p domain.Plan, m Markers) Breakdown {
	var b Breakdown
	for _, it := range p.Products {
		switch it.Type {
		case domain.ProductOwn:
			b.ProdRevOwn = b.ProdRevOwn.Add(it.ProposalPrice)
			b.ProdCostOwn = b.ProdCostOwn.Add(it.CostPrice)
		case domain.ProductExternal:
			b.ProdRevExt = b.ProdRevExt.Add(it.ProposalPrice)
			b.ProdCostExt = b.ProdCostExt.Add(it.CostPrice)
		}
	}

	for _, it := range p.Manpower {
		mm := it.MonthlyAllocation.Sum()
		rev := amountOr(it.ProposedAmount, it.ProposedUnitPrice, mm)
		if m.ownRevenue(it) {
			b.SvcRevOwn = b.SvcRevOwn.Add(rev)
		} else {
			b.SvcRevExt = b.SvcRevExt.Add(rev)
		}

		cost := amountOr(it.InternalAmount, it.InternalUnitPrice, mm)
		if m.externalCost(it) {
			b.SvcCostExt = b.SvcCostExt.Add(cost)
			b.SvcMMExt += mm
		} else {
			b.SvcCostOwn = b.SvcCostOwn.Add(cost)
			b.SvcMMOwn += mm
		}
	}

	for _, it := range p.Expenses {
		switch it.Category {
		case domain.ExpenseGeneral:
			b.ExpenseGeneral = b.ExpenseGeneral.Add(it.MonthlyValues.Sum())
		case domain.ExpenseSpecial:
			b.ExpenseSpecial = b.ExpenseSpecial.Add(it.MonthlyValues.Sum())
		}
	}
	return b
}

// amountOr returns the explicit amount, or unit price times mm rounded to won.
func amountOr(amount, unit *decimal.Decimal, mm float64) decimal.Decimal {
	if amount != nil {
		return *amount
	}
	if unit == nil {
		return decimal.Zero
	}
	return unit.Mul(decimal.NewFromFloat(mm)).Round(0)
}

// ActualBreakdown lifts a settlement's entered actuals into a Breakdown.
func ActualBreakdown(a domain.Actuals) Breakdown {
	return Breakdown{
		ProdRevOwn:     a.ProdRevOwn,
		ProdRevExt:     a.ProdRevExt,
		SvcRevOwn:      a.SvcRevOwn,
		SvcRevExt:      a.SvcRevExt,
		ProdCostOwn:    a.ProdCostOwn,
		ProdCostExt:    a.ProdCostExt,
		SvcCostOwn:     a.SvcCostOwn,
		SvcCostExt:     a.SvcCostExt,
		SvcMMOwn:       a.SvcMMOwn,
		SvcMMExt:       a.SvcMMExt,
		ExpenseGeneral: a.ExpenseGeneral,
		ExpenseSpecial: a.ExpenseSpecial,
	}
}

// Column is a Figures with its totals spelled out.
type Column struct {
	Breakdown  Breakdown       `json:"breakdown"`
	Figures    Figures         `json:"figures"`
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	Profit     decimal.Decimal `json:"profit"`
	ProfitRate float64         `json:"profit_rate"`
}

func NewColumn(b Breakdown) Column {
	f := b.Figures()
	return Column{
		Breakdown:  b,
		Figures:    f,
		Revenue:    f.Revenue(),
		Cost:       f.Cost(),
		Profit:     f.Profit(),
		ProfitRate: f.ProfitRate(),
	}
}

// Variance is actual minus base. Negative values are reported as is.
type Variance struct {
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	Profit     decimal.Decimal `json:"profit"`
	ProfitRate float64         `json:"profit_rate"`
}

type Result struct {
	HasApprovedPlan bool     `json:"has_approved_plan"`
	Base            Column   `json:"base"`
	Latest          Column   `json:"latest"`
	Actual          Column   `json:"actual"`
	Variance        Variance `json:"variance"`
	Manpower        Manpower `json:"manpower"`
}

// Reconcile compares the base and latest approved plans with the actuals.
// A nil base means no plan was approved yet; plan columns are then zero. A nil
// latest falls back to base.
func Reconcile(base, latest *domain.Plan, actual domain.Actuals, m Markers) Result {
	var r Result
	if base != nil {
		r.HasApprovedPlan = true
		r.Base = NewColumn(SummarizePlan(*base, m))
		r.Manpower = SummarizeManpower(base.Manpower, m)
	} else {
		r.Base = NewColumn(Breakdown{})
		r.Manpower = SummarizeManpower(nil, m)
	}
	if latest != nil {
		r.Latest = NewColumn(SummarizePlan(*latest, m))
	} else {
		r.Latest = r.Base
	}
	r.Actual = NewColumn(ActualBreakdown(actual))
	r.Variance = Variance{
		Revenue:    r.Actual.Revenue.Sub(r.Base.Revenue),
		Cost:       r.Actual.Cost.Sub(r.Base.Cost),
		Profit:     r.Actual.Profit.Sub(r.Base.Profit),
		ProfitRate: r.Actual.ProfitRate - r.Base.ProfitRate,
	}
	return r
}

// PlannedFrom derives a settlement's planned_* columns from a base plan.
func PlannedFrom(base *domain.Plan, m Markers) domain.Planned {
	if base == nil {
		return domain.Planned{}
	}
	c := NewColumn(SummarizePlan(*base, m))
	return domain.Planned{
		Revenue:    c.Revenue,
		Cost:       c.Cost,
		LaborCost:  c.Figures.ServiceCost,
		OtherCost:  c.Figures.ProductCost.Add(c.Figures.Expense),
		Profit:     c.Profit,
		ProfitRate: c.ProfitRate,
		SvcMMOwn:   c.Breakdown.SvcMMOwn,
		SvcMMExt:   c.Breakdown.SvcMMExt,
	}
}

// ApplyActualTotals fills the derived actual_* totals of s from its entered
// actuals.
func ApplyActualTotals(s *domain.Settlement) {
	c := NewColumn(ActualBreakdown(s.Actuals))
	s.ActualRevenue = c.Revenue
	s.ActualCost = c.Cost
	s.ActualLaborCost = c.Figures.ServiceCost
	s.ActualOtherCost = c.Figures.ProductCost.Add(c.Figures.Expense)
}
