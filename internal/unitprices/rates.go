package unitprices

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IncreaseRate is the percentage change from prev to cur, rounded to two
// places. It is nil when either side is missing or prev is zero.
func IncreaseRate(prev, cur *decimal.Decimal) *decimal.Decimal {
	if prev == nil || cur == nil || prev.IsZero() {
		return nil
	}
	r := cur.Sub(*prev).Div(*prev).Mul(hundred).Round(2)
	return &r
}

// yearPoint is one year of a grade's series.
type yearPoint struct {
	ID       int64
	Year     int
	Internal *decimal.Decimal
}

// chainRates derives each point's increase rate from the point of the
// immediately preceding year. A gap year leaves the rate empty.
func chainRates(series []yearPoint) map[int64]*decimal.Decimal {
	sorted := append([]yearPoint(nil), series...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	out := make(map[int64]*decimal.Decimal, len(sorted))
	for i, p := range sorted {
		if i > 0 && sorted[i-1].Year == p.Year-1 {
			out[p.ID] = IncreaseRate(sorted[i-1].Internal, p.Internal)
		} else {
			out[p.ID] = nil
		}
	}
	return out
}

// groupRank orders affiliation groups the way the rate table is read.
func groupRank(group string) int {
	switch group {
	case "위엠비_컨설팅":
		return 1
	case "위엠비_개발":
		return 2
	case "외주_컨설팅":
		return 3
	case "외주_개발":
		return 4
	}
	return 5
}

// Averages summarizes prices per affiliation group, in table order.
func Averages(items []UnitPrice) []GroupAverage {
	type acc struct {
		applied, discount, internal, rate     decimal.Decimal
		nApplied, nDiscount, nInternal, nRate int
	}
	groups := map[string]*acc{}
	for _, it := range items {
		a := groups[it.AffiliationGroup]
		if a == nil {
			a = &acc{}
			groups[it.AffiliationGroup] = a
		}
		if it.ProposedApplied != nil {
			a.applied = a.applied.Add(*it.ProposedApplied)
			a.nApplied++
		}
		if it.ProposedDiscountRate != nil {
			a.discount = a.discount.Add(*it.ProposedDiscountRate)
			a.nDiscount++
		}
		if it.InternalApplied != nil {
			a.internal = a.internal.Add(*it.InternalApplied)
			a.nInternal++
		}
		if it.InternalIncreaseRate != nil {
			a.rate = a.rate.Add(*it.InternalIncreaseRate)
			a.nRate++
		}
	}

	avg := func(sum decimal.Decimal, n int) decimal.Decimal {
		if n == 0 {
			return decimal.Zero
		}
		return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
	}

	out := make([]GroupAverage, 0, len(groups))
	for name, a := range groups {
		g := GroupAverage{
			AffiliationGroup:            name,
			AverageProposedApplied:      avg(a.applied, a.nApplied),
			AverageProposedDiscountRate: avg(a.discount, a.nDiscount),
			AverageInternalApplied:      avg(a.internal, a.nInternal),
		}
		if a.nRate > 0 {
			r := avg(a.rate, a.nRate)
			g.AverageIncreaseRate = &r
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := groupRank(out[i].AffiliationGroup), groupRank(out[j].AffiliationGroup)
		if ri != rj {
			return ri < rj
		}
		return out[i].AffiliationGroup < out[j].AffiliationGroup
	})
	return out
}
