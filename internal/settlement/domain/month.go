package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const monthLayout = "2006-01"

// ValidMonthKey reports whether k is a YYYY-MM key.
func ValidMonthKey(k string) bool {
	if len(k) != len(monthLayout) {
		return false
	}
	_, err := time.Parse(monthLayout, k)
	return err == nil
}

// MonthValues maps YYYY-MM to a man-month allocation.
type MonthValues map[string]float64

func (m MonthValues) Sum() float64 {
	var total float64
	for _, v := range m {
		total += v
	}
	return total
}

func (m MonthValues) Validate() error {
	for k := range m {
		if !ValidMonthKey(k) {
			return fmt.Errorf("%w: %q", ErrInvalidMonthKey, k)
		}
	}
	return nil
}

// MonthAmounts maps YYYY-MM to a monetary amount.
type MonthAmounts map[string]decimal.Decimal

func (m MonthAmounts) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

func (m MonthAmounts) Validate() error {
	for k := range m {
		if !ValidMonthKey(k) {
			return fmt.Errorf("%w: %q", ErrInvalidMonthKey, k)
		}
	}
	return nil
}

// SortedMonths returns the keys of every map in chronological order, without
// duplicates.
func SortedMonths(maps ...MonthValues) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks every row of the plan.
func (p Plan) Validate() error {
	for _, it := range p.Products {
		if it.Type != ProductOwn && it.Type != ProductExternal {
			return fmt.Errorf("%w: %q", ErrInvalidProductType, it.Type)
		}
	}
	for _, it := range p.Manpower {
		if err := it.MonthlyAllocation.Validate(); err != nil {
			return err
		}
		if err := it.ActualMonthlyAllocation.Validate(); err != nil {
			return err
		}
	}
	for _, it := range p.Expenses {
		if it.Category != ExpenseGeneral && it.Category != ExpenseSpecial {
			return fmt.Errorf("%w: %q", ErrInvalidExpenseKind, it.Category)
		}
		if err := it.MonthlyValues.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (it ExtCompanyItem) Validate() error {
	if err := it.PlanMM.Validate(); err != nil {
		return err
	}
	if err := it.ExecMM.Validate(); err != nil {
		return err
	}
	if err := it.PlanAmt.Validate(); err != nil {
		return err
	}
	return it.ExecAmt.Validate()
}
