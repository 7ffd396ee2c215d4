package calc

import "github.com/wemb-pms/pms-backend/internal/estimation/domain"

// Derive is the per-row formula: quantity × unit rate, never NaN.
func Derive(quantity, unitRate float64) float64 {
	return Finite(Finite(quantity) * Finite(unitRate))
}

// DeriveText applies Derive to raw cell input.
func DeriveText(quantity, unitRate string) float64 {
	return Derive(ToNumber(quantity), ToNumber(unitRate))
}

// Recompute returns row with its calculated value replaced.
func Recompute(row domain.LineItem) domain.LineItem {
	row.Quantity = Finite(row.Quantity)
	row.UnitRate = Finite(row.UnitRate)
	row.Calculated = Derive(row.Quantity, row.UnitRate)
	return row
}

// RecomputeAll recomputes every row in place.
func RecomputeAll(rows []domain.LineItem) {
	for i := range rows {
		rows[i] = Recompute(rows[i])
	}
}
