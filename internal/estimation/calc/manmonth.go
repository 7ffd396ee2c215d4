package calc

import "math"

// DefaultMMCalculationBase is working days per month.
const DefaultMMCalculationBase = 21.0

// EffectiveBase returns base, or the default when base is not a usable divisor.
func EffectiveBase(base float64) float64 {
	if math.IsNaN(base) || math.IsInf(base, 0) || base <= 0 {
		return DefaultMMCalculationBase
	}
	return base
}

// ManMonths converts man-days using the effective base.
func ManMonths(md, base float64) float64 {
	return Finite(md) / EffectiveBase(base)
}
