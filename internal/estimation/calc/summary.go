package calc

import "github.com/wemb-pms/pms-backend/internal/estimation/domain"

// DomainTotal is the weighted result for one estimation domain.
type DomainTotal struct {
	RawMD      float64 `json:"raw_md"`
	Multiplier float64 `json:"multiplier"`
	FinalMD    float64 `json:"final_md"`
	MM         float64 `json:"mm"`
}

// Summary holds every derived figure shown on the estimation summary cards.
type Summary struct {
	Difficulty           DifficultyResult `json:"difficulty"`
	Groups               []GroupTotal     `json:"groups"`
	Development          DomainTotal      `json:"development"`
	Modeling3D           DomainTotal      `json:"modeling_3d"`
	PID                  DomainTotal      `json:"pid"`
	Modeling3DUnselected bool             `json:"modeling_3d_weight_unselected"`
	PIDUnselected        bool             `json:"pid_weight_unselected"`
	MMCalculationBase    float64          `json:"mm_calculation_base"`
	TotalMM              float64          `json:"total_mm"`
}

// SummaryInput is everything the summary depends on.
type SummaryInput struct {
	Development       []domain.LineItem
	Modeling3D        []domain.LineItem
	PID               []domain.LineItem
	Difficulty        DifficultyInput
	Modeling3DWeights *WeightTable
	PIDWeights        *WeightTable
	MMCalculationBase float64
}

// Summarize derives the full summary in one pass.
func Summarize(in SummaryInput) Summary {
	base := EffectiveBase(in.MMCalculationBase)
	diff := Coefficient(in.Difficulty)

	s := Summary{
		Difficulty:        diff,
		MMCalculationBase: base,
	}

	groups := OrderedGroups(SumBy(in.Development, ClassificationKey))
	for i := range groups {
		groups[i].MDWithDifficulty = groups[i].MD * diff.Coefficient
		groups[i].MM = ManMonths(groups[i].MDWithDifficulty, base)
	}
	s.Groups = groups

	s.Development = weighted(Sum(in.Development), diff.Coefficient, base)

	m3 := in.Modeling3DWeights
	if m3 == nil {
		m3 = &WeightTable{}
	}
	s.Modeling3D = weighted(Sum(in.Modeling3D), m3.Multiplier(), base)
	s.Modeling3DUnselected = m3.Unselected()

	pid := in.PIDWeights
	if pid == nil {
		pid = &WeightTable{}
	}
	s.PID = weighted(Sum(in.PID), pid.Multiplier(), base)
	s.PIDUnselected = pid.Unselected()

	s.TotalMM = s.Development.MM + s.Modeling3D.MM + s.PID.MM
	return s
}

func weighted(raw, multiplier, base float64) DomainTotal {
	final := Finite(raw * multiplier)
	return DomainTotal{
		RawMD:      raw,
		Multiplier: multiplier,
		FinalMD:    final,
		MM:         ManMonths(final, base),
	}
}
