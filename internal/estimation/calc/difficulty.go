package calc

import "github.com/wemb-pms/pms-backend/internal/estimation/domain"

// Score bounds for difficulty ordinals.
const (
	MinScore = 0
	MaxScore = 3
)

// DifficultyInput holds both pools, the user's selections (kept apart from the
// catalog defaults) and the set of field categories that contribute.
type DifficultyInput struct {
	Common             []domain.DifficultyItem
	Field              []domain.DifficultyItem
	CommonSelections   map[int64]int
	FieldSelections    map[int64]int
	SelectedCategories map[string]bool
}

// DifficultyResult is the coefficient with the sums it was built from.
type DifficultyResult struct {
	CommonSum   float64 `json:"common_sum"`
	FieldSum    float64 `json:"field_sum"`
	CommonCount int     `json:"common_count"`
	FieldCount  int     `json:"field_count"`
	Coefficient float64 `json:"coefficient"`
}

// Coefficient computes (commonSum + fieldSum) / ((|common| + |selected field|) * 2).
func Coefficient(in DifficultyInput) DifficultyResult {
	var res DifficultyResult
	for _, item := range in.Common {
		res.CommonSum += float64(score(in.CommonSelections, item))
		res.CommonCount++
	}
	for _, item := range in.Field {
		if !in.SelectedCategories[item.Category] {
			continue
		}
		res.FieldSum += float64(score(in.FieldSelections, item))
		res.FieldCount++
	}

	total := res.CommonCount + res.FieldCount
	if total > 0 {
		res.Coefficient = (res.CommonSum + res.FieldSum) / float64(total*2)
	}
	return res
}

func score(selections map[int64]int, item domain.DifficultyItem) int {
	if v, ok := selections[item.ID]; ok {
		return v
	}
	return item.Difficulty
}

// ValidScore reports whether v is an allowed ordinal.
func ValidScore(v int) bool { return v >= MinScore && v <= MaxScore }
