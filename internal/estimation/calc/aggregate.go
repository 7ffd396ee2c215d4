package calc

import (
	"sort"

	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

// Sum totals the calculated values of rows.
func Sum(rows []domain.LineItem) float64 {
	total := 0.0
	for _, r := range rows {
		total += Finite(r.Calculated)
	}
	return total
}

// SumBy totals calculated values per key.
func SumBy(rows []domain.LineItem, key func(domain.LineItem) string) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range rows {
		out[key(r)] += Finite(r.Calculated)
	}
	return out
}

// ClassificationKey groups development rows, folding blanks into 기타.
func ClassificationKey(r domain.LineItem) string {
	if r.Classification == "" {
		return domain.UnclassifiedLabel
	}
	return r.Classification
}

// GroupTotal is one classification's share of the development M/D.
type GroupTotal struct {
	Classification   string  `json:"classification"`
	MD               float64 `json:"md"`
	MDWithDifficulty float64 `json:"md_with_difficulty"`
	MM               float64 `json:"mm"`
}

// OrderedGroups lists group totals with the standard classifications first
// (always present, zero when empty), then any others in sorted order.
func OrderedGroups(groups map[string]float64) []GroupTotal {
	out := make([]GroupTotal, 0, len(domain.Classifications)+len(groups))
	seen := make(map[string]bool, len(domain.Classifications))
	for _, c := range domain.Classifications {
		seen[c] = true
		out = append(out, GroupTotal{Classification: c, MD: groups[c]})
	}

	var extra []string
	for k := range groups {
		if !seen[k] && k != domain.UnclassifiedLabel {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, GroupTotal{Classification: k, MD: groups[k]})
	}
	if v, ok := groups[domain.UnclassifiedLabel]; ok {
		out = append(out, GroupTotal{Classification: domain.UnclassifiedLabel, MD: v})
	}
	return out
}
