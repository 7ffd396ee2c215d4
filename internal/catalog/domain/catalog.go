package domain

import (
	"errors"

	estdomain "github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

// Catalog kinds, used as endpoint names and cache keys.
const (
	KindDevelopmentItems     = "development-items"
	KindModeling3DRates      = "modeling-3d-rates"
	KindPIDRates             = "pid-rates"
	KindModeling3DWeights    = "modeling-3d"
	KindPIDWeights           = "pid"
	KindDifficultyItems      = "difficulty-items"
	KindFieldDifficultyItems = "field-difficulty-items"
)

// Kinds lists every catalog kind in load order.
var Kinds = []string{
	KindDevelopmentItems,
	KindModeling3DRates,
	KindPIDRates,
	KindModeling3DWeights,
	KindPIDWeights,
	KindDifficultyItems,
	KindFieldDifficultyItems,
}

var (
	ErrUnknownKind     = errors.New("unknown catalog kind")
	ErrCatalogNotFound = errors.New("catalog not cached")
)

// DefaultWeight replaces weights that are missing or not positive.
const DefaultWeight = 1.0

type DevelopmentItem struct {
	ID             int64   `json:"id" yaml:"id"`
	Classification string  `json:"classification" yaml:"classification"`
	Content        string  `json:"content" yaml:"content"`
	StandardMD     float64 `json:"standard_md" yaml:"standard_md"`
	DisplayOrder   int     `json:"display_order" yaml:"display_order"`
}

// RateItem is a row of the 3D modeling or P&ID effort table.
type RateItem struct {
	ID           int64   `json:"id" yaml:"id"`
	Category     string  `json:"category" yaml:"category"`
	Difficulty   string  `json:"difficulty,omitempty" yaml:"difficulty"`
	Quantity     float64 `json:"quantity" yaml:"quantity"`
	BaseMD       float64 `json:"base_md" yaml:"base_md"`
	Remarks      string  `json:"remarks" yaml:"remarks"`
	DisplayOrder int     `json:"display_order" yaml:"display_order"`
}

type Catalog struct {
	DevelopmentItems     []DevelopmentItem          `json:"development_items" yaml:"development_items"`
	Modeling3DRates      []RateItem                 `json:"modeling_3d_rates" yaml:"modeling_3d_rates"`
	PIDRates             []RateItem                 `json:"pid_rates" yaml:"pid_rates"`
	Modeling3DWeights    []estdomain.WeightEntry    `json:"modeling_3d_weights" yaml:"modeling_3d_weights"`
	PIDWeights           []estdomain.WeightEntry    `json:"pid_weights" yaml:"pid_weights"`
	DifficultyItems      []estdomain.DifficultyItem `json:"difficulty_items" yaml:"difficulty_items"`
	FieldDifficultyItems []estdomain.DifficultyItem `json:"field_difficulty_items" yaml:"field_difficulty_items"`
}

// Normalize applies the weight default and drops duplicate field items.
func (c *Catalog) Normalize() {
	c.Modeling3DWeights = NormalizeWeights(c.Modeling3DWeights)
	c.PIDWeights = NormalizeWeights(c.PIDWeights)
	c.FieldDifficultyItems = UniqueDifficulty(c.FieldDifficultyItems)
}

func NormalizeWeights(in []estdomain.WeightEntry) []estdomain.WeightEntry {
	out := make([]estdomain.WeightEntry, len(in))
	for i, w := range in {
		if !(w.Weight > 0) {
			w.Weight = DefaultWeight
		}
		out[i] = w
	}
	return out
}

func UniqueDifficulty(in []estdomain.DifficultyItem) []estdomain.DifficultyItem {
	seen := make(map[int64]struct{}, len(in))
	out := make([]estdomain.DifficultyItem, 0, len(in))
	for _, it := range in {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// FieldCategories lists the distinct field categories in first-seen order.
func (c Catalog) FieldCategories() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range c.FieldDifficultyItems {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out
}
