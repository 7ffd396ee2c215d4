package sheet

import (
	"sort"

	"github.com/google/uuid"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

// Collection names one of the three line-item tables.
type Collection int

const (
	Development Collection = iota
	Modeling3D
	PID
)

func (c Collection) String() string {
	switch c {
	case Development:
		return "development"
	case Modeling3D:
		return "modeling_3d"
	case PID:
		return "pid"
	}
	return "unknown"
}

// WeightKind names one of the two multiplier tables.
type WeightKind int

const (
	Modeling3DWeights WeightKind = iota
	PIDWeights
)

// Defaults is the catalog content a sheet is seeded from.
type Defaults struct {
	DevelopmentItems  []domain.LineItem
	Modeling3DRates   []domain.LineItem
	PIDRates          []domain.LineItem
	Modeling3DWeights []domain.WeightEntry
	PIDWeights        []domain.WeightEntry
	CommonDifficulty  []domain.DifficultyItem
	FieldDifficulty   []domain.DifficultyItem
	MMCalculationBase float64
}

// Sheet is the editable state of one estimation. Every mutation is followed by
// a full recompute of the derived values, so readers always see a consistent
// summary.
type Sheet struct {
	items [3][]domain.LineItem

	m3Weights  *calc.WeightTable
	pidWeights *calc.WeightTable

	commonDifficulty []domain.DifficultyItem
	fieldDifficulty  []domain.DifficultyItem
	commonSelections map[int64]int
	fieldSelections  map[int64]int
	fieldCategories  map[string]bool

	mmBase float64

	summary calc.Summary
}

// New builds a fresh sheet from catalog defaults.
func New(d Defaults) *Sheet {
	s := empty(d)
	s.items[Development] = cloneItems(d.DevelopmentItems)
	s.items[Modeling3D] = cloneItems(d.Modeling3DRates)
	s.items[PID] = cloneItems(d.PIDRates)
	s.m3Weights = calc.NewWeightTable(d.Modeling3DWeights)
	s.pidWeights = calc.NewWeightTable(d.PIDWeights)
	s.recompute()
	return s
}

func empty(d Defaults) *Sheet {
	base := d.MMCalculationBase
	if base == 0 {
		base = calc.DefaultMMCalculationBase
	}
	return &Sheet{
		items:            [3][]domain.LineItem{{}, {}, {}},
		m3Weights:        &calc.WeightTable{},
		pidWeights:       &calc.WeightTable{},
		commonDifficulty: append([]domain.DifficultyItem{}, d.CommonDifficulty...),
		fieldDifficulty:  dedupeDifficulty(d.FieldDifficulty),
		commonSelections: map[int64]int{},
		fieldSelections:  map[int64]int{},
		fieldCategories:  map[string]bool{},
		mmBase:           base,
	}
}

// Items returns a copy of the collection.
func (s *Sheet) Items(c Collection) []domain.LineItem {
	return cloneItems(s.items[c])
}

// Summary returns the derived figures as of the last mutation.
func (s *Sheet) Summary() calc.Summary { return s.summary }

// Weights returns a copy of the multiplier table.
func (s *Sheet) Weights(k WeightKind) *calc.WeightTable {
	return s.table(k).Clone()
}

func (s *Sheet) table(k WeightKind) *calc.WeightTable {
	if k == PIDWeights {
		return s.pidWeights
	}
	return s.m3Weights
}

func (s *Sheet) CommonDifficulty() []domain.DifficultyItem {
	return append([]domain.DifficultyItem{}, s.commonDifficulty...)
}

func (s *Sheet) FieldDifficulty() []domain.DifficultyItem {
	return append([]domain.DifficultyItem{}, s.fieldDifficulty...)
}

// CommonSelection returns the user's score for a common item, if set.
func (s *Sheet) CommonSelection(id int64) (int, bool) {
	v, ok := s.commonSelections[id]
	return v, ok
}

func (s *Sheet) FieldSelection(id int64) (int, bool) {
	v, ok := s.fieldSelections[id]
	return v, ok
}

// FieldCategories lists the selected field categories in sorted order.
func (s *Sheet) FieldCategories() []string {
	out := make([]string, 0, len(s.fieldCategories))
	for c := range s.fieldCategories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// MMCalculationBase returns the configured base as entered. The summary uses
// calc.EffectiveBase of this value.
func (s *Sheet) MMCalculationBase() float64 { return s.mmBase }

// AddItem appends a user-added row and returns its reference.
func (s *Sheet) AddItem(c Collection, item domain.LineItem) domain.ItemRef {
	item.Ref = domain.UserAdded(uuid.NewString())
	s.items[c] = append(s.items[c], item)
	s.recompute()
	return item.Ref
}

// RemoveItem deletes a row from the collection.
func (s *Sheet) RemoveItem(c Collection, ref domain.ItemRef) error {
	idx := s.indexOf(c, ref)
	if idx < 0 {
		return domain.ErrItemNotFound
	}
	s.items[c] = append(s.items[c][:idx], s.items[c][idx+1:]...)
	s.recompute()
	return nil
}

func (s *Sheet) SetQuantity(c Collection, ref domain.ItemRef, raw string) error {
	return s.update(c, ref, func(it *domain.LineItem) error {
		it.Quantity = calc.ToNumber(raw)
		return nil
	})
}

func (s *Sheet) SetUnitRate(c Collection, ref domain.ItemRef, raw string) error {
	return s.update(c, ref, func(it *domain.LineItem) error {
		it.UnitRate = calc.ToNumber(raw)
		return nil
	})
}

// SetClassification renames the group of a user-added row.
func (s *Sheet) SetClassification(c Collection, ref domain.ItemRef, v string) error {
	return s.update(c, ref, func(it *domain.LineItem) error {
		if it.Ref.IsSeeded() {
			return domain.ErrReadOnlyField
		}
		it.Classification = v
		return nil
	})
}

func (s *Sheet) SetContent(c Collection, ref domain.ItemRef, v string) error {
	return s.update(c, ref, func(it *domain.LineItem) error {
		if it.Ref.IsSeeded() {
			return domain.ErrReadOnlyField
		}
		it.Content = v
		return nil
	})
}

func (s *Sheet) SetRemarks(c Collection, ref domain.ItemRef, v string) error {
	return s.update(c, ref, func(it *domain.LineItem) error {
		it.Remarks = v
		return nil
	})
}

func (s *Sheet) SetCommonDifficulty(id int64, score int) error {
	if !calc.ValidScore(score) {
		return domain.ErrInvalidScore
	}
	if !hasDifficulty(s.commonDifficulty, id) {
		return domain.ErrItemNotFound
	}
	s.commonSelections[id] = score
	s.recompute()
	return nil
}

func (s *Sheet) SetFieldDifficulty(id int64, score int) error {
	if !calc.ValidScore(score) {
		return domain.ErrInvalidScore
	}
	if !hasDifficulty(s.fieldDifficulty, id) {
		return domain.ErrItemNotFound
	}
	s.fieldSelections[id] = score
	s.recompute()
	return nil
}

// ToggleFieldCategory flips a category and reports whether it is now selected.
func (s *Sheet) ToggleFieldCategory(category string) bool {
	on := !s.fieldCategories[category]
	if on {
		s.fieldCategories[category] = true
	} else {
		delete(s.fieldCategories, category)
	}
	s.recompute()
	return on
}

func (s *Sheet) SelectWeight(k WeightKind, id int64) error {
	if err := s.table(k).Select(id); err != nil {
		return err
	}
	s.recompute()
	return nil
}

func (s *Sheet) ClearWeight(k WeightKind) {
	s.table(k).Clear()
	s.recompute()
}

func (s *Sheet) AddWeight(k WeightKind, e domain.WeightEntry) {
	s.table(k).Add(e)
	s.recompute()
}

func (s *Sheet) RemoveWeight(k WeightKind, id int64) error {
	if err := s.table(k).Remove(id); err != nil {
		return err
	}
	s.recompute()
	return nil
}

// SetMMCalculationBase stores the base as entered. Unusable values are kept
// and replaced by the default at the point of use.
func (s *Sheet) SetMMCalculationBase(raw string) {
	s.mmBase = calc.ToNumber(raw)
	s.recompute()
}

func (s *Sheet) update(c Collection, ref domain.ItemRef, fn func(*domain.LineItem) error) error {
	idx := s.indexOf(c, ref)
	if idx < 0 {
		return domain.ErrItemNotFound
	}
	if err := fn(&s.items[c][idx]); err != nil {
		return err
	}
	s.recompute()
	return nil
}

func (s *Sheet) indexOf(c Collection, ref domain.ItemRef) int {
	for i, it := range s.items[c] {
		if it.Ref == ref {
			return i
		}
	}
	return -1
}

func (s *Sheet) recompute() {
	for c := range s.items {
		calc.RecomputeAll(s.items[c])
	}
	s.summary = calc.Summarize(calc.SummaryInput{
		Development: s.items[Development],
		Modeling3D:  s.items[Modeling3D],
		PID:         s.items[PID],
		Difficulty: calc.DifficultyInput{
			Common:             s.commonDifficulty,
			Field:              s.fieldDifficulty,
			CommonSelections:   s.commonSelections,
			FieldSelections:    s.fieldSelections,
			SelectedCategories: s.fieldCategories,
		},
		Modeling3DWeights: s.m3Weights,
		PIDWeights:        s.pidWeights,
		MMCalculationBase: s.mmBase,
	})
}

func cloneItems(in []domain.LineItem) []domain.LineItem {
	return append([]domain.LineItem{}, in...)
}

func hasDifficulty(items []domain.DifficultyItem, id int64) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func dedupeDifficulty(in []domain.DifficultyItem) []domain.DifficultyItem {
	out := make([]domain.DifficultyItem, 0, len(in))
	seen := make(map[int64]bool, len(in))
	for _, it := range in {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
