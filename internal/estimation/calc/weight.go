package calc

import "github.com/wemb-pms/pms-backend/internal/estimation/domain"

// IdentityMultiplier applies when no weight is selected.
const IdentityMultiplier = 1.0

// WeightTable is a multiplier table with at most one selected entry.
// The zero value is an empty table in the NoneSelected state.
type WeightTable struct {
	entries  []domain.WeightEntry
	selected *int64
}

// NewWeightTable copies entries into a table with nothing selected.
func NewWeightTable(entries []domain.WeightEntry) *WeightTable {
	t := &WeightTable{}
	t.Replace(entries)
	return t
}

// Replace swaps the entries. A selection that no longer exists is dropped.
func (t *WeightTable) Replace(entries []domain.WeightEntry) {
	t.entries = append([]domain.WeightEntry(nil), entries...)
	if t.selected != nil && !t.Has(*t.selected) {
		t.selected = nil
	}
}

// Clone returns an independent copy including the selection.
func (t *WeightTable) Clone() *WeightTable {
	c := &WeightTable{entries: t.Entries()}
	if t.selected != nil {
		id := *t.selected
		c.selected = &id
	}
	return c
}

func (t *WeightTable) Entries() []domain.WeightEntry {
	return append([]domain.WeightEntry(nil), t.entries...)
}

func (t *WeightTable) Len() int { return len(t.entries) }

func (t *WeightTable) Has(id int64) bool {
	_, ok := t.find(id)
	return ok
}

// Select moves to Selected(id). Unknown ids leave the state untouched.
func (t *WeightTable) Select(id int64) error {
	if !t.Has(id) {
		return domain.ErrUnknownWeight
	}
	t.selected = &id
	return nil
}

// Clear moves back to NoneSelected.
func (t *WeightTable) Clear() { t.selected = nil }

// Add appends an entry. An existing id is replaced in place.
func (t *WeightTable) Add(e domain.WeightEntry) {
	for i := range t.entries {
		if t.entries[i].ID == e.ID {
			t.entries[i] = e
			return
		}
	}
	t.entries = append(t.entries, e)
}

// Remove deletes the entry. Removing the selected entry clears the selection.
func (t *WeightTable) Remove(id int64) error {
	idx, ok := t.find(id)
	if !ok {
		return domain.ErrUnknownWeight
	}
	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	if t.selected != nil && *t.selected == id {
		t.selected = nil
	}
	return nil
}

// Selected returns the selected id, if any.
func (t *WeightTable) Selected() (int64, bool) {
	if t.selected == nil {
		return 0, false
	}
	return *t.selected, true
}

// Unselected reports the flagged NoneSelected state.
func (t *WeightTable) Unselected() bool { return t.selected == nil }

// Multiplier is 1.0 when nothing is selected, else the selected weight.
func (t *WeightTable) Multiplier() float64 {
	if t.selected == nil {
		return IdentityMultiplier
	}
	idx, ok := t.find(*t.selected)
	if !ok {
		return IdentityMultiplier
	}
	return Finite(t.entries[idx].Weight)
}

func (t *WeightTable) find(id int64) (int, bool) {
	for i, e := range t.entries {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}
