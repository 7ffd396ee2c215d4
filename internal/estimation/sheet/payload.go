package sheet

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

// NullableID distinguishes an absent id from an explicit null.
type NullableID struct {
	Set   bool
	Value *int64
}

func SetID(v *int64) NullableID { return NullableID{Set: true, Value: v} }

func (n NullableID) IsZero() bool { return !n.Set }

func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

type DifficultyRecord struct {
	DifficultyItemID      *int64 `json:"difficulty_item_id"`
	FieldDifficultyItemID *int64 `json:"field_difficulty_item_id"`
	SelectedDifficulty    int    `json:"selected_difficulty"`
}

type DevelopmentRecord struct {
	DevelopmentItemID *int64      `json:"development_item_id"`
	LocalID           string      `json:"local_id,omitempty"`
	Classification    string      `json:"classification"`
	Content           string      `json:"content"`
	Quantity          calc.Number `json:"quantity"`
	StandardMD        calc.Number `json:"standard_md"`
	CalculatedMD      calc.Number `json:"calculated_md"`
	Remarks           string      `json:"remarks,omitempty"`
	DisplayOrder      int         `json:"display_order"`
}

type Modeling3DRecord struct {
	Modeling3DItemID *int64      `json:"modeling_3d_item_id"`
	LocalID          string      `json:"local_id,omitempty"`
	Category         string      `json:"category"`
	Content          string      `json:"content,omitempty"`
	Difficulty       string      `json:"difficulty"`
	Quantity         calc.Number `json:"quantity"`
	BaseMD           calc.Number `json:"base_md"`
	CalculatedMD     calc.Number `json:"calculated_md"`
	Remarks          string      `json:"remarks"`
	DisplayOrder     int         `json:"display_order"`
}

type PIDRecord struct {
	PIDItemID    *int64      `json:"pid_item_id"`
	LocalID      string      `json:"local_id,omitempty"`
	Category     string      `json:"category"`
	Content      string      `json:"content,omitempty"`
	Quantity     calc.Number `json:"quantity"`
	BaseMD       calc.Number `json:"base_md"`
	CalculatedMD calc.Number `json:"calculated_md"`
	Remarks      string      `json:"remarks"`
	DisplayOrder int         `json:"display_order"`
}

// Payload is the wire and storage form of a sheet. Collection fields are
// pointers so that an absent collection can be told apart from an empty one.
type Payload struct {
	ProjectID         *int64       `json:"project_id,omitempty"`
	Status            *string      `json:"status,omitempty"`
	MMCalculationBase *calc.Number `json:"mmCalculationBase,omitempty"`

	SelectedModeling3DWeightID NullableID `json:"selected_modeling_3d_weight_id,omitzero"`
	SelectedPIDWeightID        NullableID `json:"selected_pid_weight_id,omitzero"`

	WeightTable    *[]domain.WeightEntry `json:"weightTable,omitempty"`
	PIDWeightTable *[]domain.WeightEntry `json:"pidWeightTable,omitempty"`

	Difficulties     *[]DifficultyRecord  `json:"difficulties,omitempty"`
	FieldCategories  *[]string            `json:"fieldCategories,omitempty"`
	DevelopmentItems *[]DevelopmentRecord `json:"developmentItems,omitempty"`
	Modeling3DItems  *[]Modeling3DRecord  `json:"modeling3dItems,omitempty"`
	PIDItems         *[]PIDRecord         `json:"pidItems,omitempty"`
}

// HasContent reports whether the payload carries anything besides a status.
func (p Payload) HasContent() bool {
	return p.MMCalculationBase != nil ||
		p.SelectedModeling3DWeightID.Set ||
		p.SelectedPIDWeightID.Set ||
		p.WeightTable != nil ||
		p.PIDWeightTable != nil ||
		p.Difficulties != nil ||
		p.FieldCategories != nil ||
		p.DevelopmentItems != nil ||
		p.Modeling3DItems != nil ||
		p.PIDItems != nil
}

// Collection load outcomes.
const (
	LoadReplaced  = "replaced"
	LoadDefaulted = "defaulted"
	LoadCleared   = "cleared"
)

// Report records how each part of a payload was applied.
type Report struct {
	Development       string     `json:"development"`
	Modeling3D        string     `json:"modeling_3d"`
	PID               string     `json:"pid"`
	Modeling3DWeights Resolution `json:"modeling_3d_weights"`
	PIDWeights        Resolution `json:"pid_weights"`
}

// StaleSelection reports whether a saved weight id no longer exists.
func (r Report) StaleSelection() bool {
	return r.Modeling3DWeights.StaleSelection || r.PIDWeights.StaleSelection
}

// Serialize converts the sheet into its payload form. Every collection is
// present, so a cleared development table stays cleared on reload.
func Serialize(s *Sheet) Payload {
	dev := make([]DevelopmentRecord, 0, len(s.items[Development]))
	for i, it := range s.items[Development] {
		id, local := refFields(it.Ref)
		dev = append(dev, DevelopmentRecord{
			DevelopmentItemID: id,
			LocalID:           local,
			Classification:    it.Classification,
			Content:           it.Content,
			Quantity:          calc.Number(it.Quantity),
			StandardMD:        calc.Number(it.UnitRate),
			CalculatedMD:      calc.Number(it.Calculated),
			Remarks:           it.Remarks,
			DisplayOrder:      i,
		})
	}

	m3 := make([]Modeling3DRecord, 0, len(s.items[Modeling3D]))
	for i, it := range s.items[Modeling3D] {
		id, local := refFields(it.Ref)
		m3 = append(m3, Modeling3DRecord{
			Modeling3DItemID: id,
			LocalID:          local,
			Category:         it.Classification,
			Content:          it.Content,
			Difficulty:       it.Difficulty,
			Quantity:         calc.Number(it.Quantity),
			BaseMD:           calc.Number(it.UnitRate),
			CalculatedMD:     calc.Number(it.Calculated),
			Remarks:          it.Remarks,
			DisplayOrder:     i,
		})
	}

	pid := make([]PIDRecord, 0, len(s.items[PID]))
	for i, it := range s.items[PID] {
		id, local := refFields(it.Ref)
		pid = append(pid, PIDRecord{
			PIDItemID:    id,
			LocalID:      local,
			Category:     it.Classification,
			Content:      it.Content,
			Quantity:     calc.Number(it.Quantity),
			BaseMD:       calc.Number(it.UnitRate),
			CalculatedMD: calc.Number(it.Calculated),
			Remarks:      it.Remarks,
			DisplayOrder: i,
		})
	}

	diffs := make([]DifficultyRecord, 0, len(s.commonSelections)+len(s.fieldSelections))
	for _, item := range s.commonDifficulty {
		if v, ok := s.commonSelections[item.ID]; ok {
			id := item.ID
			diffs = append(diffs, DifficultyRecord{DifficultyItemID: &id, SelectedDifficulty: v})
		}
	}
	for _, item := range s.fieldDifficulty {
		if v, ok := s.fieldSelections[item.ID]; ok {
			id := item.ID
			diffs = append(diffs, DifficultyRecord{FieldDifficultyItemID: &id, SelectedDifficulty: v})
		}
	}

	cats := s.FieldCategories()
	m3w := s.m3Weights.Entries()
	pidw := s.pidWeights.Entries()
	base := calc.Number(s.mmBase)

	return Payload{
		MMCalculationBase:          &base,
		SelectedModeling3DWeightID: SetID(selectedPtr(s.m3Weights)),
		SelectedPIDWeightID:        SetID(selectedPtr(s.pidWeights)),
		WeightTable:                &m3w,
		PIDWeightTable:             &pidw,
		Difficulties:               &diffs,
		FieldCategories:            &cats,
		DevelopmentItems:           &dev,
		Modeling3DItems:            &m3,
		PIDItems:                   &pid,
	}
}

// Deserialize rebuilds a sheet from a payload over the given catalog
// defaults. Calculated values in the payload are ignored and re-derived.
func Deserialize(p Payload, d Defaults) (*Sheet, Report, error) {
	s := empty(d)
	var rep Report

	switch {
	case p.DevelopmentItems == nil:
		s.items[Development] = zeroQuantities(d.DevelopmentItems)
		rep.Development = LoadDefaulted
	case len(*p.DevelopmentItems) == 0:
		rep.Development = LoadCleared
	default:
		for _, r := range *p.DevelopmentItems {
			s.items[Development] = append(s.items[Development], domain.LineItem{
				Ref:            restoreRef(r.DevelopmentItemID, r.LocalID),
				Classification: r.Classification,
				Content:        r.Content,
				Quantity:       r.Quantity.Float(),
				UnitRate:       r.StandardMD.Float(),
				Remarks:        r.Remarks,
			})
		}
		rep.Development = LoadReplaced
	}

	if p.Modeling3DItems == nil || len(*p.Modeling3DItems) == 0 {
		s.items[Modeling3D] = zeroQuantities(d.Modeling3DRates)
		rep.Modeling3D = LoadDefaulted
	} else {
		for _, r := range *p.Modeling3DItems {
			s.items[Modeling3D] = append(s.items[Modeling3D], domain.LineItem{
				Ref:            restoreRef(r.Modeling3DItemID, r.LocalID),
				Classification: r.Category,
				Content:        r.Content,
				Difficulty:     r.Difficulty,
				Quantity:       r.Quantity.Float(),
				UnitRate:       r.BaseMD.Float(),
				Remarks:        r.Remarks,
			})
		}
		rep.Modeling3D = LoadReplaced
	}

	if p.PIDItems == nil || len(*p.PIDItems) == 0 {
		s.items[PID] = zeroQuantities(d.PIDRates)
		rep.PID = LoadDefaulted
	} else {
		for _, r := range *p.PIDItems {
			s.items[PID] = append(s.items[PID], domain.LineItem{
				Ref:            restoreRef(r.PIDItemID, r.LocalID),
				Classification: r.Category,
				Content:        r.Content,
				Quantity:       r.Quantity.Float(),
				UnitRate:       r.BaseMD.Float(),
				Remarks:        r.Remarks,
			})
		}
		rep.PID = LoadReplaced
	}

	var err error
	if s.m3Weights, rep.Modeling3DWeights, err = resolveWeights(d.Modeling3DWeights, p.WeightTable, p.SelectedModeling3DWeightID); err != nil {
		return nil, Report{}, err
	}
	if s.pidWeights, rep.PIDWeights, err = resolveWeights(d.PIDWeights, p.PIDWeightTable, p.SelectedPIDWeightID); err != nil {
		return nil, Report{}, err
	}

	if p.Difficulties != nil {
		for _, r := range *p.Difficulties {
			if !calc.ValidScore(r.SelectedDifficulty) {
				return nil, Report{}, domain.ErrInvalidScore
			}
			switch {
			case r.DifficultyItemID != nil && hasDifficulty(s.commonDifficulty, *r.DifficultyItemID):
				s.commonSelections[*r.DifficultyItemID] = r.SelectedDifficulty
			case r.FieldDifficultyItemID != nil && hasDifficulty(s.fieldDifficulty, *r.FieldDifficultyItemID):
				s.fieldSelections[*r.FieldDifficultyItemID] = r.SelectedDifficulty
			}
		}
	}
	if p.FieldCategories != nil {
		for _, c := range *p.FieldCategories {
			s.fieldCategories[c] = true
		}
	}
	if p.MMCalculationBase != nil {
		s.mmBase = p.MMCalculationBase.Float()
	}

	s.recompute()
	return s, rep, nil
}

func resolveWeights(catalog []domain.WeightEntry, table *[]domain.WeightEntry, selected NullableID) (*calc.WeightTable, Resolution, error) {
	l := NewSelectionLoader()
	var saved []domain.WeightEntry
	if table != nil {
		saved = *table
	}
	if err := l.Restore(saved, selected.Value); err != nil {
		return nil, Resolution{}, err
	}
	if err := l.BeginCatalog(); err != nil {
		return nil, Resolution{}, err
	}
	if err := l.CatalogLoaded(catalog); err != nil {
		return nil, Resolution{}, err
	}
	return l.Resolve()
}

func refFields(ref domain.ItemRef) (*int64, string) {
	if id, ok := ref.CatalogID(); ok {
		return &id, ""
	}
	return nil, ref.LocalID()
}

// restoreRef prefers the local id. Legacy rows with neither id get a new one.
func restoreRef(catalogID *int64, localID string) domain.ItemRef {
	switch {
	case localID != "":
		return domain.UserAdded(localID)
	case catalogID != nil && *catalogID != 0:
		return domain.Seeded(*catalogID)
	}
	return domain.UserAdded(uuid.NewString())
}

func selectedPtr(t *calc.WeightTable) *int64 {
	if id, ok := t.Selected(); ok {
		return &id
	}
	return nil
}

func zeroQuantities(in []domain.LineItem) []domain.LineItem {
	out := cloneItems(in)
	for i := range out {
		out[i].Quantity = 0
	}
	return out
}
