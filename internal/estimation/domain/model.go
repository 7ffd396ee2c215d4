package domain

import (
	"fmt"
	"time"
)

// Estimation status constants
const (
	StatusStandby    = "STANDBY"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Development classifications in report order.
var Classifications = []string{"PM", "개발", "I/F", "2D디자인", "포탈"}

// UnclassifiedLabel groups rows that carry no classification.
const UnclassifiedLabel = "기타"

// ItemRef identifies a line item. A row is either seeded from the catalog
// (its catalog id is its semantic key) or added by the user under a local id.
type ItemRef struct {
	catalogID int64
	localID   string
}

// Seeded returns the reference of a catalog-backed row.
func Seeded(catalogID int64) ItemRef { return ItemRef{catalogID: catalogID} }

// UserAdded returns the reference of an ad hoc row.
func UserAdded(localID string) ItemRef { return ItemRef{localID: localID} }

func (r ItemRef) IsSeeded() bool { return r.localID == "" && r.catalogID != 0 }

// CatalogID reports the catalog id for seeded rows.
func (r ItemRef) CatalogID() (int64, bool) {
	if !r.IsSeeded() {
		return 0, false
	}
	return r.catalogID, true
}

func (r ItemRef) LocalID() string { return r.localID }

func (r ItemRef) IsZero() bool { return r.catalogID == 0 && r.localID == "" }

func (r ItemRef) String() string {
	if r.IsSeeded() {
		return fmt.Sprintf("seeded:%d", r.catalogID)
	}
	return "local:" + r.localID
}

// LineItem is one editable row of a development, 3D-modeling or P&ID table.
// Calculated is derived from Quantity and UnitRate and is never edited directly.
type LineItem struct {
	Ref            ItemRef
	Classification string // classification for development rows, category otherwise
	Content        string
	Difficulty     string // 상/중/하 label on 3D rows
	Quantity       float64
	UnitRate       float64 // standard M/D or base M/D
	Calculated     float64
	Remarks        string
}

// WeightEntry is one row of a selectable multiplier table.
type WeightEntry struct {
	ID          int64   `json:"id"`
	Item        string  `json:"item,omitempty"`
	Content     string  `json:"content"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// DifficultyItem is a catalog row scored 0..3.
type DifficultyItem struct {
	ID          int64  `json:"id"`
	Category    string `json:"category"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Difficulty  int    `json:"difficulty"`
}

// Estimation is the persisted header of one M/D estimation version.
type Estimation struct {
	ID                  int64     `json:"id"`
	ProjectID           int64     `json:"project_id"`
	Version             int       `json:"version"`
	Status              string    `json:"status"`
	CommonDifficultySum float64   `json:"common_difficulty_sum"`
	FieldDifficultySum  float64   `json:"field_difficulty_sum"`
	ProjectDifficulty   float64   `json:"project_difficulty"`
	TotalDevelopmentMD  float64   `json:"total_development_md"`
	TotalModeling3DMD   float64   `json:"total_modeling_3d_md"`
	TotalPIDMD          float64   `json:"total_pid_md"`
	TotalDevelopmentMM  float64   `json:"total_development_mm"`
	TotalModeling3DMM   float64   `json:"total_modeling_3d_mm"`
	TotalPIDMM          float64   `json:"total_pid_mm"`
	TotalMM             float64   `json:"total_mm"`
	SelectedModeling3D  *int64    `json:"selected_modeling_3d_weight_id"`
	SelectedPID         *int64    `json:"selected_pid_weight_id"`
	MMCalculationBase   *float64  `json:"mm_calculation_base"`
	CreatedBy           string    `json:"created_by,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ListFilter narrows estimation listings.
type ListFilter struct {
	ProjectID *int64
	Status    string
}
