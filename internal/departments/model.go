package departments

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("department not found")
	ErrNameRequired  = errors.New("department name is required")
	ErrHasChildren   = errors.New("department has sub-departments")
	ErrInvalidParent = errors.New("invalid parent department")
	ErrNoChanges     = errors.New("no fields provided for update")
)

type Department struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	ParentID     *int64    `json:"parent_department_id" db:"parent_department_id"`
	ManagerID    *int64    `json:"manager_id" db:"manager_id"`
	Description  string    `json:"description" db:"description"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type CreateInput struct {
	Name         string `json:"name"`
	ParentID     *int64 `json:"parent_department_id"`
	ManagerID    *int64 `json:"manager_id"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// UpdateInput is a partial update. ClearParent and ClearManager detach the
// department from its parent or manager.
type UpdateInput struct {
	Name         *string `json:"name"`
	ParentID     *int64  `json:"parent_department_id"`
	ClearParent  bool    `json:"clear_parent"`
	ManagerID    *int64  `json:"manager_id"`
	ClearManager bool    `json:"clear_manager"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
}

func (u UpdateInput) empty() bool {
	return u.Name == nil && u.ParentID == nil && !u.ClearParent &&
		u.ManagerID == nil && !u.ClearManager && u.Description == nil && u.DisplayOrder == nil
}
