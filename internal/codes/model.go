package codes

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("code not found")
	ErrRequired      = errors.New("code and name are required")
	ErrDuplicate     = errors.New("code already exists in this level")
	ErrSystemCode    = errors.New("system codes cannot be deleted")
	ErrInvalidParent = errors.New("invalid parent code")
	ErrInUse         = errors.New("code is still referenced")
)

// Code is one entry of the hierarchical common-code table (ranks, roles,
// phases, affiliation groups). Top-level rows have no parent.
type Code struct {
	ID           int64     `json:"id" db:"id"`
	ParentID     *int64    `json:"parent_id" db:"parent_id"`
	Code         string    `json:"code" db:"code"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsSystem     bool      `json:"is_system" db:"is_system"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Filter narrows List. ParentCode wins over ParentID; RootOnly selects
// top-level codes.
type Filter struct {
	ParentID        *int64
	ParentCode      string
	RootOnly        bool
	IncludeInactive bool
}

type CreateInput struct {
	ParentID     *int64 `json:"parent_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	IsActive     *bool  `json:"is_active"`
}

type UpdateInput struct {
	Code         *string `json:"code"`
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}
