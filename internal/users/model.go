package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrRequired      = errors.New("name, email and username are required")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already registered")
	ErrInvalidStatus = errors.New("invalid user status")
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusResigned = "resigned"
)

func isValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusResigned:
		return true
	}
	return false
}

type Role struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}

type User struct {
	ID              int64      `json:"id" db:"id"`
	Username        string     `json:"username" db:"username"`
	Name            string     `json:"name" db:"name"`
	Email           string     `json:"email" db:"email"`
	EmployeeNumber  *string    `json:"employee_number" db:"employee_number"`
	Phone           *string    `json:"phone" db:"phone"`
	DepartmentID    *int64     `json:"department_id" db:"department_id"`
	DepartmentName  *string    `json:"department_name" db:"department_name"`
	RankID          *int64     `json:"rank_id" db:"rank_id"`
	RankName        *string    `json:"rank_name" db:"rank_name"`
	Grade           *string    `json:"grade" db:"grade"`
	Title           *string    `json:"title" db:"title"`
	Status          string     `json:"status" db:"status"`
	ContractType    *string    `json:"contract_type" db:"contract_type"`
	JoinedDate      *time.Time `json:"joined_date" db:"joined_date"`
	ResignationDate *time.Time `json:"resignation_date" db:"resignation_date"`
	Roles           []Role     `json:"roles" db:"roles"`
}

type Filter struct {
	Search       string
	Role         string
	DepartmentID *int64
}

// Input is shared by create and update. On update nil fields keep their
// stored value and a nil RoleIDs keeps the stored roles. The first role id is
// the primary role.
type Input struct {
	Username        *string    `json:"username"`
	Name            *string    `json:"name"`
	Email           *string    `json:"email"`
	EmployeeNumber  *string    `json:"employee_number"`
	Phone           *string    `json:"phone"`
	DepartmentID    *int64     `json:"department_id"`
	RankID          *int64     `json:"rank_id"`
	Grade           *string    `json:"grade"`
	Title           *string    `json:"title"`
	Status          *string    `json:"status"`
	ContractType    *string    `json:"contract_type"`
	JoinedDate      *time.Time `json:"joined_date"`
	ResignationDate *time.Time `json:"resignation_date"`
	RoleIDs         []int64    `json:"role_ids"`
}
