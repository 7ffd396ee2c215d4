package domain

import "errors"

var (
	ErrEstimationNotFound  = errors.New("md estimation not found")
	ErrEstimationCompleted = errors.New("md estimation is completed and cannot be modified")
	ErrProjectMismatch     = errors.New("project id mismatch")
	ErrInvalidStatus       = errors.New("invalid estimation status")
	ErrUnknownWeight       = errors.New("weight id not in table")
	ErrItemNotFound        = errors.New("line item not found")
	ErrReadOnlyField       = errors.New("field is read-only on seeded rows")
	ErrInvalidScore        = errors.New("difficulty score must be between 0 and 3")
	ErrInvalidInput        = errors.New("invalid input")
)
