// Package storage holds the persistence contract shared by storage backends.
package storage

import (
	"errors"

	"taskboard/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// BoardPatch lists the board fields to change. Nil fields are left as they are.
// When Members is non-nil the member set is replaced and the owner re-added
// in the same transaction.
type BoardPatch struct {
	Title   *string
	Members []int64
}

// TaskPatch lists the task fields to change. Nil pointers and unset
// optionals are left as they are; a null optional clears the column.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	AssigneeID  models.Optional[int64]
	ReviewerID  models.Optional[int64]
	DueDate     models.Optional[models.Date]
}
