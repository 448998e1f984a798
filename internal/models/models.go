package models

import "time"

// User is a registered account. Email is unique and compared as stored.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Board is a workspace owned by one user and shared with its members.
// The owner is always present in the member set.
type Board struct {
	ID        int64
	Title     string
	OwnerID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BoardStats holds the aggregate counters shown on board listings.
type BoardStats struct {
	MemberCount        int
	TicketCount        int
	TasksToDoCount     int
	TasksHighPrioCount int
}

// Task represents a single card on a board.
type Task struct {
	ID          int64
	BoardID     int64
	Title       string
	Description string
	Status      Status
	Priority    Priority
	AssigneeID  *int64
	ReviewerID  *int64
	DueDate     *Date
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is an author-attributed note on a task.
type Comment struct {
	ID        int64
	TaskID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}
