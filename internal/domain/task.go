package domain

import "time"

// Task is a private to-do item. Only the owning user may see or change it.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerID implements auth.Owned.
func (t *Task) OwnerID() int64 {
	return t.UserID
}

// TaskUpdate carries the mutable fields of a task. Nil fields are left as is.
type TaskUpdate struct {
	Title       *string
	Description *string
	Completed   *bool
}
