package model

import "time"

// TaskStatus mirrors the integer status column of todo_task.
type TaskStatus int

const (
	TaskStatusOpen TaskStatus = 0
	TaskStatusDone TaskStatus = 1
)

func (s TaskStatus) String() string {
	switch s {
	case TaskStatusOpen:
		return "open"
	case TaskStatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Task is the read-only view the reminder scanner works with.
// A nil DueTime means the task has no deadline.
type Task struct {
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	DueTime *time.Time `json:"due_time"`
	Status  TaskStatus `json:"status"`
}

// ReminderEligible reports whether any reminder policy may consider the task.
func (t Task) ReminderEligible() bool {
	return t.Status == TaskStatusOpen && t.DueTime != nil
}
