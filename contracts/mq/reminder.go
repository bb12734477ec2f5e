package mq

import "time"

// ReminderFiredPayload is published on routing key reminder.fired for every
// reminder produced by a scheduled scan.
type ReminderFiredPayload struct {
	TaskID       int64      `json:"task_id"`
	Title        string     `json:"title"`
	DueTime      *time.Time `json:"due_time"`
	ReminderType string     `json:"reminder_type"` // before30min / due / overdue
	Message      string     `json:"message"`
	FiredAt      time.Time  `json:"fired_at"`
	TraceID      string     `json:"trace_id,omitempty"`
}
