package model

import "time"

// ReminderPolicy is serialized with the tags used by existing clients.
type ReminderPolicy string

const (
	PolicyPreDue  ReminderPolicy = "before30min"
	PolicyDueNow  ReminderPolicy = "due"
	PolicyOverdue ReminderPolicy = "overdue"
)

const (
	MessagePreDue  = "task due in 30 minutes"
	MessageDueNow  = "task due now"
	MessageOverdue = "task overdue"
)

// Reminder is produced fresh by every scan and never persisted.
type Reminder struct {
	TaskID  int64          `json:"task_id"`
	Title   string         `json:"title"`
	DueTime *time.Time     `json:"due_time"`
	Policy  ReminderPolicy `json:"reminder_type"`
	Message string         `json:"message"`
}

func NewReminder(t Task, policy ReminderPolicy, message string) Reminder {
	return Reminder{
		TaskID:  t.ID,
		Title:   t.Title,
		DueTime: t.DueTime,
		Policy:  policy,
		Message: message,
	}
}
