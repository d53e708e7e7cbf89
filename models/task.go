package models

// TaskPriority weights the base XP for completing a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// BaseXP returns the base XP for a task of this priority
func (p TaskPriority) BaseXP() int64 {
	switch p {
	case TaskPriorityLow:
		return 10
	case TaskPriorityHigh:
		return 25
	default:
		return 15
	}
}

// Task is a one-off to-do item. Completion is a toggle: CompletedDate is set
// with an XPAwarded snapshot, and cleared (with XP reversed) on uncompletion.
type Task struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string       `gorm:"index;not null" json:"external_user_id"`
	Title          string       `gorm:"not null" json:"title"`
	Notes          string       `gorm:"type:text" json:"notes,omitempty"`
	Priority       TaskPriority `gorm:"type:varchar(8);default:'medium'" json:"priority"`
	DueDate        *string      `json:"due_date,omitempty" gorm:"type:varchar(10)"`

	CompletedDate *string `json:"completed_date,omitempty" gorm:"type:varchar(10);index"`
	XPAwarded     int64   `json:"xp_awarded" gorm:"default:0"` // snapshot at completion time

	Timestamps
}

// Completed reports whether the task is currently marked done
func (t *Task) Completed() bool {
	return t.CompletedDate != nil
}
