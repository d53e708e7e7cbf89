package models

// ScheduleBlock is a planned block of time on a student's day plan
// (e.g., "Math revision 14:00–15:00"). Blocks recur by date; completion is
// tracked per (block, date) like habits.
type ScheduleBlock struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	Title          string `gorm:"not null" json:"title"`
	Subject        string `json:"subject,omitempty"`
	Date           string `gorm:"type:varchar(10);index;not null" json:"date"`
	StartMinute    int    `json:"start_minute"` // minutes from midnight
	EndMinute      int    `json:"end_minute"`
	XPValue        int64  `json:"xp_value" gorm:"default:20"`

	Timestamps
}

// BlockCompletion marks a schedule block done on a date (toggle-by-existence,
// same semantics as HabitCompletion).
type BlockCompletion struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	BlockID        string `gorm:"not null;uniqueIndex:idx_block_date" json:"block_id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	Date           string `gorm:"type:varchar(10);not null;uniqueIndex:idx_block_date" json:"date"`
	XPAwarded      int64  `json:"xp_awarded"`

	Timestamps
}

// FocusSession records a finished focus/pomodoro session. Sessions are
// append-only: there is no "unfocus", so no reversal path exists for them.
type FocusSession struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	Date           string `gorm:"type:varchar(10);index;not null" json:"date"`
	Minutes        int    `json:"minutes"`
	XPAwarded      int64  `json:"xp_awarded"`

	Timestamps
}
