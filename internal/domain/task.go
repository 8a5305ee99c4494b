package domain

import "time"

// Task is an external action (follow a channel, open a link) rewarded with a
// flat amount of power once its completion delay has elapsed.
type Task struct {
	ID              int64      `db:"id" json:"id"`
	Topic           string     `db:"topic" json:"topic"`
	Description     string     `db:"description" json:"description"`
	ImageURL        string     `db:"image_url" json:"image_url,omitempty"`
	Power           int64      `db:"power" json:"power"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CompletionDelay int        `db:"completion_delay" json:"completion_delay"` // seconds
	Link            string     `db:"link" json:"link"`
}

// Available reports whether the task can be started at now.
func (t *Task) Available(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}

// TaskCompletion is a pending (or processed) delayed completion.
type TaskCompletion struct {
	ID             int64     `db:"id" json:"id"`
	TaskID         int64     `db:"task_id" json:"task_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	CompletionTime time.Time `db:"completion_time" json:"completion_time"`
	Processed      bool      `db:"processed" json:"processed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Ready reports whether the delay has elapsed.
func (c *TaskCompletion) Ready(now time.Time) bool {
	return !now.Before(c.CompletionTime)
}
