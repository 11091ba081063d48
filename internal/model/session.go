package model

import (
	"time"
)

// Session is an anonymous, capability-addressed unit of CV-editing state.
// Knowledge of the id grants read/write access; there is no separate auth.
type Session struct {
	ID            string    `db:"id" json:"id"`
	CVContent     string    `db:"cv_content" json:"cvContent"`
	SelectedTheme string    `db:"selected_theme" json:"selectedTheme"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
	ExpiresAt     time.Time `db:"expires_at" json:"expiresAt"`
}

// Expired reports whether the session is logically dead at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type CreateSessionParams struct {
	ID            string
	CVContent     string
	SelectedTheme string
	ExpiresAt     time.Time
}

// UpdateSessionParams carries the optional PATCH fields. Nil means "leave
// unchanged".
type UpdateSessionParams struct {
	CVContent     *string `json:"cvContent,omitempty"`
	SelectedTheme *string `json:"selectedTheme,omitempty"`
	RetentionDays *int    `json:"retentionDays,omitempty"`
}
