package models

import "time"

// Notification tells a registered recipient that a file was shared with them.
type Notification struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SenderEmail *string   `db:"sender_email" json:"sender_email,omitempty"`
	FileCode    string    `db:"file_code" json:"file_code"`
	Filename    string    `db:"filename" json:"filename"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
