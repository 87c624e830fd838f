package model

import "time"

// StreamCursor records the last paging token processed for an account's
// payment stream, so the watcher resumes instead of replaying history.
type StreamCursor struct {
	Account   string    `db:"account"`
	Cursor    string    `db:"cursor"`
	UpdatedAt time.Time `db:"updated_at"`
}
