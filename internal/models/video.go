package models

import "time"

// StagedVideo is an uploaded video written to a temporary file and waiting
// for analysis. It lives until the analysis attempt finishes.
type StagedVideo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`      // Original file name as sent by the browser
	Ext      string    `json:"extension"` // "mp4", "avi" or "mov"
	Path     string    `json:"-"`
	Size     int64     `json:"size"`
	StagedAt time.Time `json:"stagedAt"`
}
