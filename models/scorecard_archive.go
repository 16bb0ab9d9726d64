package models

import "time"

// ScorecardArchive marks that a completed match's final scorecard has been
// exported to object storage. One row per match; written by the archive
// worker after a successful upload.
type ScorecardArchive struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID    string    `gorm:"uniqueIndex;not null" json:"match_id"`
	ObjectKey  string    `gorm:"not null" json:"object_key"`
	ArchivedAt time.Time `json:"archived_at"`

	Timestamps
}
