package models

import "time"

// Over is a block of up to six legal deliveries by one bowler. StrikerID and
// NonStrikerID track who faces the next ball; BallService swaps them as runs
// are scored and when the over completes.
type Over struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	InningsID    string `gorm:"not null;index;uniqueIndex:idx_over_innings_number" json:"innings_id"`
	Number       int    `gorm:"not null;uniqueIndex:idx_over_innings_number" json:"number"`
	BowlerID     string `gorm:"not null" json:"bowler_id"`
	StrikerID    string `gorm:"not null" json:"striker_id"`
	NonStrikerID string `gorm:"not null" json:"non_striker_id"`

	LegalBalls int        `json:"legal_balls" gorm:"default:0"` // 0..6
	Completed  bool       `json:"completed" gorm:"default:false"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	// Relationship: One Over has many Balls
	Balls []Ball `json:"balls,omitempty" gorm:"foreignKey:OverID"`

	Timestamps
}
