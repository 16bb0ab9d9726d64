package models

import (
	"time"

	"gorm.io/gorm"
)

// Match lifecycle statuses — the match record itself is owned by the match
// management service; the scoring core only reads these and requests the
// LIVE/COMPLETED transitions.
const (
	MatchStatusScheduled = "SCHEDULED"
	MatchStatusToss      = "TOSS"
	MatchStatusLineupSet = "LINEUP_SET"
	MatchStatusLive      = "LIVE"
	MatchStatusCompleted = "COMPLETED"
)

// BallsPerOver is the legal-delivery limit of a full over.
const BallsPerOver = 6

// MaxInningsPerMatch — two-innings limited-overs format only.
const MaxInningsPerMatch = 2

// Innings is one team's batting turn. Aggregates are denormalized running
// totals; they are mutated only by BallService inside its transaction and by
// EndInnings (end timestamp).
type Innings struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID       string `gorm:"not null;index;uniqueIndex:idx_innings_match_number" json:"match_id"`
	Number        int    `gorm:"not null;uniqueIndex:idx_innings_match_number" json:"number"`
	BattingTeamID string `gorm:"not null" json:"batting_team_id"`
	BowlingTeamID string `gorm:"not null" json:"bowling_team_id"`

	// Running aggregates
	TotalRuns  int64 `json:"total_runs" gorm:"default:0"`
	Wickets    int   `json:"wickets" gorm:"default:0"`
	LegalBalls int   `json:"legal_balls" gorm:"default:0"`
	WideRuns   int64 `json:"wide_runs" gorm:"default:0"`
	NoBallRuns int64 `json:"no_ball_runs" gorm:"default:0"`
	ByeRuns    int64 `json:"bye_runs" gorm:"default:0"`
	LegByeRuns int64 `json:"leg_bye_runs" gorm:"default:0"`

	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Relationship: One Innings has many Overs
	Overs []Over `json:"overs,omitempty" gorm:"foreignKey:InningsID"`

	Timestamps
}

// Ended reports whether the innings has been closed.
func (i *Innings) Ended() bool {
	return i.EndedAt != nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
