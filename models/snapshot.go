package models

// InningsSnapshot is a derived, read-only summary of an innings' score state.
// Values are copied out of the stored aggregates — building a snapshot never
// mutates anything.
type InningsSnapshot struct {
	InningsID     string  `json:"innings_id"`
	Number        int     `json:"number"`
	BattingTeamID string  `json:"batting_team_id"`
	BowlingTeamID string  `json:"bowling_team_id"`
	TotalRuns     int64   `json:"total_runs"`
	Wickets       int     `json:"wickets"`
	LegalBalls    int     `json:"legal_balls"`
	Overs         float64 `json:"overs"`
	WideRuns      int64   `json:"wide_runs"`
	NoBallRuns    int64   `json:"no_ball_runs"`
	ByeRuns       int64   `json:"bye_runs"`
	LegByeRuns    int64   `json:"leg_bye_runs"`
	Ended         bool    `json:"ended"`
}

// OversValue renders a legal-ball count in scoreboard overs notation: the
// digit after the point is the ball count of the current over, not a decimal
// fraction. 63 balls → 10.3 (10 complete overs plus 3 balls), 66 → 11.0.
func OversValue(legalBalls int) float64 {
	return float64(legalBalls/BallsPerOver) + float64(legalBalls%BallsPerOver)/10
}

// SnapshotOf builds the summary view of one innings.
func SnapshotOf(in *Innings) InningsSnapshot {
	return InningsSnapshot{
		InningsID:     in.ID,
		Number:        in.Number,
		BattingTeamID: in.BattingTeamID,
		BowlingTeamID: in.BowlingTeamID,
		TotalRuns:     in.TotalRuns,
		Wickets:       in.Wickets,
		LegalBalls:    in.LegalBalls,
		Overs:         OversValue(in.LegalBalls),
		WideRuns:      in.WideRuns,
		NoBallRuns:    in.NoBallRuns,
		ByeRuns:       in.ByeRuns,
		LegByeRuns:    in.LegByeRuns,
		Ended:         in.EndedAt != nil,
	}
}
