package broadcast

import (
	"time"

	"cricket-scoring-system/models"
)

// Event is a state-change notification routed to one match's room. Each event
// name has exactly one concrete type, so consumers switch over the set
// {innings.started, over.started, ball.added, over.ended, innings.ended,
// match.completed, snapshot.refresh} with compile-time exhaustiveness.
type Event interface {
	EventName() string
	Room() string // match id whose subscribers receive the event
}

// Publisher fans an event out to its match room. Delivery is best-effort and
// never blocks the caller.
type Publisher interface {
	Publish(Event)
}

// ServerMessage is the wire envelope for every event delivered to observers.
type ServerMessage struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientMessage is a message from an observer. The only recognized type is
// "join", carrying the match id whose room the observer wants to attach to.
type ClientMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`
}

const (
	EventInningsStarted  = "innings.started"
	EventOverStarted     = "over.started"
	EventBallAdded       = "ball.added"
	EventOverEnded       = "over.ended"
	EventInningsEnded    = "innings.ended"
	EventMatchCompleted  = "match.completed"
	EventSnapshotRefresh = "snapshot.refresh"
)

type InningsStarted struct {
	MatchID string          `json:"matchId"`
	Innings *models.Innings `json:"innings"`
}

func (e InningsStarted) EventName() string { return EventInningsStarted }
func (e InningsStarted) Room() string      { return e.MatchID }

type OverStarted struct {
	MatchID   string       `json:"matchId"`
	InningsID string       `json:"inningsId"`
	Over      *models.Over `json:"over"`
}

func (e OverStarted) EventName() string { return EventOverStarted }
func (e OverStarted) Room() string      { return e.MatchID }

type BallAdded struct {
	MatchID   string                   `json:"matchId"`
	InningsID string                   `json:"inningsId"`
	OverID    string                   `json:"overId"`
	Ball      *models.Ball             `json:"ball"`
	Snapshot  []models.InningsSnapshot `json:"snapshot"`
}

func (e BallAdded) EventName() string { return EventBallAdded }
func (e BallAdded) Room() string      { return e.MatchID }

type OverEnded struct {
	MatchID   string                   `json:"matchId"`
	InningsID string                   `json:"inningsId"`
	OverID    string                   `json:"overId"`
	Snapshot  []models.InningsSnapshot `json:"snapshot"`
}

func (e OverEnded) EventName() string { return EventOverEnded }
func (e OverEnded) Room() string      { return e.MatchID }

type InningsEnded struct {
	MatchID   string `json:"matchId"`
	InningsID string `json:"inningsId"`
}

func (e InningsEnded) EventName() string { return EventInningsEnded }
func (e InningsEnded) Room() string      { return e.MatchID }

type MatchCompleted struct {
	MatchID string `json:"matchId"`
}

func (e MatchCompleted) EventName() string { return EventMatchCompleted }
func (e MatchCompleted) Room() string      { return e.MatchID }

// SnapshotRefresh is the periodic heartbeat pushed to occupied rooms so late
// joiners converge on current state without a replay log.
type SnapshotRefresh struct {
	MatchID  string                   `json:"matchId"`
	Snapshot []models.InningsSnapshot `json:"snapshot"`
}

func (e SnapshotRefresh) EventName() string { return EventSnapshotRefresh }
func (e SnapshotRefresh) Room() string      { return e.MatchID }
