package services

import (
	"net/http"
	"reflect"
	"testing"

	"cricket-scoring-system/models"

	"gorm.io/gorm"
)

func TestStartOverValidation(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.addMatch("m1", "team-a", "team-b", models.MatchStatusLive)
	inningsID := env.startInnings(t, "m1", 1, "team-a", "team-b")

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing bowler",
			body: map[string]interface{}{"inningsId": inningsID, "number": 1, "strikerId": "s1", "nonStrikerId": "s2"},
		},
		{
			name: "striker equals non-striker",
			body: map[string]interface{}{"inningsId": inningsID, "number": 1, "bowlerId": "b1", "strikerId": "s1", "nonStrikerId": "s1"},
		},
		{
			name: "zero over number",
			body: map[string]interface{}{"inningsId": inningsID, "number": 0, "bowlerId": "b1", "strikerId": "s1", "nonStrikerId": "s2"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/start", tc.body)
			if status != 400 {
				t.Fatalf("status = %d, want 400 (body %v)", status, body)
			}
		})
	}

	// Unknown innings is a 404, not a 400.
	status, _ := env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/start",
		map[string]interface{}{"inningsId": "ghost", "number": 1, "bowlerId": "b1", "strikerId": "s1", "nonStrikerId": "s2"})
	if status != 404 {
		t.Fatalf("unknown innings: status = %d, want 404", status)
	}
}

func TestStartOverDuplicateAndEndedInnings(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.addMatch("m1", "team-a", "team-b", models.MatchStatusLive)
	inningsID := env.startInnings(t, "m1", 1, "team-a", "team-b")

	env.startOver(t, "m1", inningsID, 1, "s1", "s2")

	status, _ := env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/start",
		map[string]interface{}{"inningsId": inningsID, "number": 1, "bowlerId": "b2", "strikerId": "s1", "nonStrikerId": "s2"})
	if status != 400 {
		t.Fatalf("duplicate over number: status = %d, want 400", status)
	}

	env.doJSON(t, http.MethodPost, "/matches/m1/scoring/innings/end",
		map[string]interface{}{"inningsId": inningsID})

	status, _ = env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/start",
		map[string]interface{}{"inningsId": inningsID, "number": 2, "bowlerId": "b2", "strikerId": "s1", "nonStrikerId": "s2"})
	if status != 400 {
		t.Fatalf("over in ended innings: status = %d, want 400", status)
	}
}

func TestEndOverForcedAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.addMatch("m1", "team-a", "team-b", models.MatchStatusLive)
	inningsID := env.startInnings(t, "m1", 1, "team-a", "team-b")
	overID := env.startOver(t, "m1", inningsID, 1, "s1", "s2")

	env.pub.reset()
	status, body := env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/end",
		map[string]interface{}{"overId": overID})
	if status != 200 {
		t.Fatalf("force end: status = %d body %v", status, body)
	}
	if names := env.pub.names(); len(names) != 1 || names[0] != "over.ended" {
		t.Fatalf("events = %v, want [over.ended]", names)
	}

	// Second end is a no-op with no event.
	env.pub.reset()
	status, body = env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/end",
		map[string]interface{}{"overId": overID})
	if status != 200 || body["message"] != "over already completed" {
		t.Fatalf("idempotent end: status = %d body %v", status, body)
	}
	if names := env.pub.names(); len(names) != 0 {
		t.Fatalf("idempotent end published %v", names)
	}

	// A force-ended over takes no more deliveries.
	status, _ = env.addBall(t, "m1", map[string]interface{}{
		"overId": overID, "seq": 1, "batsmanId": "s1", "nonStrikerId": "s2", "bowlerId": "b1", "runs": 0,
	})
	if status != 400 {
		t.Fatalf("ball on completed over: status = %d, want 400", status)
	}
}

// A delivery committed while EndOver holds its stale read must keep its ball
// count and striker rotation after the forced close.
func TestEndOverKeepsConcurrentBallBookkeeping(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.addMatch("m1", "team-a", "team-b", models.MatchStatusLive)
	inningsID := env.startInnings(t, "m1", 1, "team-a", "team-b")
	overID := env.startOver(t, "m1", inningsID, 1, "s1", "s2")

	armed := true
	var cbErr error
	err := env.db.Callback().Query().After("gorm:query").Register("ball_between_read_and_write", func(tx *gorm.DB) {
		stmt := tx.Statement
		if !armed || stmt.Schema == nil || stmt.Schema.ModelType != reflect.TypeOf(models.Over{}) {
			return
		}
		armed = false
		_, cbErr = stmt.ConnPool.ExecContext(stmt.Context,
			"UPDATE "+stmt.Table+" SET legal_balls = legal_balls + 1, striker_id = 's2', non_striker_id = 's1' WHERE id = ?",
			overID)
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	status, body := env.doJSON(t, http.MethodPost, "/matches/m1/scoring/overs/end",
		map[string]interface{}{"overId": overID})
	if status != 200 {
		t.Fatalf("end over: status = %d body %v", status, body)
	}
	if cbErr != nil {
		t.Fatalf("concurrent ball write: %v", cbErr)
	}

	over := env.loadOver(t, overID)
	if !over.Completed || over.EndedAt == nil {
		t.Fatal("over not completed")
	}
	if over.LegalBalls != 1 {
		t.Fatalf("ball count lost on close: legal balls = %d, want 1", over.LegalBalls)
	}
	if over.StrikerID != "s2" || over.NonStrikerID != "s1" {
		t.Fatalf("striker bookkeeping lost on close: %s/%s, want s2/s1", over.StrikerID, over.NonStrikerID)
	}
}

func TestEndOverWrongMatch(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.addMatch("m1", "team-a", "team-b", models.MatchStatusLive)
	env.resolver.addMatch("m2", "team-c", "team-d", models.MatchStatusLive)
	inningsID := env.startInnings(t, "m1", 1, "team-a", "team-b")
	overID := env.startOver(t, "m1", inningsID, 1, "s1", "s2")

	status, _ := env.doJSON(t, http.MethodPost, "/matches/m2/scoring/overs/end",
		map[string]interface{}{"overId": overID})
	if status != 404 {
		t.Fatalf("cross-match end: status = %d, want 404", status)
	}
}
