package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cricket-scoring-system/broadcast"
	"cricket-scoring-system/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// :memory: gives each connection its own database; pin to one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Innings{},
		&models.Over{},
		&models.Ball{},
		&models.ScorecardArchive{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeMatchResolver serves match context from memory and records status
// pushes.
type fakeMatchResolver struct {
	mu            sync.Mutex
	matches       map[string]*MatchContext
	statusUpdates []string // "matchID:status"
	statusErr     error
}

func newFakeMatchResolver() *fakeMatchResolver {
	return &fakeMatchResolver{matches: make(map[string]*MatchContext)}
}

func (f *fakeMatchResolver) addMatch(id, teamA, teamB, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[id] = &MatchContext{ID: id, TeamAID: teamA, TeamBID: teamB, Status: status}
}

func (f *fakeMatchResolver) GetMatchContext(matchID string) (*MatchContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMatchResolver) UpdateMatchStatus(matchID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	if m, ok := f.matches[matchID]; ok {
		m.Status = status
	}
	f.statusUpdates = append(f.statusUpdates, matchID+":"+status)
	return nil
}

func (f *fakeMatchResolver) updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statusUpdates...)
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (p *recordingPublisher) Publish(e broadcast.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	resolver *fakeMatchResolver
	pub      *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	resolver := newFakeMatchResolver()
	pub := &recordingPublisher{}

	inningsService := NewInningsService(db, resolver, pub)
	overService := NewOverService(db, pub)
	ballService := NewBallService(db, pub)
	snapshotService := NewSnapshotService(db)

	app := fiber.New()
	app.Get("/matches/:match_id/scoring/snapshot", snapshotService.GetSnapshot)
	app.Get("/matches/:match_id/scoring/innings", inningsService.ListInnings)
	app.Post("/matches/:match_id/scoring/innings/start", inningsService.StartInnings)
	app.Post("/matches/:match_id/scoring/innings/end", inningsService.EndInnings)
	app.Post("/matches/:match_id/scoring/overs/start", overService.StartOver)
	app.Post("/matches/:match_id/scoring/overs/end", overService.EndOver)
	app.Post("/matches/:match_id/scoring/balls/add", ballService.AddBall)

	return &testEnv{app: app, db: db, resolver: resolver, pub: pub}
}

// doJSON round-trips a request through the Fiber app and decodes the JSON
// response into a map.
func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "scorer-1")

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

// doJSONList is doJSON for endpoints returning a top-level array.
func (e *testEnv) doJSONList(t *testing.T, method, path string) (int, []map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User-ID", "scorer-1")
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded []map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return resp.StatusCode, decoded
}

// startInnings creates an innings through the API and returns its id.
func (e *testEnv) startInnings(t *testing.T, matchID string, number int, batting, bowling string) string {
	t.Helper()
	status, body := e.doJSON(t, http.MethodPost,
		fmt.Sprintf("/matches/%s/scoring/innings/start", matchID),
		map[string]interface{}{"battingTeamId": batting, "bowlingTeamId": bowling, "number": number})
	if status != 201 {
		t.Fatalf("start innings %d: status %d body %v", number, status, body)
	}
	return body["id"].(string)
}

// startOver creates an over through the API and returns its id.
func (e *testEnv) startOver(t *testing.T, matchID, inningsID string, number int, striker, nonStriker string) string {
	t.Helper()
	status, body := e.doJSON(t, http.MethodPost,
		fmt.Sprintf("/matches/%s/scoring/overs/start", matchID),
		map[string]interface{}{
			"inningsId":    inningsID,
			"number":       number,
			"bowlerId":     "bowler-1",
			"strikerId":    striker,
			"nonStrikerId": nonStriker,
		})
	if status != 201 {
		t.Fatalf("start over %d: status %d body %v", number, status, body)
	}
	return body["id"].(string)
}

// addBall submits one delivery; seq is computed by the caller.
func (e *testEnv) addBall(t *testing.T, matchID string, ball map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	return e.doJSON(t, http.MethodPost,
		fmt.Sprintf("/matches/%s/scoring/balls/add", matchID), ball)
}
