package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"cricket-scoring-system/utils"
)

// ErrMatchNotFound is returned when the match service has no record of the id.
var ErrMatchNotFound = errors.New("match not found")

// MatchContext is the slice of the external match record the scoring core
// consumes: the two team ids and the lifecycle status.
type MatchContext struct {
	ID      string `json:"id"`
	TeamAID string `json:"team_a_id"`
	TeamBID string `json:"team_b_id"`
	Status  string `json:"status"`
}

// HasTeam reports whether teamID is one of the match's two teams.
func (m *MatchContext) HasTeam(teamID string) bool {
	return teamID == m.TeamAID || teamID == m.TeamBID
}

// MatchResolver is the consumed interface of the match-management service:
// context lookup plus the LIVE/COMPLETED status pushes.
type MatchResolver interface {
	GetMatchContext(matchID string) (*MatchContext, error)
	UpdateMatchStatus(matchID, status string) error
}

// MatchServiceClient resolves match context over HTTP from the match
// management service.
type MatchServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewMatchServiceClient(baseURL, token string) *MatchServiceClient {
	return &MatchServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// GetMatchContext calls the match service's internal lookup endpoint.
func (c *MatchServiceClient) GetMatchContext(matchID string) (*MatchContext, error) {
	url := fmt.Sprintf("%s/api/v1/internal/matches/%s", c.BaseURL, matchID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrMatchNotFound
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("MatchService lookup for %s returned %d: %s", matchID, resp.StatusCode, string(body))
		return nil, fmt.Errorf("match service lookup failed: %d", resp.StatusCode)
	}

	var out MatchContext
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMatchStatus pushes a lifecycle transition (LIVE, COMPLETED) to the
// match service.
func (c *MatchServiceClient) UpdateMatchStatus(matchID, status string) error {
	url := fmt.Sprintf("%s/api/v1/internal/matches/%s/status", c.BaseURL, matchID)

	jsonData, _ := json.Marshal(map[string]string{"status": status})
	req, err := http.NewRequest("PATCH", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("match status update to %s failed: %d: %s", status, resp.StatusCode, string(body))
	}
	return nil
}
