package services

import (
	"errors"
	"log"
	"time"

	"cricket-scoring-system/broadcast"
	"cricket-scoring-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InningsService owns innings creation and closure, including per-match
// sequencing (two innings, the second only after the first has ended) and the
// LIVE/COMPLETED pushes to the match service.
type InningsService struct {
	DB      *gorm.DB
	Matches MatchResolver
	Live    broadcast.Publisher
}

func NewInningsService(db *gorm.DB, matches MatchResolver, live broadcast.Publisher) *InningsService {
	return &InningsService{DB: db, Matches: matches, Live: live}
}

// StartInnings opens an innings for a match. Validation order matters: match
// existence, team membership, innings number, duplicate, then sequencing.
func (s *InningsService) StartInnings(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	type Req struct {
		BattingTeamID string `json:"battingTeamId"`
		BowlingTeamID string `json:"bowlingTeamId"`
		Number        int    `json:"number"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	match, err := s.Matches.GetMatchContext(matchID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		log.Printf("❌ match context lookup failed for %s: %v", matchID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to resolve match"})
	}

	if !match.HasTeam(req.BattingTeamID) || !match.HasTeam(req.BowlingTeamID) {
		return c.Status(400).JSON(fiber.Map{"error": "batting and bowling teams must both belong to this match"})
	}
	if req.BattingTeamID == req.BowlingTeamID {
		return c.Status(400).JSON(fiber.Map{"error": "batting and bowling teams must differ"})
	}
	if req.Number < 1 || req.Number > models.MaxInningsPerMatch {
		return c.Status(400).JSON(fiber.Map{"error": "innings number must be 1 or 2"})
	}

	var existing models.Innings
	if err := s.DB.Where("match_id = ? AND number = ?", matchID, req.Number).
		First(&existing).Error; err == nil {
		return c.Status(400).JSON(fiber.Map{"error": "innings already started for this match"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if req.Number == 2 {
		var first models.Innings
		err := s.DB.Where("match_id = ? AND number = 1", matchID).First(&first).Error
		if err != nil || !first.Ended() {
			return c.Status(400).JSON(fiber.Map{"error": "second innings requires the first to have ended"})
		}
	}

	innings := &models.Innings{
		ID:            uuid.NewString(),
		MatchID:       matchID,
		Number:        req.Number,
		BattingTeamID: req.BattingTeamID,
		BowlingTeamID: req.BowlingTeamID,
	}
	if err := s.DB.Create(innings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create innings", "details": err.Error()})
	}

	// First innings brings the match live. The innings exists either way; a
	// failed push is retried by the next scoring call path, not surfaced here.
	if req.Number == 1 && match.Status != models.MatchStatusLive {
		if err := s.Matches.UpdateMatchStatus(matchID, models.MatchStatusLive); err != nil {
			log.Printf("⚠️  failed to advance match %s to LIVE: %v", matchID, err)
		}
	}

	s.Live.Publish(broadcast.InningsStarted{MatchID: matchID, Innings: innings})

	return c.Status(201).JSON(innings)
}

// EndInnings closes an innings. Idempotent: ending an already-ended innings
// returns its current state and publishes nothing.
func (s *InningsService) EndInnings(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	type Req struct {
		InningsID string `json:"inningsId"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	// The close shares AddBall's serialization boundary: lock the row, then
	// write only the column this operation owns, so a ball committed while we
	// were reading is never overwritten by a stale full-row save.
	var innings models.Innings
	var alreadyEnded bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			Where("id = ? AND match_id = ?", req.InningsID, matchID).
			First(&innings).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("innings not found")
			}
			return err
		}

		if innings.Ended() {
			alreadyEnded = true
			return nil
		}

		now := time.Now()
		innings.EndedAt = &now
		return tx.Model(&innings).Update("ended_at", now).Error
	})
	if err != nil {
		return respondError(c, err, "failed to end innings")
	}

	if alreadyEnded {
		return c.JSON(fiber.Map{"message": "innings already ended", "innings": innings})
	}

	s.Live.Publish(broadcast.InningsEnded{MatchID: matchID, InningsID: innings.ID})

	var endedCount int64
	if err := s.DB.Model(&models.Innings{}).
		Where("match_id = ? AND ended_at IS NOT NULL", matchID).
		Count(&endedCount).Error; err != nil {
		log.Printf("⚠️  ended-innings count failed for match %s: %v", matchID, err)
	}
	if endedCount >= models.MaxInningsPerMatch {
		if err := s.Matches.UpdateMatchStatus(matchID, models.MatchStatusCompleted); err != nil {
			log.Printf("⚠️  failed to advance match %s to COMPLETED: %v", matchID, err)
		}
		s.Live.Publish(broadcast.MatchCompleted{MatchID: matchID})
	}

	return c.JSON(innings)
}

// ListInnings returns a match's innings ordered by number.
func (s *InningsService) ListInnings(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	var innings []models.Innings
	if err := s.DB.Where("match_id = ?", matchID).
		Order("number ASC").
		Find(&innings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch innings"})
	}
	return c.JSON(innings)
}
