package services

import (
	"errors"
	"time"

	"cricket-scoring-system/broadcast"
	"cricket-scoring-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OverService creates and force-closes overs; the normal six-ball completion
// path lives in BallService.
type OverService struct {
	DB   *gorm.DB
	Live broadcast.Publisher
}

func NewOverService(db *gorm.DB, live broadcast.Publisher) *OverService {
	return &OverService{DB: db, Live: live}
}

// StartOver opens over N of an innings with its bowler and opening batsmen.
func (s *OverService) StartOver(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	type Req struct {
		InningsID    string `json:"inningsId"`
		Number       int    `json:"number"`
		BowlerID     string `json:"bowlerId"`
		StrikerID    string `json:"strikerId"`
		NonStrikerID string `json:"nonStrikerId"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	if req.BowlerID == "" || req.StrikerID == "" || req.NonStrikerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "bowlerId, strikerId and nonStrikerId are required"})
	}
	if req.StrikerID == req.NonStrikerID {
		return c.Status(400).JSON(fiber.Map{"error": "striker and non-striker must differ"})
	}
	if req.Number < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "over number must be positive"})
	}

	var innings models.Innings
	if err := s.DB.Where("id = ? AND match_id = ?", req.InningsID, matchID).
		First(&innings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "innings not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if innings.Ended() {
		return c.Status(400).JSON(fiber.Map{"error": "innings already ended"})
	}

	var existing models.Over
	if err := s.DB.Where("innings_id = ? AND number = ?", req.InningsID, req.Number).
		First(&existing).Error; err == nil {
		return c.Status(400).JSON(fiber.Map{"error": "over already exists for this innings"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	over := &models.Over{
		ID:           uuid.NewString(),
		InningsID:    req.InningsID,
		Number:       req.Number,
		BowlerID:     req.BowlerID,
		StrikerID:    req.StrikerID,
		NonStrikerID: req.NonStrikerID,
	}
	if err := s.DB.Create(over).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create over", "details": err.Error()})
	}

	s.Live.Publish(broadcast.OverStarted{MatchID: matchID, InningsID: req.InningsID, Over: over})

	return c.Status(201).JSON(over)
}

// EndOver force-completes an over before its sixth legal ball (forfeit, early
// stoppage). Idempotent: a completed over is returned unchanged.
func (s *OverService) EndOver(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	type Req struct {
		OverID string `json:"overId"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	// Same lock-then-column-update boundary as AddBall (over locked first), so
	// a concurrently committed delivery's ball count and striker bookkeeping
	// survive the close.
	var over models.Over
	var alreadyCompleted bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&over, "id = ?", req.OverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("over not found")
			}
			return err
		}

		var innings models.Innings
		if err := tx.Where("id = ? AND match_id = ?", over.InningsID, matchID).
			First(&innings).Error; err != nil {
			return notFound("over not found for this match")
		}

		if over.Completed {
			alreadyCompleted = true
			return nil
		}

		now := time.Now()
		over.Completed = true
		over.EndedAt = &now
		return tx.Model(&over).Updates(map[string]interface{}{
			"completed": true,
			"ended_at":  now,
		}).Error
	})
	if err != nil {
		return respondError(c, err, "failed to end over")
	}

	if alreadyCompleted {
		return c.JSON(fiber.Map{"message": "over already completed", "over": over})
	}

	snapshot, err := buildMatchSnapshot(s.DB, matchID)
	if err != nil {
		snapshot = nil
	}

	s.Live.Publish(broadcast.OverEnded{
		MatchID:   matchID,
		InningsID: over.InningsID,
		OverID:    over.ID,
		Snapshot:  snapshot,
	})

	return c.JSON(fiber.Map{"message": "over ended", "over": over, "snapshot": snapshot})
}
