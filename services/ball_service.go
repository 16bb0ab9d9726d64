package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"cricket-scoring-system/broadcast"
	"cricket-scoring-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BallService records deliveries — the scoring hot path. One transaction per
// ball locks the over and its innings rows, so concurrent submissions for the
// same match serialize while different matches score in parallel. Aggregates
// are mutated here and nowhere else outside that boundary.
type BallService struct {
	DB   *gorm.DB
	Live broadcast.Publisher
}

func NewBallService(db *gorm.DB, live broadcast.Publisher) *BallService {
	return &BallService{DB: db, Live: live}
}

// AddBall validates and records one delivery, updates the innings aggregates
// and over bookkeeping atomically, and publishes ball.added (plus over.ended
// when the sixth legal ball lands).
func (s *BallService) AddBall(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	type Req struct {
		OverID             string  `json:"overId"`
		Seq                int     `json:"seq"`
		BatsmanID          string  `json:"batsmanId"`
		NonStrikerID       string  `json:"nonStrikerId"`
		BowlerID           string  `json:"bowlerId"`
		Runs               int     `json:"runs"`
		ExtraType          string  `json:"extraType"`
		ExtraRuns          int     `json:"extraRuns"`
		WicketType         *string `json:"wicketType,omitempty"`
		DismissalBatsmanID *string `json:"dismissalBatsmanId,omitempty"`
		FielderID          *string `json:"fielderId,omitempty"`
		Commentary         *string `json:"commentary,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	extraType := strings.ToUpper(strings.TrimSpace(req.ExtraType))
	if extraType == "" {
		extraType = models.ExtraNone
	}

	legal := models.IsLegalDelivery(extraType)
	hasWicket := req.WicketType != nil && *req.WicketType != ""

	var (
		ball             *models.Ball
		over             models.Over
		innings          models.Innings
		overJustComplete bool
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Lock order is over → innings on every write path for a match.
		if err := lockForUpdate(tx).First(&over, "id = ?", req.OverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("over not found")
			}
			return err
		}
		if over.Completed {
			return badRequest("over already completed")
		}

		if err := lockForUpdate(tx).
			Where("id = ? AND match_id = ?", over.InningsID, matchID).
			First(&innings).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("innings not found")
			}
			return err
		}
		if innings.Ended() {
			return badRequest("innings already ended")
		}

		// Field validation follows the existence checks: an unknown over is a
		// 404 no matter how malformed the rest of the body is.
		if !models.ValidExtraType(extraType) {
			return badRequest("invalid extraType")
		}
		if req.Runs < 0 || req.ExtraRuns < 0 {
			return badRequest("runs and extraRuns must be non-negative")
		}

		// Deliveries append strictly in order: seq must be previous max + 1.
		var maxSeq int
		if err := tx.Model(&models.Ball{}).
			Where("over_id = ?", over.ID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		if req.Seq != maxSeq+1 {
			return badRequest("ball seq must be %d, got %d", maxSeq+1, req.Seq)
		}

		ball = &models.Ball{
			ID:                 uuid.NewString(),
			OverID:             over.ID,
			Seq:                req.Seq,
			BatsmanID:          req.BatsmanID,
			NonStrikerID:       req.NonStrikerID,
			BowlerID:           req.BowlerID,
			Runs:               req.Runs,
			ExtraType:          extraType,
			ExtraRuns:          req.ExtraRuns,
			IsLegal:            legal,
			WicketType:         req.WicketType,
			DismissedBatsmanID: req.DismissalBatsmanID,
			FielderID:          req.FielderID,
			Commentary:         req.Commentary,
		}
		if err := tx.Create(ball).Error; err != nil {
			return err
		}

		// Innings aggregates — applied together with the ball in this tx
		innings.TotalRuns += int64(req.Runs + req.ExtraRuns)
		if req.ExtraRuns > 0 {
			switch extraType {
			case models.ExtraWide:
				innings.WideRuns += int64(req.ExtraRuns)
			case models.ExtraNoBall:
				innings.NoBallRuns += int64(req.ExtraRuns)
			case models.ExtraBye:
				innings.ByeRuns += int64(req.ExtraRuns)
			case models.ExtraLegBye:
				innings.LegByeRuns += int64(req.ExtraRuns)
			}
		}
		if legal {
			innings.LegalBalls++
		}
		// A wicket counts regardless of legality (run-out off a wide)
		if hasWicket {
			innings.Wickets++
		}

		if legal {
			over.LegalBalls++
			if over.LegalBalls >= models.BallsPerOver {
				over.Completed = true
				now := time.Now()
				over.EndedAt = &now
				overJustComplete = true
			}

			// Strike rotation: odd bat-runs swap ends; completing the over
			// swaps once more unconditionally. An illegal delivery never
			// rotates. The two swaps cancel when an odd-run ball closes the
			// over.
			if req.Runs%2 == 1 {
				over.StrikerID, over.NonStrikerID = over.NonStrikerID, over.StrikerID
			}
			if overJustComplete {
				over.StrikerID, over.NonStrikerID = over.NonStrikerID, over.StrikerID
			}
		}

		if err := tx.Save(&over).Error; err != nil {
			return err
		}
		return tx.Save(&innings).Error
	})
	if err != nil {
		return respondError(c, err, "failed to record ball")
	}

	snapshot, err := buildMatchSnapshot(s.DB, matchID)
	if err != nil {
		log.Printf("⚠️  snapshot build failed for match %s: %v", matchID, err)
		snapshot = nil
	}

	// ball.added first, then over.ended — observers see them in that order
	s.Live.Publish(broadcast.BallAdded{
		MatchID:   matchID,
		InningsID: innings.ID,
		OverID:    over.ID,
		Ball:      ball,
		Snapshot:  snapshot,
	})
	if overJustComplete {
		s.Live.Publish(broadcast.OverEnded{
			MatchID:   matchID,
			InningsID: innings.ID,
			OverID:    over.ID,
			Snapshot:  snapshot,
		})
	}

	return c.Status(201).JSON(fiber.Map{"ball": ball, "snapshot": snapshot})
}
