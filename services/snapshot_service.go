package services

import (
	"cricket-scoring-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SnapshotService struct {
	DB *gorm.DB
}

func NewSnapshotService(db *gorm.DB) *SnapshotService {
	return &SnapshotService{DB: db}
}

// buildMatchSnapshot reads the innings rows for a match and shapes them into
// the wire snapshot, ordered by innings number. Callers outside a transaction
// get a read of the last committed aggregates.
func buildMatchSnapshot(db *gorm.DB, matchID string) ([]models.InningsSnapshot, error) {
	var innings []models.Innings
	if err := db.Where("match_id = ?", matchID).
		Order("number ASC").
		Find(&innings).Error; err != nil {
		return nil, err
	}
	snapshots := make([]models.InningsSnapshot, 0, len(innings))
	for i := range innings {
		snapshots = append(snapshots, models.SnapshotOf(&innings[i]))
	}
	return snapshots, nil
}

// GetSnapshot returns the live scoreboard for a match. Public — no auth so
// scoreboards and widgets can poll it directly.
func (s *SnapshotService) GetSnapshot(c *fiber.Ctx) error {
	matchID := c.Params("match_id")

	snapshot, err := buildMatchSnapshot(s.DB, matchID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load snapshot", "details": err.Error()})
	}

	// Empty array for a match with no innings yet — the scoreboard is valid
	// before the first innings starts.
	return c.JSON(snapshot)
}
