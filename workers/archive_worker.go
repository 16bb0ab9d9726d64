package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"cricket-scoring-system/models"
	"cricket-scoring-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScorecardArchiver uploads the full scorecard of finished matches to R2 so
// clients can fetch completed matches from the CDN instead of this service.
type ScorecardArchiver struct {
	DB *gorm.DB
}

func NewScorecardArchiver(db *gorm.DB) *ScorecardArchiver {
	return &ScorecardArchiver{DB: db}
}

// scorecardDocument is the archived shape: the innings with their overs and
// balls fully nested, ordered as they were played.
type scorecardDocument struct {
	MatchID    string           `json:"match_id"`
	ArchivedAt time.Time        `json:"archived_at"`
	Innings    []models.Innings `json:"innings"`
}

// findUnarchivedMatches returns match ids where both innings have ended and
// no archive row exists yet.
func (a *ScorecardArchiver) findUnarchivedMatches() ([]string, error) {
	var matchIDs []string
	err := a.DB.Model(&models.Innings{}).
		Select("match_id").
		Where("ended_at IS NOT NULL").
		Where("match_id NOT IN (?)",
			a.DB.Model(&models.ScorecardArchive{}).Select("match_id")).
		Group("match_id").
		Having("COUNT(*) >= ?", models.MaxInningsPerMatch).
		Pluck("match_id", &matchIDs).Error
	return matchIDs, err
}

func (a *ScorecardArchiver) archiveMatch(ctx context.Context, matchID string) error {
	var innings []models.Innings
	if err := a.DB.
		Preload("Overs", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Overs.Balls", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("match_id = ?", matchID).
		Order("number ASC").
		Find(&innings).Error; err != nil {
		return fmt.Errorf("failed to load innings: %w", err)
	}

	doc := scorecardDocument{
		MatchID:    matchID,
		ArchivedAt: time.Now().UTC(),
		Innings:    innings,
	}

	key := fmt.Sprintf("scorecards/%s.json", matchID)
	url, err := utils.UploadJSONToR2(ctx, key, doc)
	if err != nil {
		return err
	}

	archive := models.ScorecardArchive{
		ID:         uuid.NewString(),
		MatchID:    matchID,
		ObjectKey:  key,
		ArchivedAt: time.Now().UTC(),
	}
	if err := a.DB.Create(&archive).Error; err != nil {
		return fmt.Errorf("failed to record archive: %w", err)
	}

	log.Printf("✅ Archived scorecard for match %s → %s", matchID, url)
	return nil
}

// PollScorecards runs the archive loop until ctx is cancelled.
func PollScorecards(ctx context.Context, archiver *ScorecardArchiver, pollInterval time.Duration) {
	log.Println("Starting scorecard archive polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scorecard archive polling stopped.")
			return
		case <-ticker.C:
			matchIDs, err := archiver.findUnarchivedMatches()
			if err != nil {
				log.Printf("❌ Error finding unarchived matches: %v", err)
				continue
			}
			if len(matchIDs) == 0 {
				continue
			}
			log.Printf("📥 Found %d match(es) ready to archive.", len(matchIDs))

			for _, matchID := range matchIDs {
				if err := archiver.archiveMatch(ctx, matchID); err != nil {
					// Leave the match unarchived — retried next tick
					log.Printf("❌ Failed to archive match %s: %v", matchID, err)
				}
			}
		}
	}
}
