// services/scheduler.go
package services

import (
	"log"
	"time"

	"cricket-scoring-system/broadcast"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartSnapshotHeartbeat periodically re-publishes the scoreboard for every
// match that currently has live subscribers. Clients that missed a ball event
// (reconnect, dropped frame) converge within one interval.
func StartSnapshotHeartbeat(db *gorm.DB, hub *broadcast.Hub, live broadcast.Publisher) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 30s: refresh snapshots for rooms with subscribers
	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			for _, matchID := range hub.ActiveRooms() {
				snapshot, err := buildMatchSnapshot(db, matchID)
				if err != nil {
					log.Printf("[Heartbeat] snapshot failed for match %s: %v", matchID, err)
					continue
				}
				if len(snapshot) == 0 {
					continue
				}
				live.Publish(broadcast.SnapshotRefresh{MatchID: matchID, Snapshot: snapshot})
			}
		}),
	)
}
