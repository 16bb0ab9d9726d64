// handlers/live.go
package handlers

import (
	"log"

	"cricket-scoring-system/broadcast"
	"cricket-scoring-system/middleware"
	"cricket-scoring-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// SetupLiveRoutes wires the websocket endpoint that pushes scoring events to
// spectators. Connecting to /ws/matches/:match_id joins that match's room
// immediately; clients can also send {"type":"join","matchId":...} to switch.
func SetupLiveRoutes(app *fiber.App, hub *broadcast.Hub, resolver services.MatchResolver) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Use("/ws/matches/:match_id", middleware.WSMatchGuard(resolver))

	app.Get("/ws/matches/:match_id", websocket.New(func(conn *websocket.Conn) {
		matchID := conn.Params("match_id")
		client := broadcast.NewClient(uuid.NewString(), conn, hub)
		hub.Register(client, matchID)
		log.Printf("🔌 viewer %s joined match %s", client.ID, matchID)

		go client.WritePump()
		client.ReadPump()
	}))

	// Ops visibility: room counts and publish/drop counters
	app.Get("/live/stats", func(c *fiber.Ctx) error {
		return c.JSON(hub.Stats())
	})
}
