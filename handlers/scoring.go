// handlers/scoring.go
package handlers

import (
	"cricket-scoring-system/middleware"
	"cricket-scoring-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupScoringRoutes(
	app *fiber.App,
	inningsService *services.InningsService,
	overService *services.OverService,
	ballService *services.BallService,
	snapshotService *services.SnapshotService,
) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/matches/:match_id/scoring/snapshot", snapshotService.GetSnapshot)
	app.Get("/matches/:match_id/scoring/innings", inningsService.ListInnings)

	// 🔐 Secured routes — scorer identity required, enforced via middleware
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/matches/:match_id/scoring/innings/start", inningsService.StartInnings)
	secured.Post("/matches/:match_id/scoring/innings/end", inningsService.EndInnings)
	secured.Post("/matches/:match_id/scoring/overs/start", overService.StartOver)
	secured.Post("/matches/:match_id/scoring/overs/end", overService.EndOver)
	secured.Post("/matches/:match_id/scoring/balls/add", ballService.AddBall)
}
