// middleware/ws_auth.go
package middleware

import (
	"errors"
	"log"

	"cricket-scoring-system/services"

	"github.com/gofiber/fiber/v2"
)

// WSMatchGuard rejects websocket subscriptions for matches the match service
// does not know about, before the connection is upgraded. Browsers cannot set
// headers on websocket requests, so this runs on the plain HTTP request.
//
// Usage:
//
//	app.Use("/ws/matches/:match_id", middleware.WSMatchGuard(resolver))
func WSMatchGuard(resolver services.MatchResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matchID := c.Params("match_id")
		if matchID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing match id",
			})
		}

		if _, err := resolver.GetMatchContext(matchID); err != nil {
			if errors.Is(err, services.ErrMatchNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "match not found",
				})
			}
			log.Printf("[WSGuard] ❌ match lookup failed for %s: %v", matchID, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "match service unavailable",
			})
		}

		return c.Next()
	}
}
