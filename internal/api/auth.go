package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FilippTrigub/space-goose/internal/config"
)

// authUserKey is the fiber.Locals key under which the caller's bound
// user_id is stored once auth succeeds.
const authUserKey = "auth_user_id"

// newAuthMiddleware validates a caller-identifying API key header against
// the configured bindings and stores the bound user_id in locals.
func newAuthMiddleware(keys []config.APIKey) fiber.Handler {
	byKey := make(map[string]string, len(keys))
	for _, k := range keys {
		byKey[k.Key] = k.UserID
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		if len(byKey) == 0 {
			// No keys configured: treat as open (development/test mode).
			return c.Next()
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return problemResponse(c, fiber.StatusUnauthorized, "missing_api_key", "Unauthorized", "X-API-Key header is required")
		}
		userID, ok := byKey[apiKey]
		if !ok {
			return problemResponse(c, fiber.StatusUnauthorized, "invalid_api_key", "Unauthorized", "invalid API key")
		}
		c.Locals(authUserKey, userID)
		return c.Next()
	}
}

// requireSelf rejects requests whose :user path parameter doesn't match
// the API key's bound user_id.
func requireSelf(c *fiber.Ctx) error {
	bound, _ := c.Locals(authUserKey).(string)
	pathUser := c.Params("user")
	if bound != "" && bound != pathUser {
		return problemResponse(c, fiber.StatusForbidden, "user_mismatch", "Forbidden", "API key is not bound to this user")
	}
	return c.Next()
}
