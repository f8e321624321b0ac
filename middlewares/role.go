package middlewares

import (
	"github.com/gofiber/fiber/v2"
)

// RequireRole rejects requests whose session role is not in the allowed set.
// Run AFTER IsAuthenticatedHeader() so c.Locals("role") is present.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if !allowed[role] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "insufficient role",
			})
		}
		return c.Next()
	}
}
