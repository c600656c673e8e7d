package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/receiptwise/expense-tracker/internal/auth"
	"github.com/receiptwise/expense-tracker/internal/common"
)

const localsUID = "uid"

// authMiddleware verifies the bearer token and stashes the authenticated uid
// in request locals.
func authMiddleware(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return errorResponse(c, fiber.StatusUnauthorized, "missing bearer token", nil)
		}
		uid, err := svc.Verify(token)
		if err != nil {
			return errorResponse(c, fiber.StatusUnauthorized, "invalid token", err)
		}
		c.Locals(localsUID, uid)
		c.SetUserContext(common.WithUserID(c.UserContext(), uid))
		return c.Next()
	}
}

func uidFrom(c *fiber.Ctx) string {
	uid, _ := c.Locals(localsUID).(string)
	return uid
}
