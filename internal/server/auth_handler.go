package server

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/receiptwise/expense-tracker/internal/auth"
)

type authHandler struct {
	svc       *auth.Service
	validator *validator.Validate
	clock     func() time.Time
}

// token mints a bearer token for the given uid. There is no password step;
// this deployment trusts the reverse proxy for identity.
func (h *authHandler) token(c *fiber.Ctx) error {
	req := new(tokenRequest)
	if err := c.BodyParser(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "malformed request body", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid uid", err)
	}
	tok, err := h.svc.Issue(req.UID, h.clock())
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to issue token", err)
	}
	return successResponse(c, tokenResponse{Token: tok}, fiber.StatusOK, "token issued")
}
