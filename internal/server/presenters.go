package server

import (
	"github.com/gofiber/fiber/v2"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func successResponse(c *fiber.Ctx, data any, status int, message string) error {
	return c.Status(status).JSON(response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func errorResponse(c *fiber.Ctx, status int, message string, err error) error {
	r := response{Success: false, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return c.Status(status).JSON(r)
}
