package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/receiptwise/expense-tracker/internal/export"
)

type exportHandler struct {
	svc *export.Service
}

// xlsx streams the user's receipts as a workbook. from/to are optional
// YYYY-MM-DD query bounds on the transaction date.
func (h *exportHandler) xlsx(c *fiber.Ctx) error {
	uid := uidFrom(c)

	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid from date", err)
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid to date", err)
		}
		to = &t
	}

	data, err := h.svc.ExportXLSX(c.Context(), uid, from, to)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to export receipts", err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="receipts.xlsx"`)
	return c.Send(data)
}
