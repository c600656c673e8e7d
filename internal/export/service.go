package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/receiptwise/expense-tracker/internal/entity"
	"github.com/receiptwise/expense-tracker/internal/repository"
)

// Service produces XLSX bytes for a user's receipts.
type Service struct {
	store  repository.ReceiptStore
	logger *slog.Logger
}

func NewService(store repository.ReceiptStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportXLSX returns an XLSX workbook for the user's receipts in the given
// transaction-date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all of the user's receipts.
// Receipts with no transaction date are only included in the unbounded case.
func (s *Service) ExportXLSX(ctx context.Context, uid string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.store.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	recs = filterByDate(recs, fromDate, toDate)

	f := excelize.NewFile()
	const sheet = "Receipts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Transaction Date",
		"Merchant",
		"Address",
		"Items",
		"Amount",
		"Needs Confirmation",
		"Image",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if r.Date != nil {
			write(1, r.Date.Format("2006-01-02"))
		} else {
			write(1, "")
		}
		write(2, r.LocationName)
		write(3, r.Address)
		write(4, truncate(r.Items, 140))
		if r.Amount != nil {
			write(5, *r.Amount)
		} else {
			write(5, "")
		}
		write(6, r.NeedsConfirmation)
		write(7, r.ImageURL)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "C", "C", 36)
	_ = f.SetColWidth(sheet, "D", "D", 48)
	_ = f.SetColWidth(sheet, "E", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"uid", uid,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func filterByDate(recs []*entity.Receipt, from, to *time.Time) []*entity.Receipt {
	if from == nil && to == nil {
		return recs
	}
	var out []*entity.Receipt
	for _, r := range recs {
		if r.Date == nil {
			continue
		}
		if from != nil && r.Date.Before(*from) {
			continue
		}
		if to != nil && r.Date.After(*to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
