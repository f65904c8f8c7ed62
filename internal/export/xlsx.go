// Package export produces XLSX booking reports for item owners.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rentloop/internal/domain"
	"rentloop/internal/models"

	"github.com/xuri/excelize/v2"
)

type Exporter struct {
	items    domain.ItemStore
	bookings domain.BookingStore
	users    domain.UserStore
	path     string
}

func NewExporter(items domain.ItemStore, bookings domain.BookingStore, users domain.UserStore, path string) *Exporter {
	return &Exporter{
		items:    items,
		bookings: bookings,
		users:    users,
		path:     path,
	}
}

// OwnerReport writes one sheet per owned item listing its bookings and
// returns the report file path.
func (e *Exporter) OwnerReport(ctx context.Context, ownerID int64) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	items, err := e.items.ItemsByOwner(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("error getting items: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Booking ID", "Item", "Booker", "Start", "End", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	row := 2
	for _, item := range items {
		bookings, err := e.bookings.BookingsForItem(ctx, item.ID)
		if err != nil {
			return "", fmt.Errorf("error getting bookings: %w", err)
		}
		for _, b := range bookings {
			e.writeBookingRow(ctx, f, sheetName, row, item, b)
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "F", 22)

	fileName := fmt.Sprintf("bookings_%d_%s.xlsx", ownerID, time.Now().Format("20060102_150405"))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving report: %w", err)
	}

	return filePath, nil
}

func (e *Exporter) writeBookingRow(ctx context.Context, f *excelize.File, sheet string, row int, item *models.Item, b *models.Booking) {
	bookerName := fmt.Sprintf("user %d", b.BookerID)
	if booker, err := e.users.GetUser(ctx, b.BookerID); err == nil {
		bookerName = booker.Name
	}

	values := []any{
		b.ID,
		item.Name,
		bookerName,
		b.Start.Format(time.RFC3339),
		b.End.Format(time.RFC3339),
		string(b.Status),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
