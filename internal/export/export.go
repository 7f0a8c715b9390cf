// Package export renders booking lists as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"antigravity/internal/model"
	"antigravity/internal/pricing"
)

// Columns is the export header row, matching the dashboard's CSV layout.
var Columns = []string{
	"ID", "Customer Name", "Email", "Phone",
	"Start Date", "End Date", "Cost", "Status", "Created Date",
}

func row(b *model.Booking) []string {
	return []string{
		strconv.FormatInt(b.ID, 10),
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerPhone,
		b.StartTime.Format("2006-01-02 15:04:05"),
		b.EndTime.Format("2006-01-02 15:04:05"),
		pricing.FormatCents(b.CostCents),
		b.Status,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// WriteCSV streams the bookings as CSV.
func WriteCSV(w io.Writer, bookings []model.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range bookings {
		if err := cw.Write(row(&bookings[i])); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX streams the bookings as a single-sheet workbook.
func WriteXLSX(w io.Writer, bookings []model.Booking) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Bookings"
	f.SetSheetName("Sheet1", sheet)

	writeRow := func(rowNum int, values []string) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow(1, Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range bookings {
		if err := writeRow(i+2, row(&bookings[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}
