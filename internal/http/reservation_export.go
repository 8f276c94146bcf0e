package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"github.com/xuri/excelize/v2"
)

const reservationSheet = "Reservations"

// ReservationExportHeader column order of the xlsx export.
var ReservationExportHeader = []string{
	"Reservation ID",
	"Unit ID",
	"Guest ID",
	"Check-in",
	"Check-out",
	"Nights",
	"Total Price",
	"Status",
	"Created At",
	"Updated At",
}

var reservationColumnWidths = []float64{38, 38, 38, 12, 12, 8, 14, 12, 20, 20}

// GenerateReservationExport builds a single-sheet workbook; an empty slice yields only the header.
func GenerateReservationExport(items []*domain.Reservation) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly on every path.

	index, err := f.NewSheet(reservationSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ReservationExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(reservationSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(reservationSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(reservationSheet, name, name, reservationColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range items {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(reservationSheet, cell, &[]any{
			r.ReservationID,
			r.UnitID,
			r.GuestID,
			calendar.Format(r.CheckIn),
			calendar.Format(r.CheckOut),
			r.Nights(),
			r.TotalPrice.Float64(),
			string(r.Status),
			formatTimestamp(r.CreatedAt),
			formatTimestamp(r.UpdatedAt),
		}); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := f.SetPanes(reservationSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// Export GET /api/reservations/export
func (h *ReservationHandler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := h.reservations.ListReservations(r.Context())
	if err != nil {
		writeError(w, h.errors, h.logger, "ExportReservations", err)
		return
	}
	data, err := GenerateReservationExport(items)
	if err != nil {
		writeError(w, h.errors, h.logger, "ExportReservations", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
