// Package export serializes ledger snapshots for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"classattend/internal/attendance"
)

// Format is a download file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" (default when empty) and "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the attachment name for a snapshot taken on day.
func (f Format) Filename(day string) string {
	return fmt.Sprintf("attendance_export_%s.%s", day, f)
}

// Header is the column order of every export.
var Header = []string{"participant_id", "name", "date", "time", "status", "checked_in_at"}

// Row is one exported record.
type Row struct {
	ParticipantID string
	Name          string
	Date          string
	Time          string
	Status        string
	CheckedInAt   string
}

func (r Row) cells() []string {
	return []string{r.ParticipantID, r.Name, r.Date, r.Time, r.Status, r.CheckedInAt}
}

// Rows converts records, keeping their order.
func Rows(recs []attendance.Record) []Row {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		var iso string
		if !rec.CheckedInAt.IsZero() {
			iso = rec.CheckedInAt.Format(time.RFC3339)
		}
		rows = append(rows, Row{
			ParticipantID: rec.ParticipantID,
			Name:          rec.ParticipantName,
			Date:          rec.Date,
			Time:          rec.Time,
			Status:        string(rec.Status),
			CheckedInAt:   iso,
		})
	}
	return rows
}

// Write encodes rows in format f.
func Write(w io.Writer, f Format, rows []Row) error {
	if f == FormatCSV {
		return WriteCSV(w, rows)
	}
	return WriteXLSX(w, rows)
}

// WriteCSV writes a header line followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.cells()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Attendance"

// WriteXLSX writes a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("f.SetSheetName -> %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("f.NewStreamWriter -> %w", err)
	}
	if err := sw.SetRow("A1", toCells(Header)); err != nil {
		return fmt.Errorf("sw.SetRow header -> %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(r.cells())); err != nil {
			return fmt.Errorf("sw.SetRow -> %w", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("sw.Flush -> %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("f.WriteTo -> %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
