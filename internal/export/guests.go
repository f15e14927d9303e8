// Package export renders guest lists and the activity journal as CSV and
// XLSX documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// Format is a guest export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value to a Format.  An empty value means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for an export taken at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("guests_%s.%s", t.Format("2006-01-02"), f)
}

// GuestHeader is the column header of guest exports.
var GuestHeader = []string{"Имя", "Телефон", "Email", "Сегмент", "Визиты", "Последний визит"}

const guestSheet = "Гости"

func guestRecord(g model.Guest) []string {
	email := ""
	if g.Email != nil {
		email = *g.Email
	}
	last := ""
	if g.LastVisitAt != nil {
		last = g.LastVisitAt.UTC().Format(time.RFC3339)
	}
	return []string{g.DisplayName(), g.Phone, email, g.Segment, strconv.Itoa(g.VisitsCount), last}
}

// WriteGuests writes guests to w in the given format.
func WriteGuests(w io.Writer, f Format, guests []model.Guest) error {
	if f == FormatXLSX {
		return writeGuestsXLSX(w, guests)
	}
	return writeGuestsCSV(w, guests)
}

func writeGuestsCSV(w io.Writer, guests []model.Guest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(GuestHeader); err != nil {
		return err
	}
	for _, g := range guests {
		if err := cw.Write(guestRecord(g)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeGuestsXLSX(w io.Writer, guests []model.Guest) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(guestSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetSheetRow(guestSheet, "A1", &GuestHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(guestSheet, "A1", "F1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	widths := []float64{25, 18, 28, 14, 10, 22}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(guestSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, g := range guests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		rec := guestRecord(g)
		row := []any{rec[0], rec[1], rec[2], rec[3], g.VisitsCount, rec[5]}
		if err := f.SetSheetRow(guestSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(guestSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
