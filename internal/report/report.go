// ABOUTME: Renders tabular rows into an xlsx workbook using excelize
// ABOUTME: Also builds the member and application tables used by exports

package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/2389/raketa/internal/store"
)

// ErrNoData is returned when there are no rows to export.
var ErrNoData = errors.New("no data to export")

// maxSheetName is the longest sheet name xlsx allows.
const maxSheetName = 31

// sheetNameReplacer strips characters xlsx forbids in sheet names.
var sheetNameReplacer = strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")")

// Table is a header row plus data rows.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Generate renders the table into a single-sheet xlsx workbook.
func Generate(sheet string, t Table) ([]byte, error) {
	if len(t.Rows) == 0 {
		return nil, ErrNoData
	}
	sheet = sheetNameReplacer.Replace(sheet)
	if r := []rune(sheet); len(r) > maxSheetName {
		sheet = string(r[:maxSheetName])
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// MembersTable lists registered members.
func MembersTable(members []*store.Member) Table {
	t := Table{Columns: []string{"user_id", "full_name", "phone", "username", "gender", "birth_date", "has_children", "created_at"}}
	for _, m := range members {
		t.Rows = append(t.Rows, []any{
			m.ID,
			m.FullName,
			m.Phone,
			deref(m.Handle),
			deref(m.Gender),
			deref(m.BirthDate),
			m.HasChildren,
			formatTime(m.CreatedAt),
		})
	}
	return t
}

// ApplicationsTable lists applications. withTarget adds the event title and
// announcement flag columns, which are redundant in a per-event export.
func ApplicationsTable(apps []*store.ApplicationRow, withTarget bool) Table {
	cols := []string{"application_id", "full_name", "phone", "username", "gender", "birth_date"}
	if withTarget {
		cols = append(cols, "event_title", "rocket_application")
	}
	cols = append(cols, "applied_at")

	t := Table{Columns: cols}
	for _, a := range apps {
		row := []any{a.ID, a.FullName, a.Phone, deref(a.Handle), deref(a.Gender), deref(a.BirthDate)}
		if withTarget {
			row = append(row, deref(a.EventTitle), a.Announcement)
		}
		row = append(row, formatTime(a.AppliedAt))
		t.Rows = append(t.Rows, row)
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
