// Package export writes the tracker state as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"statusboard/internal/domain/tracker"
)

// Sheet names
const (
	SheetCategories = "Categories"
	SheetUpdates    = "Updates"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	categoryHeader = []any{"Category", "Progress (%)", "Status"}
	updateHeader   = []any{"Timestamp (UTC)", "Type", "Title", "Description", "Comments"}
)

// WriteXLSX writes st as a workbook with a Categories and an Updates sheet.
// The last row of Categories holds the overall progress and status.
func WriteXLSX(w io.Writer, st tracker.State) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", SheetCategories); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := wb.NewSheet(SheetUpdates); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	rows := make([][]any, 0, len(st.Categories)+2)
	rows = append(rows, categoryHeader)
	for _, c := range st.Categories {
		rows = append(rows, []any{c.Name, c.Progress, c.Status.Label()})
	}
	rows = append(rows, []any{"Overall", st.OverallProgress, st.CurrentStatus.Label()})
	if err := writeRows(wb, SheetCategories, rows, bold); err != nil {
		return err
	}

	rows = rows[:0]
	rows = append(rows, updateHeader)
	for _, u := range st.Updates {
		rows = append(rows, []any{
			u.Timestamp.UTC().Format(time.DateTime),
			string(u.Type),
			u.Title,
			u.Description,
			len(u.Comments),
		})
	}
	if err := writeRows(wb, SheetUpdates, rows, bold); err != nil {
		return err
	}

	_ = wb.SetColWidth(SheetCategories, "A", "A", 32)
	_ = wb.SetColWidth(SheetUpdates, "A", "A", 20)
	_ = wb.SetColWidth(SheetUpdates, "C", "D", 40)

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeRows writes rows from A1 down and bolds the first one.
func writeRows(wb *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return wb.SetCellStyle(sheet, "A1", last, headerStyle)
}
