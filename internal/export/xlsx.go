package export

import (
	"github.com/xuri/excelize/v2"
)

const (
	sheetEntries = "Entries"
	sheetSummary = "Summary"
)

var entryHeaders = []string{"Time", "Food", "Original name", "Source", "Calories", "Protein (g)", "Carbs (g)", "Fat (g)", "Sugar (g)"}

// RenderXLSX writes an Entries sheet and a Summary sheet.
func RenderXLSX(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetEntries)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetEntries, "A1", &entryHeaders); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetEntries, "A1", "I1", bold); err != nil {
		return nil, err
	}
	for i, e := range r.Summary.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			entryTime(e.FoodEntry),
			e.FoodName,
			e.OriginalName,
			string(e.Source),
			e.Calories,
			e.Protein,
			e.Carbs,
			e.Fat,
			e.Sugar,
		}
		if err := f.SetSheetRow(sheetEntries, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetEntries, "A", "A", 8)
	_ = f.SetColWidth(sheetEntries, "B", "C", 30)
	_ = f.SetColWidth(sheetEntries, "D", "I", 12)

	s := r.Summary
	summary := [][]interface{}{
		{"Date", r.Date.Format("2006-01-02")},
		{"Daily goal (kcal)", s.Goal},
		{"Consumed (kcal)", s.TotalCalories},
		{"Remaining (kcal)", s.Remaining},
		{"Progress (%)", s.ProgressPercent},
		{"Protein (g)", s.Macros.Protein},
		{"Carbs (g)", s.Macros.Carbs},
		{"Fat (g)", s.Macros.Fat},
		{"Sugar (g)", s.Macros.Sugar},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "A9", bold); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
