package export

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// RenderPDF lays out the day report: header, goal summary, macro totals and
// one row per entry.
func RenderPDF(r Report) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	s := r.Summary

	m.AddRow(20,
		text.NewCol(8, "Daily food log", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, r.Date.Format("Monday, 2 January 2006"), props.Text{
			Size:  10,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(25,
		col.New(6).Add(
			text.New(fmt.Sprintf("Goal: %d kcal", s.Goal), props.Text{Style: fontstyle.Bold}),
			text.New(fmt.Sprintf("Consumed: %d kcal", s.TotalCalories), props.Text{Top: 5}),
			text.New(remainingLine(s.Remaining), props.Text{Top: 10}),
			text.New(fmt.Sprintf("Progress: %.0f%%", s.ProgressPercent), props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Macros", props.Text{Style: fontstyle.Bold}),
			text.New(fmt.Sprintf("Protein %s (%.0f kcal)", formatGrams(s.Macros.Protein), s.MacroCalories.Protein), props.Text{Top: 5}),
			text.New(fmt.Sprintf("Carbs %s (%.0f kcal)", formatGrams(s.Macros.Carbs), s.MacroCalories.Carbs), props.Text{Top: 10}),
			text.New(fmt.Sprintf("Fat %s (%.0f kcal)", formatGrams(s.Macros.Fat), s.MacroCalories.Fat), props.Text{Top: 15}),
			text.New(fmt.Sprintf("Sugar %s (%.0f kcal)", formatGrams(s.Macros.Sugar), s.MacroCalories.Sugar), props.Text{Top: 20}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(1, "Time", header),
		text.NewCol(5, "Food", header),
		text.NewCol(2, "Calories", headerRight),
		text.NewCol(1, "P", headerRight),
		text.NewCol(1, "C", headerRight),
		text.NewCol(1, "F", headerRight),
		text.NewCol(1, "S", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	if len(s.Entries) == 0 {
		m.AddRow(10, text.NewCol(12, "No food logged today.", props.Text{Size: 9, Style: fontstyle.Italic}))
	}
	for _, e := range s.Entries {
		name := e.FoodName
		if e.Edited {
			name = fmt.Sprintf("%s (was %s)", e.FoodName, e.OriginalName)
		}
		m.AddRow(8,
			text.NewCol(1, entryTime(e.FoodEntry), cell),
			text.NewCol(5, name, cell),
			text.NewCol(2, fmt.Sprintf("%d", e.Calories), cellRight),
			text.NewCol(1, fmt.Sprintf("%.1f", e.Protein), cellRight),
			text.NewCol(1, fmt.Sprintf("%.1f", e.Carbs), cellRight),
			text.NewCol(1, fmt.Sprintf("%.1f", e.Fat), cellRight),
			text.NewCol(1, fmt.Sprintf("%.1f", e.Sugar), cellRight),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(2, "Total", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, fmt.Sprintf("%d kcal", s.TotalCalories), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		col.New(2),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func remainingLine(remaining int) string {
	if remaining < 0 {
		return fmt.Sprintf("Over goal by %d kcal", -remaining)
	}
	return fmt.Sprintf("Remaining: %d kcal", remaining)
}
