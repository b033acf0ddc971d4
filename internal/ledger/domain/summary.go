package domain

import "math"

type ProgressBand string

const (
	BandGreen  ProgressBand = "green"
	BandYellow ProgressBand = "yellow"
	BandRed    ProgressBand = "red"
)

// Calories per gram used for the macro breakdown.
const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
	kcalPerGramSugar   = 4
)

type MacroTotals struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
	Sugar   float64 `json:"sugar"`
}

type SummaryEntry struct {
	FoodEntry
	Edited        bool        `json:"edited"`
	MacroCalories MacroTotals `json:"macro_calories"`
}

// Summary is the day view derived from the ledger and the calorie goal.
type Summary struct {
	Goal            int            `json:"goal"`
	TotalCalories   int            `json:"total_calories"`
	Remaining       int            `json:"remaining_calories"`
	ProgressPercent float64        `json:"progress_percent"`
	OverGoal        bool           `json:"over_goal"`
	Band            ProgressBand   `json:"band"`
	Macros          MacroTotals    `json:"macros"`
	MacroCalories   MacroTotals    `json:"macro_calories"`
	Entries         []SummaryEntry `json:"entries"`
}

func Summarize(goal int, entries []FoodEntry) Summary {
	total := TotalCalories(entries)
	summary := Summary{
		Goal:          goal,
		TotalCalories: total,
		Remaining:     RemainingCalories(goal, entries),
		OverGoal:      total > goal,
		Entries:       make([]SummaryEntry, 0, len(entries)),
	}
	if goal > 0 {
		summary.ProgressPercent = math.Min(float64(total)/float64(goal)*100, 100)
	}

	switch {
	case summary.OverGoal:
		summary.Band = BandRed
	case summary.ProgressPercent > 80:
		summary.Band = BandYellow
	default:
		summary.Band = BandGreen
	}

	var grams MacroTotals
	for _, e := range entries {
		grams.Protein += e.Protein
		grams.Carbs += e.Carbs
		grams.Fat += e.Fat
		grams.Sugar += e.Sugar
		summary.Entries = append(summary.Entries, SummaryEntry{
			FoodEntry:     e,
			Edited:        e.Edited(),
			MacroCalories: macroCalories(MacroTotals{Protein: e.Protein, Carbs: e.Carbs, Fat: e.Fat, Sugar: e.Sugar}),
		})
	}
	summary.Macros = MacroTotals{
		Protein: round1(grams.Protein),
		Carbs:   round1(grams.Carbs),
		Fat:     round1(grams.Fat),
		Sugar:   round1(grams.Sugar),
	}
	summary.MacroCalories = macroCalories(grams)
	return summary
}

func macroCalories(grams MacroTotals) MacroTotals {
	return MacroTotals{
		Protein: math.Round(grams.Protein * kcalPerGramProtein),
		Carbs:   math.Round(grams.Carbs * kcalPerGramCarbs),
		Fat:     math.Round(grams.Fat * kcalPerGramFat),
		Sugar:   math.Round(grams.Sugar * kcalPerGramSugar),
	}
}

// Summing one-decimal values drifts in binary floating point.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
