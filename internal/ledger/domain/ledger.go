package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Append returns a new ledger with e at the head.
func Append(entries []FoodEntry, e FoodEntry) []FoodEntry {
	out := make([]FoodEntry, 0, len(entries)+1)
	out = append(out, e)
	return append(out, entries...)
}

// Remove returns a new ledger without id. Absent ids leave the ledger unchanged.
func Remove(entries []FoodEntry, id snowflake.ID) []FoodEntry {
	out := make([]FoodEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func TotalCalories(entries []FoodEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Calories
	}
	return total
}

// RemainingCalories is negative once the goal is exceeded.
func RemainingCalories(goal int, entries []FoodEntry) int {
	return goal - TotalCalories(entries)
}

// Rollover keeps entries only when every one falls on the local calendar day
// of now. Any entry from another day discards the whole ledger.
func Rollover(entries []FoodEntry, now time.Time) ([]FoodEntry, bool) {
	if len(entries) == 0 {
		return entries, false
	}
	loc := now.Location()
	for _, e := range entries {
		if !SameDay(time.UnixMilli(e.Timestamp).In(loc), now) {
			return []FoodEntry{}, true
		}
	}
	return entries, false
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
