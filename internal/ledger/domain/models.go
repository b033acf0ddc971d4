package domain

import (
	"github.com/bwmarrin/snowflake"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
)

type Source string

const (
	SourceImage  Source = "image"
	SourceManual Source = "manual"
)

// FoodEntry is an immutable snapshot of a committed estimate.
type FoodEntry struct {
	ID           snowflake.ID `json:"id"`
	Timestamp    int64        `json:"timestamp"`
	FoodName     string       `json:"food_name"`
	OriginalName string       `json:"original_name,omitempty"`
	Calories     int          `json:"calories"`
	Protein      float64      `json:"protein"`
	Carbs        float64      `json:"carbs"`
	Fat          float64      `json:"fat"`
	Sugar        float64      `json:"sugar"`
	Source       Source       `json:"source"`
}

// Edited reports whether the name was corrected after detection.
func (e FoodEntry) Edited() bool {
	return e.OriginalName != "" && e.OriginalName != e.FoodName
}

// Draft is an estimate awaiting commit. DetectedName is the first name the
// estimator produced for an image and survives later corrections.
type Draft struct {
	Record       nutritiondomain.NutritionRecord `json:"record"`
	Source       Source                          `json:"source"`
	DetectedName string                          `json:"detected_name,omitempty"`
	Corrected    bool                            `json:"corrected"`
}

// NewDraft wraps a fresh estimate.
func NewDraft(record nutritiondomain.NutritionRecord, source Source) Draft {
	draft := Draft{Record: record, Source: source}
	if source == SourceImage {
		draft.DetectedName = record.FoodName
	}
	return draft
}

// Entry freezes the draft into a ledger entry. OriginalName is kept only for
// image entries whose committed name differs from the detected one.
func (d Draft) Entry(id snowflake.ID, timestampMs int64) FoodEntry {
	entry := FoodEntry{
		ID:        id,
		Timestamp: timestampMs,
		FoodName:  d.Record.FoodName,
		Calories:  d.Record.Calories,
		Protein:   d.Record.Protein,
		Carbs:     d.Record.Carbs,
		Fat:       d.Record.Fat,
		Sugar:     d.Record.Sugar,
		Source:    d.Source,
	}
	if d.Source == SourceImage && d.DetectedName != "" && d.DetectedName != d.Record.FoodName {
		entry.OriginalName = d.DetectedName
	}
	return entry
}
