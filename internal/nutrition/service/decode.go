package service

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/smallbiznis/snapcount/internal/nutrition/domain"
)

const unknownFoodName = "Unknown food"

// Upper bounds for a single estimate; anything larger is not a serving.
const (
	maxCalories = math.MaxInt32
	maxGrams    = 1e6
)

var numericFields = []string{"calories", "protein", "carbs", "fat", "sugar", "confidence"}

// extractObject returns the first top-level {...} span of raw, honouring JSON
// string literals so braces inside names do not end the span early.
func extractObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// decode turns raw model text into a tagged Result. It never returns an error:
// every malformed shape is a normalization failure.
func decode(raw string, req domain.Request) domain.Result {
	span, ok := extractObject(raw)
	if !ok {
		return domain.NormalizationFailure()
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return domain.NormalizationFailure()
	}

	if rawErr, ok := fields["error"]; ok {
		var message string
		if err := json.Unmarshal(rawErr, &message); err == nil && strings.TrimSpace(message) != "" {
			return domain.ModelFailure(strings.TrimSpace(message))
		}
	}

	values := make(map[string]float64, len(numericFields))
	for _, name := range numericFields {
		value, ok := numberField(fields, name)
		if !ok || value < 0 {
			return domain.NormalizationFailure()
		}
		values[name] = value
	}

	record := domain.NutritionRecord{
		FoodName:   foodName(fields, req),
		Protein:    roundTo(values["protein"], 1),
		Carbs:      roundTo(values["carbs"], 1),
		Fat:        roundTo(values["fat"], 1),
		Sugar:      roundTo(values["sugar"], 1),
		Confidence: roundTo(math.Min(values["confidence"], 1), 2),
	}
	calories := math.Round(values["calories"])
	if calories > maxCalories {
		return domain.NormalizationFailure()
	}
	record.Calories = int(calories)
	for _, grams := range []float64{record.Protein, record.Carbs, record.Fat, record.Sugar} {
		if !finite(grams) || grams > maxGrams {
			return domain.NormalizationFailure()
		}
	}
	return domain.Success(record)
}

// numberField accepts only JSON numbers; quoted numerals are rejected.
func numberField(fields map[string]json.RawMessage, name string) (float64, bool) {
	raw, ok := fields[name]
	if !ok {
		return 0, false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	number, ok := value.(float64)
	if !ok || !finite(number) {
		return 0, false
	}
	return number, true
}

func foodName(fields map[string]json.RawMessage, req domain.Request) string {
	var name string
	if raw, ok := fields["foodName"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	if req.Channel() == domain.ChannelText {
		return strings.TrimSpace(req.Description)
	}
	return unknownFoodName
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
