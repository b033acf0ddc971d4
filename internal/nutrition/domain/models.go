package domain

import (
	"math"
	"strings"
)

// NutritionRecord is a normalized estimate for one food item.
type NutritionRecord struct {
	FoodName   string  `json:"foodName"`
	Calories   int     `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Sugar      float64 `json:"sugar"`
	Confidence float64 `json:"confidence"`
}

// Valid reports whether every numeric field is finite and non-negative.
func (r NutritionRecord) Valid() bool {
	if r.Calories < 0 {
		return false
	}
	for _, v := range []float64{r.Protein, r.Carbs, r.Fat, r.Sugar, r.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// Image is raw image bytes with the MIME type declared by the uploader.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request carries exactly one input channel.
type Request struct {
	Image       *Image
	Description string
}

type Channel string

const (
	ChannelImage Channel = "image"
	ChannelText  Channel = "text"
)

// Channel reports which input the request uses, or "" when the request is invalid.
func (r Request) Channel() Channel {
	hasImage := r.Image != nil && len(r.Image.Data) > 0
	hasText := strings.TrimSpace(r.Description) != ""
	switch {
	case hasImage && !hasText:
		return ChannelImage
	case hasText && !hasImage:
		return ChannelText
	default:
		return ""
	}
}

type Outcome string

const (
	OutcomeSuccess              Outcome = "success"
	OutcomeModelFailure         Outcome = "model_failure"
	OutcomeNormalizationFailure Outcome = "normalization_failure"
)

// Result is the tagged outcome of a completed model round trip.
// Record is set only for OutcomeSuccess; Message carries the model's sentinel
// text for OutcomeModelFailure and the generic message for OutcomeNormalizationFailure.
type Result struct {
	Outcome Outcome          `json:"outcome"`
	Record  *NutritionRecord `json:"record,omitempty"`
	Message string           `json:"message,omitempty"`
}

func Success(record NutritionRecord) Result {
	return Result{Outcome: OutcomeSuccess, Record: &record}
}

func ModelFailure(message string) Result {
	return Result{Outcome: OutcomeModelFailure, Message: message}
}

func NormalizationFailure() Result {
	return Result{Outcome: OutcomeNormalizationFailure, Message: MessageNormalizationFailure}
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess && r.Record != nil
}

// User-facing messages.
const (
	MessageInvalidRequest       = "No image or description provided"
	MessageNormalizationFailure = "Could not analyze the food. Please try describing it manually."
	MessageTransportFailure     = "Failed to analyze food. Please try again."
	MessageNoFoodInImage        = "Could not identify food in image"
)

// ConfidenceBand buckets a confidence score for display.
func ConfidenceBand(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "High"
	case confidence >= 0.6:
		return "Medium"
	default:
		return "Low"
	}
}
