package domain

import (
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
)

type View string

const (
	ViewSetup   View = "setup"
	ViewTracker View = "tracker"
	ViewLogger  View = "logger"
)

// ImageInfo describes the uploaded image without carrying its bytes.
type ImageInfo struct {
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
}

// Result is a draft estimate as shown to the user.
type Result struct {
	nutritiondomain.NutritionRecord
	ConfidenceBand string              `json:"confidence_band"`
	Source         ledgerdomain.Source `json:"source"`
	DetectedName   string              `json:"detected_name,omitempty"`
	Corrected      bool                `json:"corrected"`
}

// LoggerState is the food logger panel.
type LoggerState struct {
	Image           *ImageInfo `json:"image,omitempty"`
	Analyzing       bool       `json:"analyzing"`
	Result          *Result    `json:"result,omitempty"`
	ShowManualInput bool       `json:"show_manual_input"`
	Error           string     `json:"error,omitempty"`
}

// Snapshot is everything a client needs to render the current view.
// Summary is present only once a profile exists.
type Snapshot struct {
	View            View                           `json:"view"`
	Profile         *profiledomain.Profile         `json:"profile,omitempty"`
	Summary         *ledgerdomain.Summary          `json:"summary,omitempty"`
	Logger          LoggerState                    `json:"logger"`
	ActivityOptions []profiledomain.ActivityOption `json:"activity_options,omitempty"`
}

// Suggestions are example descriptions offered next to the manual input.
var Suggestions = []string{
	"Grilled chicken breast with rice",
	"Caesar salad with dressing",
	"Chocolate chip cookie",
	"Banana smoothie",
	"Pasta with marinara sauce",
}

// Messages shown when the model service itself fails.
const (
	MessageAnalyzeFailed     = "Failed to analyze image. Please try again or describe your food manually."
	MessageDescribeFailed    = "Failed to process description. Please try again."
	MessageRecalculateFailed = "Failed to recalculate. Please try again."
)
