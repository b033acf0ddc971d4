package domain

import "strings"

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// Biometrics are the user-entered inputs of the calorie goal.
type Biometrics struct {
	Age           int           `json:"age"`
	HeightCm      int           `json:"height_cm"`
	WeightKg      int           `json:"weight_kg"`
	Sex           Sex           `json:"sex"`
	ActivityLevel ActivityLevel `json:"activity_level"`
}

// Profile is the persisted device profile. DailyCalorieGoal is always derived
// from the biometrics and never set directly.
type Profile struct {
	Age              int           `json:"age"`
	HeightCm         int           `json:"height_cm"`
	WeightKg         int           `json:"weight_kg"`
	Sex              Sex           `json:"sex,omitempty"`
	ActivityLevel    ActivityLevel `json:"activity_level"`
	DailyCalorieGoal int           `json:"daily_calorie_goal"`
}

func (p Profile) Biometrics() Biometrics {
	return Biometrics{
		Age:           p.Age,
		HeightCm:      p.HeightCm,
		WeightKg:      p.WeightKg,
		Sex:           p.Sex,
		ActivityLevel: p.ActivityLevel,
	}
}

// ActivityOption labels an activity level for the setup form.
type ActivityOption struct {
	Value ActivityLevel `json:"value"`
	Label string        `json:"label"`
}

var ActivityOptions = []ActivityOption{
	{Value: ActivitySedentary, Label: "Sedentary (little/no exercise)"},
	{Value: ActivityLight, Label: "Light (light exercise 1-3 days/week)"},
	{Value: ActivityModerate, Label: "Moderate (moderate exercise 3-5 days/week)"},
	{Value: ActivityActive, Label: "Active (hard exercise 6-7 days/week)"},
	{Value: ActivityVeryActive, Label: "Very Active (very hard exercise, physical job)"},
}

func normalizeSex(sex Sex) Sex {
	switch Sex(strings.ToLower(strings.TrimSpace(string(sex)))) {
	case SexFemale:
		return SexFemale
	case "", SexMale:
		return SexMale
	default:
		return Sex(strings.ToLower(strings.TrimSpace(string(sex))))
	}
}

func normalizeActivity(level ActivityLevel) ActivityLevel {
	return ActivityLevel(strings.ToLower(strings.TrimSpace(string(level))))
}
