package domain

import "math"

const (
	MinAge      = 16
	MaxAge      = 100
	MinHeightCm = 120
	MaxHeightCm = 250
	MinWeightKg = 30
	MaxWeightKg = 300
)

var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

const defaultMultiplier = 1.2

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(b Biometrics) float64 {
	base := 10*float64(b.WeightKg) + 6.25*float64(b.HeightCm) - 5*float64(b.Age)
	if normalizeSex(b.Sex) == SexFemale {
		return base - 161
	}
	return base + 5
}

// Multiplier returns the activity factor; unknown levels fall back to sedentary.
func Multiplier(level ActivityLevel) float64 {
	if m, ok := activityMultipliers[normalizeActivity(level)]; ok {
		return m
	}
	return defaultMultiplier
}

func DailyCalorieGoal(b Biometrics) int {
	return int(math.Round(BMR(b) * Multiplier(b.ActivityLevel)))
}

// Validate checks presence and plausible ranges. The goal is only
// meaningful for biometrics that pass.
func Validate(b Biometrics) error {
	switch {
	case b.Age < MinAge || b.Age > MaxAge:
		return ErrInvalidAge
	case b.HeightCm < MinHeightCm || b.HeightCm > MaxHeightCm:
		return ErrInvalidHeight
	case b.WeightKg < MinWeightKg || b.WeightKg > MaxWeightKg:
		return ErrInvalidWeight
	}
	if sex := normalizeSex(b.Sex); sex != SexMale && sex != SexFemale {
		return ErrInvalidSex
	}
	if _, ok := activityMultipliers[normalizeActivity(b.ActivityLevel)]; !ok {
		return ErrInvalidActivityLevel
	}
	return nil
}

// Build validates b and derives the stored profile.
func Build(b Biometrics) (Profile, error) {
	if err := Validate(b); err != nil {
		return Profile{}, err
	}
	b.Sex = normalizeSex(b.Sex)
	b.ActivityLevel = normalizeActivity(b.ActivityLevel)
	return Profile{
		Age:              b.Age,
		HeightCm:         b.HeightCm,
		WeightKg:         b.WeightKg,
		Sex:              b.Sex,
		ActivityLevel:    b.ActivityLevel,
		DailyCalorieGoal: DailyCalorieGoal(b),
	}, nil
}
