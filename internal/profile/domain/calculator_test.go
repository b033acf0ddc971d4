package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCalorieGoalExample(t *testing.T) {
	b := Biometrics{Age: 25, HeightCm: 175, WeightKg: 70, Sex: SexMale, ActivityLevel: ActivityModerate}

	assert.Equal(t, 1673.75, BMR(b))
	assert.Equal(t, 2594, DailyCalorieGoal(b))
}

func TestBMRSexDifference(t *testing.T) {
	for _, age := range []int{16, 40, 100} {
		male := Biometrics{Age: age, HeightCm: 180, WeightKg: 82, Sex: SexMale}
		female := male
		female.Sex = SexFemale
		assert.Equal(t, 166.0, BMR(male)-BMR(female))
	}
}

func TestBMRDefaultsToMale(t *testing.T) {
	b := Biometrics{Age: 30, HeightCm: 165, WeightKg: 60}
	male := b
	male.Sex = SexMale
	assert.Equal(t, BMR(male), BMR(b))
}

func TestMultiplier(t *testing.T) {
	cases := map[ActivityLevel]float64{
		ActivitySedentary:  1.2,
		ActivityLight:      1.375,
		ActivityModerate:   1.55,
		ActivityActive:     1.725,
		ActivityVeryActive: 1.9,
		" Active ":         1.725,
		"":                 1.2,
		"couch":            1.2,
	}
	for level, want := range cases {
		assert.Equal(t, want, Multiplier(level), "level %q", level)
	}
}

func TestDailyCalorieGoalIsDeterministic(t *testing.T) {
	b := Biometrics{Age: 52, HeightCm: 158, WeightKg: 91, Sex: SexFemale, ActivityLevel: ActivityLight}
	first := DailyCalorieGoal(b)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, DailyCalorieGoal(b))
	}
}

func TestValidate(t *testing.T) {
	valid := Biometrics{Age: 25, HeightCm: 175, WeightKg: 70, ActivityLevel: ActivityModerate}
	require.NoError(t, Validate(valid))

	cases := []struct {
		name   string
		mutate func(*Biometrics)
		want   error
	}{
		{name: "age_low", mutate: func(b *Biometrics) { b.Age = 15 }, want: ErrInvalidAge},
		{name: "age_high", mutate: func(b *Biometrics) { b.Age = 101 }, want: ErrInvalidAge},
		{name: "height_missing", mutate: func(b *Biometrics) { b.HeightCm = 0 }, want: ErrInvalidHeight},
		{name: "height_high", mutate: func(b *Biometrics) { b.HeightCm = 251 }, want: ErrInvalidHeight},
		{name: "weight_low", mutate: func(b *Biometrics) { b.WeightKg = 29 }, want: ErrInvalidWeight},
		{name: "sex_unknown", mutate: func(b *Biometrics) { b.Sex = "other" }, want: ErrInvalidSex},
		{name: "activity_missing", mutate: func(b *Biometrics) { b.ActivityLevel = "" }, want: ErrInvalidActivityLevel},
		{name: "activity_unknown", mutate: func(b *Biometrics) { b.ActivityLevel = "extreme" }, want: ErrInvalidActivityLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := valid
			tc.mutate(&b)
			err := Validate(b)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestBuildNormalizes(t *testing.T) {
	profile, err := Build(Biometrics{Age: 25, HeightCm: 175, WeightKg: 70, Sex: " Female ", ActivityLevel: "MODERATE"})
	require.NoError(t, err)

	assert.Equal(t, SexFemale, profile.Sex)
	assert.Equal(t, ActivityModerate, profile.ActivityLevel)
	assert.Equal(t, 2337, profile.DailyCalorieGoal)
}
