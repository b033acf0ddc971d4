package domain

import (
	"context"
	"errors"
)

type Repository interface {
	Load(ctx context.Context) (*Profile, error)
	Save(ctx context.Context, profile Profile) error
	Delete(ctx context.Context) error
}

type Service interface {
	// Get returns nil when no usable profile is stored.
	Get(ctx context.Context) *Profile
	Setup(ctx context.Context, b Biometrics) (Profile, error)
	Reset(ctx context.Context)
}

var (
	ErrInvalidAge           = errors.New("invalid_age")
	ErrInvalidHeight        = errors.New("invalid_height")
	ErrInvalidWeight        = errors.New("invalid_weight")
	ErrInvalidSex           = errors.New("invalid_sex")
	ErrInvalidActivityLevel = errors.New("invalid_activity_level")
	ErrCorruptRecord        = errors.New("corrupt_profile_record")
)

// IsValidationError reports whether err rejects user input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAge) ||
		errors.Is(err, ErrInvalidHeight) ||
		errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidSex) ||
		errors.Is(err, ErrInvalidActivityLevel)
}
