package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smallbiznis/snapcount/internal/profile/domain"
	storagedomain "github.com/smallbiznis/snapcount/internal/storage/domain"
)

type repo struct {
	records storagedomain.Records
}

func Provide(records storagedomain.Records) domain.Repository {
	return &repo{records: records}
}

func (r *repo) Load(ctx context.Context) (*domain.Profile, error) {
	raw, ok, err := r.records.Load(ctx, storagedomain.KeyProfile)
	if err != nil || !ok {
		return nil, err
	}
	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	if err := domain.Validate(profile.Biometrics()); err != nil && !isLegacyActivity(profile, err) {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	return &profile, nil
}

func (r *repo) Save(ctx context.Context, profile domain.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return r.records.Save(ctx, storagedomain.KeyProfile, raw)
}

func (r *repo) Delete(ctx context.Context) error {
	return r.records.Delete(ctx, storagedomain.KeyProfile)
}

// Records written without a recognised activity level still carry a usable goal.
func isLegacyActivity(profile domain.Profile, err error) bool {
	return errors.Is(err, domain.ErrInvalidActivityLevel) && profile.DailyCalorieGoal > 0
}
