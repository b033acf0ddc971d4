package service

import (
	"context"
	"errors"

	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	"github.com/smallbiznis/snapcount/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordName = "profile"

type Params struct {
	fx.In

	Repo    domain.Repository
	Log     *zap.Logger
	Tracker *obsmetrics.TrackerMetrics `optional:"true"`
}

type Service struct {
	repo    domain.Repository
	log     *zap.Logger
	tracker *obsmetrics.TrackerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		repo:    p.Repo,
		log:     p.Log.Named("profile.service"),
		tracker: p.Tracker,
	}
}

// Get treats storage failures and corrupt records as no profile.
func (s *Service) Get(ctx context.Context) *domain.Profile {
	profile, err := s.repo.Load(ctx)
	if err != nil {
		operation := obsmetrics.StoreOperationLoad
		if errors.Is(err, domain.ErrCorruptRecord) {
			operation = obsmetrics.StoreOperationDecode
		}
		s.tracker.IncStoreError(recordName, operation)
		obslogger.WithContext(ctx, s.log).Warn("profile record unreadable, treating as absent", zap.Error(err))
		return nil
	}
	return profile
}

func (s *Service) Setup(ctx context.Context, b domain.Biometrics) (domain.Profile, error) {
	profile, err := domain.Build(b)
	if err != nil {
		return domain.Profile{}, err
	}

	log := obslogger.WithContext(ctx, s.log)
	if err := s.repo.Save(ctx, profile); err != nil {
		s.tracker.IncStoreError(recordName, obsmetrics.StoreOperationSave)
		log.Error("failed to persist profile", zap.Error(err))
		return profile, nil
	}
	log.Info("profile saved",
		zap.String("activity_level", string(profile.ActivityLevel)),
		zap.Int("daily_calorie_goal", profile.DailyCalorieGoal),
	)
	return profile, nil
}

func (s *Service) Reset(ctx context.Context) {
	if err := s.repo.Delete(ctx); err != nil {
		s.tracker.IncStoreError(recordName, obsmetrics.StoreOperationDelete)
		obslogger.WithContext(ctx, s.log).Error("failed to delete profile", zap.Error(err))
	}
}
