package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	"github.com/smallbiznis/snapcount/internal/profile/domain"
	"github.com/smallbiznis/snapcount/internal/profile/repository"
	storagedomain "github.com/smallbiznis/snapcount/internal/storage/domain"
	storagerepo "github.com/smallbiznis/snapcount/internal/storage/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingRepo struct{}

func (failingRepo) Load(context.Context) (*domain.Profile, error) { return nil, nil }

func (failingRepo) Save(context.Context, domain.Profile) error { return errors.New("disk full") }

func (failingRepo) Delete(context.Context) error { return nil }

func newTestService(t *testing.T) (domain.Service, storagedomain.Records, *prometheus.Registry) {
	t.Helper()
	records := storagerepo.NewMemory()
	registry := prometheus.NewRegistry()
	tracker := obsmetrics.NewTrackerMetrics(registry, obsmetrics.Config{ServiceName: "snapcount", Environment: "test"})
	svc := New(Params{Repo: repository.Provide(records), Log: zap.NewNop(), Tracker: tracker})
	return svc, records, registry
}

func TestSetupPersistsDerivedGoal(t *testing.T) {
	svc, records, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.Setup(ctx, domain.Biometrics{Age: 25, HeightCm: 175, WeightKg: 70, ActivityLevel: domain.ActivityModerate})
	require.NoError(t, err)
	assert.Equal(t, 2594, profile.DailyCalorieGoal)

	raw, ok, err := records.Load(ctx, storagedomain.KeyProfile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"age":25,"height_cm":175,"weight_kg":70,"sex":"male","activity_level":"moderate","daily_calorie_goal":2594}`, string(raw))

	loaded := svc.Get(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, profile, *loaded)
}

func TestSetupRejectsInvalidWithoutWriting(t *testing.T) {
	svc, records, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, domain.Biometrics{Age: 12, HeightCm: 175, WeightKg: 70, ActivityLevel: domain.ActivityModerate})
	assert.ErrorIs(t, err, domain.ErrInvalidAge)

	_, ok, _ := records.Load(ctx, storagedomain.KeyProfile)
	assert.False(t, ok)
}

func TestGetTreatsCorruptRecordAsAbsent(t *testing.T) {
	svc, records, registry := newTestService(t)
	ctx := context.Background()
	require.NoError(t, records.Save(ctx, storagedomain.KeyProfile, []byte(`{"age":"old"`)))

	assert.Nil(t, svc.Get(ctx))
	count, err := testutil.GatherAndCount(registry, "snapcount_store_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetAcceptsLegacyActivity(t *testing.T) {
	svc, records, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, records.Save(ctx, storagedomain.KeyProfile,
		[]byte(`{"age":30,"height_cm":170,"weight_kg":65,"activity_level":"","daily_calorie_goal":1900}`)))

	profile := svc.Get(ctx)
	require.NotNil(t, profile)
	assert.Equal(t, 1900, profile.DailyCalorieGoal)
}

func TestResetRemovesProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Setup(ctx, domain.Biometrics{Age: 40, HeightCm: 160, WeightKg: 60, Sex: domain.SexFemale, ActivityLevel: domain.ActivityLight})
	require.NoError(t, err)

	svc.Reset(ctx)

	assert.Nil(t, svc.Get(ctx))
}

func TestSetupSaveFailureIsSoftAndNotLoggedAsSaved(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := New(Params{Repo: failingRepo{}, Log: zap.New(core)})

	profile, err := svc.Setup(context.Background(), domain.Biometrics{Age: 25, HeightCm: 175, WeightKg: 70, ActivityLevel: domain.ActivityModerate})

	require.NoError(t, err)
	assert.Equal(t, 2594, profile.DailyCalorieGoal)
	assert.Equal(t, 1, logs.FilterMessage("failed to persist profile").Len())
	assert.Zero(t, logs.FilterMessage("profile saved").Len())
}
