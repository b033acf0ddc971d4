package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/snapcount/internal/clock"
	"github.com/smallbiznis/snapcount/internal/config"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	sessiondomain.Service
	refreshes int
}

func (f *fakeSession) Refresh(context.Context) sessiondomain.Snapshot {
	f.refreshes++
	return sessiondomain.Snapshot{
		View:    sessiondomain.ViewTracker,
		Summary: &ledgerdomain.Summary{},
	}
}

type fakePusher struct {
	pushes int
	err    error
}

func (f *fakePusher) Push(context.Context, prometheus.Gatherer) error {
	if f.err != nil {
		return f.err
	}
	f.pushes++
	return nil
}

type fixture struct {
	sched    *Scheduler
	clock    *clock.FakeClock
	session  *fakeSession
	pusher   *fakePusher
	registry *prometheus.Registry
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := fixture{
		clock:    clock.NewFakeClock(time.Date(2026, 5, 4, 23, 58, 0, 0, time.Local)),
		session:  &fakeSession{},
		pusher:   &fakePusher{},
		registry: prometheus.NewRegistry(),
	}
	f.sched, err = New(Params{
		AppCfg:   config.Config{DeviceID: "kitchen"},
		Session:  f.session,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    f.clock,
		Config:   cfg,
		Pusher:   f.pusher,
		Gatherer: prometheus.NewRegistry(),
		Metrics:  obsmetrics.NewSchedulerMetrics(f.registry, obsmetrics.Config{Environment: "test"}),
	})
	require.NoError(t, err)
	return f
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDayRolloverRefreshesOnlyWhenTheDayChanges(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{JobDayRollover}})
	ctx := context.Background()

	require.NoError(t, f.sched.RunOnce(ctx))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 0, f.session.refreshes)

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.session.refreshes)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.session.refreshes)
	assert.Equal(t, "2026-05-05", f.sched.lastDay)
}

func TestMetricsPushHonoursInterval(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{JobMetricsPush}, MetricsPushInterval: 5 * time.Minute})
	ctx := context.Background()

	require.NoError(t, f.sched.RunOnce(ctx))
	f.clock.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.pusher.pushes)

	f.clock.Advance(5 * time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 2, f.pusher.pushes)
}

func TestMetricsPushFailureIsReturned(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{JobMetricsPush}})
	f.pusher.err = errors.New("collector down")

	err := f.sched.RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), JobMetricsPush)
	assert.True(t, f.sched.lastPush.IsZero())
}

func TestMetricsPushWithoutPusherIsSkipped(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{JobMetricsPush}})
	f.sched.pusher = nil

	assert.NoError(t, f.sched.RunOnce(context.Background()))
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.sched.runJob(context.Background(), "slow", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.NoError(t, err)
	count, err := testutil.GatherAndCount(f.registry, "snapcount_scheduler_job_timeouts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIsJobEnabled(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{"DAY_ROLLOVER"}})
	assert.True(t, f.sched.isJobEnabled(JobDayRollover))
	assert.False(t, f.sched.isJobEnabled(JobMetricsPush))

	f.sched.cfg.EnabledJobs = nil
	assert.True(t, f.sched.isJobEnabled(JobMetricsPush))
}
