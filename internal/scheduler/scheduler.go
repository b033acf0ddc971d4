package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/snapcount/internal/clock"
	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/metricspush"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobDayRollover = "day_rollover"
	JobMetricsPush = "metrics_push"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	AppCfg   config.Config
	Session  sessiondomain.Service
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   Config                       `optional:"true"`
	Pusher   metricspush.Pusher           `optional:"true"`
	Gatherer prometheus.Gatherer          `optional:"true"`
	Metrics  *obsmetrics.SchedulerMetrics `optional:"true"`
}

// Scheduler runs the device's periodic jobs. RunOnce is not reentrant;
// RunForever is its only caller outside tests.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	deviceID string
	genID    *snowflake.Node
	clock    clock.Clock
	session  sessiondomain.Service
	pusher   metricspush.Pusher
	gatherer prometheus.Gatherer
	metrics  *obsmetrics.SchedulerMetrics

	lastDay  string
	lastPush time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Session == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	schedMetrics := p.Metrics
	if schedMetrics == nil {
		schedMetrics = obsmetrics.Scheduler()
	}
	deviceID := strings.TrimSpace(p.AppCfg.DeviceID)
	if deviceID == "" {
		deviceID = "local"
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		deviceID: deviceID,
		genID:    p.GenID,
		clock:    p.Clock,
		session:  p.Session,
		pusher:   p.Pusher,
		gatherer: gatherer,
		metrics:  schedMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	schedMetrics := s.metrics
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the job runs again on the next pass
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobDayRollover, s.DayRolloverJob},
		{JobMetricsPush, s.MetricsPushJob},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := s.metrics

	for {
		schedMetrics.ObserveRunLoopLag(s.clock.Now().Sub(nextRun))
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// DayRolloverJob republishes the session once the local calendar day
// changes, so open clients see the emptied ledger at midnight.
func (s *Scheduler) DayRolloverJob(ctx context.Context) error {
	day := s.clock.Now().Format(time.DateOnly)
	if s.lastDay == "" {
		s.lastDay = day
		return nil
	}
	if day == s.lastDay {
		return nil
	}

	snap := s.session.Refresh(ctx)
	previous := s.lastDay
	s.lastDay = day
	jobRunFromContext(ctx).AddProcessed(1)

	fields := []zap.Field{
		zap.String("previous_day", previous),
		zap.String("day", day),
	}
	if snap.Summary != nil {
		fields = append(fields, zap.Int("total_calories", snap.Summary.TotalCalories))
	}
	s.logger(ctx).Info("day rolled over", fields...)
	return nil
}

// MetricsPushJob sends the gathered metrics at most once per push interval.
func (s *Scheduler) MetricsPushJob(ctx context.Context) error {
	if s.pusher == nil {
		return nil
	}
	now := s.clock.Now()
	if !s.lastPush.IsZero() && now.Sub(s.lastPush) < s.cfg.MetricsPushInterval {
		return nil
	}
	if err := s.pusher.Push(ctx, s.gatherer); err != nil {
		return err
	}
	s.lastPush = now
	jobRunFromContext(ctx).AddProcessed(1)
	return nil
}
