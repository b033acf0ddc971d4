package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/intake"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	"github.com/smallbiznis/snapcount/internal/liveevents"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
	"github.com/smallbiznis/snapcount/internal/ratelimit"
	"github.com/smallbiznis/snapcount/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Profiles  profiledomain.Service
	Ledger    ledgerdomain.Service
	Estimator nutritiondomain.Service
	Intake    *intake.Intake
	Log       *zap.Logger
	Hub       *liveevents.Hub            `optional:"true"`
	Limiter   *ratelimit.EstimateLimiter `optional:"true"`
}

type state struct {
	started bool
	view    domain.View
	profile *profiledomain.Profile

	image      *nutritiondomain.Image
	draft      *ledgerdomain.Draft
	showManual bool
	errMsg     string
	analyzing  bool

	// generation changes whenever the logger panel is reset so that an
	// estimate finishing afterwards is dropped instead of applied.
	generation uint64
}

// Service holds the single device session. Mutations are serialised by mu;
// model calls run outside it with the analyzing flag set.
type Service struct {
	mu    sync.Mutex
	state state

	deviceID  string
	profiles  profiledomain.Service
	ledger    ledgerdomain.Service
	estimator nutritiondomain.Service
	intake    *intake.Intake
	hub       *liveevents.Hub
	limiter   *ratelimit.EstimateLimiter
	log       *zap.Logger
}

func New(p Params) domain.Service {
	deviceID := strings.TrimSpace(p.Cfg.DeviceID)
	if deviceID == "" {
		deviceID = "local"
	}
	return &Service{
		deviceID:  deviceID,
		profiles:  p.Profiles,
		ledger:    p.Ledger,
		estimator: p.Estimator,
		intake:    p.Intake,
		hub:       p.Hub,
		limiter:   p.Limiter,
		log:       p.Log.Named("session.service"),
	}
}

func (s *Service) Snapshot(ctx context.Context) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureStartedLocked(ctx)
	return s.snapshotLocked(ctx)
}

func (s *Service) CompleteSetup(ctx context.Context, b profiledomain.Biometrics) (domain.Snapshot, error) {
	return s.mutate(ctx, func() error {
		profile, err := s.profiles.Setup(ctx, b)
		if err != nil {
			return err
		}
		s.state.profile = &profile
		s.setViewLocked(ctx, domain.ViewTracker)
		return nil
	})
}

func (s *Service) EditProfile(ctx context.Context) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		s.setViewLocked(ctx, domain.ViewSetup)
		return nil
	})
	return snap
}

func (s *Service) StartLogging(ctx context.Context) (domain.Snapshot, error) {
	return s.mutate(ctx, func() error {
		if s.state.profile == nil {
			return domain.ErrNoProfile
		}
		s.setViewLocked(ctx, domain.ViewLogger)
		s.resetLoggerLocked()
		return nil
	})
}

func (s *Service) Back(ctx context.Context) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		if s.state.profile == nil {
			s.setViewLocked(ctx, domain.ViewSetup)
		} else {
			s.setViewLocked(ctx, domain.ViewTracker)
		}
		s.resetLoggerLocked()
		return nil
	})
	return snap
}

func (s *Service) UploadImage(ctx context.Context, data []byte, mimeType string) (domain.Snapshot, error) {
	return s.mutate(ctx, func() error {
		if s.state.view != domain.ViewLogger {
			return domain.ErrWrongView
		}
		if s.state.analyzing {
			return domain.ErrEstimationInFlight
		}
		image, err := s.intake.Prepare(data, mimeType)
		if err != nil {
			return err
		}
		s.resetLoggerLocked()
		s.state.image = &image
		return nil
	})
}

func (s *Service) ClearImage(ctx context.Context) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		s.resetLoggerLocked()
		return nil
	})
	return snap
}

func (s *Service) ShowManualInput(ctx context.Context) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		if s.state.view == domain.ViewLogger {
			s.state.showManual = true
		}
		return nil
	})
	return snap
}

func (s *Service) Analyze(ctx context.Context) (domain.Snapshot, error) {
	var image nutritiondomain.Image
	gen, snap, err := s.begin(ctx, func() error {
		if s.state.image == nil {
			return domain.ErrNoImage
		}
		image = *s.state.image
		return nil
	})
	if err != nil {
		return snap, err
	}

	result, estErr := s.guarded(ctx, func() (nutritiondomain.Result, error) {
		return s.estimator.Estimate(detached(ctx), nutritiondomain.Request{Image: &image})
	})

	return s.finish(ctx, gen, func() error {
		switch {
		case errors.Is(estErr, domain.ErrEstimationInFlight):
			return estErr
		case estErr != nil:
			s.state.errMsg = domain.MessageAnalyzeFailed
			s.state.showManual = true
		case result.OK():
			draft := ledgerdomain.NewDraft(*result.Record, ledgerdomain.SourceImage)
			s.state.draft = &draft
			s.state.showManual = false
		default:
			s.state.errMsg = result.Message
			s.state.showManual = true
		}
		return nil
	})
}

func (s *Service) SubmitDescription(ctx context.Context, description string) (domain.Snapshot, error) {
	description = strings.TrimSpace(description)
	gen, snap, err := s.begin(ctx, func() error {
		if description == "" {
			return domain.ErrEmptyDescription
		}
		return nil
	})
	if err != nil {
		return snap, err
	}

	result, estErr := s.guarded(ctx, func() (nutritiondomain.Result, error) {
		return s.estimator.Estimate(detached(ctx), nutritiondomain.Request{Description: description})
	})

	return s.finish(ctx, gen, func() error {
		switch {
		case errors.Is(estErr, domain.ErrEstimationInFlight):
			return estErr
		case estErr != nil:
			s.state.errMsg = domain.MessageDescribeFailed
		case result.OK():
			source := ledgerdomain.SourceManual
			if s.state.image != nil {
				source = ledgerdomain.SourceImage
			}
			draft := ledgerdomain.NewDraft(*result.Record, source)
			s.state.draft = &draft
			s.state.showManual = false
		default:
			s.state.errMsg = result.Message
			s.state.showManual = true
		}
		return nil
	})
}

func (s *Service) Recalculate(ctx context.Context, newName string) (domain.Snapshot, error) {
	name := strings.TrimSpace(newName)
	var draft ledgerdomain.Draft
	unchanged := false
	gen, snap, err := s.begin(ctx, func() error {
		if s.state.draft == nil {
			return domain.ErrNoDraft
		}
		draft = *s.state.draft
		if name == "" || name == draft.Record.FoodName {
			unchanged = true
		}
		return nil
	})
	if err != nil {
		return snap, err
	}
	if unchanged {
		return s.finish(ctx, gen, func() error { return nil })
	}

	var corrected ledgerdomain.Draft
	result, estErr := s.guarded(ctx, func() (nutritiondomain.Result, error) {
		var (
			res nutritiondomain.Result
			err error
		)
		corrected, res, err = s.ledger.Correct(detached(ctx), draft, name)
		return res, err
	})

	return s.finish(ctx, gen, func() error {
		switch {
		case errors.Is(estErr, domain.ErrEstimationInFlight):
			return estErr
		case estErr != nil:
			s.state.errMsg = domain.MessageRecalculateFailed
		case result.OK():
			s.state.draft = &corrected
		default:
			s.state.errMsg = result.Message
		}
		return nil
	})
}

func (s *Service) AddToLog(ctx context.Context) (domain.Snapshot, ledgerdomain.FoodEntry, error) {
	var entry ledgerdomain.FoodEntry
	snap, err := s.mutate(ctx, func() error {
		if s.state.analyzing {
			return domain.ErrEstimationInFlight
		}
		if s.state.draft == nil {
			return domain.ErrNoDraft
		}
		committed, err := s.ledger.Commit(ctx, *s.state.draft)
		if err != nil {
			return err
		}
		entry = committed
		s.setViewLocked(ctx, domain.ViewTracker)
		s.resetLoggerLocked()
		return nil
	})
	return snap, entry, err
}

func (s *Service) DeleteEntry(ctx context.Context, id snowflake.ID) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		s.ledger.Delete(ctx, id)
		return nil
	})
	return snap
}

// Reset forgets the device: both records are deleted and setup starts over.
func (s *Service) Reset(ctx context.Context) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error {
		s.profiles.Reset(ctx)
		s.ledger.Reset(ctx)
		s.state.profile = nil
		s.setViewLocked(ctx, domain.ViewSetup)
		s.resetLoggerLocked()
		obslogger.WithContext(ctx, s.log).Info("device reset")
		return nil
	})
	return snap
}

// Refresh publishes a fresh snapshot so that a day rollover reaches
// connected clients without waiting for user input.
func (s *Service) Refresh(ctx context.Context) domain.Snapshot {
	snap, _ := s.mutate(ctx, func() error { return nil })
	return snap
}

// mutate applies fn under the session lock and publishes the resulting
// snapshot when fn succeeds.
func (s *Service) mutate(ctx context.Context, fn func() error) (domain.Snapshot, error) {
	s.mu.Lock()
	s.ensureStartedLocked(ctx)
	err := fn()
	snap := s.snapshotLocked(ctx)
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, snap)
	}
	return snap, err
}

// begin validates and marks an estimation in flight, returning the logger
// generation the result must be applied to.
func (s *Service) begin(ctx context.Context, check func() error) (uint64, domain.Snapshot, error) {
	s.mu.Lock()
	s.ensureStartedLocked(ctx)
	err := s.beginLocked(check)
	snap := s.snapshotLocked(ctx)
	gen := s.state.generation
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, snap)
	}
	return gen, snap, err
}

func (s *Service) beginLocked(check func() error) error {
	if s.state.view != domain.ViewLogger {
		return domain.ErrWrongView
	}
	if s.state.analyzing {
		return domain.ErrEstimationInFlight
	}
	if err := check(); err != nil {
		return err
	}
	s.state.analyzing = true
	s.state.errMsg = ""
	return nil
}

func (s *Service) finish(ctx context.Context, gen uint64, apply func() error) (domain.Snapshot, error) {
	s.mu.Lock()
	s.state.analyzing = false
	var err error
	if gen == s.state.generation {
		err = apply()
	} else {
		obslogger.WithContext(ctx, s.log).Debug("discarding estimate for a reset logger")
	}
	snap := s.snapshotLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, snap)
	return snap, err
}

// guarded runs call under the device's cross-process estimation lease.
// Lease errors degrade to an unguarded call.
func (s *Service) guarded(ctx context.Context, call func() (nutritiondomain.Result, error)) (nutritiondomain.Result, error) {
	lease, ok, err := s.limiter.AcquireEstimate(ctx, s.deviceID)
	switch {
	case err != nil:
		obslogger.WithContext(ctx, s.log).Warn("estimate lease unavailable", zap.Error(err))
	case !ok:
		return nutritiondomain.Result{}, domain.ErrEstimationInFlight
	}
	defer func() {
		if err := s.limiter.ReleaseEstimate(context.WithoutCancel(ctx), lease); err != nil {
			obslogger.WithContext(ctx, s.log).Warn("estimate lease release failed", zap.Error(err))
		}
	}()
	return call()
}

// detached keeps an issued model call running when the caller goes away;
// the model client's own timeout still bounds it.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Service) ensureStartedLocked(ctx context.Context) {
	if s.state.started {
		return
	}
	s.state.started = true
	s.state.profile = s.profiles.Get(ctx)
	if s.state.profile == nil {
		s.state.view = domain.ViewSetup
	} else {
		s.state.view = domain.ViewTracker
	}
	obslogger.WithContext(ctx, s.log).Info("session started",
		zap.String("view", string(s.state.view)),
		zap.Bool("has_profile", s.state.profile != nil),
	)
}

func (s *Service) setViewLocked(ctx context.Context, view domain.View) {
	if s.state.view == view {
		return
	}
	obslogger.WithContext(ctx, s.log).Debug("session view changed",
		zap.String("from", string(s.state.view)),
		zap.String("to", string(view)),
	)
	s.state.view = view
}

func (s *Service) resetLoggerLocked() {
	s.state.image = nil
	s.state.draft = nil
	s.state.showManual = false
	s.state.errMsg = ""
	s.state.generation++
}

// snapshotLocked re-reads the ledger, so the day rollover is evaluated on
// every snapshot.
func (s *Service) snapshotLocked(ctx context.Context) domain.Snapshot {
	snap := domain.Snapshot{
		View: s.state.view,
		Logger: domain.LoggerState{
			Analyzing:       s.state.analyzing,
			ShowManualInput: s.state.showManual,
			Error:           s.state.errMsg,
		},
	}
	if s.state.profile != nil {
		profile := *s.state.profile
		summary := s.ledger.Summary(ctx, profile.DailyCalorieGoal)
		snap.Profile = &profile
		snap.Summary = &summary
	}
	if s.state.view == domain.ViewSetup {
		snap.ActivityOptions = profiledomain.ActivityOptions
	}
	if s.state.image != nil {
		snap.Logger.Image = &domain.ImageInfo{
			MIMEType: s.state.image.MIMEType,
			Bytes:    len(s.state.image.Data),
		}
	}
	if s.state.draft != nil {
		draft := *s.state.draft
		snap.Logger.Result = &domain.Result{
			NutritionRecord: draft.Record,
			ConfidenceBand:  nutritiondomain.ConfidenceBand(draft.Record.Confidence),
			Source:          draft.Source,
			DetectedName:    draft.DetectedName,
			Corrected:       draft.Corrected,
		}
	}
	return snap
}

func (s *Service) publish(ctx context.Context, snap domain.Snapshot) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("snapshot encode failed", zap.Error(err))
		return
	}
	s.hub.Publish(s.deviceID, liveevents.Event{Type: liveevents.EventSnapshot, Data: data})
}
