package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/snapcount/internal/nutrition/domain"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	"github.com/smallbiznis/snapcount/internal/observability/tracing"
	"github.com/smallbiznis/snapcount/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

type Params struct {
	fx.In

	Model   domain.Model
	Log     *zap.Logger
	Cache   domain.Cache               `optional:"true"`
	Metrics *obsmetrics.Metrics        `optional:"true"`
	Tracker *obsmetrics.TrackerMetrics `optional:"true"`
}

type Service struct {
	model   domain.Model
	log     *zap.Logger
	cache   domain.Cache
	metrics *obsmetrics.Metrics
	tracker *obsmetrics.TrackerMetrics
	now     func() time.Time
}

func New(p Params) domain.Service {
	return &Service{
		model:   p.Model,
		log:     p.Log.Named("nutrition.service"),
		cache:   p.Cache,
		metrics: p.Metrics,
		tracker: p.Tracker,
		now:     time.Now,
	}
}

// Estimate runs one model round trip. It does not retry or deduplicate;
// callers serialise concurrent requests.
func (s *Service) Estimate(ctx context.Context, req domain.Request) (domain.Result, error) {
	ctx, _ = correlation.EnsureCorrelationID(ctx)

	channel := req.Channel()
	if channel == "" {
		s.observe(ctx, "unknown", obsmetrics.OutcomeInvalidRequest, 0)
		return domain.Result{}, domain.ErrInvalidRequest
	}

	ctx, span := tracing.Start(ctx, "nutrition.estimate")
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("estimate.channel", string(channel)),
		attribute.String("estimate.model", s.model.Name()),
	)...)
	log := obslogger.WithContext(ctx, s.log)

	key := cacheKey(req)
	if s.cache != nil {
		if record, ok := s.cache.Get(ctx, key); ok {
			if channel == domain.ChannelText {
				record.FoodName = strings.TrimSpace(req.Description)
			}
			s.observe(ctx, string(channel), obsmetrics.OutcomeCacheHit, 0)
			span.SetAttributes(attribute.String("estimate.outcome", obsmetrics.OutcomeCacheHit))
			span.End()
			log.Debug("estimate served from cache", zap.String("channel", string(channel)))
			return domain.Success(record), nil
		}
	}

	start := s.now()
	raw, err := s.model.Generate(ctx, buildPrompt(req))
	elapsed := s.now().Sub(start)
	if err != nil {
		var transportErr *domain.TransportError
		if !errors.As(err, &transportErr) {
			err = &domain.TransportError{Err: err}
		}
		s.observe(ctx, string(channel), obsmetrics.OutcomeTransportFailure, elapsed)
		span.SetAttributes(attribute.String("estimate.outcome", obsmetrics.OutcomeTransportFailure))
		tracing.EndWithError(span, err)
		log.Warn("model call failed",
			zap.String("channel", string(channel)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return domain.Result{}, err
	}

	result := decode(raw, req)
	s.observe(ctx, string(channel), string(result.Outcome), elapsed)
	span.SetAttributes(attribute.String("estimate.outcome", string(result.Outcome)))
	span.End()

	fields := []zap.Field{
		zap.String("channel", string(channel)),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("elapsed", elapsed),
	}
	switch result.Outcome {
	case domain.OutcomeSuccess:
		if s.cache != nil {
			s.cache.Set(ctx, key, *result.Record)
		}
		log.Info("estimate completed", append(fields, zap.Float64("confidence", result.Record.Confidence))...)
	case domain.OutcomeModelFailure:
		log.Info("model declined to estimate", append(fields, zap.String("message", result.Message))...)
	default:
		log.Warn("model response could not be normalized", append(fields, zap.Int("response_bytes", len(raw)))...)
	}
	return result, nil
}

func (s *Service) observe(ctx context.Context, channel, outcome string, elapsed time.Duration) {
	s.metrics.RecordEstimation(ctx, channel, outcome)
	s.tracker.ObserveEstimation(channel, outcome, elapsed)
}

// cacheKey identifies a request: text by a digest of the case- and
// whitespace-folded description behind a readable slug, images by a digest of
// MIME type and bytes.
func cacheKey(req domain.Request) string {
	if req.Channel() == domain.ChannelImage {
		h, _ := blake2b.New256(nil)
		_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(req.Image.MIMEType))))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(req.Image.Data)
		return "image:" + hex.EncodeToString(h.Sum(nil))
	}
	folded := strings.Join(strings.Fields(strings.ToLower(req.Description)), " ")
	sum := blake2b.Sum256([]byte(folded))
	digest := hex.EncodeToString(sum[:])
	if label := slug.Make(folded); label != "" {
		return "text:" + label + ":" + digest
	}
	return "text:" + digest
}
