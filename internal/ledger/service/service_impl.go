package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/snapcount/internal/clock"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/snapcount/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const recordName = "daily_entries"

type Params struct {
	fx.In

	Repo      ledgerdomain.Repository
	Estimator nutritiondomain.Service
	Clock     clock.Clock
	GenID     *snowflake.Node
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics        `optional:"true"`
	Tracker   *obsmetrics.TrackerMetrics `optional:"true"`
}

// Service writes every mutation through to the repository before returning.
type Service struct {
	mu sync.Mutex

	repo      ledgerdomain.Repository
	estimator nutritiondomain.Service
	clock     clock.Clock
	genID     *snowflake.Node
	log       *zap.Logger
	metrics   *obsmetrics.Metrics
	tracker   *obsmetrics.TrackerMetrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		repo:      p.Repo,
		estimator: p.Estimator,
		clock:     p.Clock,
		genID:     p.GenID,
		log:       p.Log.Named("ledger.service"),
		metrics:   p.Metrics,
		tracker:   p.Tracker,
	}
}

func (s *Service) Entries(ctx context.Context) []ledgerdomain.FoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Service) Commit(ctx context.Context, draft ledgerdomain.Draft) (ledgerdomain.FoodEntry, error) {
	if strings.TrimSpace(draft.Record.FoodName) == "" {
		return ledgerdomain.FoodEntry{}, ledgerdomain.ErrInvalidDraft
	}
	if draft.Source != ledgerdomain.SourceImage && draft.Source != ledgerdomain.SourceManual {
		return ledgerdomain.FoodEntry{}, ledgerdomain.ErrInvalidDraft
	}
	if !draft.Record.Valid() {
		return ledgerdomain.FoodEntry{}, ledgerdomain.ErrInvalidDraft
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadLocked(ctx)
	entry := draft.Entry(s.genID.Generate(), s.clock.Now().UnixMilli())
	entries = ledgerdomain.Append(entries, entry)
	s.saveLocked(ctx, entries)

	s.metrics.RecordLedgerMutation(ctx, "append", string(entry.Source))
	s.tracker.IncLedgerMutation("append", string(entry.Source))
	obslogger.WithContext(ctx, s.log).Info("ledger entry added",
		zap.String("entry_id", entry.ID.String()),
		zap.String("source", string(entry.Source)),
		zap.Int("calories", entry.Calories),
		zap.Bool("edited", entry.Edited()),
		zap.Int("entries", len(entries)),
	)
	return entry, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) []ledgerdomain.FoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadLocked(ctx)
	var removed *ledgerdomain.FoodEntry
	for i := range entries {
		if entries[i].ID == id {
			removed = &entries[i]
			break
		}
	}
	if removed == nil {
		return entries
	}

	source := string(removed.Source)
	entries = ledgerdomain.Remove(entries, id)
	s.saveLocked(ctx, entries)

	s.metrics.RecordLedgerMutation(ctx, "remove", source)
	s.tracker.IncLedgerMutation("remove", source)
	obslogger.WithContext(ctx, s.log).Info("ledger entry removed",
		zap.String("entry_id", id.String()),
		zap.Int("entries", len(entries)),
	)
	return entries
}

func (s *Service) Summary(ctx context.Context, goal int) ledgerdomain.Summary {
	return ledgerdomain.Summarize(goal, s.Entries(ctx))
}

func (s *Service) Correct(ctx context.Context, draft ledgerdomain.Draft, newName string) (ledgerdomain.Draft, nutritiondomain.Result, error) {
	name := strings.TrimSpace(newName)
	if name == "" || name == draft.Record.FoodName {
		return draft, nutritiondomain.Success(draft.Record), nil
	}

	result, err := s.estimator.Estimate(ctx, nutritiondomain.Request{Description: name})
	if err != nil {
		return draft, nutritiondomain.Result{}, err
	}
	log := obslogger.WithContext(ctx, s.log)
	if !result.OK() {
		log.Info("correction estimate rejected", zap.String("outcome", string(result.Outcome)))
		return draft, result, nil
	}

	// Every recomputed value is kept except the name, which stays as typed.
	record := *result.Record
	record.FoodName = name
	record.Confidence = ledgerdomain.CorrectedConfidence

	corrected := draft
	corrected.Record = record
	corrected.Corrected = true
	log.Info("draft corrected",
		zap.String("source", string(draft.Source)),
		zap.Int("calories", record.Calories),
	)
	return corrected, nutritiondomain.Success(record), nil
}

func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx); err != nil {
		s.tracker.IncStoreError(recordName, obsmetrics.StoreOperationDelete)
		obslogger.WithContext(ctx, s.log).Error("failed to delete ledger", zap.Error(err))
	}
	s.tracker.SetLedgerCalories(0)
}

// loadLocked reads the ledger and applies the day rollover. Unreadable
// records degrade to an empty ledger.
func (s *Service) loadLocked(ctx context.Context) []ledgerdomain.FoodEntry {
	log := obslogger.WithContext(ctx, s.log)
	entries, err := s.repo.Load(ctx)
	if err != nil {
		operation := obsmetrics.StoreOperationLoad
		if errors.Is(err, ledgerdomain.ErrCorruptRecord) {
			operation = obsmetrics.StoreOperationDecode
		}
		s.tracker.IncStoreError(recordName, operation)
		log.Warn("ledger record unreadable, starting empty", zap.Error(err))
		entries = []ledgerdomain.FoodEntry{}
	}

	kept, discarded := ledgerdomain.Rollover(entries, s.clock.Now())
	if discarded {
		s.metrics.RecordRollover(ctx)
		s.tracker.IncRollover(len(entries))
		log.Info("ledger rollover discarded entries", zap.Int("discarded", len(entries)))
		s.saveLocked(ctx, kept)
	}
	s.tracker.SetLedgerCalories(ledgerdomain.TotalCalories(kept))
	return kept
}

func (s *Service) saveLocked(ctx context.Context, entries []ledgerdomain.FoodEntry) {
	if err := s.repo.Save(ctx, entries); err != nil {
		s.tracker.IncStoreError(recordName, obsmetrics.StoreOperationSave)
		obslogger.WithContext(ctx, s.log).Error("failed to persist ledger", zap.Error(err))
		return
	}
	s.tracker.SetLedgerCalories(ledgerdomain.TotalCalories(entries))
}
