package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smallbiznis/snapcount/internal/ledger/domain"
	storagedomain "github.com/smallbiznis/snapcount/internal/storage/domain"
)

type repo struct {
	records storagedomain.Records
}

func Provide(records storagedomain.Records) domain.Repository {
	return &repo{records: records}
}

// Load returns an empty ledger when nothing is stored.
func (r *repo) Load(ctx context.Context) ([]domain.FoodEntry, error) {
	raw, ok, err := r.records.Load(ctx, storagedomain.KeyDailyEntries)
	if err != nil {
		return []domain.FoodEntry{}, err
	}
	if !ok {
		return []domain.FoodEntry{}, nil
	}
	var entries []domain.FoodEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []domain.FoodEntry{}, fmt.Errorf("%w: %v", domain.ErrCorruptRecord, err)
	}
	if entries == nil {
		entries = []domain.FoodEntry{}
	}
	return entries, nil
}

func (r *repo) Save(ctx context.Context, entries []domain.FoodEntry) error {
	if entries == nil {
		entries = []domain.FoodEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.records.Save(ctx, storagedomain.KeyDailyEntries, raw)
}

func (r *repo) Delete(ctx context.Context) error {
	return r.records.Delete(ctx, storagedomain.KeyDailyEntries)
}
