package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
)

type Repository interface {
	Load(ctx context.Context) ([]FoodEntry, error)
	Save(ctx context.Context, entries []FoodEntry) error
	Delete(ctx context.Context) error
}

type Service interface {
	// Entries loads today's ledger, discarding it first when the day has rolled over.
	Entries(ctx context.Context) []FoodEntry
	Commit(ctx context.Context, draft Draft) (FoodEntry, error)
	Delete(ctx context.Context, id snowflake.ID) []FoodEntry
	Summary(ctx context.Context, goal int) Summary
	// Correct re-estimates draft under the user's name. Non-success outcomes
	// return the draft unchanged alongside the estimator result.
	Correct(ctx context.Context, draft Draft, newName string) (Draft, nutritiondomain.Result, error)
	Reset(ctx context.Context)
}

// CorrectedConfidence is assigned to every user-corrected estimate.
const CorrectedConfidence = 0.8

var (
	ErrInvalidDraft  = errors.New("invalid_draft")
	ErrCorruptRecord = errors.New("corrupt_ledger_record")
)
