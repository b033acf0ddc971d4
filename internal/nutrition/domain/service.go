package domain

import "context"

// Prompt is a single model turn: instruction text with an optional inline image.
type Prompt struct {
	Text  string
	Image *Image
}

// Model sends one prompt to the inference service and returns its raw text.
type Model interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

// Service estimates nutrition. ErrInvalidRequest and transport failures are
// returned as errors; every completed round trip yields a Result.
type Service interface {
	Estimate(ctx context.Context, req Request) (Result, error)
}

// Cache stores successful estimates keyed by the normalized request.
type Cache interface {
	Get(ctx context.Context, key string) (NutritionRecord, bool)
	Set(ctx context.Context, key string, record NutritionRecord)
}
