package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockModel) Name() string { return "test-model" }

type mapCache struct {
	mu      sync.Mutex
	records map[string]domain.NutritionRecord
}

func newMapCache() *mapCache {
	return &mapCache{records: map[string]domain.NutritionRecord{}}
}

func (c *mapCache) Get(_ context.Context, key string) (domain.NutritionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[key]
	return record, ok
}

func (c *mapCache) Set(_ context.Context, key string, record domain.NutritionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[key] = record
}

func newTestService(model domain.Model, cache domain.Cache) domain.Service {
	return New(Params{Model: model, Log: zap.NewNop(), Cache: cache})
}

func TestEstimateImageSuccess(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.MatchedBy(func(p domain.Prompt) bool {
		return p.Image != nil && p.Image.MIMEType == "image/jpeg"
	})).Return(`Sure! {"foodName":"Apple","calories":95.4,"protein":0.3,"carbs":25.13,"fat":0.2,"sugar":19,"confidence":0.73} Hope that helps!`, nil).Once()

	svc := newTestService(model, nil)
	result, err := svc.Estimate(context.Background(), imageRequest())

	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, "Apple", result.Record.FoodName)
	assert.Equal(t, 95, result.Record.Calories)
	assert.Equal(t, 25.1, result.Record.Carbs)
	assert.Equal(t, 0.73, result.Record.Confidence)
	model.AssertExpectations(t)
}

func TestEstimateModelSignaledFailure(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.Anything).
		Return(`{"error":"Could not identify food in image"}`, nil).Once()

	result, err := newTestService(model, nil).Estimate(context.Background(), imageRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeModelFailure, result.Outcome)
	assert.Equal(t, domain.MessageNoFoodInImage, result.Message)
}

func TestEstimateInvalidRequestSkipsModel(t *testing.T) {
	model := &mockModel{}
	svc := newTestService(model, nil)

	_, err := svc.Estimate(context.Background(), domain.Request{Description: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	both := imageRequest()
	both.Description = "apple"
	_, err = svc.Estimate(context.Background(), both)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	model.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestEstimateWrapsTransportErrors(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection reset")).Once()

	_, err := newTestService(model, nil).Estimate(context.Background(), textRequest("apple"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, transportErr.Error(), "connection reset")
}

func TestEstimateKeepsStatusCode(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.Anything).
		Return("", &domain.TransportError{StatusCode: 503, Err: errors.New("unavailable")}).Once()

	_, err := newTestService(model, nil).Estimate(context.Background(), textRequest("apple"))

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 503, transportErr.StatusCode)
}

func TestEstimateNormalizationFailureIsNotCached(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.Anything).Return("no json here", nil).Twice()
	cache := newMapCache()
	svc := newTestService(model, cache)

	for i := 0; i < 2; i++ {
		result, err := svc.Estimate(context.Background(), textRequest("mystery stew"))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeNormalizationFailure, result.Outcome)
	}
	assert.Empty(t, cache.records)
	model.AssertExpectations(t)
}

func TestEstimateTextCacheSeparatesPunctuation(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.Anything).
		Return(`{"foodName":"Rice","calories":300,"protein":6,"carbs":66,"fat":1,"sugar":0,"confidence":0.7}`, nil).Twice()
	svc := newTestService(model, newMapCache())

	_, err := svc.Estimate(context.Background(), textRequest("1,5 cups rice"))
	require.NoError(t, err)
	_, err = svc.Estimate(context.Background(), textRequest("1.5 cups rice"))
	require.NoError(t, err)

	model.AssertNumberOfCalls(t, "Generate", 2)
}

func TestEstimateTextCacheHitKeepsDescription(t *testing.T) {
	model := &mockModel{}
	model.On("Generate", mock.Anything, mock.MatchedBy(func(p domain.Prompt) bool {
		return p.Image == nil
	})).Return(`{"foodName":"Caesar Salad","calories":480,"protein":12,"carbs":20,"fat":38,"sugar":4,"confidence":0.7}`, nil).Once()
	svc := newTestService(model, newMapCache())

	first, err := svc.Estimate(context.Background(), textRequest("Caesar salad with dressing"))
	require.NoError(t, err)
	assert.Equal(t, "Caesar Salad", first.Record.FoodName)

	second, err := svc.Estimate(context.Background(), textRequest("caesar SALAD with dressing"))
	require.NoError(t, err)
	assert.Equal(t, "caesar SALAD with dressing", second.Record.FoodName)
	assert.Equal(t, 480, second.Record.Calories)

	model.AssertExpectations(t)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey(textRequest("caesar  salad")), cacheKey(textRequest("  Caesar Salad ")))
	assert.True(t, strings.HasPrefix(cacheKey(textRequest("Caesar Salad")), "text:caesar-salad:"))
	assert.NotEqual(t, cacheKey(textRequest("1,5 cups rice")), cacheKey(textRequest("1.5 cups rice")))

	first := cacheKey(imageRequest())
	other := imageRequest()
	other.Image.MIMEType = "image/png"
	assert.NotEqual(t, first, cacheKey(other))
	assert.Contains(t, first, "image:")

	assert.Contains(t, cacheKey(textRequest("!!!")), "text:")
}
