package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/snapcount/internal/clock"
	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/export"
	"github.com/smallbiznis/snapcount/internal/intake"
	ledgerrepo "github.com/smallbiznis/snapcount/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/snapcount/internal/ledger/service"
	"github.com/smallbiznis/snapcount/internal/liveevents"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"github.com/smallbiznis/snapcount/internal/observability"
	profilerepo "github.com/smallbiznis/snapcount/internal/profile/repository"
	profileservice "github.com/smallbiznis/snapcount/internal/profile/service"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
	sessionservice "github.com/smallbiznis/snapcount/internal/session/service"
	storagerepo "github.com/smallbiznis/snapcount/internal/storage/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEstimator struct {
	mock.Mock
}

func (m *mockEstimator) Estimate(ctx context.Context, req nutritiondomain.Request) (nutritiondomain.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(nutritiondomain.Result), args.Error(1)
}

type testServer struct {
	engine    *gin.Engine
	estimator *mockEstimator
	hub       *liveevents.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	records := storagerepo.NewMemory()
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 12, 0, 0, 0, time.Local))
	estimator := &mockEstimator{}
	hub := liveevents.NewHub()
	cfg := config.Config{DeviceID: "kitchen"}
	in := intake.New(config.NewStaticIntakeConfigHolder(config.DefaultIntakeConfig()), log)

	profiles := profileservice.New(profileservice.Params{Repo: profilerepo.Provide(records), Log: log})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		Repo:      ledgerrepo.Provide(records),
		Estimator: estimator,
		Clock:     clk,
		GenID:     node,
		Log:       log,
	})
	session := sessionservice.New(sessionservice.Params{
		Cfg:       cfg,
		Profiles:  profiles,
		Ledger:    ledger,
		Estimator: estimator,
		Intake:    in,
		Log:       log,
		Hub:       hub,
	})

	engine := NewEngine(observability.Config{}, nil, cfg.DeviceID)
	NewServer(ServerParams{
		Gin:       engine,
		Cfg:       cfg,
		Estimator: estimator,
		Intake:    in,
		Session:   session,
		Exporter:  export.New(export.Params{Profiles: profiles, Ledger: ledger, Clock: clk, Log: log}),
		Events:    hub,
	})
	return &testServer{engine: engine, estimator: estimator, hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	ts.engine.ServeHTTP(resp, req)
	return resp
}

func decodeSnapshot(t *testing.T, resp *httptest.ResponseRecorder) sessiondomain.Snapshot {
	t.Helper()
	var snap sessiondomain.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	return snap
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

var setupBody = map[string]any{"age": 25, "height_cm": 175, "weight_kg": 70, "sex": "male", "activity_level": "moderate"}

func apple() nutritiondomain.Result {
	return nutritiondomain.Success(nutritiondomain.NutritionRecord{FoodName: "Apple", Calories: 95, Protein: 0.5, Carbs: 25, Fat: 0.3, Sugar: 19, Confidence: 0.9})
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", decodeError(t, resp).Type)
}

func TestAnalyzeFoodDescription(t *testing.T) {
	ts := newTestServer(t)
	ts.estimator.On("Estimate", mock.Anything, nutritiondomain.Request{Description: "an apple"}).Return(apple(), nil).Once()

	resp := ts.do(t, http.MethodPost, "/api/analyze-food", map[string]string{"description": "an apple"})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"foodName":"Apple","calories":95,"protein":0.5,"carbs":25,"fat":0.3,"sugar":19,"confidence":0.9}`, resp.Body.String())
}

func TestAnalyzeFoodImage(t *testing.T) {
	ts := newTestServer(t)
	ts.estimator.On("Estimate", mock.Anything, mock.MatchedBy(func(req nutritiondomain.Request) bool {
		return req.Image != nil && req.Image.MIMEType == "image/png" && string(req.Image.Data) == "img" && req.Description == ""
	})).Return(apple(), nil).Once()

	resp := ts.do(t, http.MethodPost, "/api/analyze-food", map[string]string{
		"image":       "data:image/png;base64,aW1n",
		"description": "ignored when an image is present",
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	ts.estimator.AssertExpectations(t)
}

func TestAnalyzeFoodOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		body   map[string]string
		result nutritiondomain.Result
		err    error
		status int
		error  string
		calls  bool
	}{
		{name: "no input", body: map[string]string{}, status: http.StatusBadRequest, error: nutritiondomain.MessageInvalidRequest},
		{name: "blank description", body: map[string]string{"description": "  "}, status: http.StatusBadRequest, error: nutritiondomain.MessageInvalidRequest},
		{name: "malformed image", body: map[string]string{"image": "not-a-data-url"}, status: http.StatusBadRequest, error: nutritiondomain.MessageInvalidRequest},
		{name: "model failure", body: map[string]string{"description": "rock"}, result: nutritiondomain.ModelFailure(nutritiondomain.MessageNoFoodInImage), status: http.StatusOK, error: nutritiondomain.MessageNoFoodInImage, calls: true},
		{name: "normalization failure", body: map[string]string{"description": "soup"}, result: nutritiondomain.NormalizationFailure(), status: http.StatusOK, error: nutritiondomain.MessageNormalizationFailure, calls: true},
		{name: "transport failure", body: map[string]string{"description": "soup"}, err: &nutritiondomain.TransportError{StatusCode: 503, Err: errors.New("unavailable")}, status: http.StatusInternalServerError, error: nutritiondomain.MessageTransportFailure, calls: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tc.calls {
				ts.estimator.On("Estimate", mock.Anything, mock.Anything).Return(tc.result, tc.err).Once()
			}

			resp := ts.do(t, http.MethodPost, "/api/analyze-food", tc.body)

			assert.Equal(t, tc.status, resp.Code)
			var body analyzeFoodError
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tc.error, body.Error)
			if !tc.calls {
				ts.estimator.AssertNotCalled(t, "Estimate", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestParseDataURL(t *testing.T) {
	image, err := parseDataURL("data:image/JPEG;base64,aW1n")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", image.MIMEType)
	assert.Equal(t, []byte("img"), image.Data)

	image, err = parseDataURL("data:image/png;base64,aW1n")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), image.Data)

	for _, raw := range []string{"", "image/png;base64,aW1n", "data:image/png,aW1n", "data:;base64,aW1n", "data:image/png;base64", "data:image/png;base64,@@@", "data:image/png;base64,"} {
		_, err := parseDataURL(raw)
		assert.ErrorIs(t, err, errMalformedDataURL, raw)
	}
}

func TestSuggestions(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/suggestions", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, sessiondomain.Suggestions, body.Suggestions)
}

func TestSessionSetupValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/session/setup", map[string]any{"age": 12, "height_cm": 175, "weight_kg": 70, "activity_level": "moderate"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "age", payload.Errors[0].Field)
	assert.Equal(t, "invalid_age", payload.Errors[0].Code)
}

func TestSessionLoggingFlow(t *testing.T) {
	ts := newTestServer(t)

	snap := decodeSnapshot(t, ts.do(t, http.MethodGet, "/api/session", nil))
	assert.Equal(t, sessiondomain.ViewSetup, snap.View)

	resp := ts.do(t, http.MethodPost, "/api/session/logging", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = ts.do(t, http.MethodPost, "/api/session/setup", setupBody)
	require.Equal(t, http.StatusOK, resp.Code)
	snap = decodeSnapshot(t, resp)
	assert.Equal(t, sessiondomain.ViewTracker, snap.View)
	assert.Equal(t, 2594, snap.Summary.Goal)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/logging", nil).Code)

	resp = ts.do(t, http.MethodPost, "/api/session/analyze", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	ts.estimator.On("Estimate", mock.Anything, nutritiondomain.Request{Description: "Apple"}).Return(apple(), nil).Once()
	resp = ts.do(t, http.MethodPost, "/api/session/describe", map[string]string{"description": "Apple"})
	require.Equal(t, http.StatusOK, resp.Code)
	snap = decodeSnapshot(t, resp)
	require.NotNil(t, snap.Logger.Result)
	assert.Equal(t, "High", snap.Logger.Result.ConfidenceBand)

	resp = ts.do(t, http.MethodPost, "/api/session/entries", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	var added addToLogResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &added))
	assert.Equal(t, "Apple", added.Entry.FoodName)
	assert.Equal(t, sessiondomain.ViewTracker, added.Session.View)
	assert.Equal(t, 2499, added.Session.Summary.Remaining)

	resp = ts.do(t, http.MethodDelete, "/api/session/entries/"+added.Entry.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, decodeSnapshot(t, resp).Summary.TotalCalories)

	resp = ts.do(t, http.MethodDelete, "/api/session/entries/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodPost, "/api/session/reset", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, sessiondomain.ViewSetup, decodeSnapshot(t, resp).View)
}

func TestSessionDescribeRequiresText(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/setup", setupBody).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/logging", nil).Code)

	resp := ts.do(t, http.MethodPost, "/api/session/describe", map[string]string{"description": " "})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "description", payload.Errors[0].Field)
}

func TestSessionWrongView(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/setup", setupBody).Code)

	resp := ts.do(t, http.MethodPost, "/api/session/describe", map[string]string{"description": "Apple"})

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "wrong_view", decodeError(t, resp).Message)
}

func uploadRequest(t *testing.T, mimeType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="meal"`)
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/session/image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSessionImageUpload(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/setup", setupBody).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/logging", nil).Code)

	resp := httptest.NewRecorder()
	ts.engine.ServeHTTP(resp, uploadRequest(t, "image/gif", []byte("gif")))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "image", payload.Errors[0].Field)
	assert.Equal(t, "image_type_unsupported", payload.Errors[0].Code)

	resp = httptest.NewRecorder()
	ts.engine.ServeHTTP(resp, uploadRequest(t, "image/heic", []byte("heic-bytes")))
	require.Equal(t, http.StatusOK, resp.Code)
	snap := decodeSnapshot(t, resp)
	require.NotNil(t, snap.Logger.Image)
	assert.Equal(t, "image/heic", snap.Logger.Image.MIMEType)

	ts.estimator.On("Estimate", mock.Anything, mock.Anything).
		Return(nutritiondomain.Result{}, &nutritiondomain.TransportError{Err: errors.New("reset")}).Once()
	resp = ts.do(t, http.MethodPost, "/api/session/analyze", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	snap = decodeSnapshot(t, resp)
	assert.Equal(t, sessiondomain.MessageAnalyzeFailed, snap.Logger.Error)
	assert.True(t, snap.Logger.ShowManualInput)

	resp = ts.do(t, http.MethodDelete, "/api/session/image", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Nil(t, decodeSnapshot(t, resp).Logger.Image)
}

func TestExportRequiresProfile(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/ledger/export.pdf", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestExportXLSX(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/session/setup", setupBody).Code)

	resp := ts.do(t, http.MethodGet, "/api/ledger/export.xlsx", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.ContentTypeXLSX, resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="snapcount_20260504.xlsx"`, resp.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, resp.Body.Bytes())
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{err: sessiondomain.ErrEstimationInFlight, status: http.StatusConflict, kind: "conflict"},
		{err: sessiondomain.ErrNoDraft, status: http.StatusUnprocessableEntity, kind: "precondition_failed"},
		{err: intake.ErrImageTooLarge, status: http.StatusBadRequest, kind: "validation_error"},
		{err: ErrRateLimited, status: http.StatusTooManyRequests, kind: "rate_limited"},
		{err: ErrServiceUnavailable, status: http.StatusServiceUnavailable, kind: "service_unavailable"},
		{err: &nutritiondomain.TransportError{Err: errors.New("timeout")}, status: http.StatusBadGateway, kind: "upstream_error"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, kind: "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(sessiondomain.ErrWrongView)
	assert.Equal(t, "conflict", kind)
	assert.Equal(t, "wrong_view", code)

	kind, code = classifyErrorForLog(intake.ErrEmptyImage)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "image_empty", code)
}

func TestEventStreamWithoutHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := NewEngine(observability.Config{}, nil, "kitchen")
	NewServer(ServerParams{Gin: engine})

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/session/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestEventStreamSendsSnapshot(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/session/events", nil).WithContext(ctx)
	resp := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ts.engine.ServeHTTP(resp, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return ts.hub.Subscribers("kitchen") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	body := resp.Body.String()
	assert.Contains(t, body, "retry: 2000\n\n")
	assert.Contains(t, body, `"type":"snapshot"`)
	assert.Contains(t, body, `"view":"setup"`)
}
