package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmstudio/adjustment/internal/adjustment"
	"github.com/fcmstudio/adjustment/internal/infrastructure/httpapi"
	"github.com/fcmstudio/adjustment/internal/model"
)

type fakeStore struct {
	mu          sync.Mutex
	runsStarted int
	generations int
	results     int
	pingErr     error

	runSummary          *adjustment.RunSummary
	runErr              error
	generationSummaries []adjustment.GenerationSummary
	generationsTotal    int
}

func (f *fakeStore) NewRun(ctx context.Context, runID uuid.UUID, input adjustment.Input) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runsStarted++
	return nil
}

func (f *fakeStore) ForRun(runID uuid.UUID) adjustment.SaveResult {
	return &fakeRunSink{store: f}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) GetRun(ctx context.Context, runID uuid.UUID) (*adjustment.RunSummary, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.runSummary != nil {
		return f.runSummary, nil
	}
	return &adjustment.RunSummary{ID: runID}, nil
}

func (f *fakeStore) ListGenerations(ctx context.Context, runID uuid.UUID, page, perPage int) ([]adjustment.GenerationSummary, int, error) {
	return f.generationSummaries, f.generationsTotal, nil
}

type fakeRunSink struct {
	store *fakeStore
}

func (s *fakeRunSink) SaveGeneration(ctx context.Context, generation *adjustment.Generation, number int) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.generations++
	return nil
}

func (s *fakeRunSink) SaveResult(ctx context.Context, best *adjustment.Individual) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.results++
	return nil
}

func sampleRunRequest() httpapi.CreateRunRequest {
	return httpapi.CreateRunRequest{
		Concepts: []model.ConceptRecord{
			{ID: 1, Value: 0.3, IsControl: true},
			{ID: 2, Value: 0.1, IsTarget: true, TargetValue: &model.TargetValue{
				MinValue: 0.5, IncludeMinValue: true, MaxValue: 1.0, IncludeMaxValue: true,
			}},
		},
		Connections: []model.ConnectionRecord{
			{ID: 1, Value: 0.5, SourceID: 1, TargetID: 2, IsControl: true},
		},
		Input: adjustment.Input{
			Name:                   "test",
			MinModelTime:           1,
			MaxModelTime:           2,
			DynamicModel:           model.ValueValue,
			GenerationSize:         10,
			GenerationSaveInterval: 1,
			StopCondition: adjustment.StopCondition{
				MaxGenerations:         2,
				MaxWithoutImprovements: 2,
				Error:                  0.0,
			},
		},
	}
}

func TestCreateRunAcceptsValidRequest(t *testing.T) {
	store := &fakeStore{}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	body, err := json.Marshal(sampleRunRequest())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp httpapi.CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err = uuid.Parse(resp.RunID)
	assert.NoError(t, err)

	// Give the background run goroutine a moment to start the first save.
	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.runsStarted)
}

func TestCreateRunRejectsMalformedBody(t *testing.T) {
	store := &fakeStore{}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRunRequiresAuthWhenConfigured(t *testing.T) {
	store := &fakeStore{}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("secret", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	body, err := json.Marshal(sampleRunRequest())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetRunReturnsSummary(t *testing.T) {
	runID := uuid.New()
	store := &fakeStore{runSummary: &adjustment.RunSummary{
		ID:          runID,
		Name:        "test",
		Description: "desc",
		CreatedAt:   time.Now(),
	}}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/adjustment-runs/"+runID.String(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp httpapi.RunSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, runID.String(), resp.RunID)
	assert.False(t, resp.Done)
}

func TestGetRunReturnsNotFoundOnStoreError(t *testing.T) {
	store := &fakeStore{runErr: assert.AnError}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/adjustment-runs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListGenerationsReturnsPage(t *testing.T) {
	runID := uuid.New()
	store := &fakeStore{
		generationSummaries: []adjustment.GenerationSummary{
			{Number: 2, Error: 0.1, CreatedAt: time.Now()},
			{Number: 1, Error: 0.2, CreatedAt: time.Now()},
		},
		generationsTotal: 2,
	}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/adjustment-runs/"+runID.String()+"/generations?page=1&perPage=2", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp httpapi.GenerationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Generations, 2)
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	store := &fakeStore{}
	runner := httpapi.NewRunner(store, zerolog.Nop(), 100, 10)
	auth := httpapi.NewBearerAuth("", nil)
	srv := httpapi.NewServer(runner, auth, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	store.pingErr = assert.AnError
	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
