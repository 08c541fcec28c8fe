package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fcmstudio/adjustment/internal/adjustment"
	"github.com/fcmstudio/adjustment/internal/fcmerr"
	"github.com/fcmstudio/adjustment/internal/model"
)

// Store is the persistence contract a Runner needs, satisfied by
// internal/infrastructure/storage.BunStore. ForRun scopes the shared
// store to one run id, since many runs may be in flight concurrently.
type Store interface {
	NewRun(ctx context.Context, runID uuid.UUID, input adjustment.Input) error
	ForRun(runID uuid.UUID) adjustment.SaveResult
	Ping(ctx context.Context) error
	GetRun(ctx context.Context, runID uuid.UUID) (*adjustment.RunSummary, error)
	ListGenerations(ctx context.Context, runID uuid.UUID, page, perPage int) ([]adjustment.GenerationSummary, int, error)
}

// RunSummaryResponse is the GET /api/v1/adjustment-runs/{id} response body.
type RunSummaryResponse struct {
	RunID            string  `json:"runId"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	CreatedAt        string  `json:"createdAt"`
	FinishedAt       *string `json:"finishedAt,omitempty"`
	BestIndividualID int     `json:"bestIndividualId,omitempty"`
	Done             bool    `json:"done"`
}

// GenerationListResponse is the
// GET /api/v1/adjustment-runs/{id}/generations response body.
type GenerationListResponse struct {
	Page        int                            `json:"page"`
	PerPage     int                            `json:"perPage"`
	Total       int                            `json:"total"`
	Generations []adjustment.GenerationSummary `json:"generations"`
}

// CreateRunRequest is the POST /api/v1/adjustment-runs request body: a
// model definition plus the adjustment run parameters.
type CreateRunRequest struct {
	Concepts    []model.ConceptRecord    `json:"concepts"`
	Connections []model.ConnectionRecord `json:"connections"`
	Input       adjustment.Input         `json:"input"`
}

// CreateRunResponse acknowledges a run has been accepted and started.
type CreateRunResponse struct {
	RunID string `json:"runId"`
}

// Runner accepts adjustment run requests, builds the model and engine,
// and drives the run to completion in the background, saving progress
// through store.
type Runner struct {
	store Store
	log   zerolog.Logger

	// defaultGenerationSize and defaultGenerationSaveInterval seed a
	// request's Input fields when the caller leaves them zero, so a
	// deployment can set sane defaults without every client needing to
	// know them.
	defaultGenerationSize         int
	defaultGenerationSaveInterval int
}

// NewRunner builds a Runner persisting through store. defaultGenerationSize
// and defaultGenerationSaveInterval fill in a request's Input when the
// caller omits them (leaves them zero); pass 0 for either to leave that
// field unfilled.
func NewRunner(store Store, log zerolog.Logger, defaultGenerationSize, defaultGenerationSaveInterval int) *Runner {
	return &Runner{
		store:                         store,
		log:                           log,
		defaultGenerationSize:         defaultGenerationSize,
		defaultGenerationSaveInterval: defaultGenerationSaveInterval,
	}
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	runID, err := s.runner.Start(r.Context(), req)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to start adjustment run")
		status := http.StatusInternalServerError
		var fe *fcmerr.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fcmerr.CodeInvalidModel, fcmerr.CodeInvalidInput:
				status = http.StatusBadRequest
			case fcmerr.CodeSinkError:
				status = http.StatusBadGateway
			}
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(CreateRunResponse{RunID: runID.String()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid run id"}`, http.StatusBadRequest)
		return
	}

	summary, err := s.runner.store.GetRun(r.Context(), runID)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID.String()).Msg("failed to load run")
		http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
		return
	}

	resp := RunSummaryResponse{
		RunID:            summary.ID.String(),
		Name:             summary.Name,
		Description:      summary.Description,
		CreatedAt:        summary.CreatedAt.Format(http.TimeFormat),
		BestIndividualID: summary.BestIndividualID,
		Done:             summary.FinishedAt != nil,
	}
	if summary.FinishedAt != nil {
		finished := summary.FinishedAt.Format(http.TimeFormat)
		resp.FinishedAt = &finished
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid run id"}`, http.StatusBadRequest)
		return
	}

	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	perPage := parsePositiveInt(r.URL.Query().Get("perPage"), 20)

	generations, total, err := s.runner.store.ListGenerations(r.Context(), runID, page, perPage)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID.String()).Msg("failed to list generations")
		http.Error(w, `{"error":"failed to list generations"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GenerationListResponse{
		Page:        page,
		PerPage:     perPage,
		Total:       total,
		Generations: generations,
	})
}

// parsePositiveInt parses raw as a positive int, returning fallback if raw
// is empty or not a positive integer.
func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Start loads req's model, builds an engine and runs it to completion on a
// background goroutine, returning the run id immediately.
func (r *Runner) Start(ctx context.Context, req CreateRunRequest) (uuid.UUID, error) {
	loader := model.NewLoader()
	m, err := loader.Load(req.Concepts, req.Connections)
	if err != nil {
		return uuid.UUID{}, err
	}

	if req.Input.GenerationSize == 0 {
		req.Input.GenerationSize = r.defaultGenerationSize
	}
	if req.Input.GenerationSaveInterval == 0 {
		req.Input.GenerationSaveInterval = r.defaultGenerationSaveInterval
	}

	runID := adjustment.NewRunID()
	if err := r.store.NewRun(ctx, runID, req.Input); err != nil {
		return uuid.UUID{}, err
	}

	eng, err := adjustment.NewEngine(m, req.Input, rand.New(rand.NewSource(adjustmentSeed())), r.log)
	if err != nil {
		return uuid.UUID{}, err
	}

	sink := r.store.ForRun(runID)
	go func() {
		runCtx := context.Background()
		if _, runErr := eng.Run(runCtx, sink); runErr != nil {
			r.log.Error().Err(runErr).Str("run_id", runID.String()).Msg("adjustment run failed")
		}
	}()

	return runID, nil
}
