// Package storage provides the Postgres-backed internal/adjustment.SaveResult
// sink used by cmd/adjustserver.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fcmstudio/adjustment/internal/adjustment"
)

// BunStore persists adjustment runs, generations and individuals to
// Postgres via bun. A single BunStore is shared by every run an
// httpapi.Runner accepts, so state that varies per run (the run id, the
// next individual id) never lives directly on BunStore — see ForRun.
type BunStore struct {
	db *bun.DB

	mu sync.Mutex
	// nextIndividualID issues sequential surrogate ids to individuals
	// that do not yet have one, the way an auto-increment primary key
	// would on first insert. Shared across every run in flight.
	nextIndividualID int
}

// NewBunStore opens a bun.DB against dsn using the Postgres dialect.
func NewBunStore(dsn string) *BunStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}
}

func (s *BunStore) nextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIndividualID++
	return s.nextIndividualID
}

// InitSchema creates every table this store needs, if they do not already
// exist.
func (s *BunStore) InitSchema(ctx context.Context) error {
	models := []interface{}{
		(*RunModel)(nil),
		(*GenerationModel)(nil),
		(*IndividualModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunModel is one adjustment run's audit record, created before generation
// 0 runs.
type RunModel struct {
	bun.BaseModel `bun:"table:adjustment_runs,alias:r"`

	ID             uuid.UUID  `bun:"id,pk"`
	Name           string     `bun:"name"`
	Description    string     `bun:"description"`
	Input          []byte     `bun:"input,type:jsonb"`
	CreatedAt      time.Time  `bun:"created_at"`
	FinishedAt     *time.Time `bun:"finished_at"`
	BestIndividual int        `bun:"best_individual_id"`
}

// GenerationModel is one saved generation, keyed by run id and 1-based
// ordinal.
type GenerationModel struct {
	bun.BaseModel `bun:"table:adjustment_generations,alias:g"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RunID     uuid.UUID `bun:"run_id"`
	Number    int       `bun:"number"`
	Error     float64   `bun:"error"`
	CreatedAt time.Time `bun:"created_at"`
}

// IndividualModel is one individual belonging to a saved generation.
type IndividualModel struct {
	bun.BaseModel `bun:"table:adjustment_individuals,alias:i"`

	ID           int       `bun:"id,pk,autoincrement"`
	GenerationID int64     `bun:"generation_id"`
	RunID        uuid.UUID `bun:"run_id"`
	Concepts     []byte    `bun:"concepts,type:jsonb"`
	Connections  []byte    `bun:"connections,type:jsonb"`
	FitnessTime  int       `bun:"fitness_time"`
	FitnessError float64   `bun:"fitness_error"`
}

// NewRun inserts runID's RunModel before the first generation of runID is
// saved. ForRun returns the sink the engine saves into.
func (s *BunStore) NewRun(ctx context.Context, runID uuid.UUID, input adjustment.Input) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	model := &RunModel{
		ID:          runID,
		Name:        input.Name,
		Description: input.Description,
		Input:       payload,
		CreatedAt:   time.Now(),
	}
	_, err = s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// ForRun returns a sink that saves generations and results under runID.
// NewRun must have already inserted runID's RunModel.
func (s *BunStore) ForRun(runID uuid.UUID) adjustment.SaveResult {
	return &RunSink{store: s, runID: runID}
}

// RunSink implements adjustment.SaveResult for one run id, so a single
// shared BunStore can back many concurrently-running engines without
// their generation/result writes racing on which run they belong to.
type RunSink struct {
	store *BunStore
	runID uuid.UUID
}

// SaveGeneration implements adjustment.SaveResult: it inserts the
// generation row, then every individual row, inside one transaction, and
// assigns surrogate ids to individuals that do not already have one.
func (r *RunSink) SaveGeneration(ctx context.Context, generation *adjustment.Generation, number int) error {
	s := r.store
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		genModel := &GenerationModel{
			RunID:     r.runID,
			Number:    number,
			Error:     generation.Error,
			CreatedAt: time.Now(),
		}
		if _, err := tx.NewInsert().Model(genModel).Returning("id").Exec(ctx); err != nil {
			return err
		}

		rows := make([]*IndividualModel, len(generation.Individuals))
		for i := range generation.Individuals {
			ind := &generation.Individuals[i]
			if ind.ID == 0 {
				ind.ID = s.nextID()
			}
			concepts, err := json.Marshal(ind.Concepts)
			if err != nil {
				return err
			}
			connections, err := json.Marshal(ind.Connections)
			if err != nil {
				return err
			}
			row := &IndividualModel{
				ID:           ind.ID,
				GenerationID: genModel.ID,
				RunID:        r.runID,
				Concepts:     concepts,
				Connections:  connections,
			}
			if ind.Fitness != nil {
				row.FitnessTime = ind.Fitness.Time
				row.FitnessError = ind.Fitness.Error
			}
			rows[i] = row
		}
		if len(rows) > 0 {
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveResult implements adjustment.SaveResult: the best individual's row
// already exists from its generation's SaveGeneration call, so this only
// stamps the run as finished and records which individual id was best.
func (r *RunSink) SaveResult(ctx context.Context, best *adjustment.Individual) error {
	now := time.Now()
	_, err := r.store.db.NewUpdate().
		Model((*RunModel)(nil)).
		Set("finished_at = ?", now).
		Set("best_individual_id = ?", best.ID).
		Where("id = ?", r.runID).
		Exec(ctx)
	return err
}

// GetRun returns a summary of runID's status, or an error if it does not
// exist (including sql.ErrNoRows, surfaced unwrapped from bun).
func (s *BunStore) GetRun(ctx context.Context, runID uuid.UUID) (*adjustment.RunSummary, error) {
	row := new(RunModel)
	if err := s.db.NewSelect().Model(row).Where("id = ?", runID).Scan(ctx); err != nil {
		return nil, err
	}
	return &adjustment.RunSummary{
		ID:               row.ID,
		Name:             row.Name,
		Description:      row.Description,
		CreatedAt:        row.CreatedAt,
		FinishedAt:       row.FinishedAt,
		BestIndividualID: row.BestIndividual,
	}, nil
}

// ListGenerations returns the generations saved for runID, most recent
// first, paginated by 1-based page number and perPage page size, along
// with the total number of generations saved for runID.
func (s *BunStore) ListGenerations(ctx context.Context, runID uuid.UUID, page, perPage int) ([]adjustment.GenerationSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var rows []GenerationModel
	total, err := s.db.NewSelect().
		Model(&rows).
		Where("run_id = ?", runID).
		Order("number DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	out := make([]adjustment.GenerationSummary, len(rows))
	for i, row := range rows {
		out[i] = adjustment.GenerationSummary{Number: row.Number, Error: row.Error, CreatedAt: row.CreatedAt}
	}
	return out, total, nil
}

// Ping checks if the storage is accessible.
func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the storage connection.
func (s *BunStore) Close() error {
	return s.db.Close()
}
