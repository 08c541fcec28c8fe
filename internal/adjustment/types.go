// Package adjustment implements the structural-parametric genetic algorithm
// that searches control concept values and control connection weights to
// drive a fuzzy cognitive map toward its target concepts' intervals over a
// bounded time horizon.
package adjustment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fcmstudio/adjustment/internal/model"
)

// StopCondition bounds how long a run searches before giving up.
type StopCondition struct {
	// MaxGenerations caps the number of generations produced after the
	// initial one: the generation number never exceeds it.
	MaxGenerations int
	// MaxWithoutImprovements caps consecutive generations whose mean
	// error changed by less than errorDiff (see engine.go).
	MaxWithoutImprovements int
	// Error is the best-individual error threshold that stops the run
	// early once reached.
	Error float64
}

// Input is the caller-supplied configuration for one adjustment run.
// Name and Description are carried through to the sink unused by the core;
// they exist only so a caller can label a run for display.
type Input struct {
	Name        string
	Description string

	MinModelTime int
	MaxModelTime int

	DynamicModel model.DynamicModel

	GenerationSize         int
	GenerationSaveInterval int

	StopCondition StopCondition
}

// Fitness is the quality of one individual: the simulated tick at which the
// minimum error inside [MinModelTime, MaxModelTime] was reached, and that
// error. A nil *Fitness means "not yet evaluated" — see Individual.
type Fitness struct {
	Time  int
	Error float64
}

// Individual is one candidate setting of every control concept value and
// control connection weight, plus its evaluated Fitness.
type Individual struct {
	// ID is assigned by a SaveResult sink on save; zero until then.
	ID int

	Concepts    map[int]float64
	Connections map[int]float64

	Fitness *Fitness
}

// Generation is one population of individuals, sorted ascending by fitness
// error (best first), plus the population's mean error.
type Generation struct {
	Individuals []Individual
	Error       float64
}

// RunID externally identifies one adjustment run, independent of the
// model's internal integer concept/connection ids.
type RunID = uuid.UUID

// NewRunID generates a fresh RunID.
func NewRunID() RunID { return uuid.New() }

// RunSummary is a read-only snapshot of one run's status, independent of
// which sink persisted it. FinishedAt is nil while the run is still in
// progress.
type RunSummary struct {
	ID               RunID
	Name             string
	Description      string
	CreatedAt        time.Time
	FinishedAt       *time.Time
	BestIndividualID int
}

// GenerationSummary is one saved generation's metadata, without its
// individuals, for paginated listing.
type GenerationSummary struct {
	Number    int
	Error     float64
	CreatedAt time.Time
}

// SaveResult is the engine's sole outgoing interface: it is given every
// GenerationSaveInterval-th generation plus the final one, and once the
// final best individual. The
// engine never otherwise touches storage, transport, or logging — a sink
// implementation is free to persist, forward over a websocket, or simply
// record in memory, as internal/infrastructure/storage, internal/bridge and
// internal/memsink each do.
type SaveResult interface {
	// SaveGeneration is called with the generation just produced and its
	// 1-based ordinal. Implementations may assign ids to individuals
	// in-place (Individual.ID) as they are persisted.
	SaveGeneration(ctx context.Context, generation *Generation, number int) error

	// SaveResult is called exactly once, with the best individual of the
	// final generation, after the run has stopped.
	SaveResult(ctx context.Context, best *Individual) error
}
