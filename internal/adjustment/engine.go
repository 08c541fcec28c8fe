package adjustment

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/fcmstudio/adjustment/internal/fcmerr"
	"github.com/fcmstudio/adjustment/internal/model"
)

// lifecycleState is the engine's own state, distinct from the exported
// Generation/Individual data it produces.
type lifecycleState int

const (
	stateUninitialized lifecycleState = iota
	stateRunning
	stateStopping
	stateDone
)

// blxAlpha is the spread factor of the BLX-alpha crossover operator.
const blxAlpha = 0.5

// errorDiff is the mean-generation-error delta below which a generation
// counts as "no improvement" for stagnation purposes.
const errorDiff = 0.001

// skipCrossoverProbability is the chance two selected parents skip
// crossover and go on to mutation as they are.
const skipCrossoverProbability = 0.05

// mutation probability pairs: one of the two is chosen per mutation with
// equal probability, and applies independently to the concept draw and the
// connection draw.
const (
	mutationProbabilityHigh = 0.9
	mutationProbabilityLow  = 0.5
)

// Engine runs the genetic algorithm that searches control concept values and
// control connection weights for one fuzzy cognitive map. It is
// single-threaded and holds no internal synchronization: callers that run
// many adjustments concurrently must give each a dedicated Engine.
type Engine struct {
	model *model.Model
	input Input
	rng   *rand.Rand
	log   zerolog.Logger

	state               lifecycleState
	withoutImprovements int
	currentGeneration   *Generation
	generationNumber    int
	isGenerationSaved   bool
}

// NewEngine builds an Engine for m and input. rng may be nil, in which case
// a source seeded from the runtime's default entropy is used; tests pass a
// deterministic *rand.Rand instead. log may be the zero zerolog.Logger
// (which discards everything) if the caller does not want generation-level
// events.
func NewEngine(m *model.Model, input Input, rng *rand.Rand, log zerolog.Logger) (*Engine, error) {
	if m == nil {
		return nil, fcmerr.InvalidModel("model is nil")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(defaultSeed()))
	}
	return &Engine{
		model: m,
		input: input,
		rng:   rng,
		log:   log,
		state: stateUninitialized,
	}, nil
}

// State reports the engine's current lifecycle state as a string, for
// logging and diagnostics.
func (e *Engine) State() string {
	switch e.state {
	case stateUninitialized:
		return "uninitialized"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// GenerationNumber returns the 0-based index of the current generation.
func (e *Engine) GenerationNumber() int { return e.generationNumber }

// Start creates the first, randomly generated generation and transitions
// the engine to Running. It does not call the sink; the first save happens
// on the first call to Next (generation 0 is always a multiple of any
// positive save interval).
func (e *Engine) Start(ctx context.Context) error {
	if e.state != stateUninitialized {
		return fcmerr.InvalidInput("engine has already been started")
	}
	gen, err := e.createFirstGeneration()
	if err != nil {
		return err
	}
	e.currentGeneration = gen
	e.generationNumber = 0
	e.withoutImprovements = 0
	e.isGenerationSaved = false
	e.state = stateRunning
	e.log.Debug().Int("generation_size", len(gen.Individuals)).Msg("adjustment run started")
	return nil
}

// Next evaluates the stop conditions, optionally saves the current
// generation, then produces the next generation. It returns true if the run
// should continue (the caller should call Next again), false once a stop
// condition has been met (the caller should call Finish).
func (e *Engine) Next(ctx context.Context, sink SaveResult) (bool, error) {
	if e.state != stateRunning {
		return false, fcmerr.InvalidInput("engine is not running")
	}

	sc := e.input.StopCondition
	if e.generationNumber >= sc.MaxGenerations || e.withoutImprovements >= sc.MaxWithoutImprovements {
		e.state = stateStopping
		return false, nil
	}

	if e.generationNumber%e.input.GenerationSaveInterval == 0 {
		if err := sink.SaveGeneration(ctx, e.currentGeneration, e.generationNumber+1); err != nil {
			return false, fcmerr.SinkError(err)
		}
		e.isGenerationSaved = true
	}

	bestError := e.currentGeneration.Individuals[0].Fitness.Error
	if bestError < sc.Error {
		e.state = stateStopping
		return false, nil
	}

	nextGeneration, err := e.createNextGeneration()
	if err != nil {
		return false, err
	}
	e.generationNumber++
	e.isGenerationSaved = false

	if absFloat(nextGeneration.Error-e.currentGeneration.Error) < errorDiff {
		e.withoutImprovements++
	} else {
		e.withoutImprovements = 0
	}
	e.currentGeneration = nextGeneration

	e.log.Debug().
		Int("generation", e.generationNumber).
		Float64("mean_error", nextGeneration.Error).
		Int("without_improvements", e.withoutImprovements).
		Msg("generation advanced")

	keepGoing := e.generationNumber < sc.MaxGenerations && e.withoutImprovements < sc.MaxWithoutImprovements
	if !keepGoing {
		e.state = stateStopping
	}
	return keepGoing, nil
}

// Finish saves the current generation if it was not already saved this
// iteration, saves the best individual to the sink, and transitions the
// engine to Done. It returns the best individual of the final generation.
func (e *Engine) Finish(ctx context.Context, sink SaveResult) (*Individual, error) {
	if e.state != stateRunning && e.state != stateStopping {
		return nil, fcmerr.InvalidInput("engine has not been started")
	}
	if !e.isGenerationSaved {
		if err := sink.SaveGeneration(ctx, e.currentGeneration, e.generationNumber+1); err != nil {
			return nil, fcmerr.SinkError(err)
		}
		e.isGenerationSaved = true
	}
	best := e.currentGeneration.Individuals[0]
	if err := sink.SaveResult(ctx, &best); err != nil {
		return nil, fcmerr.SinkError(err)
	}
	e.state = stateDone
	e.log.Info().Float64("best_error", func() float64 {
		if best.Fitness != nil {
			return best.Fitness.Error
		}
		return -1
	}()).Msg("adjustment run finished")
	return &best, nil
}

// Run drives Start, repeated Next, and Finish to completion, the common
// case where a caller does not need to observe intermediate generations
// beyond what the sink already records.
func (e *Engine) Run(ctx context.Context, sink SaveResult) (*Individual, error) {
	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	for {
		keepGoing, err := e.Next(ctx, sink)
		if err != nil {
			return nil, err
		}
		if !keepGoing {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	return e.Finish(ctx, sink)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
