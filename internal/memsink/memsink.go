// Package memsink provides an in-memory internal/adjustment.SaveResult
// implementation for tests: no persistence, no transport, just slices a
// caller can inspect afterward.
package memsink

import (
	"context"
	"sync"

	"github.com/fcmstudio/adjustment/internal/adjustment"
)

// Recorder records every generation and the final result it is given, in
// the order SaveGeneration/SaveResult were called. Safe for concurrent use,
// though a single adjustment.Engine never calls it concurrently itself.
type Recorder struct {
	mu          sync.Mutex
	generations []RecordedGeneration
	result      *adjustment.Individual

	nextID int
}

// RecordedGeneration is one generation as observed by the recorder,
// alongside the 1-based ordinal the engine reported it under.
type RecordedGeneration struct {
	Number     int
	Generation adjustment.Generation
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// SaveGeneration records a copy of generation and assigns a sequential id
// to any individual that does not already have one, the way a persistent
// sink would assign primary keys on insert.
func (r *Recorder) SaveGeneration(_ context.Context, generation *adjustment.Generation, number int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	individuals := make([]adjustment.Individual, len(generation.Individuals))
	for i, ind := range generation.Individuals {
		if ind.ID == 0 {
			r.nextID++
			ind.ID = r.nextID
			generation.Individuals[i].ID = ind.ID
		}
		individuals[i] = ind
	}
	r.generations = append(r.generations, RecordedGeneration{
		Number:     number,
		Generation: adjustment.Generation{Individuals: individuals, Error: generation.Error},
	})
	return nil
}

// SaveResult records the final best individual.
func (r *Recorder) SaveResult(_ context.Context, best *adjustment.Individual) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *best
	r.result = &copied
	return nil
}

// Generations returns every generation recorded so far, in call order.
func (r *Recorder) Generations() []RecordedGeneration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedGeneration, len(r.generations))
	copy(out, r.generations)
	return out
}

// Result returns the final best individual, or nil if SaveResult has not
// been called yet.
func (r *Recorder) Result() *adjustment.Individual {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}
