package adjustment

import (
	"github.com/fcmstudio/adjustment/internal/simulate"
)

// initialState builds the simulator's starting state: the candidate's
// control concept values overlaid with the model's regular and target
// concepts at their static values.
func (e *Engine) initialState(concepts map[int]float64) simulate.State {
	state := make(simulate.State, len(concepts)+len(e.model.RegularConcepts())+len(e.model.TargetConcepts()))
	for id, v := range concepts {
		state[id] = v
	}
	for _, c := range e.model.RegularConcepts() {
		state[c.ID] = c.Value
	}
	for _, c := range e.model.TargetConcepts() {
		state[c.ID] = c.Value
	}
	return state
}

// evaluateFitness runs the time simulator across [0, MaxModelTime] from the
// candidate's initial state and keeps the minimum error observed at or
// after MinModelTime. If MinModelTime is never reached — impossible once
// validateInput has required
// MinModelTime <= MaxModelTime, but guarded here rather than silently
// propagated — evaluateFitness panics, since it signals a programmer error
// in the window invariant, not a bad run.
func (e *Engine) evaluateFitness(concepts, connections map[int]float64) *Fitness {
	state := e.initialState(concepts)
	sim := simulate.New(e.model, e.input.MaxModelTime, e.input.DynamicModel, state, connections)

	best := &Fitness{Time: e.input.MinModelTime, Error: -1}
	seen := false

	for {
		data, ok := sim.Next()
		if !ok {
			break
		}
		if data.Time >= e.input.MinModelTime && (!seen || data.Error < best.Error) {
			best.Error = data.Error
			best.Time = data.Time
			seen = true
		}
	}

	if !seen {
		panic("adjustment: time simulation never reached min model time")
	}
	return best
}
