package simulate

import "github.com/fcmstudio/adjustment/internal/model"

// Data is one simulated time step: the tick it was reached at, the error
// against the target concepts at that tick, and the resulting state.
type Data struct {
	Time  int
	Error float64
	State State
}

// Simulation steps a fuzzy cognitive map forward in discrete time from an
// initial state, re-evaluating every concept's value each tick against the
// model's connections and the run's chosen dynamic model (or a concept's
// own override). It is a one-shot forward iterator: call Next until it
// returns ok=false, then discard it.
type Simulation struct {
	maxModelTime int
	currentTime  int
	err          float64

	m             *model.Model
	defaultModel  model.DynamicModel
	connectionVal map[int]float64 // control connection override values, by id

	previousState State
	deltaState    State
}

// New builds a Simulation that starts at time 0 in the given initial state
// and runs up to maxModelTime ticks. connectionValues supplies the
// (possibly GA-varied) value to use for each connection id; a connection
// absent from connectionValues uses its model-defined static Value.
func New(m *model.Model, maxModelTime int, defaultModel model.DynamicModel, initial State, connectionValues map[int]float64) *Simulation {
	previous := initial.Clone()
	return &Simulation{
		maxModelTime:  maxModelTime,
		m:             m,
		defaultModel:  defaultModel,
		connectionVal: connectionValues,
		previousState: previous,
		deltaState:    previous.Clone(),
		err:           calculateError(previous, m.TargetConcepts()),
	}
}

// MaxModelTime returns the configured time horizon.
func (s *Simulation) MaxModelTime() int { return s.maxModelTime }

// CurrentTime returns the tick last reached.
func (s *Simulation) CurrentTime() int { return s.currentTime }

// Error returns the error at the current tick.
func (s *Simulation) Error() float64 { return s.err }

// State returns a copy of the state at the current tick.
func (s *Simulation) State() State { return s.previousState.Clone() }

// Next advances the simulation by one tick and reports the resulting data,
// or ok=false once maxModelTime has been reached. It panics if called again
// after exhaustion: currentTime must never exceed maxModelTime.
func (s *Simulation) Next() (Data, bool) {
	if s.currentTime > s.maxModelTime {
		panic("simulate: current time must be less than or equal to the max model time")
	}

	current := s.previousState.Clone()
	for _, c := range s.m.Concepts() {
		dynamicModel := s.defaultModel
		if c.DynamicModel != nil {
			dynamicModel = *c.DynamicModel
		}
		incoming := s.m.ConnectionsInto(c.ID)
		if len(incoming) == 0 {
			continue
		}
		current[c.ID] = s.stepConcept(c.ID, dynamicModel, incoming)
	}

	s.deltaState = deltaState(current, s.previousState)
	s.previousState = current
	s.currentTime++
	s.err = calculateError(s.previousState, s.m.TargetConcepts())

	if s.currentTime > s.maxModelTime {
		return Data{}, false
	}
	return Data{Time: s.currentTime, Error: s.err, State: s.previousState.Clone()}, true
}

// stepConcept computes the next value for one concept given the incoming
// connections feeding it, per the selected dynamic model:
//
//   - DeltaDelta: value += sum(weight * delta(source)), then clamp
//   - DeltaValue: value += sum(weight * value(source)), then clamp
//   - ValueDelta: value  = clamp(sum(weight * delta(source)))
//   - ValueValue: value  = clamp(sum(weight * value(source)))
func (s *Simulation) stepConcept(conceptID int, dynamicModel model.DynamicModel, incoming []*model.Connection) float64 {
	switch dynamicModel {
	case model.DeltaDelta:
		sum := 0.0
		for _, cn := range incoming {
			sum += s.connectionWeight(cn) * s.deltaState[cn.SourceID]
		}
		return clamp01(s.previousState[conceptID] + sum)
	case model.DeltaValue:
		sum := 0.0
		for _, cn := range incoming {
			sum += s.connectionWeight(cn) * s.previousState[cn.SourceID]
		}
		return clamp01(s.previousState[conceptID] + sum)
	case model.ValueDelta:
		sum := 0.0
		for _, cn := range incoming {
			sum += s.connectionWeight(cn) * s.deltaState[cn.SourceID]
		}
		return clamp01(sum)
	case model.ValueValue:
		sum := 0.0
		for _, cn := range incoming {
			sum += s.connectionWeight(cn) * s.previousState[cn.SourceID]
		}
		return clamp01(sum)
	default:
		// Unreachable if the model was validated by model.New/Loader.
		return s.previousState[conceptID]
	}
}

func (s *Simulation) connectionWeight(cn *model.Connection) float64 {
	if v, ok := s.connectionVal[cn.ID]; ok {
		return v
	}
	return cn.Value
}

func deltaState(current, previous State) State {
	out := make(State, len(current))
	for k, v := range current {
		out[k] = v - previous[k]
	}
	return out
}

func calculateError(state State, targets []*model.Concept) float64 {
	total := 0.0
	for _, c := range targets {
		value := state[c.ID]
		tv := c.TargetValue
		belowMin := (tv.IncludeMinValue && value < tv.MinValue) || (!tv.IncludeMinValue && value <= tv.MinValue)
		if belowMin {
			diff := value - tv.MinValue
			total += diff * diff
			continue
		}
		aboveMax := (tv.IncludeMaxValue && value > tv.MaxValue) || (!tv.IncludeMaxValue && value >= tv.MaxValue)
		if aboveMax {
			diff := value - tv.MaxValue
			total += diff * diff
		}
	}
	return total
}
