// Package model defines the fuzzy cognitive map structure adjusted by the
// genetic algorithm in internal/adjustment: concepts, weighted connections
// between them, and the constraints/target intervals that bound a run.
package model

import (
	"math"
	"math/rand"
)

// DynamicModel selects which combination of previous state and delta state
// feeds a concept's next value during simulation.
type DynamicModel string

const (
	// DeltaDelta accumulates the delta of each source concept.
	DeltaDelta DynamicModel = "delta_delta"
	// DeltaValue accumulates the previous value of each source concept.
	DeltaValue DynamicModel = "delta_value"
	// ValueDelta replaces the value with the weighted sum of source deltas.
	ValueDelta DynamicModel = "value_delta"
	// ValueValue replaces the value with the weighted sum of source values.
	ValueValue DynamicModel = "value_value"
)

// IsValid reports whether m is one of the four known dynamic models.
func (m DynamicModel) IsValid() bool {
	switch m {
	case DeltaDelta, DeltaValue, ValueDelta, ValueValue:
		return true
	default:
		return false
	}
}

// TargetValue is the interval a target concept's simulated value is scored
// against. Bounds are independently inclusive or exclusive.
type TargetValue struct {
	MinValue        float64
	IncludeMinValue bool
	MaxValue        float64
	IncludeMaxValue bool
}

// Constraint bounds the legal range of a control concept's or control
// connection's value, both for random generation and for crossover.
type Constraint struct {
	MinValue        float64
	IncludeMinValue bool
	MaxValue        float64
	IncludeMaxValue bool
}

// significantDiff nudges an exclusive bound away from its limit value so
// that TightenMin/TightenMax never return a boundary the constraint excludes.
const significantDiff = 1e-7

// constraintGenerateAttempts is the number of draws tried before falling
// back to the interval midpoint for a constraint whose inclusive/exclusive
// bounds make an exact boundary draw unusable.
const constraintGenerateAttempts = 1000

// GenerateValue draws a value uniformly from the constraint's interval,
// retrying up to constraintGenerateAttempts times if the draw lands exactly
// on an excluded bound, then falling back to the interval midpoint.
func (c Constraint) GenerateValue(rng *rand.Rand) float64 {
	number := c.MinValue + rng.Float64()*(c.MaxValue-c.MinValue)
	attempts := 0
	for (!c.IncludeMinValue && number == c.MinValue) || (!c.IncludeMaxValue && number == c.MaxValue) {
		number = c.MinValue + rng.Float64()*(c.MaxValue-c.MinValue)
		attempts++
		if attempts >= constraintGenerateAttempts {
			return (c.MinValue + c.MaxValue) / 2.0
		}
	}
	return number
}

// TightenMin raises a candidate lower bound to stay inside the constraint.
func (c Constraint) TightenMin(min float64) float64 {
	bound := c.MinValue
	if !c.IncludeMinValue {
		bound += significantDiff
	}
	return math.Max(min, bound)
}

// TightenMax lowers a candidate upper bound to stay inside the constraint.
func (c Constraint) TightenMax(max float64) float64 {
	bound := c.MaxValue
	if !c.IncludeMaxValue {
		bound -= significantDiff
	}
	return math.Min(max, bound)
}

// Concept is a node of the fuzzy cognitive map.
type Concept struct {
	ID           int
	Value        float64
	IsControl    bool
	IsTarget     bool
	TargetValue  *TargetValue
	Constraint   *Constraint
	DynamicModel *DynamicModel
}

// GenerateValue draws a random value for this concept, honoring its
// constraint if one is set, otherwise drawing uniformly from [0, 1].
func (c Concept) GenerateValue(rng *rand.Rand) float64 {
	if c.Constraint != nil {
		return c.Constraint.GenerateValue(rng)
	}
	return rng.Float64()
}

// Connection is a directed, weighted edge between two concepts.
type Connection struct {
	ID         int
	Value      float64
	SourceID   int
	TargetID   int
	IsControl  bool
	Constraint *Constraint
}

// GenerateValue draws a random value for this connection, honoring its
// constraint if one is set. Without a constraint the sign of the current
// value is preserved: non-negative connections draw from [0, 1], negative
// connections draw from [-1, 0].
func (cn Connection) GenerateValue(rng *rand.Rand) float64 {
	if cn.Constraint != nil {
		return cn.Constraint.GenerateValue(rng)
	}
	if cn.Value >= 0 {
		return rng.Float64()
	}
	return -rng.Float64()
}
