package simulate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmstudio/adjustment/internal/model"
	"github.com/fcmstudio/adjustment/internal/simulate"
)

func chainModel(t *testing.T) *model.Model {
	t.Helper()
	concepts := []model.Concept{
		{ID: 1, Value: 0.5, IsControl: true},
		{ID: 2, Value: 0.1, IsTarget: true, TargetValue: &model.TargetValue{
			MinValue: 0.6, IncludeMinValue: true, MaxValue: 0.9, IncludeMaxValue: true,
		}},
	}
	connections := []model.Connection{
		{ID: 1, Value: 0.5, SourceID: 1, TargetID: 2},
	}
	m, err := model.New(concepts, connections)
	require.NoError(t, err)
	return m
}

func TestValueValueStep(t *testing.T) {
	m := chainModel(t)
	initial := simulate.State{1: 0.5, 2: 0.1}
	sim := simulate.New(m, 3, model.ValueValue, initial, nil)

	data, ok := sim.Next()
	require.True(t, ok)
	// concept 2 = clamp(weight(0.5) * value(concept1=0.5)) = 0.25
	assert.InDelta(t, 0.25, data.State[2], 1e-9)
	assert.Equal(t, 1, data.Time)
}

func TestDeltaDeltaStepAccumulates(t *testing.T) {
	m := chainModel(t)
	initial := simulate.State{1: 0.5, 2: 0.1}
	sim := simulate.New(m, 3, model.DeltaDelta, initial, nil)

	// first tick: delta_state == previous_state (seeded at construction),
	// so concept2 += weight(0.5) * delta(concept1=0.5) = 0.1 + 0.25 = 0.35
	data, ok := sim.Next()
	require.True(t, ok)
	assert.InDelta(t, 0.35, data.State[2], 1e-9)
}

func TestClampsAboveOneAndAtOrBelowZero(t *testing.T) {
	concepts := []model.Concept{
		{ID: 1, Value: 1.0, IsControl: true},
		{ID: 2, Value: 0.0, IsTarget: true, TargetValue: &model.TargetValue{MaxValue: 1}},
	}
	connections := []model.Connection{
		{ID: 1, Value: 1.0, SourceID: 1, TargetID: 2},
	}
	m, err := model.New(concepts, connections)
	require.NoError(t, err)

	// weight 2.0 * value 1.0 = 2.0 saturates to 1
	sim := simulate.New(m, 1, model.ValueValue, simulate.State{1: 1.0, 2: 0.0}, map[int]float64{1: 2.0})
	data, ok := sim.Next()
	require.True(t, ok)
	assert.Equal(t, 1.0, data.State[2])

	// weight -1.0 * value 1.0 = -1.0 saturates to 0
	sim = simulate.New(m, 1, model.ValueValue, simulate.State{1: 1.0, 2: 0.0}, map[int]float64{1: -1.0})
	data, ok = sim.Next()
	require.True(t, ok)
	assert.Equal(t, 0.0, data.State[2])
}

func TestNextReturnsFalseAtHorizon(t *testing.T) {
	m := chainModel(t)
	sim := simulate.New(m, 1, model.ValueValue, simulate.State{1: 0.5, 2: 0.1}, nil)
	_, ok := sim.Next()
	require.True(t, ok)
	_, ok = sim.Next()
	require.False(t, ok)
}

func TestConnectionOverrideTakesPrecedenceOverStaticValue(t *testing.T) {
	m := chainModel(t)
	sim := simulate.New(m, 1, model.ValueValue, simulate.State{1: 0.5, 2: 0.1}, map[int]float64{1: 1.0})
	data, ok := sim.Next()
	require.True(t, ok)
	assert.InDelta(t, 0.5, data.State[2], 1e-9)
}

func TestErrorIsZeroInsideInclusiveTargetInterval(t *testing.T) {
	m := chainModel(t)
	sim := simulate.New(m, 1, model.ValueValue, simulate.State{1: 1.5 /* clamps moot here */, 2: 0.7}, nil)
	assert.Equal(t, 0.0, sim.Error())
}

func TestPanicsIfSteppedPastHorizon(t *testing.T) {
	m := chainModel(t)
	sim := simulate.New(m, 1, model.ValueValue, simulate.State{1: 0.5, 2: 0.1}, nil)
	_, ok := sim.Next()
	require.True(t, ok)
	_, ok = sim.Next()
	require.False(t, ok)
	assert.Panics(t, func() { _, _ = sim.Next() })
}
