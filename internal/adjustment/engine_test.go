package adjustment_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmstudio/adjustment/internal/adjustment"
	"github.com/fcmstudio/adjustment/internal/memsink"
	"github.com/fcmstudio/adjustment/internal/model"
)

func smallModel(t *testing.T) *model.Model {
	t.Helper()
	concepts := []model.Concept{
		{ID: 1, Value: 0.3, IsControl: true, Constraint: &model.Constraint{
			MinValue: 0, IncludeMinValue: true, MaxValue: 1, IncludeMaxValue: true,
		}},
		{ID: 2, Value: 0.1, IsTarget: true, TargetValue: &model.TargetValue{
			MinValue: 0.5, IncludeMinValue: true, MaxValue: 1.0, IncludeMaxValue: true,
		}},
	}
	connections := []model.Connection{
		{ID: 1, Value: 0.5, SourceID: 1, TargetID: 2, IsControl: true, Constraint: &model.Constraint{
			MinValue: 0, IncludeMinValue: true, MaxValue: 1, IncludeMaxValue: true,
		}},
	}
	m, err := model.New(concepts, connections)
	require.NoError(t, err)
	return m
}

func baseInput() adjustment.Input {
	return adjustment.Input{
		Name:                   "test-run",
		MinModelTime:           1,
		MaxModelTime:           3,
		DynamicModel:           model.ValueValue,
		GenerationSize:         20,
		GenerationSaveInterval: 1,
		StopCondition: adjustment.StopCondition{
			MaxGenerations:         10,
			MaxWithoutImprovements: 5,
			Error:                  0.0,
		},
	}
}

func TestNewEngineRejectsInvalidInput(t *testing.T) {
	m := smallModel(t)
	input := baseInput()
	input.MaxModelTime = 0
	_, err := adjustment.NewEngine(m, input, rand.New(rand.NewSource(1)), zerolog.Nop())
	require.Error(t, err)
}

func TestEngineRunProducesImprovingBestIndividual(t *testing.T) {
	m := smallModel(t)
	input := baseInput()
	eng, err := adjustment.NewEngine(m, input, rand.New(rand.NewSource(42)), zerolog.Nop())
	require.NoError(t, err)

	sink := memsink.New()
	best, err := eng.Run(context.Background(), sink)
	require.NoError(t, err)
	require.NotNil(t, best)
	require.NotNil(t, best.Fitness)

	require.NotEmpty(t, sink.Generations())
	firstBest := sink.Generations()[0].Generation.Individuals[0]
	assert.LessOrEqual(t, best.Fitness.Error, firstBest.Fitness.Error)
	assert.NotNil(t, sink.Result())
	assert.Equal(t, "done", eng.State())
}

func TestEngineStopsAtMaxGenerations(t *testing.T) {
	m := smallModel(t)
	input := baseInput()
	input.StopCondition.MaxGenerations = 2
	input.StopCondition.MaxWithoutImprovements = 1000
	input.StopCondition.Error = 0 // effectively unreachable, forces exhausting generations
	eng, err := adjustment.NewEngine(m, input, rand.New(rand.NewSource(7)), zerolog.Nop())
	require.NoError(t, err)

	sink := memsink.New()
	require.NoError(t, eng.Start(context.Background()))
	for {
		keepGoing, err := eng.Next(context.Background(), sink)
		require.NoError(t, err)
		if !keepGoing {
			break
		}
	}
	assert.LessOrEqual(t, eng.GenerationNumber(), 2)
	_, err = eng.Finish(context.Background(), sink)
	require.NoError(t, err)
}

func TestEngineRejectsNextBeforeStart(t *testing.T) {
	m := smallModel(t)
	eng, err := adjustment.NewEngine(m, baseInput(), rand.New(rand.NewSource(1)), zerolog.Nop())
	require.NoError(t, err)
	_, err = eng.Next(context.Background(), memsink.New())
	require.Error(t, err)
}

func TestEngineRejectsDoubleStart(t *testing.T) {
	m := smallModel(t)
	eng, err := adjustment.NewEngine(m, baseInput(), rand.New(rand.NewSource(1)), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	require.Error(t, eng.Start(context.Background()))
}

func TestGenerationIndividualCountStaysConstant(t *testing.T) {
	m := smallModel(t)
	input := baseInput()
	input.GenerationSize = 30
	eng, err := adjustment.NewEngine(m, input, rand.New(rand.NewSource(99)), zerolog.Nop())
	require.NoError(t, err)
	sink := memsink.New()
	require.NoError(t, eng.Start(context.Background()))
	for i := 0; i < 3; i++ {
		keepGoing, err := eng.Next(context.Background(), sink)
		require.NoError(t, err)
		if !keepGoing {
			break
		}
	}
	for _, rg := range sink.Generations() {
		assert.Len(t, rg.Generation.Individuals, 30)
	}
}
