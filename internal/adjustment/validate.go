package adjustment

import "github.com/fcmstudio/adjustment/internal/fcmerr"

func validateInput(input Input) error {
	if input.MinModelTime < 1 {
		return fcmerr.InvalidInput("min model time must be at least 1")
	}
	if input.MaxModelTime < input.MinModelTime {
		return fcmerr.InvalidInput("max model time must be greater than or equal to min model time")
	}
	if input.MaxModelTime < 1 {
		return fcmerr.InvalidInput("max model time must be at least 1: a run needs at least one simulated step")
	}
	if !input.DynamicModel.IsValid() {
		return fcmerr.InvalidInput("dynamic model is not one of the known values")
	}
	if input.GenerationSize < 2 {
		return fcmerr.InvalidInput("generation size must be at least 2")
	}
	if input.GenerationSaveInterval <= 0 {
		return fcmerr.InvalidInput("generation save interval must be positive")
	}
	if input.StopCondition.MaxGenerations <= 0 {
		return fcmerr.InvalidInput("stop condition max generations must be positive")
	}
	if input.StopCondition.MaxWithoutImprovements <= 0 {
		return fcmerr.InvalidInput("stop condition max without improvements must be positive")
	}
	if input.StopCondition.Error < 0 {
		return fcmerr.InvalidInput("stop condition error threshold must be non-negative")
	}
	return nil
}
