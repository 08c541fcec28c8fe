package httpapi

import "time"

// adjustmentSeed seeds each accepted run's random number generator from the
// current time, the same way internal/adjustment seeds an engine built
// without an explicit rng.
func adjustmentSeed() int64 {
	return time.Now().UnixNano()
}
