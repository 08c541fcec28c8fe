package adjustment

import "time"

// defaultSeed seeds the engine's random source when the caller does not
// supply one explicitly.
func defaultSeed() int64 {
	return time.Now().UnixNano()
}
