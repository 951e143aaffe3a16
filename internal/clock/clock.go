package clock

import (
	"math/rand"
	"time"
)

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// BetweenFunc returns a random duration in [min, max). It drives the
// randomized sleep between posting cycles so the bot never publishes on a
// fixed beat. Override in tests for determinism.
var BetweenFunc = func(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// Between is a thin wrapper around BetweenFunc.
func Between(min, max time.Duration) time.Duration { return BetweenFunc(min, max) }
