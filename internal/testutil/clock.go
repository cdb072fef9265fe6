// Package testutil provides deterministic stand-ins for the ambient inputs
// emitters consume: wall-clock time and correlation ids.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedTime is the timestamp used across deterministic tests.
func FixedTime() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

// Clock returns a clock function pinned to t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// CorrelationIDs returns a generator producing prefix-1, prefix-2, ...
//
// Thread-safe: the counter is mutex protected so parallel emissions in one
// test still get distinct ids.
func CorrelationIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
