package core

import (
	"fmt"
	"sync"
)

// OutputLimiter caps the number of output bytes a single task may accumulate.
type OutputLimiter struct {
	max  int
	used int
	mu   sync.Mutex
}

// NewOutputLimiter creates a new limiter with a max number of bytes.
// If max == 0, unlimited output is allowed.
func NewOutputLimiter(max int) *OutputLimiter {
	return &OutputLimiter{max: max}
}

// Add accounts for n more bytes and returns an error if the limit is exceeded.
func (ol *OutputLimiter) Add(n int) error {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	ol.used += n
	if ol.max > 0 && ol.used > ol.max {
		return fmt.Errorf("%w: %d bytes allowed", ErrOutputLimitExceeded, ol.max)
	}

	return nil
}

// Used returns the number of bytes accounted so far.
func (ol *OutputLimiter) Used() int {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	return ol.used
}

// Remaining returns how many bytes are left before hitting the limit.
func (ol *OutputLimiter) Remaining() int {
	ol.mu.Lock()
	defer ol.mu.Unlock()

	if ol.max == 0 {
		return -1 // unlimited
	}

	return ol.max - ol.used
}
