package outbox

import (
	"time"

	"github.com/cenkalti/backoff"

	"github.com/julianstephens/habitsync/internal/constants"
)

// Policy controls how failed operations are retried. A zero MaxAttempts
// retries forever with no delay.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultPolicy waits 30s after the first failure, doubling up to an hour,
// and gives up after ten attempts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     constants.OutboxMaxAttempts,
		InitialInterval: constants.OutboxInitialInterval,
		MaxInterval:     constants.OutboxMaxInterval,
		Multiplier:      constants.OutboxMultiplier,
	}
}

// Delay returns how long an operation waits after its attempts-th failure.
func (p Policy) Delay(attempts int) time.Duration {
	if p.MaxAttempts == 0 || attempts < 1 || p.InitialInterval <= 0 {
		return 0
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxInterval,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	var d time.Duration
	for i := 0; i < attempts; i++ {
		d = b.NextBackOff()
		if d >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	return d
}

// Exhausted reports whether an operation with this many failed attempts
// belongs in the dead-letter list.
func (p Policy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
