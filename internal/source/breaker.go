package source

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Breaker wraps sony/gobreaker TwoStepCircuitBreaker around remote source
// calls. Consecutive fetch failures open the circuit so a dead remote stops
// costing the fetch timeout on every tick; after the open duration expires a
// probe request is allowed through.
type Breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[struct{}]
}

// NewBreaker creates a Breaker. Failures below the threshold pass through;
// context cancellation does not count as a failure.
func NewBreaker(name string, threshold int, openDuration time.Duration, logger zerolog.Logger) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openDuration <= 0 {
		openDuration = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: openDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) //nolint:gosec // validated positive above
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("source circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{cb: gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)}
}

// Allow checks whether a request may proceed. The returned done function must
// be called with the request's outcome. Returns ErrUnavailable when the
// circuit is open.
func (b *Breaker) Allow() (done func(err error), err error) {
	d, err := b.cb.Allow()
	if err != nil {
		return nil, ErrUnavailable
	}
	return d, nil
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
