// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/pdiddy/civicqa/internal/logging"
	"github.com/pdiddy/civicqa/pkg/types"
)

// ErrBackendUnavailable is returned while the circuit is open.
var ErrBackendUnavailable = errors.New("generative backend unavailable")

// BreakerBackend wraps a Backend with a circuit breaker. After repeated
// failures it rejects calls immediately, so answers come from the fallback
// without waiting for the synthesis timeout.
type BreakerBackend struct {
	backend Backend
	cb      *gobreaker.CircuitBreaker
}

// NewBreakerBackend wraps backend. A nil logger discards state changes.
func NewBreakerBackend(backend Backend, cfg types.BreakerConfig, logger *log.Logger) *BreakerBackend {
	logger = logging.OrDiscard(logger)

	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 3
	}

	st := gobreaker.Settings{
		Name:        "synthesis",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A request abandoned by its caller says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerBackend{backend: backend, cb: gobreaker.NewCircuitBreaker(st)}
}

// Generate implements Backend.
func (b *BreakerBackend) Generate(ctx context.Context, r Request, cfg GenerationConfig) (Response, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.backend.Generate(ctx, r, cfg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return Response{}, err
	}
	return out.(Response), nil
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *BreakerBackend) State() string {
	return b.cb.State().String()
}
