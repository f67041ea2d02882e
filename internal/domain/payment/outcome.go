package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSuccessRate is the probability that a simulated charge succeeds.
const DefaultSuccessRate = 0.75

// OutcomeSource decides whether a simulated charge for a booking succeeds.
// Each call is an independent draw.
type OutcomeSource interface {
	Succeeds(ctx context.Context, bookingID uuid.UUID) bool
}

// RandomOutcomeSource succeeds with a fixed probability.
type RandomOutcomeSource struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewRandomOutcomeSource creates a source with the given success probability,
// clamped to [0,1]. A zero seed picks one from the clock.
func NewRandomOutcomeSource(successRate float64, seed int64) *RandomOutcomeSource {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomOutcomeSource{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

// Succeeds implements OutcomeSource.
func (s *RandomOutcomeSource) Succeeds(_ context.Context, _ uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.successRate
}

// FixedOutcomeSource always returns the same outcome.
type FixedOutcomeSource bool

const (
	AlwaysSucceed FixedOutcomeSource = true
	AlwaysDecline FixedOutcomeSource = false
)

// Succeeds implements OutcomeSource.
func (f FixedOutcomeSource) Succeeds(context.Context, uuid.UUID) bool {
	return bool(f)
}

// NewOutcomeSource picks the source for a configuration. force is "success",
// "failure" or empty for random draws.
func NewOutcomeSource(force string, successRate float64, seed int64) (OutcomeSource, error) {
	switch force {
	case "":
		return NewRandomOutcomeSource(successRate, seed), nil
	case "success":
		return AlwaysSucceed, nil
	case "failure":
		return AlwaysDecline, nil
	default:
		return nil, fmt.Errorf("unknown forced payment outcome %q", force)
	}
}
