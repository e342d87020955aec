package motor

import (
	"context"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"sync"
	"time"
)

var ErrMaxReversals = errors.New("stall reversal limit reached")

// StallReverser is a TelemetrySink that treats a zero rpm sample as a stalled motor: it
// disables the motor, flips the direction and enables it again. Samples taken within the
// grace period after startup or after a reversal are ignored while the motor spins up.
type StallReverser struct {
	mu           sync.Mutex
	controller   *Controller
	grace        time.Duration
	maxReversals int
	armedAt      time.Time
	reversals    int
}

// NewStallReverser limits the number of reversals to maxReversals. Zero means no limit.
func NewStallReverser(c *Controller, grace time.Duration, maxReversals int) *StallReverser {
	return &StallReverser{
		controller:   c,
		grace:        grace,
		maxReversals: maxReversals,
	}
}

func (s *StallReverser) Reversals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reversals
}

func (s *StallReverser) Publish(_ context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armedAt.IsZero() {
		s.armedAt = sample.Timestamp
	}
	if sample.RPM != 0 || sample.Timestamp.Sub(s.armedAt) < s.grace {
		return nil
	}
	if s.maxReversals > 0 && s.reversals >= s.maxReversals {
		return errors.Wrapf(ErrMaxReversals, "%d reversals", s.reversals)
	}

	direction, err := s.controller.ReadMotorDirection()
	if err != nil {
		return err
	}
	reversed := direction == DirectionCW
	if err := s.controller.SetMotorEnable(false); err != nil {
		return err
	}
	if err := s.controller.SetMotorDirection(reversed); err != nil {
		return err
	}
	if err := s.controller.SetMotorEnable(true); err != nil {
		return err
	}
	s.reversals++
	s.armedAt = sample.Timestamp
	klog.V(1).InfoS("Reversed stalled motor", "direction", DirectionName(boolToRegister(reversed)), "reversals", s.reversals)
	return nil
}
