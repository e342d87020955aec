package motor

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
	"rs485motor/pkg/protocol/modbusrtu/rtutest"
	"rs485motor/pkg/runtime/constant"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu      sync.Mutex
	samples []Sample
	err     error
	onPub   func()
}

func (s *recordingSink) Publish(_ context.Context, sample Sample) error {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	n := len(s.samples)
	s.mu.Unlock()
	if s.onPub != nil && n >= 3 {
		s.onPub()
	}
	return s.err
}

func (s *recordingSink) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.samples...)
}

func TestPollOnce(t *testing.T) {
	c, _ := newTestController(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker down")}
	p := NewPoller(c, time.Second, WithSinks(failing, sink), WithPollerClock(testingclock.NewFakePassiveClock(now)))

	sample, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sample{Timestamp: now, Telemetry: Telemetry{RPM: 1200, Current: 850}}, sample)
	assert.Equal(t, []Sample{sample}, sink.Samples())
	assert.Len(t, failing.Samples(), 1)
}

func TestPollOnceReadFailure(t *testing.T) {
	c, slave := newTestController(t)
	slave.SetFault(rtutest.Withhold)
	sink := &recordingSink{}
	p := NewPoller(c, time.Second, WithSinks(sink))

	_, err := p.PollOnce(context.Background())
	assert.True(t, errors.Is(err, constant.ErrTimeout))
	assert.Empty(t, sink.Samples())
}

func TestRunUntilCancelled(t *testing.T) {
	c, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{onPub: cancel}
	p := NewPoller(c, time.Millisecond, WithSinks(sink))

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
	assert.GreaterOrEqual(t, len(sink.Samples()), 3)
}
