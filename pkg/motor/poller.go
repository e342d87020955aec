package motor

import (
	"context"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	"time"
)

// TelemetrySink receives every sample the poller reads successfully.
type TelemetrySink interface {
	Publish(ctx context.Context, sample Sample) error
}

type TelemetryReader interface {
	ReadMotorTelemetry() (Telemetry, error)
}

type PollerOption func(*Poller)

func WithSinks(sinks ...TelemetrySink) PollerOption {
	return func(p *Poller) {
		p.sinks = append(p.sinks, sinks...)
	}
}

func WithPollerClock(c clock.PassiveClock) PollerOption {
	return func(p *Poller) {
		p.clock = c
	}
}

// Poller reads telemetry once per interval. A failed read is logged and the next tick tries again.
type Poller struct {
	reader   TelemetryReader
	interval time.Duration
	clock    clock.PassiveClock
	sinks    []TelemetrySink
}

func NewPoller(reader TelemetryReader, interval time.Duration, opts ...PollerOption) *Poller {
	p := &Poller{
		reader:   reader,
		interval: interval,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	klog.V(1).InfoS("Started to poll motor telemetry", "interval", p.interval)
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		_, _ = p.PollOnce(ctx)
	}, p.interval)
	klog.V(1).InfoS("Stopped to poll motor telemetry")
}

// PollOnce performs one telemetry transaction and hands the sample to every sink.
func (p *Poller) PollOnce(ctx context.Context) (Sample, error) {
	telemetry, err := p.reader.ReadMotorTelemetry()
	if err != nil {
		klog.V(2).InfoS("Failed to read motor telemetry", "err", err)
		return Sample{}, err
	}
	sample := Sample{Timestamp: p.clock.Now().UTC(), Telemetry: telemetry}
	klog.V(4).InfoS("Read motor telemetry", "rpm", telemetry.RPM, "current", telemetry.Current)

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, sample); err != nil {
			klog.V(2).InfoS("Failed to publish motor telemetry", "err", err)
		}
	}
	return sample, nil
}
