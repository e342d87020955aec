package transport

import (
	"github.com/pkg/errors"
	"io"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	"rs485motor/pkg/runtime/constant"
	"time"
)

type Option func(*Adapter)

// WithClock replaces the monotonic clock used for read deadlines and settle delays.
func WithClock(c clock.Clock) Option {
	return func(a *Adapter) {
		a.clock = c
	}
}

// WithSettle sets the delay after every direction switch.
func WithSettle(d time.Duration) Option {
	return func(a *Adapter) {
		a.settle = d
	}
}

// Adapter drives one half-duplex RS-485 link: a serial channel plus the direction line.
type Adapter struct {
	port      SerialPort
	line      DirectionLine
	clock     clock.Clock
	settle    time.Duration
	direction Direction
}

func NewAdapter(port SerialPort, line DirectionLine, opts ...Option) *Adapter {
	a := &Adapter{
		port:      port,
		line:      line,
		clock:     clock.RealClock{},
		direction: Receive,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Direction returns the last direction successfully applied to the line.
func (a *Adapter) Direction() Direction {
	return a.direction
}

// SetDirection drives the line HIGH for Transmit and LOW for Receive, then waits for it to settle.
func (a *Adapter) SetDirection(d Direction) error {
	level := Low
	if d == Transmit {
		level = High
	}
	if err := a.line.Set(level); err != nil {
		klog.V(2).InfoS("Failed to switch bus direction", "direction", d, "error", err)
		return errors.Wrapf(constant.ErrIO, "set direction %s: %v", d, err)
	}
	a.direction = d
	if a.settle > 0 {
		a.clock.Sleep(a.settle)
	}
	return nil
}

// WriteBytes transmits buf fully. Stale input is discarded first when the port supports it.
func (a *Adapter) WriteBytes(buf []byte) error {
	if r, ok := a.port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			klog.V(2).InfoS("Failed to reset serial input buffer", "error", err)
			return errors.Wrapf(constant.ErrIO, "reset input: %v", err)
		}
	}

	written := 0
	for written < len(buf) {
		n, err := a.port.Write(buf[written:])
		if err != nil {
			klog.V(2).InfoS("Failed to write byte to serial port", "written", written, "error", err)
			return errors.Wrapf(constant.ErrIO, "write after %d bytes: %v", written, err)
		}
		if n == 0 {
			return errors.Wrapf(constant.ErrIO, "write after %d bytes: %v", written, io.ErrShortWrite)
		}
		written += n
	}
	klog.V(5).InfoS("Succeed to write byte to serial port", "bytes", buf, "length", written)
	return nil
}

// Flush blocks until the transmit buffer is on the wire, so the line can be released.
func (a *Adapter) Flush() error {
	d, ok := a.port.(drainer)
	if !ok {
		return nil
	}
	if err := d.Drain(); err != nil {
		klog.V(2).InfoS("Failed to drain serial port", "error", err)
		return errors.Wrapf(constant.ErrIO, "drain: %v", err)
	}
	return nil
}

// ReadBytes reads until max bytes arrived or timeout elapsed. timedOut is true when fewer
// than max bytes were read.
func (a *Adapter) ReadBytes(max int, timeout time.Duration) (buf []byte, timedOut bool, err error) {
	buf = make([]byte, max)
	n := 0
	deadline := a.clock.Now().Add(timeout)
	for n < max {
		remaining := deadline.Sub(a.clock.Now())
		if remaining <= 0 {
			klog.V(4).InfoS("Serial read timed out", "want", max, "got", n)
			return buf[:n], true, nil
		}
		if err = a.port.SetReadTimeout(remaining); err != nil {
			return buf[:n], false, errors.Wrapf(constant.ErrIO, "set read timeout: %v", err)
		}
		var r int
		if r, err = a.port.Read(buf[n:]); err != nil {
			klog.V(2).InfoS("Failed to read byte from serial port", "error", err)
			return buf[:n], false, errors.Wrapf(constant.ErrIO, "read after %d bytes: %v", n, err)
		}
		n += r
	}
	klog.V(5).InfoS("Succeed to read byte from serial port", "bytes", buf, "length", n)
	return buf, false, nil
}
