package modbusrtu

import (
	"errors"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	modbusrturuntime "rs485motor/pkg/protocol/modbusrtu/runtime"
	"rs485motor/pkg/runtime/constant"
	"rs485motor/pkg/transport"
	"rs485motor/pkg/utils/binutil"
	"sync"
	"time"
)

// Transport is the half-duplex link the master drives. *transport.Adapter implements it.
type Transport interface {
	SetDirection(d transport.Direction) error
	WriteBytes(buf []byte) error
	Flush() error
	ReadBytes(max int, timeout time.Duration) ([]byte, bool, error)
}

type Options struct {
	// ResponseTimeout bounds the wait for a complete response once the line is back in receive.
	ResponseTimeout time.Duration
	// Clock defaults to the real monotonic clock.
	Clock clock.PassiveClock
}

type Stats struct {
	Transactions        uint64 `json:"transactions"`
	IoErrors            uint64 `json:"ioErrors"`
	Timeouts            uint64 `json:"timeouts"`
	CrcMismatches       uint64 `json:"crcMismatches"`
	Exceptions          uint64 `json:"exceptions"`
	EchoMismatches      uint64 `json:"echoMismatches"`
	UnexpectedResponses uint64 `json:"unexpectedResponses"`
}

type counters struct {
	transactions        atomic.Uint64
	ioErrors            atomic.Uint64
	timeouts            atomic.Uint64
	crcMismatches       atomic.Uint64
	exceptions          atomic.Uint64
	echoMismatches      atomic.Uint64
	unexpectedResponses atomic.Uint64
}

func (c *counters) record(err error) {
	switch {
	case errors.Is(err, constant.ErrTimeout):
		c.timeouts.Inc()
	case errors.Is(err, constant.ErrCrcMismatch):
		c.crcMismatches.Inc()
	case errors.Is(err, constant.ErrException):
		c.exceptions.Inc()
	case errors.Is(err, constant.ErrEchoMismatch):
		c.echoMismatches.Inc()
	case errors.Is(err, constant.ErrUnexpectedResponse):
		c.unexpectedResponses.Inc()
	default:
		c.ioErrors.Inc()
	}
}

// Master is the only owner of one RS-485 bus. Transactions are strictly sequential.
type Master struct {
	mu        sync.Mutex
	slave     uint8
	transport Transport
	timeout   time.Duration
	clock     clock.PassiveClock
	counters  counters
}

// NewMaster binds a master to one transport and one slave, and parks the line in receive.
// A transport must not be handed to more than one master.
func NewMaster(slave uint8, t Transport, o Options) (*Master, error) {
	if !modbusrturuntime.ValidSlave(slave) {
		return nil, pkgerrors.Wrapf(constant.ErrInvalidSlave, "slave %d", slave)
	}
	if o.ResponseTimeout <= 0 {
		return nil, constant.ErrInvalidTimeout
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if err := t.SetDirection(transport.Receive); err != nil {
		return nil, err
	}
	return &Master{
		slave:     slave,
		transport: t,
		timeout:   o.ResponseTimeout,
		clock:     o.Clock,
	}, nil
}

func (m *Master) Slave() uint8 {
	return m.slave
}

func (m *Master) Stats() Stats {
	return Stats{
		Transactions:        m.counters.transactions.Load(),
		IoErrors:            m.counters.ioErrors.Load(),
		Timeouts:            m.counters.timeouts.Load(),
		CrcMismatches:       m.counters.crcMismatches.Load(),
		Exceptions:          m.counters.exceptions.Load(),
		EchoMismatches:      m.counters.echoMismatches.Load(),
		UnexpectedResponses: m.counters.unexpectedResponses.Load(),
	}
}

// ReadHoldingRegisters reads count registers starting at startAddress with one FC3 transaction.
func (m *Master) ReadHoldingRegisters(startAddress uint16, count uint16) ([]uint16, error) {
	if count == 0 || count > modbusrturuntime.PerRequestMaxRegister || int(startAddress)+int(count) > 0x10000 {
		return nil, pkgerrors.Wrapf(constant.ErrInvalidQuantity, "read %d registers at 0x%04X", count, startAddress)
	}
	data, err := m.transact(NewReadHoldingRegistersFrame(m.slave, startAddress, count))
	if err != nil {
		return nil, err
	}
	return binutil.ParseUint16sBigEndian(data), nil
}

// WriteSingleRegister writes one register with FC6 and verifies the echo.
func (m *Master) WriteSingleRegister(address uint16, value uint16) error {
	_, err := m.transact(NewWriteSingleRegisterFrame(m.slave, address, value))
	return err
}

// transact runs Idle(Receive) → Transmit → FlushTransmit → Receive → AwaitResponse → Validate.
// The line is back in receive when it returns, whatever the outcome.
func (m *Master) transact(df *ModBusRtuDataFrame) (data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters.transactions.Inc()
	receiving := false
	defer func() {
		if !receiving {
			if rerr := m.transport.SetDirection(transport.Receive); rerr != nil && err == nil {
				err = rerr
			}
		}
		if err != nil {
			m.counters.record(err)
			klog.V(2).InfoS("Modbus rtu transaction failed", "slave", m.slave, "function", df.FunctionCode, "address", df.Address, "error", err)
		}
	}()

	if err = m.transport.SetDirection(transport.Transmit); err != nil {
		return nil, err
	}
	if err = m.transport.WriteBytes(df.DataFrame); err != nil {
		return nil, err
	}
	if err = m.transport.Flush(); err != nil {
		return nil, err
	}
	if err = m.transport.SetDirection(transport.Receive); err != nil {
		return nil, err
	}
	receiving = true

	buf, err := m.awaitResponse(df)
	if err != nil {
		return nil, err
	}
	klog.V(5).InfoS("Received modbus rtu response", "slave", m.slave, "function", df.FunctionCode, "bytes", buf)
	return df.ValidateMessage(buf)
}

// awaitResponse reads the shortest possible frame first, so that an exception response
// does not have to wait out the timeout for bytes that never come.
func (m *Master) awaitResponse(df *ModBusRtuDataFrame) ([]byte, error) {
	deadline := m.clock.Now().Add(m.timeout)

	head, timedOut, err := m.transport.ReadBytes(modbusrturuntime.ExceptionFrameLength, m.timeout)
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, pkgerrors.Wrapf(constant.ErrTimeout, "got %d of %d bytes", len(head), df.ResponseLength)
	}
	if IsExceptionHeader(head) || df.ResponseLength == len(head) {
		return head, nil
	}

	remaining := deadline.Sub(m.clock.Now())
	if remaining <= 0 {
		return nil, pkgerrors.Wrapf(constant.ErrTimeout, "got %d of %d bytes", len(head), df.ResponseLength)
	}
	tail, timedOut, err := m.transport.ReadBytes(df.ResponseLength-len(head), remaining)
	if err != nil {
		return nil, err
	}
	buf := append(head, tail...)
	if timedOut {
		return nil, pkgerrors.Wrapf(constant.ErrTimeout, "got %d of %d bytes", len(buf), df.ResponseLength)
	}
	return buf, nil
}
