// Package rtutest provides an in-memory RS-485 bus with one simulated Modbus-RTU slave.
// The slave only hears bytes written while the direction line is high and only answers
// after the line has been released, like a real half-duplex transceiver.
package rtutest

import (
	"bytes"
	"errors"
	testingclock "k8s.io/utils/clock/testing"
	modbusrturuntime "rs485motor/pkg/protocol/modbusrtu/runtime"
	"rs485motor/pkg/runtime/constant"
	"rs485motor/pkg/transport"
	"rs485motor/pkg/utils/binutil"
	"rs485motor/pkg/utils/crcutil"
	"sync"
	"time"
)

type EventKind int

const (
	LineEvent EventKind = iota
	WriteEvent
	ReadEvent
	// DrainEvent marks the master waiting for the transmit buffer to empty.
	DrainEvent
)

// Event is one step observed on the bus.
type Event struct {
	Kind  EventKind
	Level transport.Level
	Byte  byte
}

type Fault int

const (
	NoFault Fault = iota
	// Withhold keeps the slave silent.
	Withhold
	// Truncate drops the last byte of every response.
	Truncate
	// CorruptPayload flips one bit in the first data byte of every response.
	CorruptPayload
	// WrongEcho answers FC6 with a different value and a valid CRC.
	WrongEcho
	// WrongSlave answers from another address with a valid CRC.
	WrongSlave
	// WriteFault fails every serial write.
	WriteFault
	// LineFault fails every change of the direction line.
	LineFault
)

var ErrInjected = errors.New("injected bus fault")

// Slave is the simulated device and, at the same time, the serial port and direction line
// the master side is wired to.
type Slave struct {
	mu          sync.Mutex
	address     uint8
	registers   map[uint16]uint16
	clock       *testingclock.FakeClock
	fault       Fault
	level       transport.Level
	incoming    []byte
	pending     []byte
	outgoing    bytes.Buffer
	readTimeout time.Duration
	events      []Event
	requests    [][]byte
}

// NewSlave creates a slave answering at address. Reads on an idle bus advance clock by the
// current read timeout instead of blocking.
func NewSlave(address uint8, clock *testingclock.FakeClock) *Slave {
	return &Slave{
		address:   address,
		registers: make(map[uint16]uint16),
		clock:     clock,
	}
}

// Frame appends the CRC16 to message.
func Frame(message ...byte) []byte {
	return crcutil.AppendCrc16(append([]byte(nil), message...))
}

// SetRegister defines a holding register. Undefined registers answer with an exception.
func (s *Slave) SetRegister(address uint16, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[address] = value
}

func (s *Slave) Register(address uint16) (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.registers[address]
	return v, ok
}

func (s *Slave) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Level returns the current state of the direction line.
func (s *Slave) Level() transport.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *Slave) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Requests returns every complete request frame the slave heard.
func (s *Slave) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.requests...)
}

func (s *Slave) LastRequest() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *Slave) Set(level transport.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault == LineFault {
		return ErrInjected
	}
	s.level = level
	s.events = append(s.events, Event{Kind: LineEvent, Level: level})
	if level == transport.Low && s.pending != nil {
		s.outgoing.Write(s.pending)
		s.pending = nil
	}
	return nil
}

func (s *Slave) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault == WriteFault {
		return 0, ErrInjected
	}
	for _, c := range b {
		s.events = append(s.events, Event{Kind: WriteEvent, Level: s.level, Byte: c})
	}
	if s.level != transport.High {
		// the driver is disabled, nothing reaches the bus
		return len(b), nil
	}
	s.incoming = append(s.incoming, b...)
	// every request this slave understands is 8 bytes long
	for len(s.incoming) >= 8 {
		request := binutil.Dup(s.incoming[:8])
		s.incoming = s.incoming[8:]
		s.requests = append(s.requests, request)
		s.pending = s.respond(request)
	}
	return len(b), nil
}

func (s *Slave) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level == transport.High || s.outgoing.Len() == 0 {
		if s.clock != nil {
			s.clock.Step(s.readTimeout)
		}
		return 0, nil
	}
	n, _ := s.outgoing.Read(b)
	for _, c := range b[:n] {
		s.events = append(s.events, Event{Kind: ReadEvent, Level: s.level, Byte: c})
	}
	return n, nil
}

func (s *Slave) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: DrainEvent, Level: s.level})
	return nil
}

// ResetInputBuffer drops response bytes the master never collected.
func (s *Slave) ResetInputBuffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outgoing.Reset()
	return nil
}

func (s *Slave) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readTimeout = t
	return nil
}

func (s *Slave) respond(request []byte) []byte {
	if !crcutil.CheckCrc16(request) || request[0] != s.address {
		return nil
	}

	fc := modbusrturuntime.FunctionCode(request[1])
	address := binutil.ParseUint16BigEndian(request[2:])
	quantity := binutil.ParseUint16BigEndian(request[4:])

	var response []byte
	switch fc {
	case modbusrturuntime.ReadHoldingRegisters:
		response = []byte{s.address, byte(fc), byte(quantity * 2)}
		for i := uint16(0); i < quantity; i++ {
			v, ok := s.registers[address+i]
			if !ok {
				return s.exception(fc, constant.IllegalDataAddress)
			}
			response = append(response, byte(v>>8), byte(v))
		}
	case modbusrturuntime.WriteSingleRegister:
		if _, ok := s.registers[address]; !ok {
			return s.exception(fc, constant.IllegalDataAddress)
		}
		s.registers[address] = quantity
		response = binutil.Dup(request[:6])
		if s.fault == WrongEcho {
			response[5]++
		}
	default:
		return s.exception(fc, constant.IllegalFunction)
	}
	return s.inject(Frame(response...))
}

func (s *Slave) exception(fc modbusrturuntime.FunctionCode, code uint8) []byte {
	return s.inject(Frame(s.address, byte(fc)|modbusrturuntime.ExceptionFlag, code))
}

func (s *Slave) inject(frame []byte) []byte {
	switch s.fault {
	case Withhold:
		return nil
	case Truncate:
		return frame[:len(frame)-1]
	case CorruptPayload:
		frame[3] ^= 0x01
	case WrongSlave:
		frame[0]++
		frame = Frame(frame[:len(frame)-2]...)
	}
	return frame
}
