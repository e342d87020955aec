package transport

import (
	"io"
	"time"
)

type Direction int

const (
	Receive Direction = iota
	Transmit
)

var DirectionToString = map[Direction]string{
	Receive:  "receive",
	Transmit: "transmit",
}

func (d Direction) String() string {
	return DirectionToString[d]
}

type Level bool

const (
	Low  Level = false
	High Level = true
)

// DirectionLine is the digital output wired to the DE/RE pins of the RS-485 transceiver.
type DirectionLine interface {
	Set(level Level) error
}

// SerialPort is the byte channel. Read returns 0, nil once the read timeout elapses.
type SerialPort interface {
	io.Reader
	io.Writer
	SetReadTimeout(t time.Duration) error
}

type drainer interface {
	Drain() error
}

type inputResetter interface {
	ResetInputBuffer() error
}
