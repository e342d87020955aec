package transport

import (
	"go.bug.st/serial"
	"k8s.io/klog/v2"
	"rs485motor/pkg/runtime/constant"
)

var StopBitsToStopBits = map[constant.StopBits]serial.StopBits{
	constant.OneStopBit:           serial.OneStopBit,
	constant.OnePointFiveStopBits: serial.OnePointFiveStopBits,
	constant.TwoStopBits:          serial.TwoStopBits,
}

var ParityToParity = map[constant.Parity]serial.Parity{
	constant.NoParity:    serial.NoParity,
	constant.OddParity:   serial.OddParity,
	constant.EvenParity:  serial.EvenParity,
	constant.MarkParity:  serial.MarkParity,
	constant.SpaceParity: serial.SpaceParity,
}

type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   constant.Parity
	StopBits constant.StopBits
}

// OpenSerial opens the serial device. RTS starts deasserted so the transceiver idles in receive.
func OpenSerial(c SerialConfig) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate:          c.BaudRate,
		DataBits:          c.DataBits,
		Parity:            ParityToParity[c.Parity],
		StopBits:          StopBitsToStopBits[c.StopBits],
		InitialStatusBits: &serial.ModemOutputBits{RTS: false, DTR: true},
	}
	port, err := serial.Open(c.Device, mode)
	if err != nil {
		klog.V(2).InfoS("Failed to connect serial port", "device", c.Device, "error", err)
		return nil, err
	}
	klog.V(3).InfoS("Opened serial port", "device", c.Device, "baudRate", c.BaudRate, "parity", c.Parity, "stopBits", c.StopBits)
	return port, nil
}

type LineKind string

const (
	LineRTS         LineKind = "rts"
	LineRTSInverted LineKind = "rts-inverted"
	LineNone        LineKind = "none"
)

var LineKinds = []LineKind{LineRTS, LineRTSInverted, LineNone}

// NewLine builds the direction line of the given kind on top of port.
func NewLine(kind LineKind, port serial.Port) DirectionLine {
	switch kind {
	case LineRTS:
		return &RTSLine{Port: port}
	case LineRTSInverted:
		return &RTSLine{Port: port, Inverted: true}
	default:
		return NopLine{}
	}
}

// RTSLine drives the transceiver's DE/RE pins from the RTS modem line of the port.
type RTSLine struct {
	Port     serial.Port
	Inverted bool
}

func (l *RTSLine) Set(level Level) error {
	return l.Port.SetRTS(bool(level) != l.Inverted)
}

// NopLine is for transceivers that switch direction on their own.
type NopLine struct{}

func (NopLine) Set(Level) error {
	return nil
}
