package constant

import (
	"encoding/json"
	"github.com/pkg/errors"
)

type StopBits int

const (
	// OneStopBit sets 1 stop bit (default)
	OneStopBit StopBits = iota
	// OnePointFiveStopBits sets 1.5 stop bits
	OnePointFiveStopBits
	// TwoStopBits sets 2 stop bits
	TwoStopBits
)

var StopBitsToString = map[StopBits]string{
	OneStopBit:           "1",
	OnePointFiveStopBits: "1.5",
	TwoStopBits:          "2",
}

var StringToStopBits = map[string]StopBits{
	"1":   OneStopBit,
	"1.5": OnePointFiveStopBits,
	"2":   TwoStopBits,
}

func (s StopBits) String() string {
	return StopBitsToString[s]
}

func (s StopBits) MarshalJSON() ([]byte, error) {
	if v, ok := StopBitsToString[s]; ok {
		return json.Marshal(v)
	}
	return nil, errors.Errorf("unknown stopBits %d", s)
}

func (s *StopBits) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}
	sb, ok := StringToStopBits[v]
	if !ok {
		return errors.Errorf("unknown stopBits %s", v)
	}
	*s = sb
	return nil
}

// Set and Type let StopBits be bound as a pflag value.
func (s *StopBits) Set(v string) error {
	sb, ok := StringToStopBits[v]
	if !ok {
		return errors.Errorf("unknown stopBits %s", v)
	}
	*s = sb
	return nil
}

func (s *StopBits) Type() string {
	return "stopBits"
}

type Parity int

const (
	// NoParity disable parity control (default)
	NoParity Parity = iota
	// OddParity enable odd-parity check
	OddParity
	// EvenParity enable even-parity check
	EvenParity
	// MarkParity enable mark-parity (always 1) check
	MarkParity
	// SpaceParity enable space-parity (always 0) check
	SpaceParity
)

var ParityToString = map[Parity]string{
	NoParity:    "noParity",
	OddParity:   "oddParity",
	EvenParity:  "evenParity",
	MarkParity:  "markParity",
	SpaceParity: "spaceParity",
}

var StringToParity = map[string]Parity{
	"noParity":    NoParity,
	"oddParity":   OddParity,
	"evenParity":  EvenParity,
	"markParity":  MarkParity,
	"spaceParity": SpaceParity,
}

func (p Parity) String() string {
	return ParityToString[p]
}

func (p Parity) MarshalJSON() ([]byte, error) {
	if v, ok := ParityToString[p]; ok {
		return json.Marshal(v)
	}
	return nil, errors.Errorf("unknown parity %d", p)
}

func (p *Parity) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}
	pv, ok := StringToParity[v]
	if !ok {
		return errors.Errorf("unknown parity %s", v)
	}
	*p = pv
	return nil
}

func (p *Parity) Set(v string) error {
	pv, ok := StringToParity[v]
	if !ok {
		return errors.Errorf("unknown parity %s", v)
	}
	*p = pv
	return nil
}

func (p *Parity) Type() string {
	return "parity"
}
