package motor

import (
	"github.com/pkg/errors"
)

var (
	ErrRegistersNotContiguous = errors.New("current register must directly follow the rpm register")
	ErrInvalidProtocolMax     = errors.New("protocol max speed must be positive")
)

// RegisterMap holds the holding-register addresses of the motor controller.
type RegisterMap struct {
	RPM               uint16 `json:"rpm"`
	Current           uint16 `json:"current"`
	SetSpeed          uint16 `json:"setSpeed"`
	Direction         uint16 `json:"direction"`
	Enable            uint16 `json:"enable"`
	Brake             uint16 `json:"brake"`
	SpeedReadback     uint16 `json:"speedReadback"`
	DirectionReadback uint16 `json:"directionReadback"`
	Fault             uint16 `json:"fault"`
}

const (
	DefaultProtocolMax uint16 = 1000

	telemetryRegisters = 2
)

func DefaultRegisterMap() RegisterMap {
	return RegisterMap{
		RPM:               0x0015,
		Current:           0x0016,
		SetSpeed:          0x0001,
		Direction:         0x0002,
		Enable:            0x0003,
		Brake:             0x0004,
		SpeedReadback:     0x0007,
		DirectionReadback: 0x0008,
		Fault:             0x0017,
	}
}

// Validate checks that telemetry can be read with a single request.
func (r RegisterMap) Validate() error {
	if r.RPM == 0xFFFF || r.Current != r.RPM+1 {
		return errors.Wrapf(ErrRegistersNotContiguous, "rpm 0x%04X current 0x%04X", r.RPM, r.Current)
	}
	return nil
}
