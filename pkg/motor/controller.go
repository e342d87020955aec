package motor

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"time"
)

// RegisterClient runs holding-register transactions against one slave. *modbusrtu.Master implements it.
type RegisterClient interface {
	ReadHoldingRegisters(startAddress uint16, count uint16) ([]uint16, error)
	WriteSingleRegister(address uint16, value uint16) error
}

type Telemetry struct {
	RPM     uint16 `json:"rpm"`
	Current uint16 `json:"current"`
}

// Sample is a telemetry reading with the time it was taken.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Telemetry
}

const (
	DirectionCW  uint16 = 0
	DirectionCCW uint16 = 1
)

// Controller maps motor operations onto register transactions. Every method is exactly one
// transaction except Stop and Apply.
type Controller struct {
	client      RegisterClient
	registers   RegisterMap
	protocolMax uint16
}

func NewController(client RegisterClient, registers RegisterMap, protocolMax uint16) (*Controller, error) {
	if err := registers.Validate(); err != nil {
		return nil, err
	}
	if protocolMax == 0 {
		return nil, ErrInvalidProtocolMax
	}
	return &Controller{
		client:      client,
		registers:   registers,
		protocolMax: protocolMax,
	}, nil
}

func (c *Controller) Registers() RegisterMap {
	return c.registers
}

func (c *Controller) ProtocolMax() uint16 {
	return c.protocolMax
}

// ReadMotorTelemetry reads rpm and current with one request starting at the rpm register.
func (c *Controller) ReadMotorTelemetry() (Telemetry, error) {
	values, err := c.client.ReadHoldingRegisters(c.registers.RPM, telemetryRegisters)
	if err != nil {
		return Telemetry{}, errors.Wrap(err, "read motor telemetry")
	}
	return Telemetry{RPM: values[0], Current: values[1]}, nil
}

// ClampSpeed limits value to [0, protocolMax].
func (c *Controller) ClampSpeed(value int) uint16 {
	switch {
	case value < 0:
		return 0
	case value > int(c.protocolMax):
		return c.protocolMax
	}
	return uint16(value)
}

// SetMotorSpeed writes the clamped speed setpoint.
func (c *Controller) SetMotorSpeed(value int) error {
	speed := c.ClampSpeed(value)
	if int(speed) != value {
		klog.V(3).InfoS("Clamped motor speed", "requested", value, "applied", speed, "max", c.protocolMax)
	}
	return c.write("speed", c.registers.SetSpeed, speed)
}

func (c *Controller) SetMotorEnable(enable bool) error {
	return c.write("enable", c.registers.Enable, boolToRegister(enable))
}

// SetMotorDirection writes 0 for clockwise and 1 for counter-clockwise.
func (c *Controller) SetMotorDirection(ccw bool) error {
	direction := DirectionCW
	if ccw {
		direction = DirectionCCW
	}
	return c.write("direction", c.registers.Direction, direction)
}

func (c *Controller) SetMotorBrake(engage bool) error {
	return c.write("brake", c.registers.Brake, boolToRegister(engage))
}

func (c *Controller) ReadMotorFault() (uint16, error) {
	return c.read("fault", c.registers.Fault)
}

// ReadSpeedSetpoint reads back the speed the controller is currently running to.
func (c *Controller) ReadSpeedSetpoint() (uint16, error) {
	return c.read("speed setpoint", c.registers.SpeedReadback)
}

// ReadMotorDirection reads back the direction the controller is currently running in,
// DirectionCW or DirectionCCW.
func (c *Controller) ReadMotorDirection() (uint16, error) {
	return c.read("direction", c.registers.DirectionReadback)
}

// DirectionName returns "cw", "ccw" or "unknown" for a direction register value.
func DirectionName(direction uint16) string {
	switch direction {
	case DirectionCW:
		return "cw"
	case DirectionCCW:
		return "ccw"
	}
	return "unknown"
}

// Stop disables the motor and then engages the brake.
func (c *Controller) Stop() error {
	if err := c.SetMotorEnable(false); err != nil {
		return err
	}
	return c.SetMotorBrake(true)
}

func (c *Controller) write(name string, address uint16, value uint16) error {
	if err := c.client.WriteSingleRegister(address, value); err != nil {
		return errors.Wrapf(err, "write motor %s", name)
	}
	klog.V(4).InfoS("Succeed to write motor register", "register", name, "address", address, "value", value)
	return nil
}

func (c *Controller) read(name string, address uint16) (uint16, error) {
	values, err := c.client.ReadHoldingRegisters(address, 1)
	if err != nil {
		return 0, errors.Wrapf(err, "read motor %s", name)
	}
	return values[0], nil
}

func boolToRegister(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
