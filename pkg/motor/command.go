package motor

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Command is a partial motor update. Nil fields are left untouched.
type Command struct {
	Speed     *int  `mapstructure:"speed" json:"speed,omitempty"`
	Enable    *bool `mapstructure:"enable" json:"enable,omitempty"`
	Direction *bool `mapstructure:"direction" json:"direction,omitempty"`
	Brake     *bool `mapstructure:"brake" json:"brake,omitempty"`
}

var ErrEmptyCommand = errors.New("command sets no field")

// DecodeCommand decodes a loosely typed map, e.g. a JSON body or an MQTT payload.
// "true", 1 and true are all accepted for boolean fields. Unknown keys are rejected.
func DecodeCommand(input map[string]interface{}) (*Command, error) {
	cmd := &Command{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cmd,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, errors.Wrap(err, "decode motor command")
	}
	if cmd.Empty() {
		return nil, ErrEmptyCommand
	}
	return cmd, nil
}

func (cmd *Command) Empty() bool {
	return cmd.Speed == nil && cmd.Enable == nil && cmd.Direction == nil && cmd.Brake == nil
}

// Apply issues the present fields in the order brake, speed, direction, enable and stops at
// the first failure.
func (c *Controller) Apply(cmd *Command) error {
	if cmd.Brake != nil {
		if err := c.SetMotorBrake(*cmd.Brake); err != nil {
			return err
		}
	}
	if cmd.Speed != nil {
		if err := c.SetMotorSpeed(*cmd.Speed); err != nil {
			return err
		}
	}
	if cmd.Direction != nil {
		if err := c.SetMotorDirection(*cmd.Direction); err != nil {
			return err
		}
	}
	if cmd.Enable != nil {
		if err := c.SetMotorEnable(*cmd.Enable); err != nil {
			return err
		}
	}
	return nil
}
