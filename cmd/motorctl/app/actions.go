package app

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"rs485motor/cmd/motorctl/config"
	"rs485motor/cmd/motorctl/options"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/publisher"
	"sigs.k8s.io/yaml"
	"strconv"
	"strings"
)

// action runs one command against an opened bus with its positional arguments.
type action func(ctx context.Context, out io.Writer, o *options.Options, c *config.Config, args []string) error

func printYaml(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func telemetry(_ context.Context, out io.Writer, _ *options.Options, c *config.Config, _ []string) error {
	t, err := c.Controller.ReadMotorTelemetry()
	if err != nil {
		return err
	}
	return printYaml(out, t)
}

func fault(_ context.Context, out io.Writer, _ *options.Options, c *config.Config, _ []string) error {
	f, err := c.Controller.ReadMotorFault()
	if err != nil {
		return err
	}
	return printYaml(out, map[string]uint16{"fault": f})
}

func speed(_ context.Context, out io.Writer, _ *options.Options, c *config.Config, args []string) error {
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid speed %q", args[0])
	}
	if err := c.Controller.SetMotorSpeed(v); err != nil {
		return err
	}
	return printYaml(out, map[string]uint16{"speed": c.Controller.ClampSpeed(v)})
}

func enable(_ context.Context, _ io.Writer, _ *options.Options, c *config.Config, args []string) error {
	b, err := strconv.ParseBool(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid enable %q", args[0])
	}
	return c.Controller.SetMotorEnable(b)
}

func setDirection(arg string, c *config.Config) error {
	var ccw bool
	switch strings.ToLower(arg) {
	case "cw":
		ccw = false
	case "ccw":
		ccw = true
	default:
		b, err := strconv.ParseBool(arg)
		if err != nil {
			return errors.Errorf("invalid direction %q, want cw, ccw or a bool", arg)
		}
		ccw = b
	}
	return c.Controller.SetMotorDirection(ccw)
}

func brake(_ context.Context, _ io.Writer, _ *options.Options, c *config.Config, args []string) error {
	b, err := strconv.ParseBool(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid brake %q", args[0])
	}
	return c.Controller.SetMotorBrake(b)
}

func stop(_ context.Context, _ io.Writer, _ *options.Options, c *config.Config, _ []string) error {
	return c.Controller.Stop()
}

func readRegisters(_ context.Context, out io.Writer, _ *options.Options, c *config.Config, args []string) error {
	address, err := parseUint16(args[0])
	if err != nil {
		return err
	}
	count, err := parseUint16(args[1])
	if err != nil {
		return err
	}
	values, err := c.Master.ReadHoldingRegisters(address, count)
	if err != nil {
		return err
	}
	registers := make(map[string]uint16, len(values))
	for i, v := range values {
		registers[fmt.Sprintf("0x%04X", address+uint16(i))] = v
	}
	return printYaml(out, registers)
}

func writeRegister(_ context.Context, _ io.Writer, _ *options.Options, c *config.Config, args []string) error {
	address, err := parseUint16(args[0])
	if err != nil {
		return err
	}
	value, err := parseUint16(args[1])
	if err != nil {
		return err
	}
	return c.Master.WriteSingleRegister(address, value)
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid register value %q", s)
	}
	return uint16(v), nil
}

// writerSink prints every sample as one JSON line, the same document the MQTT publisher sends.
type writerSink struct {
	out io.Writer
}

func (w *writerSink) Publish(_ context.Context, sample motor.Sample) error {
	data, err := publisher.Marshal(sample)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

func poll(ctx context.Context, out io.Writer, o *options.Options, c *config.Config, _ []string) error {
	sinks, release, err := o.Sinks(c)
	if err != nil {
		return err
	}
	defer release()
	sinks = append([]motor.TelemetrySink{&writerSink{out: out}}, sinks...)
	motor.NewPoller(c.Controller, o.Mqtt.Interval.Duration, motor.WithSinks(sinks...)).Run(ctx)
	return nil
}

func direction(_ context.Context, out io.Writer, _ *options.Options, c *config.Config, args []string) error {
	if len(args) == 0 {
		d, err := c.Controller.ReadMotorDirection()
		if err != nil {
			return err
		}
		return printYaml(out, map[string]string{"direction": motor.DirectionName(d)})
	}
	return setDirection(args[0], c)
}
