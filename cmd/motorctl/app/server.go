package app

import (
	"context"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"io"
	"k8s.io/klog/v2"
	"os/signal"
	"rs485motor/cmd/motorctl/config"
	"rs485motor/cmd/motorctl/options"
	"rs485motor/pkg/generic"
	baseoptions "rs485motor/pkg/generic/options"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/web"
	"syscall"
)

const (
	ComponentMotorctl = "motorctl"
)

func NewMotorctlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   ComponentMotorctl,
		Short: "Drive a motor controller over an RS-485 Modbus-RTU bus",
		Long: `motorctl is the bus master of one RS-485 line. It switches the transceiver direction,
runs holding register transactions against the motor controller and exposes telemetry and
commands on the command line, over HTTP and over MQTT.

Negative values must follow "--", e.g. "motorctl speed -- -1".`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newActionCmd("telemetry", "Read rpm and current once", cobra.NoArgs, telemetry),
		newActionCmd("fault", "Read the fault register", cobra.NoArgs, fault),
		newActionCmd("speed <value>", "Write the speed setpoint, clamped to --protocol-max", cobra.ExactArgs(1), speed),
		newActionCmd("enable <true|false>", "Enable or disable the motor", cobra.ExactArgs(1), enable),
		newActionCmd("direction [cw|ccw]", "Read back or set the rotation direction", cobra.RangeArgs(0, 1), direction),
		newActionCmd("brake <true|false>", "Engage or release the brake", cobra.ExactArgs(1), brake),
		newActionCmd("stop", "Disable the motor, then engage the brake", cobra.NoArgs, stop),
		newActionCmd("read <address> <count>", "Read holding registers", cobra.ExactArgs(2), readRegisters),
		newActionCmd("write <address> <value>", "Write one holding register", cobra.ExactArgs(2), writeRegister),
		newActionCmd("poll", "Read telemetry every --interval and publish it", cobra.NoArgs, poll),
		newActionCmd("serve", "Serve the HTTP API, polling telemetry when --mqtt-broker or --reverse-on-stall is set", cobra.NoArgs, serve),
	)
	return cmd
}

func newActionCmd(use, short string, args cobra.PositionalArgs, run action) *cobra.Command {
	cleanFlagSet := pflag.NewFlagSet(ComponentMotorctl, pflag.ContinueOnError)
	o := options.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:                use,
		Short:              short,
		Long:               short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, rawArgs []string) error {
			positional, err := baseoptions.Complete(cmd, cleanFlagSet, o, options.NewDefaultOptions(), rawArgs)
			if err != nil {
				return err
			}
			if err := args(cmd, positional); err != nil {
				_ = cmd.Usage()
				return err
			}

			c, err := o.Config()
			if err != nil {
				return err
			}
			defer c.Close()

			// kill (no param) default send syscall.SIGTERM
			// kill -2 is syscall.SIGINT
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cmd.OutOrStdout(), o, c, positional)
		},
	}

	o.AddFlags(cleanFlagSet)
	o.AddBaseFlags(cmd, cleanFlagSet)

	return cmd
}

func serve(ctx context.Context, _ io.Writer, o *options.Options, c *config.Config, _ []string) error {
	server, err := web.NewServer(generic.Default(), o, c)
	if err != nil {
		return err
	}

	exit, err := server.Serve()
	if err != nil {
		return err
	}
	klog.V(1).InfoS("Server started", "port", o.Port)

	polled := make(chan struct{})
	sinks, release, err := o.Sinks(c)
	if err != nil {
		klog.ErrorS(err, "Telemetry polling disabled")
	}
	if len(sinks) != 0 {
		defer release()
		go func() {
			defer close(polled)
			motor.NewPoller(c.Controller, o.Mqtt.Interval.Duration, motor.WithSinks(sinks...)).Run(ctx)
		}()
	} else {
		close(polled)
	}

	// Graceful shutdown
	<-ctx.Done()
	<-polled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.Wait.Duration)
	defer cancel()
	exit(shutdownCtx)
	klog.V(1).InfoS("Server stopped")
	return nil
}

