package options

import (
	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"rs485motor/cmd/motorctl/config"
	baseoptions "rs485motor/pkg/generic/options"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/protocol/modbusrtu"
	modbusrturuntime "rs485motor/pkg/protocol/modbusrtu/runtime"
	"rs485motor/pkg/publisher"
	"rs485motor/pkg/runtime/constant"
	"rs485motor/pkg/transport"
	"time"
)

type SerialOptions struct {
	Device   string            `json:"device"`
	BaudRate int               `json:"baudRate"`
	DataBits int               `json:"dataBits"`
	Parity   constant.Parity   `json:"parity"`
	StopBits constant.StopBits `json:"stopBits"`
}

type BusOptions struct {
	Slave           uint8           `json:"slave"`
	ResponseTimeout metav1.Duration `json:"responseTimeout"`
	Settle          metav1.Duration `json:"settle"`
	DirectionLine   string          `json:"directionLine"`
}

type MqttOptions struct {
	Broker   string          `json:"broker"`
	Topic    string          `json:"topic"`
	Interval metav1.Duration `json:"interval"`
}

// StallOptions configure reversing the motor when polled telemetry reports zero rpm.
type StallOptions struct {
	Reverse      bool            `json:"reverse"`
	Grace        metav1.Duration `json:"grace"`
	MaxReversals int             `json:"maxReversals"`
}

type Options struct {
	Serial      SerialOptions     `json:"serial"`
	Bus         BusOptions        `json:"bus"`
	Registers   motor.RegisterMap `json:"registers"`
	ProtocolMax uint16            `json:"protocolMax"`
	Mqtt        MqttOptions       `json:"mqtt"`
	Stall       StallOptions      `json:"stall"`
	Port        string            `json:"port"`
	Wait        metav1.Duration   `json:"graceful-timeout"`
	CertFile    string            `json:"tls-cert-file,omitempty"`
	KeyFile     string            `json:"tls-private-key-file,omitempty"`
	baseoptions.BaseOptions
}

const (
	_defaultDevice          = "/dev/ttyUSB0"
	_defaultBaudRate        = 115200
	_defaultDataBits        = 8
	_defaultResponseTimeout = 1 * time.Second
	_defaultTopic           = "motor/telemetry"
	_defaultInterval        = 1 * time.Second
	_defaultPort            = "32300"
	_defaultWait            = 15 * time.Second
	_defaultStallGrace      = 5 * time.Second
	_defaultMaxReversals    = 10
)

func NewDefaultOptions() *Options {
	return &Options{
		Serial: SerialOptions{
			Device:   _defaultDevice,
			BaudRate: _defaultBaudRate,
			DataBits: _defaultDataBits,
			Parity:   constant.NoParity,
			StopBits: constant.OneStopBit,
		},
		Bus: BusOptions{
			Slave:           modbusrturuntime.DefaultSlave,
			ResponseTimeout: metav1.Duration{Duration: _defaultResponseTimeout},
			DirectionLine:   string(transport.LineRTS),
		},
		Registers:   motor.DefaultRegisterMap(),
		ProtocolMax: motor.DefaultProtocolMax,
		Mqtt: MqttOptions{
			Topic:    _defaultTopic,
			Interval: metav1.Duration{Duration: _defaultInterval},
		},
		Stall: StallOptions{
			Grace:        metav1.Duration{Duration: _defaultStallGrace},
			MaxReversals: _defaultMaxReversals,
		},
		Port:        _defaultPort,
		Wait:        metav1.Duration{Duration: _defaultWait},
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Serial.Device, "device", "d", o.Serial.Device, "Serial device the RS-485 transceiver is attached to")
	fs.IntVar(&o.Serial.BaudRate, "baud-rate", o.Serial.BaudRate, "Serial baud rate")
	fs.IntVar(&o.Serial.DataBits, "data-bits", o.Serial.DataBits, "Serial data bits")
	fs.Var(&o.Serial.Parity, "parity", "Serial parity: noParity, oddParity, evenParity, markParity or spaceParity")
	fs.Var(&o.Serial.StopBits, "stop-bits", "Serial stop bits: 1, 1.5 or 2")

	fs.Uint8Var(&o.Bus.Slave, "slave", o.Bus.Slave, "Modbus address of the motor controller (1-247)")
	fs.DurationVar(&o.Bus.ResponseTimeout.Duration, "response-timeout", o.Bus.ResponseTimeout.Duration, "How long to wait for a complete response after releasing the line")
	fs.DurationVar(&o.Bus.Settle.Duration, "settle", o.Bus.Settle.Duration, "Delay after every direction switch")
	fs.StringVar(&o.Bus.DirectionLine, "direction-line", o.Bus.DirectionLine, "How the transceiver direction is driven: rts, rts-inverted or none")

	fs.Uint16Var(&o.Registers.RPM, "reg-rpm", o.Registers.RPM, "RPM register, current must follow it")
	fs.Uint16Var(&o.Registers.Current, "reg-current", o.Registers.Current, "Current register")
	fs.Uint16Var(&o.Registers.SetSpeed, "reg-set-speed", o.Registers.SetSpeed, "Speed setpoint register")
	fs.Uint16Var(&o.Registers.Direction, "reg-direction", o.Registers.Direction, "Direction register")
	fs.Uint16Var(&o.Registers.Enable, "reg-enable", o.Registers.Enable, "Enable register")
	fs.Uint16Var(&o.Registers.Brake, "reg-brake", o.Registers.Brake, "Brake register")
	fs.Uint16Var(&o.Registers.SpeedReadback, "reg-speed-readback", o.Registers.SpeedReadback, "Speed readback register")
	fs.Uint16Var(&o.Registers.DirectionReadback, "reg-direction-readback", o.Registers.DirectionReadback, "Direction readback register")
	fs.Uint16Var(&o.Registers.Fault, "reg-fault", o.Registers.Fault, "Fault register")
	fs.Uint16Var(&o.ProtocolMax, "protocol-max", o.ProtocolMax, "Largest speed value the controller accepts, higher requests are clamped")

	fs.StringVar(&o.Mqtt.Broker, "mqtt-broker", o.Mqtt.Broker, "MQTT broker telemetry is published to, e.g. tcp://localhost:1883. Empty disables publishing")
	fs.StringVar(&o.Mqtt.Topic, "mqtt-topic", o.Mqtt.Topic, "MQTT topic for telemetry")
	fs.DurationVar(&o.Mqtt.Interval.Duration, "interval", o.Mqtt.Interval.Duration, "Telemetry polling interval")

	fs.BoolVar(&o.Stall.Reverse, "reverse-on-stall", o.Stall.Reverse, "While polling, reverse the motor when it reports zero rpm")
	fs.DurationVar(&o.Stall.Grace.Duration, "stall-grace", o.Stall.Grace.Duration, "Time after startup or a reversal before zero rpm counts as a stall")
	fs.IntVar(&o.Stall.MaxReversals, "max-reversals", o.Stall.MaxReversals, "Stop reversing after this many reversals, 0 means no limit")

	// refer to node port assignment https://rancher.com/docs/rancher/v2.x/en/installation/requirements/ports/#commonly-used-ports
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed")
	fs.DurationVar(&o.Wait.Duration, "graceful-timeout", o.Wait.Duration, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.CertFile, "tls-cert-file", o.CertFile, "File containing the x509 certificate for HTTPS")
	fs.StringVar(&o.KeyFile, "tls-private-key-file", o.KeyFile, "File containing the x509 private key matching --tls-cert-file")
}

// Config opens the serial port and builds the bus master and the motor controller on top of it.
func (o *Options) Config() (*config.Config, error) {
	port, err := transport.OpenSerial(transport.SerialConfig{
		Device:   o.Serial.Device,
		BaudRate: o.Serial.BaudRate,
		DataBits: o.Serial.DataBits,
		Parity:   o.Serial.Parity,
		StopBits: o.Serial.StopBits,
	})
	if err != nil {
		return nil, err
	}
	c := &config.Config{SerialPort: port}

	line := transport.NewLine(transport.LineKind(o.Bus.DirectionLine), port)
	adapter := transport.NewAdapter(port, line, transport.WithSettle(o.Bus.Settle.Duration))
	c.Master, err = modbusrtu.NewMaster(o.Bus.Slave, adapter, modbusrtu.Options{ResponseTimeout: o.Bus.ResponseTimeout.Duration})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Controller, err = motor.NewController(c.Master, o.Registers, o.ProtocolMax)
	if err != nil {
		c.Close()
		return nil, err
	}
	klog.V(1).InfoS("Motor bus ready", "device", o.Serial.Device, "slave", o.Bus.Slave, "directionLine", o.Bus.DirectionLine)
	return c, nil
}

// Sinks returns the telemetry sinks enabled by the options and a function releasing them.
func (o *Options) Sinks(c *config.Config) ([]motor.TelemetrySink, func(), error) {
	var sinks []motor.TelemetrySink
	if o.Stall.Reverse {
		sinks = append(sinks, motor.NewStallReverser(c.Controller, o.Stall.Grace.Duration, o.Stall.MaxReversals))
	}
	p, err := o.Publisher()
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return sinks, func() {}, nil
	}
	return append(sinks, p), p.Close, nil
}

// Publisher connects to the MQTT broker, or returns nil when none is configured.
func (o *Options) Publisher() (*publisher.MqttPublisher, error) {
	if len(o.Mqtt.Broker) == 0 {
		return nil, nil
	}
	client, err := publisher.Connect(o.Mqtt.Broker)
	if err != nil {
		return nil, err
	}
	return publisher.NewMqttPublisher(client, o.Mqtt.Topic), nil
}
