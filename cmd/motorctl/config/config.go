package config

import (
	"go.bug.st/serial"
	"k8s.io/klog/v2"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/protocol/modbusrtu"
)

type Config struct {
	SerialPort serial.Port
	Master     *modbusrtu.Master
	Controller *motor.Controller
}

func (c *Config) Close() {
	if c.SerialPort == nil {
		return
	}
	if err := c.SerialPort.Close(); err != nil {
		klog.V(2).InfoS("Failed to close serial port", "err", err)
	}
}
