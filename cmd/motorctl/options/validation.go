package options

import (
	"fmt"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"rs485motor/pkg/motor"
	modbusrturuntime "rs485motor/pkg/protocol/modbusrtu/runtime"
	"rs485motor/pkg/runtime/constant"
	"rs485motor/pkg/transport"
)

func (o *Options) Validate() error {
	errs := ValidateOptions(o)
	if len(errs) == 0 {
		return nil
	}
	return utilerrors.NewAggregate(errs.ToAggregate().Errors())
}

func ValidateOptions(o *Options) field.ErrorList {
	allErrs := field.ErrorList{}

	serialPath := field.NewPath("serial")
	if len(o.Serial.Device) == 0 {
		allErrs = append(allErrs, field.Required(serialPath.Child("device"), ""))
	}
	if o.Serial.BaudRate <= 0 {
		allErrs = append(allErrs, field.Invalid(serialPath.Child("baudRate"), o.Serial.BaudRate, "must be positive"))
	}
	if o.Serial.DataBits < 5 || o.Serial.DataBits > 8 {
		allErrs = append(allErrs, field.Invalid(serialPath.Child("dataBits"), o.Serial.DataBits, "must be between 5 and 8"))
	}
	if _, ok := constant.ParityToString[o.Serial.Parity]; !ok {
		allErrs = append(allErrs, field.Invalid(serialPath.Child("parity"), o.Serial.Parity, "unknown parity"))
	}
	if _, ok := constant.StopBitsToString[o.Serial.StopBits]; !ok {
		allErrs = append(allErrs, field.Invalid(serialPath.Child("stopBits"), o.Serial.StopBits, "unknown stop bits"))
	}

	busPath := field.NewPath("bus")
	if !modbusrturuntime.ValidSlave(o.Bus.Slave) {
		allErrs = append(allErrs, field.Invalid(busPath.Child("slave"), o.Bus.Slave,
			fmt.Sprintf("must be between %d and %d", modbusrturuntime.MinSlaveAddress, modbusrturuntime.MaxSlaveAddress)))
	}
	if o.Bus.ResponseTimeout.Duration <= 0 {
		allErrs = append(allErrs, field.Invalid(busPath.Child("responseTimeout"), o.Bus.ResponseTimeout.Duration.String(), "must be positive"))
	}
	if o.Bus.Settle.Duration < 0 {
		allErrs = append(allErrs, field.Invalid(busPath.Child("settle"), o.Bus.Settle.Duration.String(), "must not be negative"))
	}
	validLine := false
	kinds := make([]string, 0, len(transport.LineKinds))
	for _, kind := range transport.LineKinds {
		kinds = append(kinds, string(kind))
		if string(kind) == o.Bus.DirectionLine {
			validLine = true
		}
	}
	if !validLine {
		allErrs = append(allErrs, field.NotSupported(busPath.Child("directionLine"), o.Bus.DirectionLine, kinds))
	}

	if err := o.Registers.Validate(); err != nil {
		allErrs = append(allErrs, field.Invalid(field.NewPath("registers", "current"), o.Registers.Current, err.Error()))
	}
	if o.ProtocolMax == 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("protocolMax"), o.ProtocolMax, motor.ErrInvalidProtocolMax.Error()))
	}

	if len(o.Mqtt.Broker) != 0 && len(o.Mqtt.Topic) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("mqtt", "topic"), "required when a broker is set"))
	}
	if o.Mqtt.Interval.Duration <= 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("mqtt", "interval"), o.Mqtt.Interval.Duration.String(), "must be positive"))
	}
	stallPath := field.NewPath("stall")
	if o.Stall.Grace.Duration < 0 {
		allErrs = append(allErrs, field.Invalid(stallPath.Child("grace"), o.Stall.Grace.Duration.String(), "must not be negative"))
	}
	if o.Stall.MaxReversals < 0 {
		allErrs = append(allErrs, field.Invalid(stallPath.Child("maxReversals"), o.Stall.MaxReversals, "must not be negative"))
	}
	if (len(o.CertFile) == 0) != (len(o.KeyFile) == 0) {
		allErrs = append(allErrs, field.Required(field.NewPath("tls-private-key-file"), "cert and key must be set together"))
	}
	return allErrs
}
