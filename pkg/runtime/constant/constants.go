package constant

import (
	"errors"
	"fmt"
)

var (
	// ErrIO reports a fault of the serial channel or the direction line.
	ErrIO = errors.New("bus io error")
	// ErrTimeout reports that the expected response bytes did not arrive in time.
	ErrTimeout = errors.New("bus response timeout")
	// ErrCrcMismatch reports a response frame that failed the CRC16 check.
	ErrCrcMismatch = errors.New("response crc16 mismatch")
	// ErrEchoMismatch reports a write response that did not echo address and value.
	ErrEchoMismatch = errors.New("write echo mismatch")
	// ErrUnexpectedResponse reports a well-formed frame with the wrong slave, function or byte count.
	ErrUnexpectedResponse = errors.New("unexpected response frame")
	// ErrException is matched by every *ExceptionError.
	ErrException = errors.New("slave exception response")

	ErrInvalidSlave    = errors.New("slave address must be in range 1-247")
	ErrInvalidQuantity = errors.New("invalid register quantity")
	ErrInvalidTimeout  = errors.New("response timeout must be positive")
)

// ExceptionError is returned when the slave answers with function|0x80.
type ExceptionError struct {
	FunctionCode uint8
	Code         uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("slave exception response: function 0x%02X code 0x%02X (%s)", e.FunctionCode, e.Code, ExceptionCodeToString(e.Code))
}

func (e *ExceptionError) Is(target error) bool {
	return target == ErrException
}

// Modbus exception codes.
const (
	IllegalFunction    uint8 = 0x01
	IllegalDataAddress uint8 = 0x02
	IllegalDataValue   uint8 = 0x03
	SlaveDeviceFailure uint8 = 0x04
	Acknowledge        uint8 = 0x05
	SlaveDeviceBusy    uint8 = 0x06
)

var exceptionCodeToString = map[uint8]string{
	IllegalFunction:    "illegal function",
	IllegalDataAddress: "illegal data address",
	IllegalDataValue:   "illegal data value",
	SlaveDeviceFailure: "slave device failure",
	Acknowledge:        "acknowledge",
	SlaveDeviceBusy:    "slave device busy",
}

func ExceptionCodeToString(code uint8) string {
	if s, ok := exceptionCodeToString[code]; ok {
		return s
	}
	return "unknown"
}
