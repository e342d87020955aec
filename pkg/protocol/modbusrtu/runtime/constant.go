package runtime

type FunctionCode uint8

const (
	ReadHoldingRegisters FunctionCode = 0x03
	WriteSingleRegister  FunctionCode = 0x06
)

const (
	// ExceptionFlag is set on the echoed function code of an exception response.
	ExceptionFlag uint8 = 0x80

	// slave(1) + function(1) + crc(2)
	RtuNonDataLength = 4
	// slave(1) + function(1) + exception code(1) + crc(2), also the shortest valid response
	ExceptionFrameLength = 5
	// slave(1) + function(1) + address(2) + value(2) + crc(2)
	WriteSingleRegisterFrameLength = 8

	// 252 data bytes per RTU ADU, one of them the byte count
	PerRequestMaxRegister = 125

	MinSlaveAddress = 1
	MaxSlaveAddress = 247
	DefaultSlave    = 0x64
)

var FunctionCodeToString = map[FunctionCode]string{
	ReadHoldingRegisters: "readHoldingRegisters",
	WriteSingleRegister:  "writeSingleRegister",
}

func (fc FunctionCode) String() string {
	if s, ok := FunctionCodeToString[fc]; ok {
		return s
	}
	return "unknown"
}

// ValidSlave reports whether slave is a unicast address.
func ValidSlave(slave uint8) bool {
	return slave >= MinSlaveAddress && slave <= MaxSlaveAddress
}
