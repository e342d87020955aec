package modbusrtu

import (
	"bytes"
	"github.com/pkg/errors"
	modbusrturuntime "rs485motor/pkg/protocol/modbusrtu/runtime"
	"rs485motor/pkg/runtime/constant"
	"rs485motor/pkg/utils/binutil"
	"rs485motor/pkg/utils/crcutil"
)

/**
modbus rtu 报文
地址(1) + 功能码(1) + 数据(n) + CRC16(2, 低字节在前)
异常响应: 地址(1) + (功能码|0x80)(1) + 异常码(1) + CRC16(2)
*/

// ModBusRtuDataFrame is one request frame and the shape of the response it expects.
type ModBusRtuDataFrame struct {
	Slave          uint8
	FunctionCode   modbusrturuntime.FunctionCode
	Address        uint16
	Quantity       uint16 // register count for reads, register value for writes
	DataFrame      []byte
	ResponseLength int
}

// NewReadHoldingRegistersFrame builds an FC3 request.
func NewReadHoldingRegistersFrame(slave uint8, startAddress uint16, count uint16) *ModBusRtuDataFrame {
	// 64 03 00 15 00 02 DC 3A
	// 64     设备地址
	// 03     功能码
	// 00 15  起始地址
	// 00 02  寄存器数量
	// DC 3A  crc16
	return newDataFrame(slave, modbusrturuntime.ReadHoldingRegisters, startAddress, count,
		int(count)*2+modbusrturuntime.RtuNonDataLength+1)
}

// NewWriteSingleRegisterFrame builds an FC6 request. The response is an echo of the request.
func NewWriteSingleRegisterFrame(slave uint8, address uint16, value uint16) *ModBusRtuDataFrame {
	// 64 06 00 01 03 E8 D1 41
	// 64     设备地址
	// 06     功能码
	// 00 01  寄存器地址
	// 03 E8  写入值
	// D1 41  crc16
	return newDataFrame(slave, modbusrturuntime.WriteSingleRegister, address, value,
		modbusrturuntime.WriteSingleRegisterFrameLength)
}

func newDataFrame(slave uint8, fc modbusrturuntime.FunctionCode, address uint16, quantity uint16, responseLength int) *ModBusRtuDataFrame {
	message := make([]byte, 6, 8)
	message[0] = slave
	message[1] = byte(fc)
	binutil.WriteUint16BigEndian(message[2:], address)
	binutil.WriteUint16BigEndian(message[4:], quantity)
	return &ModBusRtuDataFrame{
		Slave:          slave,
		FunctionCode:   fc,
		Address:        address,
		Quantity:       quantity,
		DataFrame:      crcutil.AppendCrc16(message),
		ResponseLength: responseLength,
	}
}

// IsExceptionHeader reports whether the first bytes of a response announce an exception.
func IsExceptionHeader(head []byte) bool {
	return len(head) >= 2 && head[1]&modbusrturuntime.ExceptionFlag != 0
}

// ValidateMessage checks a complete response and returns its data section: the register
// bytes for FC3, the echoed address and value for FC6.
func (df *ModBusRtuDataFrame) ValidateMessage(buf []byte) ([]byte, error) {
	if len(buf) < modbusrturuntime.ExceptionFrameLength {
		return nil, errors.Wrapf(constant.ErrUnexpectedResponse, "frame of %d bytes", len(buf))
	}
	if !crcutil.CheckCrc16(buf) {
		return nil, errors.Wrapf(constant.ErrCrcMismatch, "frame % X", buf)
	}
	if buf[0] != df.Slave {
		return nil, errors.Wrapf(constant.ErrUnexpectedResponse, "slave 0x%02X answered, expected 0x%02X", buf[0], df.Slave)
	}

	functionCode := buf[1]
	if functionCode == byte(df.FunctionCode)|modbusrturuntime.ExceptionFlag {
		return nil, &constant.ExceptionError{FunctionCode: byte(df.FunctionCode), Code: buf[2]}
	}
	if functionCode != byte(df.FunctionCode) {
		return nil, errors.Wrapf(constant.ErrUnexpectedResponse, "function 0x%02X, expected 0x%02X", functionCode, byte(df.FunctionCode))
	}
	if len(buf) != df.ResponseLength {
		return nil, errors.Wrapf(constant.ErrUnexpectedResponse, "frame of %d bytes, expected %d", len(buf), df.ResponseLength)
	}

	switch df.FunctionCode {
	case modbusrturuntime.ReadHoldingRegisters:
		byteCount := int(buf[2])
		if byteCount != int(df.Quantity)*2 {
			return nil, errors.Wrapf(constant.ErrUnexpectedResponse, "byte count %d, expected %d", byteCount, df.Quantity*2)
		}
		return buf[3 : 3+byteCount], nil
	case modbusrturuntime.WriteSingleRegister:
		if !bytes.Equal(buf[2:6], df.DataFrame[2:6]) {
			return nil, errors.Wrapf(constant.ErrEchoMismatch, "echo % X, sent % X", buf[2:6], df.DataFrame[2:6])
		}
		return buf[2:6], nil
	}
	return nil, errors.Wrapf(constant.ErrUnexpectedResponse, "unsupported function %s", df.FunctionCode)
}
