package crcutil

// Crc16 computes the Modbus CRC16 (reflected polynomial 0xA001, initial value 0xFFFF).
// The low byte goes on the wire first.
func Crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendCrc16 appends the checksum of message in wire order (lo, hi).
func AppendCrc16(message []byte) []byte {
	sum := Crc16(message)
	return append(message, byte(sum), byte(sum>>8))
}

// CheckCrc16 reports whether the trailing two bytes of frame hold the checksum of the rest.
func CheckCrc16(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	l := len(frame)
	return Crc16(frame[:l-2]) == uint16(frame[l-2])|uint16(frame[l-1])<<8
}
