package binutil

// ParseUint16BigEndian 解析 AB
func ParseUint16BigEndian(buf []byte) uint16 {
	return uint16(buf[0])<<8 + uint16(buf[1])
}

// WriteUint16BigEndian 编码
func WriteUint16BigEndian(buf []byte, v uint16) {
	buf[0] = byte(v >> 8)
	buf[1] = byte(v)
}

// ParseUint16sBigEndian decodes consecutive big-endian registers. A trailing odd byte is ignored.
func ParseUint16sBigEndian(buf []byte) []uint16 {
	values := make([]uint16, len(buf)/2)
	for i := range values {
		values[i] = ParseUint16BigEndian(buf[i*2:])
	}
	return values
}

// Dup 复制
func Dup(buf []byte) []byte {
	b := make([]byte, len(buf))
	copy(b, buf)
	return b
}
