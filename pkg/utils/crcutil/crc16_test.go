package crcutil

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestCrc16(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{name: "empty", data: []byte{}, expected: 0xFFFF},
		{name: "single zero", data: []byte{0x00}, expected: 0x40BF},
		{name: "check string", data: []byte("123456789"), expected: 0x4B37},
		{name: "read one register", data: []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}, expected: 0x0A84},
		{name: "read ten registers", data: []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, expected: 0xCDC5},
		{name: "write single register", data: []byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x03}, expected: 0x0B98},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equalf(t, tc.expected, Crc16(tc.data), "Crc16(% X)", tc.data)
		})
	}
}

func TestAppendCrc16(t *testing.T) {
	frame := AppendCrc16([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A})
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}, frame)
	assert.True(t, CheckCrc16(frame))
}

func TestCheckCrc16(t *testing.T) {
	assert.True(t, CheckCrc16([]byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x03, 0x98, 0x0B}))
	assert.False(t, CheckCrc16([]byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x03, 0x0B, 0x98}))
	assert.False(t, CheckCrc16([]byte{0x01, 0x06}))

	frame := AppendCrc16([]byte{0x64, 0x03, 0x04, 0x04, 0xB0, 0x03, 0x52})
	for i := 0; i < len(frame)*8; i++ {
		corrupted := append([]byte(nil), frame...)
		corrupted[i/8] ^= 1 << (i % 8)
		assert.Falsef(t, CheckCrc16(corrupted), "bit %d flipped", i)
	}
}
