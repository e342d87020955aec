package motor

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rs485motor/pkg/protocol/modbusrtu/rtutest"
	"rs485motor/pkg/runtime/constant"
	"testing"
)

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand(map[string]interface{}{
		"speed":     float64(750),
		"enable":    true,
		"direction": "true",
		"brake":     0,
	})
	require.NoError(t, err)
	require.NotNil(t, cmd.Speed)
	assert.Equal(t, 750, *cmd.Speed)
	assert.True(t, *cmd.Enable)
	assert.True(t, *cmd.Direction)
	assert.False(t, *cmd.Brake)
}

func TestDecodeCommandPartial(t *testing.T) {
	cmd, err := DecodeCommand(map[string]interface{}{"enable": false})
	require.NoError(t, err)
	assert.Nil(t, cmd.Speed)
	assert.Nil(t, cmd.Direction)
	assert.Nil(t, cmd.Brake)
	assert.False(t, *cmd.Enable)
}

func TestDecodeCommandRejects(t *testing.T) {
	_, err := DecodeCommand(map[string]interface{}{"sped": 10})
	assert.Error(t, err)

	_, err = DecodeCommand(map[string]interface{}{"speed": "fast"})
	assert.Error(t, err)

	_, err = DecodeCommand(map[string]interface{}{})
	assert.True(t, errors.Is(err, ErrEmptyCommand))
}

func TestApplyOrder(t *testing.T) {
	c, slave := newTestController(t)
	speed, enable, ccw, brake := 1200, true, true, false

	require.NoError(t, c.Apply(&Command{Speed: &speed, Enable: &enable, Direction: &ccw, Brake: &brake}))
	assert.Equal(t, [][]byte{
		rtutest.Frame(0x64, 0x06, 0x00, 0x04, 0x00, 0x00),
		rtutest.Frame(0x64, 0x06, 0x00, 0x01, 0x03, 0xE8),
		rtutest.Frame(0x64, 0x06, 0x00, 0x02, 0x00, 0x01),
		rtutest.Frame(0x64, 0x06, 0x00, 0x03, 0x00, 0x01),
	}, slave.Requests())
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	c, slave := newTestController(t)
	slave.SetFault(rtutest.WrongEcho)
	speed, enable := 10, true

	err := c.Apply(&Command{Speed: &speed, Enable: &enable})
	assert.True(t, errors.Is(err, constant.ErrEchoMismatch), "got %v", err)
	assert.Len(t, slave.Requests(), 1)
}
