package modbusrtu

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
	"rs485motor/pkg/protocol/modbusrtu/rtutest"
	"rs485motor/pkg/runtime/constant"
	"rs485motor/pkg/transport"
	"sync"
	"testing"
	"time"
)

const testTimeout = time.Second

func newTestMaster(t *testing.T) (*Master, *rtutest.Slave, *testingclock.FakeClock) {
	t.Helper()
	clock := testingclock.NewFakeClock(time.Now())
	slave := rtutest.NewSlave(0x64, clock)
	slave.SetRegister(0x0001, 0)
	slave.SetRegister(0x0015, 1200)
	slave.SetRegister(0x0016, 850)
	adapter := transport.NewAdapter(slave, slave, transport.WithClock(clock))
	m, err := NewMaster(0x64, adapter, Options{ResponseTimeout: testTimeout, Clock: clock})
	require.NoError(t, err)
	return m, slave, clock
}

func TestNewMasterIdlesInReceive(t *testing.T) {
	_, slave, _ := newTestMaster(t)
	events := slave.Events()
	require.Len(t, events, 1)
	assert.Equal(t, rtutest.Event{Kind: rtutest.LineEvent, Level: transport.Low}, events[0])
}

func TestNewMasterRejectsSlave(t *testing.T) {
	clock := testingclock.NewFakeClock(time.Now())
	for _, address := range []uint8{0, 248, 255} {
		slave := rtutest.NewSlave(address, clock)
		_, err := NewMaster(address, transport.NewAdapter(slave, slave), Options{ResponseTimeout: testTimeout})
		assert.True(t, errors.Is(err, constant.ErrInvalidSlave), "slave %d: %v", address, err)
		assert.Empty(t, slave.Events())
	}
}

func TestNewMasterRejectsTimeout(t *testing.T) {
	slave := rtutest.NewSlave(0x64, nil)
	_, err := NewMaster(0x64, transport.NewAdapter(slave, slave), Options{})
	assert.True(t, errors.Is(err, constant.ErrInvalidTimeout))
}

func TestNewMasterLineFault(t *testing.T) {
	slave := rtutest.NewSlave(0x64, nil)
	slave.SetFault(rtutest.LineFault)
	_, err := NewMaster(0x64, transport.NewAdapter(slave, slave), Options{ResponseTimeout: testTimeout})
	assert.True(t, errors.Is(err, constant.ErrIO))
}

func TestReadTelemetryRegisters(t *testing.T) {
	m, slave, _ := newTestMaster(t)

	values, err := m.ReadHoldingRegisters(0x0015, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1200, 850}, values)
	assert.Equal(t, []byte{0x64, 0x03, 0x00, 0x15, 0x00, 0x02, 0xDC, 0x3A}, slave.LastRequest())
	assert.Equal(t, transport.Low, slave.Level())
}

func TestWriteThenRead(t *testing.T) {
	m, slave, _ := newTestMaster(t)

	for _, v := range []uint16{0, 1, 750, 1000, 0xFFFF} {
		require.NoError(t, m.WriteSingleRegister(0x0001, v))
		got, ok := slave.Register(0x0001)
		require.True(t, ok)
		assert.Equal(t, v, got)

		values, err := m.ReadHoldingRegisters(0x0001, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint16{v}, values)
	}
}

func TestDirectionOrdering(t *testing.T) {
	m, slave, _ := newTestMaster(t)
	_, err := m.ReadHoldingRegisters(0x0015, 2)
	require.NoError(t, err)

	events := slave.Events()[1:]
	firstWrite, lastWrite, firstRead, drain := -1, -1, -1, -1
	for i, e := range events {
		switch e.Kind {
		case rtutest.DrainEvent:
			drain = i
			assert.Equal(t, transport.High, e.Level, "drained after releasing the line")
		case rtutest.WriteEvent:
			if firstWrite < 0 {
				firstWrite = i
			}
			lastWrite = i
			assert.Equal(t, transport.High, e.Level, "byte written with the line low")
		case rtutest.ReadEvent:
			if firstRead < 0 {
				firstRead = i
			}
			assert.Equal(t, transport.Low, e.Level, "byte read with the line high")
		}
	}
	require.True(t, firstWrite > 0)
	require.True(t, firstRead > lastWrite)

	assert.Equal(t, rtutest.Event{Kind: rtutest.LineEvent, Level: transport.High}, events[firstWrite-1])
	// the line is released only once the last request byte has been drained
	assert.Equal(t, lastWrite+1, drain)
	assert.Equal(t, rtutest.Event{Kind: rtutest.LineEvent, Level: transport.Low}, events[drain+1])
	assert.Equal(t, 8, lastWrite-firstWrite+1)
	assert.Equal(t, 9, len(events)-firstRead)
}

func TestTimeoutDoesNotBlock(t *testing.T) {
	m, slave, clock := newTestMaster(t)
	slave.SetFault(rtutest.Withhold)

	start := clock.Now()
	values, err := m.ReadHoldingRegisters(0x0015, 2)
	assert.Nil(t, values)
	assert.True(t, errors.Is(err, constant.ErrTimeout), "got %v", err)
	assert.Equal(t, testTimeout, clock.Since(start))
	assert.Equal(t, transport.Low, slave.Level())
}

func TestTruncatedResponseTimesOut(t *testing.T) {
	m, slave, clock := newTestMaster(t)
	slave.SetFault(rtutest.Truncate)

	start := clock.Now()
	err := m.WriteSingleRegister(0x0001, 10)
	assert.True(t, errors.Is(err, constant.ErrTimeout), "got %v", err)
	assert.True(t, clock.Since(start) <= testTimeout)
}

func TestCorruptResponse(t *testing.T) {
	m, slave, _ := newTestMaster(t)
	slave.SetFault(rtutest.CorruptPayload)

	values, err := m.ReadHoldingRegisters(0x0015, 2)
	assert.Nil(t, values)
	assert.True(t, errors.Is(err, constant.ErrCrcMismatch), "got %v", err)
	assert.Equal(t, transport.Low, slave.Level())
}

func TestExceptionResponse(t *testing.T) {
	m, slave, clock := newTestMaster(t)

	start := clock.Now()
	_, err := m.ReadHoldingRegisters(0x0100, 1)
	var exception *constant.ExceptionError
	require.True(t, errors.As(err, &exception), "got %v", err)
	assert.Equal(t, constant.IllegalDataAddress, exception.Code)
	assert.Equal(t, uint8(0x03), exception.FunctionCode)
	assert.Equal(t, transport.Low, slave.Level())
	// the exception frame is complete after five bytes
	assert.Equal(t, time.Duration(0), clock.Since(start))

	err = m.WriteSingleRegister(0x0100, 1)
	require.True(t, errors.As(err, &exception), "got %v", err)
	assert.Equal(t, uint8(0x06), exception.FunctionCode)
}

func TestEchoMismatch(t *testing.T) {
	m, slave, _ := newTestMaster(t)
	slave.SetFault(rtutest.WrongEcho)

	err := m.WriteSingleRegister(0x0001, 300)
	assert.True(t, errors.Is(err, constant.ErrEchoMismatch), "got %v", err)
}

func TestWrongSlaveAnswers(t *testing.T) {
	m, slave, _ := newTestMaster(t)
	slave.SetFault(rtutest.WrongSlave)

	_, err := m.ReadHoldingRegisters(0x0015, 2)
	assert.True(t, errors.Is(err, constant.ErrUnexpectedResponse), "got %v", err)
}

func TestWriteFaultReleasesLine(t *testing.T) {
	m, slave, _ := newTestMaster(t)
	slave.SetFault(rtutest.WriteFault)

	err := m.WriteSingleRegister(0x0001, 1)
	assert.True(t, errors.Is(err, constant.ErrIO), "got %v", err)
	assert.Equal(t, transport.Low, slave.Level())

	events := slave.Events()
	assert.Equal(t, rtutest.Event{Kind: rtutest.LineEvent, Level: transport.Low}, events[len(events)-1])
}

func TestInvalidQuantity(t *testing.T) {
	m, slave, _ := newTestMaster(t)
	for _, c := range []struct {
		start uint16
		count uint16
	}{{0, 0}, {0, 126}, {0xFFFF, 2}} {
		_, err := m.ReadHoldingRegisters(c.start, c.count)
		assert.True(t, errors.Is(err, constant.ErrInvalidQuantity))
	}
	assert.Empty(t, slave.Requests())
	assert.Equal(t, uint64(0), m.Stats().Transactions)
}

func TestStats(t *testing.T) {
	m, slave, _ := newTestMaster(t)

	_, err := m.ReadHoldingRegisters(0x0015, 2)
	require.NoError(t, err)
	_, _ = m.ReadHoldingRegisters(0x0100, 1)
	slave.SetFault(rtutest.Withhold)
	_, _ = m.ReadHoldingRegisters(0x0015, 2)
	slave.SetFault(rtutest.CorruptPayload)
	_, _ = m.ReadHoldingRegisters(0x0015, 2)
	slave.SetFault(rtutest.WriteFault)
	_ = m.WriteSingleRegister(0x0001, 1)

	assert.Equal(t, Stats{
		Transactions:  5,
		IoErrors:      1,
		Timeouts:      1,
		CrcMismatches: 1,
		Exceptions:    1,
	}, m.Stats())
}

func TestConcurrentTransactionsAreSerialized(t *testing.T) {
	m, slave, _ := newTestMaster(t)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				values, err := m.ReadHoldingRegisters(0x0015, 2)
				if err == nil && (values[0] != 1200 || values[1] != 850) {
					err = errors.New("interleaved response")
				}
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, slave.Requests(), 40)
}
