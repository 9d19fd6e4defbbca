package motorbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingResponding(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(7, 0, nil)
	bus := NewBus(port)

	ok, err := bus.Ping(7)
	require.NoError(t, err)
	assert.True(t, ok)

	want := BuildPacket(7, InstrPing, nil)
	assert.Equal(t, want, port.Written())
}

func TestPingTimeoutIsFalseNotError(t *testing.T) {
	port := &MockPort{} // nothing queued: every read times out
	bus := NewBus(port)

	ok, err := bus.Ping(9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPingDeviceErrorPropagates(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(7, 0x20, nil)
	bus := NewBus(port)

	_, err := bus.Ping(7)
	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, byte(7), devErr.ID)
	assert.Equal(t, byte(0x20), devErr.Status)
}

func TestReadWordLittleEndian(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(8, 0, []byte{0x2C, 0x01}) // 300
	bus := NewBus(port)

	got, err := bus.ReadWord(8, RegPresentPosition)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), got)

	// The read instruction carries [address, byte-count].
	want := BuildPacket(8, InstrRead, []byte{byte(RegPresentPosition), 2})
	assert.Equal(t, want, port.Written())
}

func TestReadByteRequest(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(7, 0, []byte{1})
	bus := NewBus(port)

	got, err := bus.ReadByte(7, RegTorqueEnable)
	require.NoError(t, err)
	assert.Equal(t, byte(1), got)

	want := BuildPacket(7, InstrRead, []byte{byte(RegTorqueEnable), 1})
	assert.Equal(t, want, port.Written())
}

func TestWriteByteDrainsAck(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(7, 0, nil)
	bus := NewBus(port)

	require.NoError(t, bus.WriteByte(7, RegTorqueEnable, 1))
	// The empty acknowledgement packet must be consumed to keep the bus
	// state machine synchronized.
	assert.Equal(t, 0, port.ReadBuffer.Len())
}

func TestWriteSignedWordUsesSignMagnitude(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(7, 0, nil)
	bus := NewBus(port)

	require.NoError(t, bus.WriteSignedWord(7, RegGoalVelocity, -100))

	want := BuildPacket(7, InstrWrite, []byte{byte(RegGoalVelocity), 0x64, 0x80})
	assert.Equal(t, want, port.Written())
}

func TestSyncWriteBroadcastFrame(t *testing.T) {
	port := &MockPort{}
	bus := NewBus(port)

	err := bus.SyncWrite(RegGoalVelocity, []SyncEntry{
		{ID: 7, Value: 100},
		{ID: 8, Value: -100},
		{ID: 9, Value: 0},
	})
	require.NoError(t, err)

	want := BuildPacket(BroadcastID, InstrSyncWrite, []byte{
		byte(RegGoalVelocity), 2,
		7, 0x64, 0x00,
		8, 0x64, 0x80,
		9, 0x00, 0x00,
	})
	assert.Equal(t, want, port.Written())

	// Broadcast writes are fire-and-forget: no response is read.
	assert.Equal(t, 0, port.ReadCalls)
}

func TestSyncWriteEmptyIsNoop(t *testing.T) {
	port := &MockPort{}
	bus := NewBus(port)

	require.NoError(t, bus.SyncWrite(RegGoalVelocity, nil))
	assert.Empty(t, port.Written())
}

func TestSyncWriteRawLeavesValuesUnencoded(t *testing.T) {
	port := &MockPort{}
	bus := NewBus(port)

	err := bus.SyncWriteRaw(RegGoalPosition, []SyncRawEntry{
		{ID: 7, Value: 2048},
		{ID: 8, Value: 0x8001}, // would mean -1 under sign-magnitude
	})
	require.NoError(t, err)

	want := BuildPacket(BroadcastID, InstrSyncWrite, []byte{
		byte(RegGoalPosition), 2,
		7, 0x00, 0x08,
		8, 0x01, 0x80,
	})
	assert.Equal(t, want, port.Written())
	assert.Equal(t, 0, port.ReadCalls)

	require.NoError(t, bus.SyncWriteRaw(RegGoalPosition, nil))
}

func TestResponseBadHeader(t *testing.T) {
	port := &MockPort{}
	port.QueueBytes([]byte{0xFF, 0x00, 7, 2, 0, Checksum([]byte{7, 2, 0})})
	bus := NewBus(port)

	_, err := bus.ReadByte(7, RegID)
	var framing *FramingError
	assert.ErrorAs(t, err, &framing)
}

func TestResponseShortLength(t *testing.T) {
	// A length below 2 cannot even hold the status byte and checksum; a
	// corrupted frame advertising one must be rejected, not sliced.
	for _, length := range []byte{0, 1} {
		port := &MockPort{}
		port.QueueBytes([]byte{0xFF, 0xFF, 7, length})
		bus := NewBus(port)

		_, err := bus.ReadByte(7, RegID)
		var framing *FramingError
		require.ErrorAs(t, err, &framing)
		assert.Equal(t, byte(7), framing.ID)
	}
}

func TestResponseIDMismatch(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(8, 0, []byte{5}) // reply from the wrong device
	bus := NewBus(port)

	_, err := bus.ReadByte(7, RegID)
	var framing *FramingError
	require.ErrorAs(t, err, &framing)
	assert.Equal(t, byte(7), framing.ID)
}

func TestResponseChecksumMismatch(t *testing.T) {
	port := &MockPort{}
	pkt := BuildPacket(7, 0, []byte{5}) // instruction slot carries the status byte
	pkt[len(pkt)-1] ^= 0xA5             // corrupt trailing checksum
	port.QueueBytes(pkt)
	bus := NewBus(port)

	_, err := bus.ReadByte(7, RegID)
	var sumErr *ChecksumError
	require.ErrorAs(t, err, &sumErr)
	assert.Equal(t, byte(7), sumErr.ID)
}

func TestResponseTimeoutMidPacket(t *testing.T) {
	port := &MockPort{}
	port.QueueBytes([]byte{0xFF, 0xFF, 7}) // truncated frame
	bus := NewBus(port)

	_, err := bus.ReadWord(7, RegModelNumber)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, byte(7), timeout.ID)
}

func TestTransportErrorsWrapped(t *testing.T) {
	ioErr := errors.New("device unplugged")

	port := &MockPort{WriteError: ioErr}
	bus := NewBus(port)
	err := bus.WriteByte(7, RegTorqueEnable, 1)
	assert.ErrorIs(t, err, ioErr)

	port = &MockPort{ReadError: ioErr}
	bus = NewBus(port)
	_, err = bus.ReadByte(7, RegID)
	assert.ErrorIs(t, err, ioErr)
}

func TestTorqueHelpers(t *testing.T) {
	port := &MockPort{}
	for i := 0; i < 4; i++ {
		port.QueueStatus(7, 0, nil)
	}
	bus := NewBus(port)

	require.NoError(t, bus.EnableTorque(7))
	require.NoError(t, bus.DisableTorque(7))

	want := append(BuildPacket(7, InstrWrite, []byte{byte(RegTorqueEnable), 1}),
		BuildPacket(7, InstrWrite, []byte{byte(RegLock), 1})...)
	want = append(want, BuildPacket(7, InstrWrite, []byte{byte(RegTorqueEnable), 0})...)
	want = append(want, BuildPacket(7, InstrWrite, []byte{byte(RegLock), 0})...)
	assert.Equal(t, want, port.Written())
}

func TestPresentVelocityDecodesSignMagnitude(t *testing.T) {
	port := &MockPort{}
	port.QueueStatus(9, 0, []byte{0x64, 0x80}) // -100 in sign-magnitude
	bus := NewBus(port)

	got, err := bus.PresentVelocity(9)
	require.NoError(t, err)
	assert.Equal(t, int16(-100), got)
}

func TestPortOptionsNormalize(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, opts.BaudRate)
	assert.Equal(t, DefaultTimeout, opts.Timeout)

	_, err = PortOptions{BaudRate: -1}.Normalize()
	assert.Error(t, err)
}

func TestBusCloseClosesPort(t *testing.T) {
	port := &MockPort{}
	bus := NewBus(port)
	require.NoError(t, bus.Close())
	assert.True(t, port.Closed)
}
