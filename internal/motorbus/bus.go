package motorbus

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/omnibase/internal/monitoring"
)

// Bus owns the serial connection to the servo chain. It is the single owner
// of the port: all register traffic goes through one Bus, and calls are
// strictly sequential request/response exchanges.
type Bus struct {
	port Porter
}

// Open opens a Bus on the physical serial port at the given path.
func Open(path string, opts PortOptions) (*Bus, error) {
	port, _, err := openPort(path, opts)
	if err != nil {
		return nil, err
	}
	return NewBus(port), nil
}

// NewBus wraps an already-open port. Used by tests to inject a mock.
func NewBus(port Porter) *Bus {
	return &Bus{port: port}
}

// Close closes the underlying serial port.
func (b *Bus) Close() error {
	return b.port.Close()
}

// send writes a framed packet to the wire.
func (b *Bus) send(pkt []byte) error {
	n, err := b.port.Write(pkt)
	if err != nil {
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	if n != len(pkt) {
		return fmt.Errorf("short write to serial port: %d of %d bytes", n, len(pkt))
	}
	return nil
}

// readFull fills p from the port. A zero-byte read with no error means the
// configured read timeout elapsed with no data.
func (b *Bus) readFull(p []byte, id byte) error {
	total := 0
	for total < len(p) {
		n, err := b.port.Read(p[total:])
		if err != nil {
			return fmt.Errorf("failed to read from serial port: %w", err)
		}
		if n == 0 {
			return &TimeoutError{ID: id}
		}
		total += n
	}
	return nil
}

// readResponse reads and validates a status packet addressed from the given
// device, returning its parameter bytes. The device's status byte is
// surfaced as a DeviceError when non-zero.
func (b *Bus) readResponse(expectedID byte) ([]byte, error) {
	var hdr [2]byte
	if err := b.readFull(hdr[:], expectedID); err != nil {
		return nil, err
	}
	if hdr != header {
		return nil, &FramingError{
			ID:     expectedID,
			Reason: fmt.Sprintf("bad header marker % 02X", hdr[:]),
		}
	}

	var idLen [2]byte
	if err := b.readFull(idLen[:], expectedID); err != nil {
		return nil, err
	}
	id, length := idLen[0], int(idLen[1])
	if id != expectedID {
		return nil, &FramingError{
			ID:     expectedID,
			Reason: fmt.Sprintf("id mismatch: expected %d, got %d", expectedID, id),
		}
	}
	// A valid status packet carries at least a status byte and a checksum.
	if length < 2 {
		return nil, &FramingError{
			ID:     expectedID,
			Reason: fmt.Sprintf("implausible length %d", length),
		}
	}

	// status + params + checksum
	rest := make([]byte, length)
	if err := b.readFull(rest, expectedID); err != nil {
		return nil, err
	}

	sum := make([]byte, 0, 2+length)
	sum = append(sum, id, byte(length))
	sum = append(sum, rest[:len(rest)-1]...)
	if Checksum(sum) != rest[len(rest)-1] {
		return nil, &ChecksumError{ID: id}
	}

	if status := rest[0]; status != 0 {
		return nil, &DeviceError{ID: id, Status: status}
	}
	return rest[1 : len(rest)-1], nil
}

// exchange sends an instruction and reads back the device's status packet.
func (b *Bus) exchange(id byte, instr Instruction, params []byte) ([]byte, error) {
	if err := b.send(BuildPacket(id, instr, params)); err != nil {
		return nil, err
	}
	return b.readResponse(id)
}

// Ping checks whether a device answers at the given id. A silent bus is an
// expected outcome and reported as false; every other failure is an error.
func (b *Bus) Ping(id byte) (bool, error) {
	_, err := b.exchange(id, InstrPing, nil)
	if err != nil {
		if _, ok := err.(*TimeoutError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadByte reads a one-byte register.
func (b *Bus) ReadByte(id byte, reg Register) (byte, error) {
	resp, err := b.exchange(id, InstrRead, []byte{byte(reg), 1})
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, &FramingError{ID: id, Reason: "empty read response"}
	}
	return resp[0], nil
}

// ReadWord reads a two-byte register, little-endian on the wire.
func (b *Bus) ReadWord(id byte, reg Register) (uint16, error) {
	resp, err := b.exchange(id, InstrRead, []byte{byte(reg), 2})
	if err != nil {
		return 0, err
	}
	if len(resp) < 2 {
		return 0, &FramingError{
			ID:     id,
			Reason: fmt.Sprintf("expected 2 bytes, got %d", len(resp)),
		}
	}
	return binary.LittleEndian.Uint16(resp), nil
}

// WriteByte writes a one-byte register. The device's acknowledgement packet
// is drained even though it carries no data, to keep the bus state machine
// synchronized.
func (b *Bus) WriteByte(id byte, reg Register, value byte) error {
	monitoring.Debugf("motorbus: write u8 id=%d reg=%d value=%d", id, reg, value)
	_, err := b.exchange(id, InstrWrite, []byte{byte(reg), value})
	return err
}

// WriteWord writes a two-byte register, little-endian.
func (b *Bus) WriteWord(id byte, reg Register, value uint16) error {
	monitoring.Debugf("motorbus: write u16 id=%d reg=%d value=%d", id, reg, value)
	params := []byte{byte(reg), byte(value), byte(value >> 8)}
	_, err := b.exchange(id, InstrWrite, params)
	return err
}

// WriteSignedWord writes a signed two-byte register using the firmware's
// sign-magnitude encoding. Two's-complement would silently command wrong
// directions and speeds.
func (b *Bus) WriteSignedWord(id byte, reg Register, value int16) error {
	return b.WriteWord(id, reg, EncodeSignMagnitude(value))
}

// SyncEntry pairs a device id with the signed value to write to it.
type SyncEntry struct {
	ID    byte
	Value int16
}

// SyncWrite updates the same two-byte register on multiple devices in a
// single broadcast packet, minimising skew between them. Broadcast
// instructions are fire-and-forget: there is no per-device acknowledgement,
// so callers must not expect confirmation from this call. Values are
// sign-magnitude encoded.
func (b *Bus) SyncWrite(reg Register, entries []SyncEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// [addr, bytes-per-device, id1, lo1, hi1, id2, lo2, hi2, ...]
	params := make([]byte, 0, 2+3*len(entries))
	params = append(params, byte(reg), 2)
	for _, e := range entries {
		raw := EncodeSignMagnitude(e.Value)
		params = append(params, e.ID, byte(raw), byte(raw>>8))
	}

	monitoring.Debugf("motorbus: sync write reg=%d devices=%d", reg, len(entries))
	return b.send(BuildPacket(BroadcastID, InstrSyncWrite, params))
}

// SyncRawEntry pairs a device id with an unencoded register value.
type SyncRawEntry struct {
	ID    byte
	Value uint16
}

// SyncWriteRaw is SyncWrite for registers that hold plain unsigned words,
// such as GoalPosition. Values go on the wire untranslated.
func (b *Bus) SyncWriteRaw(reg Register, entries []SyncRawEntry) error {
	if len(entries) == 0 {
		return nil
	}

	params := make([]byte, 0, 2+3*len(entries))
	params = append(params, byte(reg), 2)
	for _, e := range entries {
		params = append(params, e.ID, byte(e.Value), byte(e.Value>>8))
	}

	monitoring.Debugf("motorbus: sync write raw reg=%d devices=%d", reg, len(entries))
	return b.send(BuildPacket(BroadcastID, InstrSyncWrite, params))
}

// Convenience accessors over the register map.

// EnableTorque turns the servo's output on and locks its configuration.
func (b *Bus) EnableTorque(id byte) error {
	if err := b.WriteByte(id, RegTorqueEnable, 1); err != nil {
		return err
	}
	return b.WriteByte(id, RegLock, 1)
}

// DisableTorque releases the servo so it can spin freely.
func (b *Bus) DisableTorque(id byte) error {
	if err := b.WriteByte(id, RegTorqueEnable, 0); err != nil {
		return err
	}
	return b.WriteByte(id, RegLock, 0)
}

// SetOperatingMode selects the servo's control mode. Torque must be disabled
// first or the device rejects the write.
func (b *Bus) SetOperatingMode(id byte, mode OperatingMode) error {
	return b.WriteByte(id, RegOperatingMode, byte(mode))
}

// SetVelocity commands a goal velocity on a single servo. The servo must be
// in velocity mode.
func (b *Bus) SetVelocity(id byte, velocity int16) error {
	return b.WriteSignedWord(id, RegGoalVelocity, velocity)
}

// PresentVelocity reads the servo's current velocity.
func (b *Bus) PresentVelocity(id byte) (int16, error) {
	raw, err := b.ReadWord(id, RegPresentVelocity)
	if err != nil {
		return 0, err
	}
	return DecodeSignMagnitude(raw), nil
}

// PresentPosition reads the servo's current position in raw steps.
func (b *Bus) PresentPosition(id byte) (uint16, error) {
	return b.ReadWord(id, RegPresentPosition)
}

// ModelNumber reads the device's model register.
func (b *Bus) ModelNumber(id byte) (uint16, error) {
	return b.ReadWord(id, RegModelNumber)
}
