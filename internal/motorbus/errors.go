package motorbus

import "fmt"

// FramingError reports a response that does not match the expected frame
// grammar: a bad header marker or a reply from the wrong device id. It is a
// communication fault, not device damage.
type FramingError struct {
	ID     byte
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("invalid response from device %d: %s", e.ID, e.Reason)
}

// ChecksumError reports a response whose trailing checksum does not match
// the recomputed checksum over the received frame.
type ChecksumError struct {
	ID byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for device %d", e.ID)
}

// DeviceError carries a non-zero status byte reported by the device
// firmware. The code is surfaced, never masked.
type DeviceError struct {
	ID     byte
	Status byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %d returned error status 0x%02X", e.ID, e.Status)
}

// TimeoutError reports that a device did not respond within the configured
// read timeout. Ping downgrades this to false; every other operation
// propagates it to the caller, which owns the retry decision.
type TimeoutError struct {
	ID byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for response from device %d", e.ID)
}
