package motorbus

// Register is a fixed byte offset into the servo's register file.
type Register byte

// Register map for the STS3215. The EEPROM area persists across power
// cycles; the RAM area is volatile.
const (
	// EEPROM
	RegModelNumber Register = 3 // 2 bytes, read-only
	RegID          Register = 5 // 1 byte
	RegBaudRate    Register = 6 // 1 byte

	// RAM
	RegOperatingMode   Register = 33 // 1 byte
	RegTorqueEnable    Register = 40 // 1 byte: 0=off, 1=on
	RegGoalPosition    Register = 42 // 2 bytes
	RegGoalVelocity    Register = 46 // 2 bytes, sign-magnitude
	RegLock            Register = 55 // 1 byte: 0=unlocked, 1=locked
	RegPresentPosition Register = 56 // 2 bytes, read-only
	RegPresentVelocity Register = 58 // 2 bytes, read-only, sign-magnitude
)

// OperatingMode selects how the servo interprets its goal registers.
type OperatingMode byte

const (
	ModePosition OperatingMode = 0
	ModeVelocity OperatingMode = 1
	ModePWM      OperatingMode = 2
	ModeStep     OperatingMode = 3
)

// String returns a human-readable mode name for diagnostics.
func (m OperatingMode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeVelocity:
		return "velocity"
	case ModePWM:
		return "pwm"
	case ModeStep:
		return "step"
	default:
		return "unknown"
	}
}
