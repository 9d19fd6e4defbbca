package motorbus

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Porter is the minimal interface the bus needs from a serial port. The
// abstraction enables unit testing without real servo hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Default serial configuration for the STS servo bus.
const (
	DefaultBaudRate = 1_000_000
	DefaultTimeout  = 100 * time.Millisecond
)

// PortOptions describes the serial connection parameters used when opening a
// real port. Zero values fall back to the servo defaults.
type PortOptions struct {
	BaudRate int           `json:"baud_rate"`
	Timeout  time.Duration `json:"-"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.BaudRate < 0 {
		return opts, fmt.Errorf("invalid baud rate %d", opts.BaudRate)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Timeout < 0 {
		return opts, fmt.Errorf("invalid timeout %s", opts.Timeout)
	}
	return opts, nil
}

// openPort opens the physical serial link. The servos speak 8N1.
func openPort(path string, opts PortOptions) (serial.Port, PortOptions, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, opts, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(opts.Timeout); err != nil {
		port.Close()
		return nil, opts, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return port, opts, nil
}
