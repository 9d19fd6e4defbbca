// Package drive composes the motor bus and the omniwheel kinematics into a
// device-facing driver for the three-wheel base.
package drive

import (
	"fmt"

	"github.com/banshee-data/omnibase/internal/kinematics"
	"github.com/banshee-data/omnibase/internal/monitoring"
	"github.com/banshee-data/omnibase/internal/motorbus"
)

// Motor ids as configured in the base servos.
const (
	MotorIDLeft  byte = 7
	MotorIDBack  byte = 8
	MotorIDRight byte = 9
)

// BaseMotorIDs lists the wheel servos in [left, back, right] order.
var BaseMotorIDs = [3]byte{MotorIDLeft, MotorIDBack, MotorIDRight}

// Driver owns one motor bus and the fixed three-wheel id set. Bring-up and
// dispatch are sequential and non-reentrant; the driver is meant to be owned
// by a single control task.
type Driver struct {
	bus *motorbus.Bus
	ids [3]byte
	kin kinematics.Params
}

// New wraps an open bus. ids is [left, back, right].
func New(bus *motorbus.Bus, ids [3]byte, kin kinematics.Params) *Driver {
	return &Driver{bus: bus, ids: ids, kin: kin}
}

// Open opens the serial port at path and returns a driver over it. ids is
// [left, back, right].
func Open(path string, opts motorbus.PortOptions, ids [3]byte, kin kinematics.Params) (*Driver, error) {
	monitoring.Logf("drive: opening motor bus on %s", path)
	bus, err := motorbus.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return New(bus, ids, kin), nil
}

// Initialize runs the hardware bring-up sequence: ping every servo (failing
// fast on the first non-responder), disable torque, switch to velocity mode,
// then re-enable torque and lock. There is no partial rollback; on error the
// caller retries Initialize from scratch.
func (d *Driver) Initialize() error {
	monitoring.Logf("drive: initializing motors %v for velocity control", d.ids)

	for _, id := range d.ids {
		ok, err := d.bus.Ping(id)
		if err != nil {
			return fmt.Errorf("ping motor %d: %w", id, err)
		}
		if !ok {
			return &motorbus.TimeoutError{ID: id}
		}
	}

	// Torque must be off before the operating mode register accepts writes.
	for _, id := range d.ids {
		if err := d.bus.DisableTorque(id); err != nil {
			return fmt.Errorf("disable torque on motor %d: %w", id, err)
		}
	}

	for _, id := range d.ids {
		if err := d.bus.SetOperatingMode(id, motorbus.ModeVelocity); err != nil {
			return fmt.Errorf("set velocity mode on motor %d: %w", id, err)
		}
	}

	for _, id := range d.ids {
		if err := d.bus.EnableTorque(id); err != nil {
			return fmt.Errorf("enable torque on motor %d: %w", id, err)
		}
	}

	monitoring.Logf("drive: motors initialized")
	return nil
}

// SetBodyVelocity converts a body-frame velocity to wheel commands and
// dispatches them. x is forward m/s, y lateral m/s, theta deg/s.
func (d *Driver) SetBodyVelocity(x, y, theta float64) error {
	return d.SetWheelVelocities(d.kin.BodyToWheelRaw(x, y, theta))
}

// SetWheelVelocities sends raw wheel commands in one broadcast transaction
// so all three wheels receive their new target with minimal skew.
func (d *Driver) SetWheelVelocities(w kinematics.WheelVelocities) error {
	monitoring.Debugf("drive: wheel velocities left=%d back=%d right=%d", w.Left, w.Back, w.Right)
	return d.bus.SyncWrite(motorbus.RegGoalVelocity, []motorbus.SyncEntry{
		{ID: d.ids[0], Value: w.Left},
		{ID: d.ids[1], Value: w.Back},
		{ID: d.ids[2], Value: w.Right},
	})
}

// Stop commands zero velocity on every wheel.
func (d *Driver) Stop() error {
	return d.SetWheelVelocities(kinematics.Zero())
}

// DisableTorque releases every servo for free-wheeling or safety teardown.
func (d *Driver) DisableTorque() error {
	monitoring.Logf("drive: disabling torque on all motors")
	for _, id := range d.ids {
		if err := d.bus.DisableTorque(id); err != nil {
			return fmt.Errorf("disable torque on motor %d: %w", id, err)
		}
	}
	return nil
}

// WheelVelocities reads back the present velocity of each wheel.
func (d *Driver) WheelVelocities() (kinematics.WheelVelocities, error) {
	var w kinematics.WheelVelocities
	var err error
	if w.Left, err = d.bus.PresentVelocity(d.ids[0]); err != nil {
		return w, err
	}
	if w.Back, err = d.bus.PresentVelocity(d.ids[1]); err != nil {
		return w, err
	}
	if w.Right, err = d.bus.PresentVelocity(d.ids[2]); err != nil {
		return w, err
	}
	return w, nil
}

// Ping checks whether a single servo is reachable.
func (d *Driver) Ping(id byte) (bool, error) {
	return d.bus.Ping(id)
}

// MotorIDs returns the configured [left, back, right] ids.
func (d *Driver) MotorIDs() [3]byte {
	return d.ids
}

// Close attempts a best-effort stop regardless of prior error state, then
// closes the bus. A failure during the stop is logged, never propagated:
// no caller remains to receive it.
func (d *Driver) Close() error {
	if err := d.Stop(); err != nil {
		monitoring.Logf("drive: failed to stop motors on close: %v", err)
	}
	return d.bus.Close()
}
