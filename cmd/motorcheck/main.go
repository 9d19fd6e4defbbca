// Command motorcheck is a bench diagnostic for the servo chain. It can scan
// the bus for responding ids, dump the interesting registers of a motor, and
// optionally run a short timed spin to confirm a wheel actually turns.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/omnibase/internal/drive"
	"github.com/banshee-data/omnibase/internal/monitoring"
	"github.com/banshee-data/omnibase/internal/motorbus"
)

var (
	portPath = flag.String("port", "/dev/ttyACM0", "Serial port path")
	baudRate = flag.Int("baud", motorbus.DefaultBaudRate, "Serial baud rate")
	motorID  = flag.Int("id", 0, "Motor id to inspect (0 = the base trio)")
	scan     = flag.Bool("scan", false, "Scan ids 1-30 for responding motors")
	spin     = flag.Bool("spin", false, "Run a timed spin test on the selected motor(s)")
	speed    = flag.Int("speed", 500, "Spin test velocity in raw units")
	duration = flag.Duration("duration", 2*time.Second, "Spin test duration")
	verbose  = flag.Bool("verbose", false, "Enable protocol-level debug logging")
)

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	bus, err := motorbus.Open(*portPath, motorbus.PortOptions{BaudRate: *baudRate})
	if err != nil {
		log.Fatalf("failed to open %s: %v", *portPath, err)
	}
	defer bus.Close()

	if *scan {
		if err := scanBus(bus); err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		return
	}

	ids := drive.BaseMotorIDs[:]
	if *motorID != 0 {
		if *motorID < 1 || *motorID > 253 {
			log.Fatalf("motor id must be in [1, 253], got %d", *motorID)
		}
		ids = []byte{byte(*motorID)}
	}

	failed := false
	for _, id := range ids {
		if err := inspectMotor(bus, id); err != nil {
			log.Printf("motor %d: %v", id, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	if *spin {
		if err := spinTest(bus, ids); err != nil {
			log.Fatalf("spin test failed: %v", err)
		}
	}
}

// scanBus pings every id a factory-configured STS3215 could plausibly hold.
func scanBus(bus *motorbus.Bus) error {
	found := 0
	for id := byte(1); id <= 30; id++ {
		ok, err := bus.Ping(id)
		if err != nil {
			return fmt.Errorf("ping id %d: %w", id, err)
		}
		if !ok {
			continue
		}
		found++
		model, err := bus.ModelNumber(id)
		if err != nil {
			fmt.Printf("id %d: responding (model read failed: %v)\n", id, err)
			continue
		}
		fmt.Printf("id %d: responding, model %d\n", id, model)
	}
	fmt.Printf("scan complete: %d motor(s) found\n", found)
	return nil
}

// inspectMotor dumps the registers that matter when a wheel misbehaves.
func inspectMotor(bus *motorbus.Bus, id byte) error {
	ok, err := bus.Ping(id)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("no response")
	}

	model, err := bus.ModelNumber(id)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	mode, err := bus.ReadByte(id, motorbus.RegOperatingMode)
	if err != nil {
		return fmt.Errorf("read operating mode: %w", err)
	}
	torque, err := bus.ReadByte(id, motorbus.RegTorqueEnable)
	if err != nil {
		return fmt.Errorf("read torque enable: %w", err)
	}
	lock, err := bus.ReadByte(id, motorbus.RegLock)
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	pos, err := bus.PresentPosition(id)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	vel, err := bus.PresentVelocity(id)
	if err != nil {
		return fmt.Errorf("read velocity: %w", err)
	}

	fmt.Printf("motor %d: model=%d mode=%s torque=%d lock=%d position=%d velocity=%d\n",
		id, model, motorbus.OperatingMode(mode), torque, lock, pos, vel)
	return nil
}

// spinTest drives the motor(s) at the requested velocity for the requested
// duration, reporting the measured velocity midway, then always stops and
// releases torque again.
func spinTest(bus *motorbus.Bus, ids []byte) error {
	if *speed < -32767 || *speed > 32767 {
		return fmt.Errorf("speed must fit in a signed 16-bit register, got %d", *speed)
	}

	for _, id := range ids {
		if err := bus.DisableTorque(id); err != nil {
			return fmt.Errorf("motor %d: disable torque: %w", id, err)
		}
		if err := bus.SetOperatingMode(id, motorbus.ModeVelocity); err != nil {
			return fmt.Errorf("motor %d: set velocity mode: %w", id, err)
		}
		if err := bus.EnableTorque(id); err != nil {
			return fmt.Errorf("motor %d: enable torque: %w", id, err)
		}
	}

	goal := make([]motorbus.SyncEntry, len(ids))
	stop := make([]motorbus.SyncEntry, len(ids))
	for i, id := range ids {
		goal[i] = motorbus.SyncEntry{ID: id, Value: int16(*speed)}
		stop[i] = motorbus.SyncEntry{ID: id}
	}

	// Stop and release no matter how the test exits.
	defer func() {
		if err := bus.SyncWrite(motorbus.RegGoalVelocity, stop); err != nil {
			log.Printf("stop: %v", err)
		}
		for _, id := range ids {
			if err := bus.DisableTorque(id); err != nil {
				log.Printf("motor %d: release torque: %v", id, err)
			}
		}
	}()

	fmt.Printf("spinning %v at %d for %s\n", ids, *speed, *duration)
	if err := bus.SyncWrite(motorbus.RegGoalVelocity, goal); err != nil {
		return fmt.Errorf("set velocity: %w", err)
	}

	time.Sleep(*duration / 2)
	for _, id := range ids {
		vel, err := bus.PresentVelocity(id)
		if err != nil {
			return fmt.Errorf("motor %d: read velocity: %w", id, err)
		}
		fmt.Printf("motor %d: measured velocity %d\n", id, vel)
	}
	time.Sleep(*duration / 2)

	fmt.Println("spin test complete")
	return nil
}
