// Command omnibase runs the wheeled-base runtime: it subscribes to body
// velocity commands on the message bus, drives the three-wheel omni base at
// a fixed tick rate with watchdog protection, and publishes actuation and
// health telemetry.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/omnibase/internal/config"
	"github.com/banshee-data/omnibase/internal/control"
	"github.com/banshee-data/omnibase/internal/drive"
	"github.com/banshee-data/omnibase/internal/drivedb"
	"github.com/banshee-data/omnibase/internal/kinematics"
	"github.com/banshee-data/omnibase/internal/messaging"
	"github.com/banshee-data/omnibase/internal/monitoring"
	"github.com/banshee-data/omnibase/internal/motorbus"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file")
	devMode    = flag.Bool("dev", false, "Run in simulation mode without motor hardware")
	serialPort = flag.String("port", "", "Serial port path (overrides config)")
	amqpURL    = flag.String("amqp", "", "AMQP broker URL (overrides config)")
	noBus      = flag.Bool("no-bus", false, "Run without a message broker; no commands arrive, telemetry is discarded")
	dbPath     = flag.String("db", "", "Actuation history database path (overrides config)")
	verbose    = flag.Bool("verbose", false, "Enable protocol-level debug logging")
)

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *serialPort != "" {
		cfg.SerialPort = serialPort
	}
	if *amqpURL != "" {
		cfg.AMQPURL = amqpURL
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Absent -no-bus, the message bus is the one collaborator the runtime
	// cannot operate without. -no-bus substitutes an in-process transport,
	// leaving the loop idling with the watchdog engaged: useful for bench
	// runs against real hardware with no broker in reach.
	var transport messaging.Transport
	if *noBus {
		log.Println("running without a message broker")
		transport = messaging.NewChannelTransport(64)
	} else {
		var err error
		transport, err = messaging.DialAMQP(cfg.GetAMQPURL())
		if err != nil {
			log.Fatalf("failed to connect to message bus: %v", err)
		}
	}
	defer transport.Close()

	// Actuation history is optional telemetry; failure to open it must not
	// keep the base from running.
	var recorder control.Recorder
	if path := cfg.GetDBPath(); path != "" {
		db, err := drivedb.Open(path)
		if err != nil {
			log.Printf("failed to open actuation history db, continuing without: %v", err)
		} else {
			defer db.Close()
			recorder = db
		}
	}

	loopOpts := control.Options{
		Recorder:     recorder,
		TickRate:     cfg.GetTickRateHz(),
		StaleTimeout: cfg.GetStaleTimeout(),
	}
	if driver := openDriver(cfg); driver != nil {
		defer driver.Close()
		loopOpts.Driver = driver
	}
	loop := control.New(transport, loopOpts)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("runtime error: %v", err)
	}
	log.Println("shutdown complete")
}

// openDriver brings up the motor hardware. Any bring-up failure produces a
// diagnostic and leaves the runtime in simulation mode rather than crashing:
// the loop still computes and publishes actuation, it just has nothing to
// apply it to.
func openDriver(cfg *config.Config) *drive.Driver {
	if *devMode || !cfg.GetHardwareEnabled() {
		log.Println("motor hardware disabled, running in simulation mode")
		return nil
	}

	opts := motorbus.PortOptions{
		BaudRate: cfg.GetBaudRate(),
		Timeout:  cfg.GetSerialTimeout(),
	}
	driver, err := drive.Open(cfg.GetSerialPort(), opts, cfg.GetMotorIDs(), kinematics.Params{
		WheelRadius: cfg.GetWheelRadiusM(),
		BaseRadius:  cfg.GetBaseRadiusM(),
		MaxRaw:      cfg.GetMaxRaw(),
	})
	if err != nil {
		log.Printf("failed to open motor bus, continuing in simulation mode: %v", err)
		return nil
	}
	if err := driver.Initialize(); err != nil {
		log.Printf("motor bring-up failed, continuing in simulation mode: %v", err)
		driver.Close()
		return nil
	}
	return driver
}
