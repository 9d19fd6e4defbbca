// Package control runs the fixed-rate watchdog loop that turns inbound body
// velocity commands into per-tick actuation decisions.
package control

import (
	"context"
	"encoding/json"
	"time"

	"github.com/banshee-data/omnibase/internal/messaging"
	"github.com/banshee-data/omnibase/internal/monitoring"
)

// Defaults for the loop timing.
const (
	DefaultTickRate     = 50 // Hz
	DefaultStaleTimeout = 250 * time.Millisecond
)

// Actuator is the slice of the motor driver the loop drives each tick.
type Actuator interface {
	SetBodyVelocity(x, y, theta float64) error
	Stop() error
}

// Recorder receives each tick's actuation decision for history keeping.
// Recorder failures never affect actuation.
type Recorder interface {
	RecordActuation(act messaging.BaseActuation, health messaging.Health) error
}

// state tracks the watchdog condition. noCommandYet and stale both actuate
// zero, but they are distinct: stale means the loop had live control and
// lost it.
type state int

const (
	stateNoCommandYet state = iota
	stateFresh
	stateStale
)

// Options configures a Loop. Zero values fall back to defaults; a nil
// Driver degrades the loop to telemetry-only simulation mode.
type Options struct {
	Driver       Actuator
	Recorder     Recorder
	TickRate     int
	StaleTimeout time.Duration
}

// Loop owns the command record and watchdog state. All fields are owned
// exclusively by the single Run task; commands arrive through the transport
// channel and are drained non-blockingly at the top of each tick.
type Loop struct {
	transport    messaging.Transport
	driver       Actuator
	recorder     Recorder
	tickRate     int
	staleTimeout time.Duration

	latest     *messaging.BaseCommand
	receivedAt time.Time
	state      state
	health     messaging.Health

	now func() time.Time
}

// New creates a loop over the given transport.
func New(transport messaging.Transport, opts Options) *Loop {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.StaleTimeout <= 0 {
		opts.StaleTimeout = DefaultStaleTimeout
	}
	return &Loop{
		transport:    transport,
		driver:       opts.Driver,
		recorder:     opts.Recorder,
		tickRate:     opts.TickRate,
		staleTimeout: opts.StaleTimeout,
		state:        stateNoCommandYet,
		health:       messaging.HealthCmdStale, // stale until the first command
		now:          time.Now,
	}
}

// Health returns the status derived on the most recent tick.
func (l *Loop) Health() messaging.Health {
	return l.health
}

// onCommand overwrites the command record; commands are never merged or
// queued across ticks.
func (l *Loop) onCommand(cmd messaging.BaseCommand) {
	monitoring.Debugf("control: received command %+v", cmd)
	l.latest = &cmd
	l.receivedAt = l.now()
}

// drainCommands consumes every buffered command without blocking, keeping
// only the most recent. Malformed payloads are logged and dropped.
func (l *Loop) drainCommands() {
	for {
		select {
		case payload, ok := <-l.transport.Commands():
			if !ok {
				return
			}
			var cmd messaging.BaseCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				monitoring.Logf("control: dropping malformed command: %v", err)
				continue
			}
			l.onCommand(cmd)
		default:
			return
		}
	}
}

// computeActuation applies the watchdog rule and recomputes health.
func (l *Loop) computeActuation() messaging.BaseActuation {
	if l.latest == nil {
		l.state = stateNoCommandYet
		l.health = messaging.HealthCmdStale
		return messaging.BaseActuation{}
	}

	age := l.now().Sub(l.receivedAt)
	if age > l.staleTimeout {
		// Log only on the edge into stale, not every tick after.
		if l.state == stateFresh {
			monitoring.Logf("control: command stale (%s old), stopping robot", age)
		}
		l.state = stateStale
		l.health = messaging.HealthCmdStale
		return messaging.BaseActuation{}
	}

	if l.state != stateFresh {
		monitoring.Logf("control: command fresh, resuming control")
	}
	l.state = stateFresh
	l.health = messaging.HealthOk
	return messaging.ActuationFrom(*l.latest)
}

// tick runs one control cycle: drain, derive, actuate, publish, record.
// No failure here is fatal; the next tick retries naturally.
func (l *Loop) tick() {
	l.drainCommands()
	act := l.computeActuation()

	if l.driver != nil {
		err := l.driver.SetBodyVelocity(float64(act.XVel), float64(act.YVel), float64(act.ThetaVel))
		if err != nil {
			monitoring.Logf("control: motor dispatch failed: %v", err)
		}
	}

	if payload, err := json.Marshal(act); err == nil {
		if err := l.transport.PublishActuation(payload); err != nil {
			monitoring.Logf("control: failed to publish actuation: %v", err)
		}
	}
	if payload, err := json.Marshal(l.health); err == nil {
		if err := l.transport.PublishHealth(payload); err != nil {
			monitoring.Logf("control: failed to publish health: %v", err)
		}
	}

	if l.recorder != nil {
		if err := l.recorder.RecordActuation(act, l.health); err != nil {
			monitoring.Logf("control: failed to record actuation: %v", err)
		}
	}
}

// Run drives the loop at the configured tick rate until the context is
// cancelled. Cancellation is observed at the tick boundary, never
// preempting an in-flight bus exchange. On exit one final best-effort motor
// stop is issued; its error is logged, not returned.
func (l *Loop) Run(ctx context.Context) error {
	period := time.Second / time.Duration(l.tickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	if l.driver == nil {
		monitoring.Logf("control: no motor driver attached, running in simulation mode")
	} else {
		defer func() {
			if err := l.driver.Stop(); err != nil {
				monitoring.Logf("control: final motor stop failed: %v", err)
			}
		}()
	}

	monitoring.Logf("control: runtime started: %dHz loop, %s watchdog timeout",
		l.tickRate, l.staleTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick()
		}
	}
}
