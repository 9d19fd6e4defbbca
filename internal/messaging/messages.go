// Package messaging defines the wire contracts between the base runtime and
// its external collaborators, plus the transports that carry them.
package messaging

// Topics used on the message bus.
const (
	TopicCommand   = "omnibase/cmd/base"     // teleop/scripts -> runtime
	TopicActuation = "omnibase/rt/base"      // runtime -> hardware observers
	TopicHealth    = "omnibase/state/health" // runtime health status
)

// BaseCommand is the body-frame velocity request received from the bus.
// Units: m/s, m/s, deg/s.
type BaseCommand struct {
	XVel     float32 `json:"x_vel"`
	YVel     float32 `json:"y_vel"`
	ThetaVel float32 `json:"theta_vel"`
}

// BaseActuation mirrors the command shape and is what the runtime actually
// applied this tick: the last fresh command verbatim, or zero when stale.
type BaseActuation struct {
	XVel     float32 `json:"x_vel"`
	YVel     float32 `json:"y_vel"`
	ThetaVel float32 `json:"theta_vel"`
}

// ActuationFrom copies a command's velocities into an actuation record.
func ActuationFrom(cmd BaseCommand) BaseActuation {
	return BaseActuation{XVel: cmd.XVel, YVel: cmd.YVel, ThetaVel: cmd.ThetaVel}
}

// Health is the runtime's two-valued status, serialized by name.
type Health string

const (
	HealthOk       Health = "ok"
	HealthCmdStale Health = "cmd_stale"
)
