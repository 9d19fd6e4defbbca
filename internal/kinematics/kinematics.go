// Package kinematics converts body-frame velocities into raw wheel commands
// for a three-wheel omnidirectional base.
package kinematics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Geometry defaults for the base.
const (
	// DefaultWheelRadius is the omniwheel radius in meters.
	DefaultWheelRadius = 0.05
	// DefaultBaseRadius is the distance from the base center to each wheel
	// in meters.
	DefaultBaseRadius = 0.125
	// DefaultMaxRaw is the hardware-safe ceiling for a raw velocity command.
	DefaultMaxRaw = 3000
)

// Motor resolution: 4096 steps per revolution.
const (
	stepsPerRevolution = 4096.0
	stepsPerDegree     = stepsPerRevolution / 360.0
)

// Wheel mounting angles in degrees, each offset by -90°: left at 240°, back
// at 0°, right at 120°.
var wheelAngles = [3]float64{240.0 - 90.0, 0.0 - 90.0, 120.0 - 90.0}

// WheelVelocities holds the raw velocity commands for the three wheels.
type WheelVelocities struct {
	Left  int16
	Back  int16
	Right int16
}

// Zero returns an all-stop command.
func Zero() WheelVelocities {
	return WheelVelocities{}
}

// AsArray returns the velocities as [left, back, right].
func (w WheelVelocities) AsArray() [3]int16 {
	return [3]int16{w.Left, w.Back, w.Right}
}

// Params describes the base geometry and safety ceiling used by the
// transform.
type Params struct {
	WheelRadius float64
	BaseRadius  float64
	MaxRaw      int16
}

// DefaultParams returns the stock base geometry.
func DefaultParams() Params {
	return Params{
		WheelRadius: DefaultWheelRadius,
		BaseRadius:  DefaultBaseRadius,
		MaxRaw:      DefaultMaxRaw,
	}
}

// wheelMatrix maps the body velocity vector [x, y, theta_rad] to per-wheel
// linear speeds. Row i is [cos(a_i), sin(a_i), baseRadius].
func wheelMatrix(baseRadius float64) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i, angleDeg := range wheelAngles {
		angleRad := angleDeg * (math.Pi / 180.0)
		m.SetRow(i, []float64{math.Cos(angleRad), math.Sin(angleRad), baseRadius})
	}
	return m
}

// degpsToRaw converts an angular speed in degrees per second to raw motor
// steps, clamped to the signed 16-bit range as a last-resort bound against
// parameter misconfiguration.
func degpsToRaw(degps float64) int16 {
	steps := math.Round(degps * stepsPerDegree)
	if steps > math.MaxInt16 {
		return math.MaxInt16
	}
	if steps < math.MinInt16 {
		return math.MinInt16
	}
	return int16(steps)
}

// BodyToWheelRaw converts body-frame velocities to raw wheel commands using
// the default base geometry.
//
// x is forward velocity in m/s (positive = forward), y is lateral velocity
// in m/s (positive = left), theta is rotational velocity in deg/s (positive
// = counter-clockwise).
func BodyToWheelRaw(x, y, theta float64) WheelVelocities {
	return DefaultParams().BodyToWheelRaw(x, y, theta)
}

// BodyToWheelRaw converts body-frame velocities to raw wheel commands.
//
// When any wheel would exceed MaxRaw, all three wheels are scaled down by
// the same ratio so the commanded trajectory keeps its shape instead of
// distorting under independent per-wheel clamping.
func (p Params) BodyToWheelRaw(x, y, theta float64) WheelVelocities {
	thetaRad := theta * (math.Pi / 180.0)

	body := mat.NewVecDense(3, []float64{x, y, thetaRad})
	var linear mat.VecDense
	linear.MulVec(wheelMatrix(p.BaseRadius), body)

	// Linear wheel speed (m/s) -> wheel angular speed (deg/s).
	var degps [3]float64
	for i := range degps {
		radps := linear.AtVec(i) / p.WheelRadius
		degps[i] = radps * (180.0 / math.Pi)
	}

	// Uniform down-scaling against the raw ceiling.
	var maxSteps float64
	for _, d := range degps {
		if s := math.Abs(d) * stepsPerDegree; s > maxSteps {
			maxSteps = s
		}
	}
	if maxSteps > float64(p.MaxRaw) {
		scale := float64(p.MaxRaw) / maxSteps
		for i := range degps {
			degps[i] *= scale
		}
	}

	return WheelVelocities{
		Left:  degpsToRaw(degps[0]),
		Back:  degpsToRaw(degps[1]),
		Right: degpsToRaw(degps[2]),
	}
}
