package stsbus

import "math"

// STS3215 encoder geometry.
const (
	StepsPerRev = 4096
	CenterStep  = 2048
	maxStep     = StepsPerRev - 1
)

const radPerStep = 2 * math.Pi / StepsPerRev

// Calibration maps raw servo steps to joint radians for one servo.
type Calibration struct {
	HomingOffset int  `yaml:"homing_offset"`
	Inverted     bool `yaml:"inverted"`
}

// Radians converts a raw servo position to radians about the calibrated zero.
func (c Calibration) Radians(raw int) float64 {
	rad := float64(raw-CenterStep-c.HomingOffset) * radPerStep
	if c.Inverted {
		rad = -rad
	}
	return rad
}

// Raw converts radians to a raw servo position, clamped to the encoder range.
func (c Calibration) Raw(rad float64) int {
	if c.Inverted {
		rad = -rad
	}
	raw := int(math.Round(rad/radPerStep)) + CenterStep + c.HomingOffset
	if raw < 0 {
		return 0
	}
	if raw > maxStep {
		return maxStep
	}
	return raw
}
