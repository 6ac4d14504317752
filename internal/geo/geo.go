// Package geo provides pitch geometry, 2D vector helpers and speed unit
// conversions shared by all analysis stages. Coordinates are pitch-metric:
// x along the pitch length (0..105m, home defends x=0), y along the width
// (0..68m).
package geo

import "math"

// Standard pitch dimensions in meters (FIFA recommended).
const (
	PitchLength = 105.0
	PitchWidth  = 68.0
)

// Unit constants
const (
	MPS  = "mps"
	KMPH = "kmph"
	KPH  = "kph"
)

// Zone names for pitch thirds along the length axis.
type Zone string

const (
	ZoneDefensive Zone = "defensive"
	ZoneMiddle    Zone = "middle"
	ZoneAttacking Zone = "attacking"
)

// Point is a 2D position in pitch coordinates (meters).
type Point struct {
	X float64
	Y float64
}

// Vec is a 2D velocity or displacement (meters or m/s).
type Vec struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Norm returns the magnitude of a vector.
func (v Vec) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Sub returns a - b as a displacement vector.
func Sub(a, b Point) Vec {
	return Vec{X: a.X - b.X, Y: a.Y - b.Y}
}

// Dot returns the dot product of two vectors.
func Dot(a, b Vec) float64 {
	return a.X*b.X + a.Y*b.Y
}

// ClosingSpeed returns the rate at which mover approaches target, in m/s.
// Positive means the distance between them is shrinking. Zero is returned
// for coincident positions, where the approach direction is undefined.
func ClosingSpeed(moverPos, targetPos Point, moverVel, targetVel Vec) float64 {
	sep := Sub(targetPos, moverPos)
	d := sep.Norm()
	if d == 0 {
		return 0
	}
	rel := Vec{X: moverVel.X - targetVel.X, Y: moverVel.Y - targetVel.Y}
	return Dot(rel, sep) / d
}

// ThirdOf returns the pitch third containing x for a team attacking toward
// positive x. For a team attacking toward x=0, pass pitchLength-x.
func ThirdOf(x, pitchLength float64) Zone {
	third := pitchLength / 3.0
	switch {
	case x < third:
		return ZoneDefensive
	case x < 2*third:
		return ZoneMiddle
	default:
		return ZoneAttacking
	}
}

// ConvertSpeed converts a speed from meters per second to the target units.
// All internal math is in m/s; conversion happens only at report boundaries.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case KMPH, KPH:
		return speedMPS * 3.6 // m/s to km/h
	case MPS:
		return speedMPS
	default:
		return speedMPS // default to m/s if unknown unit
	}
}

// MetersToKm converts meters to kilometers.
func MetersToKm(m float64) float64 {
	return m / 1000.0
}
