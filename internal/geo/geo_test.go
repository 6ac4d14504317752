package geo

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"sprint threshold 6.94 m/s to kmph", 6.94, KMPH, 24.984}, // ~25 km/h
		{"0 m/s to kmph", 0.0, KMPH, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.units)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.units, result, tt.expected)
			}
		})
	}
}

func TestDist(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
	}{
		{"same point", Point{X: 5, Y: 5}, Point{X: 5, Y: 5}, 0},
		{"unit x", Point{X: 0, Y: 0}, Point{X: 1, Y: 0}, 1},
		{"3-4-5 triangle", Point{X: 0, Y: 0}, Point{X: 3, Y: 4}, 5},
		{"full diagonal", Point{X: 0, Y: 0}, Point{X: PitchLength, Y: PitchWidth}, 125.0956},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dist(tt.a, tt.b); math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("Dist(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestClosingSpeed(t *testing.T) {
	tests := []struct {
		name               string
		moverPos, tgtPos   Point
		moverVel, tgtVel   Vec
		expected           float64
	}{
		{
			name:     "head-on approach",
			moverPos: Point{X: 0, Y: 0}, tgtPos: Point{X: 10, Y: 0},
			moverVel: Vec{X: 4, Y: 0}, tgtVel: Vec{},
			expected: 4,
		},
		{
			name:     "moving away",
			moverPos: Point{X: 0, Y: 0}, tgtPos: Point{X: 10, Y: 0},
			moverVel: Vec{X: -4, Y: 0}, tgtVel: Vec{},
			expected: -4,
		},
		{
			name:     "perpendicular movement closes nothing",
			moverPos: Point{X: 0, Y: 0}, tgtPos: Point{X: 10, Y: 0},
			moverVel: Vec{X: 0, Y: 4}, tgtVel: Vec{},
			expected: 0,
		},
		{
			name:     "both moving same direction",
			moverPos: Point{X: 0, Y: 0}, tgtPos: Point{X: 10, Y: 0},
			moverVel: Vec{X: 6, Y: 0}, tgtVel: Vec{X: 4, Y: 0},
			expected: 2,
		},
		{
			name:     "coincident positions",
			moverPos: Point{X: 3, Y: 3}, tgtPos: Point{X: 3, Y: 3},
			moverVel: Vec{X: 5, Y: 0}, tgtVel: Vec{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosingSpeed(tt.moverPos, tt.tgtPos, tt.moverVel, tt.tgtVel)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ClosingSpeed = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestThirdOf(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected Zone
	}{
		{"own box", 5, ZoneDefensive},
		{"just inside defensive third", 34.9, ZoneDefensive},
		{"center circle", 52.5, ZoneMiddle},
		{"just inside attacking third", 70.1, ZoneAttacking},
		{"opposition box", 100, ZoneAttacking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ThirdOf(tt.x, PitchLength); got != tt.expected {
				t.Errorf("ThirdOf(%f) = %s, want %s", tt.x, got, tt.expected)
			}
		})
	}
}
