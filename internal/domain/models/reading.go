package models

// Reading is one validated accelerometer sample.
type Reading struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp float64 `json:"timestamp"`
}

// RawReading is the wire shape of an inbound sample before validation.
// Pointers distinguish a missing field from an explicit zero.
type RawReading struct {
	X         *float64 `json:"x" validate:"required"`
	Y         *float64 `json:"y" validate:"required"`
	Z         *float64 `json:"z" validate:"required"`
	Timestamp *float64 `json:"timestamp" validate:"required"`
}

// Reading converts a validated raw sample. Callers must validate first.
func (r *RawReading) Reading() Reading {
	return Reading{X: *r.X, Y: *r.Y, Z: *r.Z, Timestamp: *r.Timestamp}
}
