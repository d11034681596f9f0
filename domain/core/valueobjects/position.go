package valueobjects

import (
	"encoding/json"
	"errors"
	"math"
)

// Position represents a node's placement on the canvas
// Coordinates must be finite; NaN and infinite values are rejected
type Position struct {
	x float64
	y float64
}

// NewPosition creates a validated canvas position
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, errors.New("position coordinates must be finite numbers")
	}
	return Position{x: x, y: y}, nil
}

// X returns the horizontal coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the vertical coordinate
func (p Position) Y() float64 {
	return p.y
}

// Equals checks positional equality within a small epsilon
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.x-other.x) < epsilon &&
		math.Abs(p.y-other.y) < epsilon
}

// MarshalJSON implements json.Marshaler
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}{X: p.x, Y: p.y})
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pos, err := NewPosition(raw.X, raw.Y)
	if err != nil {
		return err
	}
	*p = pos
	return nil
}

// isValidCoordinate rejects NaN and infinite values
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
