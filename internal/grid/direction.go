package grid

import (
	"encoding/json"
	"fmt"
)

// Direction is the way an actor faces.
type Direction int

const (
	DirBottom Direction = iota // default facing
	DirLeft
	DirRight
	DirTop
)

func (d Direction) String() string {
	switch d {
	case DirBottom:
		return "bottom"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirTop:
		return "top"
	default:
		return "unknown"
	}
}

// ParseDirection maps a config name to a Direction. The empty string is bottom.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "bottom", "down":
		return DirBottom, nil
	case "left":
		return DirLeft, nil
	case "right":
		return DirRight, nil
	case "top", "up":
		return DirTop, nil
	}
	return DirBottom, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Vector returns the unit step for the direction.
func (d Direction) Vector() Vector {
	switch d {
	case DirLeft:
		return Vector{X: -1}
	case DirRight:
		return Vector{X: 1}
	case DirTop:
		return Vector{Y: -1}
	default:
		return Vector{Y: 1}
	}
}

// Facing picks the direction for a residual movement (dx, dy). Horizontal
// movement wins over vertical when both axes still have distance left. A zero
// residual keeps the current facing.
func Facing(dx, dy float64, current Direction) Direction {
	switch {
	case dx < 0:
		return DirLeft
	case dx > 0:
		return DirRight
	case dy < 0:
		return DirTop
	case dy > 0:
		return DirBottom
	}
	return current
}
