// Package grid holds the tile/pixel coordinate math shared by every layer of
// the engine. Tiles are integer grid cells; points are pixel positions in
// world space. A tile's pixel position is its center.
package grid

import (
	"fmt"
	"math"
)

// Tile is one cell of the map grid.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point is a world-space pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vector is a unit grid step used for manual movement. Each component is -1, 0 or 1.
type Vector struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (t Tile) String() string { return fmt.Sprintf("(%d,%d)", t.X, t.Y) }

// Add offsets the tile by (dx, dy).
func (t Tile) Add(dx, dy int) Tile { return Tile{X: t.X + dx, Y: t.Y + dy} }

// In reports whether the tile lies inside a cols×rows grid.
func (t Tile) In(cols, rows int) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < cols && t.Y < rows
}

// IsZero reports whether the vector has no direction.
func (v Vector) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Horizontal reports whether the vector moves along the x axis only.
func (v Vector) Horizontal() bool { return v.X != 0 && v.Y == 0 }

// Vertical reports whether the vector moves along the y axis only.
func (v Vector) Vertical() bool { return v.Y != 0 && v.X == 0 }

// Dist returns the euclidean distance between two points.
func (p Point) Dist(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// TileFromPixel converts a pixel position to the tile containing it.
func TileFromPixel(p Point, tileSize int) Tile {
	s := float64(tileSize)
	return Tile{X: int(math.Floor(p.X / s)), Y: int(math.Floor(p.Y / s))}
}

// PixelFromTile returns the pixel center of a tile, floored to whole pixels.
func PixelFromTile(t Tile, tileSize int) Point {
	s := float64(tileSize)
	return Point{
		X: math.Floor(float64(t.X)*s + s/2),
		Y: math.Floor(float64(t.Y)*s + s/2),
	}
}

// TilesEqual compares two optional tiles. A nil tile is the absent-tile
// sentinel: two absent tiles are equal, an absent and a present tile are not.
func TilesEqual(a, b *Tile) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampF limits v to [lo, hi].
func ClampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
