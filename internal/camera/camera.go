// Package camera scrolls the view over the map, optionally following an actor.
package camera

import (
	"math"

	"github.com/Garsondee/tilestage/internal/grid"
)

// snapDistance ends the lerp once the camera is this close to its target.
const snapDistance = 1.0

// Target is anything with a world position the camera can follow.
type Target interface {
	Position() grid.Point
}

// Camera tracks the world-space top-left corner of the view. Travel is
// bounded by the map plus its padding; a map smaller than the view is
// centered instead.
type Camera struct {
	lerp float64

	viewW, viewH   float64
	worldW, worldH float64
	pad            float64

	pos    grid.Point
	target grid.Point
	follow Target
}

// New creates a camera. lerpAlpha is the fraction of the remaining distance
// covered per tick; values outside (0, 1] mean an instant snap.
func New(lerpAlpha float64) *Camera {
	if lerpAlpha <= 0 || lerpAlpha > 1 {
		lerpAlpha = 1
	}
	return &Camera{lerp: lerpAlpha}
}

// SetActorToFollow follows t from the next Update. The camera only looks the
// target up; nil stops following.
func (c *Camera) SetActorToFollow(t Target) { c.follow = t }

// Following returns the followed target, if any.
func (c *Camera) Following() Target { return c.follow }

// SetBounds installs the map's pixel size and padding and jumps to the new
// target.
func (c *Camera) SetBounds(worldW, worldH, padding int) {
	c.worldW, c.worldH, c.pad = float64(worldW), float64(worldH), float64(padding)
	c.Snap()
}

// Resize changes the viewport and jumps to the new target without lerping.
func (c *Camera) Resize(viewW, viewH int) {
	if float64(viewW) == c.viewW && float64(viewH) == c.viewH {
		return
	}
	c.viewW, c.viewH = float64(viewW), float64(viewH)
	c.Snap()
}

// CenterOn aims the camera at p. A followed target overrides it on the next
// Update.
func (c *Camera) CenterOn(p grid.Point) {
	c.target = c.clamp(p)
}

// Snap recomputes the target and moves there immediately.
func (c *Camera) Snap() {
	c.retarget()
	c.pos = c.target
}

// Update moves the camera toward its target.
func (c *Camera) Update() {
	c.retarget()
	c.pos.X = approach(c.pos.X, c.target.X, c.lerp)
	c.pos.Y = approach(c.pos.Y, c.target.Y, c.lerp)
}

// Position returns the world-space top-left corner of the view.
func (c *Camera) Position() grid.Point { return c.pos }

// Offset is the translation that maps world space onto the screen.
func (c *Camera) Offset() (x, y float64) { return -c.pos.X, -c.pos.Y }

// ScreenToWorld converts a screen pixel into world space.
func (c *Camera) ScreenToWorld(x, y int) grid.Point {
	return grid.Point{X: float64(x) + c.pos.X, Y: float64(y) + c.pos.Y}
}

func (c *Camera) retarget() {
	if c.follow != nil {
		c.target = c.clamp(c.follow.Position())
	} else {
		c.target = grid.Point{X: c.clampAxis(c.target.X, c.viewW, c.worldW), Y: c.clampAxis(c.target.Y, c.viewH, c.worldH)}
	}
}

// clamp converts a world point to be centered on into a bounded top-left.
func (c *Camera) clamp(center grid.Point) grid.Point {
	return grid.Point{
		X: c.clampAxis(center.X-c.viewW/2, c.viewW, c.worldW),
		Y: c.clampAxis(center.Y-c.viewH/2, c.viewH, c.worldH),
	}
}

func (c *Camera) clampAxis(v, view, world float64) float64 {
	lo, hi := -c.pad, world+c.pad-view
	if hi < lo {
		return (world - view) / 2
	}
	return grid.ClampF(v, lo, hi)
}

func approach(cur, target, alpha float64) float64 {
	next := cur + (target-cur)*alpha
	if math.Abs(target-next) < snapDistance {
		return target
	}
	return next
}
