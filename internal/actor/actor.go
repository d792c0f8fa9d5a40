// Package actor implements positioned, moving entities and the behaviour
// modules attached to them.
package actor

import (
	"errors"
	"log/slog"
	"math"

	"github.com/oklog/ulid/v2"

	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

var (
	ErrNoSpeed       = errors.New("actor has no speed")
	ErrManualControl = errors.New("actor is under manual vector control")
)

// facingDeadzone ignores sub-pixel residuals when picking a facing.
const facingDeadzone = 0.5

// State is the movement state of an actor.
type State int

const (
	StateIdle          State = iota // standing on a tile center
	StateFollowingPath              // walking a pathfinder route
	StateManualVector               // driven by a direction vector
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFollowingPath:
		return "following_path"
	case StateManualVector:
		return "manual_vector"
	default:
		return "unknown"
	}
}

// World is what an actor needs from the map it stands on.
type World interface {
	TileSize() int
	FindPath(from, to grid.Tile, done func([]grid.Tile))
	IsBlocked(t grid.Tile) bool
	// ActorMoved is called after every tile change.
	ActorMoved(a *Actor, from grid.Tile)
	// ActorReached is called when a MoveTo target is reached.
	ActorReached(a *Actor)
}

// Actor is a positioned entity composed of modules. Tile and pixel position
// are kept consistent: every position change recomputes the tile.
type Actor struct {
	id       string
	tile     grid.Tile
	pos      grid.Point
	dir      grid.Direction
	speed    float64 // pixels per second
	blocking bool
	zIndex   int
	tooltip  string
	modules  []Module

	state    State
	moving   bool // advanced during the last Update
	path     []grid.Tile
	waypoint grid.Point
	onReach  func()
	moveSeq  uint64 // generation of the latest MoveTo request
	seeking  bool   // the latest request's search has not answered yet

	vector     grid.Vector
	stopping   bool
	stopAt     grid.Point
	nextVector grid.Vector

	world World
	log   *slog.Logger
}

// New creates an actor from its config, standing at the center of cfg.Tile.
// An actor configured without an id gets a ULID.
func New(cfg world.ActorConfig, w World, log *slog.Logger) *Actor {
	if cfg.ID == "" {
		cfg.ID = ulid.Make().String()
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Actor{
		id:       cfg.ID,
		tile:     cfg.Tile,
		pos:      grid.PixelFromTile(cfg.Tile, w.TileSize()),
		dir:      cfg.Direction,
		speed:    cfg.Speed,
		blocking: cfg.Blocking,
		zIndex:   cfg.ZIndex,
		tooltip:  cfg.Tooltip,
		world:    w,
		log:      log.With("actor", cfg.ID),
	}
	return a
}

func (a *Actor) ID() string                { return a.id }
func (a *Actor) Tile() grid.Tile           { return a.tile }
func (a *Actor) Position() grid.Point      { return a.pos }
func (a *Actor) Direction() grid.Direction { return a.dir }
func (a *Actor) Speed() float64            { return a.speed }
func (a *Actor) IsBlocking() bool          { return a.blocking }
func (a *Actor) ZIndex() int               { return a.zIndex }
func (a *Actor) Tooltip() string           { return a.tooltip }
func (a *Actor) State() State              { return a.state }
func (a *Actor) Modules() []Module         { return a.modules }

// Moving reports whether the actor advanced during the last Update.
func (a *Actor) Moving() bool { return a.moving }

// Path returns the waypoints still queued after the current one.
func (a *Actor) Path() []grid.Tile { return append([]grid.Tile(nil), a.path...) }

// SetSpeed changes the movement speed in pixels per second.
func (a *Actor) SetSpeed(s float64) { a.speed = s }

// Face turns the actor.
func (a *Actor) Face(d grid.Direction) { a.dir = d }

// AddModule attaches a module. The actor owns it for its whole lifetime.
func (a *Actor) AddModule(m Module) { a.modules = append(a.modules, m) }

// Module returns the first module of the given kind.
func (a *Actor) Module(k Kind) (Module, bool) {
	for _, m := range a.modules {
		if m.Kind() == k {
			return m, true
		}
	}
	return nil, false
}

// Place puts the actor on the center of t, abandoning any movement.
func (a *Actor) Place(t grid.Tile) {
	a.cancel()
	a.state = StateIdle
	a.vector = grid.Vector{}
	a.stopping = false
	a.nextVector = grid.Vector{}
	a.setPos(grid.PixelFromTile(t, a.world.TileSize()))
}

// MoveTo walks the actor to target along a pathfinder route. onReach runs
// once the target is reached: synchronously when the actor already stands
// there, never when the target is unreachable. A newer MoveTo supersedes an
// older one, including one whose path is still being searched. MoveTo
// refuses actors with no speed and actors under manual vector control.
func (a *Actor) MoveTo(target grid.Tile, onReach func()) bool {
	return a.MoveToThen(target, onReach, nil)
}

// MoveToThen is MoveTo with onFail run when no path to target exists.
// A superseded request calls neither callback.
func (a *Actor) MoveToThen(target grid.Tile, onReach, onFail func()) bool {
	if a.speed <= 0 {
		a.log.Info("move refused", "target", target, "err", ErrNoSpeed)
		return false
	}
	if a.state == StateManualVector {
		a.log.Info("move refused", "target", target, "err", ErrManualControl)
		return false
	}

	a.moveSeq++
	seq := a.moveSeq
	a.onReach = nil
	a.seeking = false

	if a.tile == target {
		if a.state == StateIdle {
			a.world.ActorReached(a)
			if onReach != nil {
				onReach()
			}
			return true
		}
		// Mid-step on the target tile: finish on its center.
		a.path = nil
		a.waypoint = grid.PixelFromTile(target, a.world.TileSize())
		a.onReach = onReach
		return true
	}

	a.seeking = true
	a.world.FindPath(a.tile, target, func(path []grid.Tile) {
		if seq != a.moveSeq {
			return
		}
		a.seeking = false
		if path == nil {
			a.log.Info("no path", "from", a.tile, "target", target)
			a.halt()
			if onFail != nil {
				onFail()
			}
			return
		}
		a.onReach = onReach
		if len(path) == 0 {
			a.finish()
			return
		}
		a.path = path
		a.state = StateFollowingPath
		a.advance()
	})
	return true
}

// MoveOnVector drives the actor continuously in direction v. A zero vector
// stops it; switching axis stops first and restarts once the actor is back
// on a tile center. Reversing along the same axis is immediate. Following a
// path is abandoned.
func (a *Actor) MoveOnVector(v grid.Vector) bool {
	if a.speed <= 0 {
		a.log.Info("vector move refused", "err", ErrNoSpeed)
		return false
	}
	v = normalize(v)

	switch a.state {
	case StateIdle:
		if v.IsZero() {
			return true
		}
		a.cancel() // a path search may still be in flight
		a.startVector(v)
	case StateFollowingPath:
		// Finish the step in progress, then take the vector.
		a.cancel()
		a.state = StateManualVector
		a.vector = grid.Vector{}
		a.stopping = true
		a.stopAt = a.waypoint
		a.nextVector = v
	case StateManualVector:
		switch {
		case a.stopping:
			if !v.IsZero() && v == a.vector {
				a.stopping = false
				a.nextVector = grid.Vector{}
			} else {
				a.nextVector = v
			}
		case v == a.vector:
		case !v.IsZero() && v.X == -a.vector.X && v.Y == -a.vector.Y:
			a.vector = v
			a.dir = grid.Facing(float64(v.X), float64(v.Y), a.dir)
		default:
			a.stopping = true
			a.stopAt = a.stopTarget()
			a.nextVector = v
		}
	}
	return true
}

// Update advances movement, then every module.
func (a *Actor) Update(dt float64) {
	a.moving = false
	switch a.state {
	case StateFollowingPath:
		a.stepPath(dt)
	case StateManualVector:
		a.stepVector(dt)
	}
	for _, m := range a.modules {
		m.Update(dt)
	}
}

// --- path following ---

func (a *Actor) advance() {
	next := a.path[0]
	a.path = a.path[1:]
	a.waypoint = grid.PixelFromTile(next, a.world.TileSize())
}

func (a *Actor) stepPath(dt float64) {
	step := a.speed * dt
	d := a.pos.Dist(a.waypoint)
	if d <= step {
		a.setPos(a.waypoint)
		a.moving = d > 0
		if len(a.path) == 0 {
			if a.seeking {
				// The old route ran out before the new one was found.
				a.state = StateIdle
				return
			}
			a.finish()
			return
		}
		a.advance()
		return
	}
	dx, dy := a.waypoint.X-a.pos.X, a.waypoint.Y-a.pos.Y
	a.turnToward(dx, dy)
	a.setPos(grid.Point{X: a.pos.X + dx/d*step, Y: a.pos.Y + dy/d*step})
	a.moving = true
}

func (a *Actor) finish() {
	a.state = StateIdle
	a.path = nil
	cb := a.onReach
	a.onReach = nil
	a.world.ActorReached(a)
	if cb != nil {
		cb()
	}
}

// cancel invalidates any pending path request and callback.
func (a *Actor) cancel() {
	a.moveSeq++
	a.seeking = false
	a.path = nil
	a.onReach = nil
}

// halt drops the current route. An actor caught between tiles settles on
// the center of the tile it stands on, without reporting arrival.
func (a *Actor) halt() {
	a.path = nil
	if a.state != StateFollowingPath {
		return
	}
	a.state = StateIdle
	a.setPos(grid.PixelFromTile(a.tile, a.world.TileSize()))
}

// --- manual vector movement ---

func (a *Actor) startVector(v grid.Vector) {
	a.state = StateManualVector
	a.vector = v
	a.stopping = false
	a.nextVector = grid.Vector{}
	a.dir = grid.Facing(float64(v.X), float64(v.Y), a.dir)
}

// stopTarget is the tile center the actor settles on when stopping: the
// current tile's center if it is still ahead, else the next one along the
// vector when that tile is open.
func (a *Actor) stopTarget() grid.Point {
	size := a.world.TileSize()
	c := grid.PixelFromTile(a.tile, size)
	ahead := (c.X-a.pos.X)*float64(a.vector.X) + (c.Y-a.pos.Y)*float64(a.vector.Y)
	if ahead >= 0 {
		return c
	}
	next := a.tile.Add(a.vector.X, a.vector.Y)
	if a.world.IsBlocked(next) {
		return c
	}
	return grid.PixelFromTile(next, size)
}

func (a *Actor) stepVector(dt float64) {
	step := a.speed * dt
	if a.stopping {
		d := a.pos.Dist(a.stopAt)
		if d > step {
			dx, dy := a.stopAt.X-a.pos.X, a.stopAt.Y-a.pos.Y
			a.setPos(grid.Point{X: a.pos.X + dx/d*step, Y: a.pos.Y + dy/d*step})
			a.moving = true
			return
		}
		a.setPos(a.stopAt)
		a.moving = d > 0
		next := a.nextVector
		a.stopping = false
		a.nextVector = grid.Vector{}
		a.vector = grid.Vector{}
		if next.IsZero() {
			a.state = StateIdle
			return
		}
		a.startVector(next)
		return
	}

	v := a.vector
	if a.world.IsBlocked(a.tile.Add(v.X, v.Y)) {
		// Only up to the current tile's center.
		c := grid.PixelFromTile(a.tile, a.world.TileSize())
		remaining := (c.X-a.pos.X)*float64(v.X) + (c.Y-a.pos.Y)*float64(v.Y)
		if remaining <= 0 {
			return
		}
		step = math.Min(step, remaining)
	}
	a.setPos(grid.Point{X: a.pos.X + float64(v.X)*step, Y: a.pos.Y + float64(v.Y)*step})
	a.moving = step > 0
}

// --- shared ---

func (a *Actor) setPos(p grid.Point) {
	a.pos = p
	t := grid.TileFromPixel(p, a.world.TileSize())
	if t != a.tile {
		from := a.tile
		a.tile = t
		a.world.ActorMoved(a, from)
	}
}

func (a *Actor) turnToward(dx, dy float64) {
	if math.Abs(dx) < facingDeadzone {
		dx = 0
	}
	if math.Abs(dy) < facingDeadzone {
		dy = 0
	}
	a.dir = grid.Facing(dx, dy, a.dir)
}

// normalize reduces v to a single-axis unit step; horizontal wins.
func normalize(v grid.Vector) grid.Vector {
	out := grid.Vector{X: sign(v.X), Y: sign(v.Y)}
	if out.X != 0 {
		out.Y = 0
	}
	return out
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
