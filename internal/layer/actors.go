package layer

import (
	"cmp"
	"slices"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/camera"
	"github.com/Garsondee/tilestage/internal/grid"
)

// Actors owns the actors of the current map. It updates them in insertion
// order and draws them back to front: by tile row, then z-index, then id.
type Actors struct {
	cam    *camera.Camera
	byID   map[string]*actor.Actor
	order  []*actor.Actor
	canvas canvas
	w, h   int
}

func NewActors(cam *camera.Camera) *Actors {
	return &Actors{cam: cam, byID: make(map[string]*actor.Actor)}
}

func (l *Actors) Name() string { return "actors" }

// SetWorldSize sizes the canvas to the map in pixels.
func (l *Actors) SetWorldSize(w, h int) { l.w, l.h = w, h }

// Add registers a, replacing any actor with the same id.
func (l *Actors) Add(a *actor.Actor) {
	if _, ok := l.byID[a.ID()]; ok {
		l.Remove(a.ID())
	}
	l.byID[a.ID()] = a
	l.order = append(l.order, a)
}

// Remove drops the actor with the given id.
func (l *Actors) Remove(id string) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	l.order = slices.DeleteFunc(l.order, func(a *actor.Actor) bool { return a.ID() == id })
}

// Reset drops every actor.
func (l *Actors) Reset() {
	clear(l.byID)
	l.order = l.order[:0]
}

func (l *Actors) Get(id string) (*actor.Actor, bool) {
	a, ok := l.byID[id]
	return a, ok
}

// All returns the actors in insertion order.
func (l *Actors) All() []*actor.Actor { return slices.Clone(l.order) }

func (l *Actors) Len() int { return len(l.order) }

// OnTile returns the actors standing on t, in insertion order.
func (l *Actors) OnTile(t grid.Tile) []*actor.Actor {
	var out []*actor.Actor
	for _, a := range l.order {
		if a.Tile() == t {
			out = append(out, a)
		}
	}
	return out
}

// Ordered returns the actors in draw order.
func (l *Actors) Ordered() []*actor.Actor {
	out := slices.Clone(l.order)
	slices.SortStableFunc(out, func(a, b *actor.Actor) int {
		return cmp.Or(
			cmp.Compare(a.Tile().Y, b.Tile().Y),
			cmp.Compare(a.ZIndex(), b.ZIndex()),
			cmp.Compare(a.ID(), b.ID()),
		)
	})
	return out
}

func (l *Actors) Update(dt float64) {
	for _, a := range slices.Clone(l.order) {
		a.Update(dt)
	}
}

// IsDirty is always true: actors may move or animate on any frame.
func (l *Actors) IsDirty() bool { return true }

func (l *Actors) Clear() { l.canvas.ensure(l.w, l.h).Clear() }

func (l *Actors) Draw() {
	for _, a := range l.Ordered() {
		a.Draw(l.canvas.img)
	}
}

func (l *Actors) Composite(screen *ebiten.Image) {
	x, y := l.cam.Offset()
	l.canvas.blit(screen, x, y)
}
