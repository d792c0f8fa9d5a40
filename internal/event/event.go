// Package event is the engine's outward notification channel. Components
// that publish events own an Emitter; collaborators subscribe to it.
package event

import (
	"encoding/json"

	"github.com/Garsondee/tilestage/internal/grid"
)

// Type identifies an engine event.
type Type int

const (
	Ready Type = iota
	MapCreated
	PointerTileChanged
	PrimaryClick
	SecondaryClick
	ActorReachedTarget
)

func (t Type) String() string {
	switch t {
	case Ready:
		return "ready"
	case MapCreated:
		return "mapCreated"
	case PointerTileChanged:
		return "pointerTileChanged"
	case PrimaryClick:
		return "primaryClick"
	case SecondaryClick:
		return "secondaryClick"
	case ActorReachedTarget:
		return "actorReachedTarget"
	default:
		return "unknown"
	}
}

func (t Type) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// Event is one notification. Fields not relevant to the type are zero.
type Event struct {
	Type   Type      `json:"type"`
	MapID  string    `json:"mapId,omitempty"`
	Tile   grid.Tile `json:"tile"`
	Actors []string  `json:"actors,omitempty"` // ids of actors on Tile, or the actor concerned
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Emitter dispatches events synchronously, in subscription order.
type Emitter struct {
	handlers map[Type][]subscription
	nextID   int
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[Type][]subscription)}
}

// On subscribes fn to events of type t and returns an unsubscribe func.
func (e *Emitter) On(t Type, fn Handler) func() {
	e.nextID++
	id := e.nextID
	e.handlers[t] = append(e.handlers[t], subscription{id: id, fn: fn})
	return func() {
		subs := e.handlers[t]
		for i, s := range subs {
			if s.id == id {
				e.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// OnAny subscribes fn to every event type.
func (e *Emitter) OnAny(fn Handler) func() {
	var offs []func()
	for t := Ready; t <= ActorReachedTarget; t++ {
		offs = append(offs, e.On(t, fn))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Emit delivers ev to every subscriber of its type.
func (e *Emitter) Emit(ev Event) {
	subs := e.handlers[ev.Type]
	for _, s := range append([]subscription(nil), subs...) {
		s.fn(ev)
	}
}
