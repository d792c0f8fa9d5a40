package engine

import (
	"io/fs"

	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/asset"
	"github.com/Garsondee/tilestage/internal/event"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

// stage is the view of the game that actors and their modules get: the
// current map's mesh for movement and the HUD for presentation.
type stage struct {
	g *Game
}

var (
	_ actor.World = (*stage)(nil)
	_ actor.Host  = (*stage)(nil)
)

func (s *stage) TileSize() int { return s.g.cfg.TileSize }

func (s *stage) FindPath(from, to grid.Tile, done func([]grid.Tile)) {
	if s.g.mesh == nil {
		done(nil)
		return
	}
	// Map data such as interaction offsets can point past the edge.
	if cols, rows := s.g.mesh.Dims(); !from.In(cols, rows) || !to.In(cols, rows) {
		s.g.log.Warn("path request outside the map", "map", s.g.current.ID, "from", from, "to", to)
		done(nil)
		return
	}
	s.g.mesh.FindPath(from, to, done)
}

func (s *stage) IsBlocked(t grid.Tile) bool {
	return s.g.mesh == nil || s.g.mesh.IsBlocked(t)
}

func (s *stage) ActorMoved(a *actor.Actor, _ grid.Tile) {
	if !a.IsBlocking() || s.g.mesh == nil {
		return
	}
	s.g.mesh.Update()
	if d := s.g.render.Debug; d.Enabled && d.Navmesh {
		s.g.bg.Invalidate()
	}
}

func (s *stage) ActorReached(a *actor.Actor) {
	ev := event.Event{Type: event.ActorReachedTarget, Tile: a.Tile(), Actors: []string{a.ID()}}
	if s.g.current != nil {
		ev.MapID = s.g.current.ID
	}
	s.g.events.Emit(ev)
}

func (s *stage) Texture(src string) *asset.Texture { return s.g.textures.Get(src) }

func (s *stage) Content(src string) (string, error) {
	b, err := fs.ReadFile(s.g.assets, src)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *stage) Dialog(id string) ([]world.DialogLine, bool) {
	if s.g.current == nil {
		return nil, false
	}
	lines, ok := s.g.current.Dialogs[id]
	return lines, ok
}

func (s *stage) Controller() *actor.Actor { return s.g.player }

func (s *stage) SuspendInput() { s.g.suspended++ }

func (s *stage) ResumeInput() {
	if s.g.suspended > 0 {
		s.g.suspended--
	}
}

func (s *stage) Overlay() actor.Overlay { return s.g.hud }
