package engine

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

var writeClipboard = clipboard.WriteAll

// SetTiles replaces the tile definitions and redraws the map with them.
func (g *Game) SetTiles(defs []world.TileDef) {
	g.tiles.Set(defs)
	g.cfg.Tiles = defs
	if g.mesh != nil {
		g.mesh.Update()
	}
	g.bg.Invalidate()
}

// PaintTile sets the tile id of one cell on the current map.
func (g *Game) PaintTile(t grid.Tile, id string) error {
	if g.current == nil {
		return ErrNoMap
	}
	if !g.current.Contains(t) {
		return fmt.Errorf("paint %v on %q: %w", t, g.current.ID, ErrOutOfBounds)
	}
	g.current.SetTile(t, id)
	g.mesh.Update()
	g.bg.Invalidate()
	return nil
}

// ResizeMap grows or shrinks the current map at edge. Actors on the map,
// the player included, move with the tiles; any left outside the new grid
// are pulled back to its middle.
func (g *Game) ResizeMap(edge world.Edge, delta int) error {
	if g.current == nil {
		return ErrNoMap
	}
	m := g.current
	shift, err := m.Resize(edge, delta)
	if err != nil {
		return err
	}
	for _, a := range g.actors.All() {
		a.Place(m.ShiftTile(a.Tile(), shift))
	}
	g.mesh.Update()

	w, h := m.Cols()*g.cfg.TileSize, m.Rows()*g.cfg.TileSize
	g.actors.SetWorldSize(w, h)
	g.bg.SetMap(m, g.mesh)
	g.cam.SetBounds(w, h, m.Padding)
	g.log.Info("map resized", "map", m.ID, "edge", edge, "delta", delta, "cols", m.Cols(), "rows", m.Rows())
	return nil
}

// SaveMap writes the current map through the store.
func (g *Game) SaveMap() error {
	if g.current == nil {
		return ErrNoMap
	}
	return g.store.Save(g.current)
}

// ToggleDebug flips the debug overlays on or off.
func (g *Game) ToggleDebug() {
	d := g.render.Debug
	d.Enabled = !d.Enabled
	if d.Enabled && !d.Navmesh && !d.Grid {
		d.Navmesh, d.Grid = true, true
	}
	g.SetDebug(d)
}

// SetDebug replaces the debug switches.
func (g *Game) SetDebug(d world.DebugConfig) {
	g.render.Debug = d
	g.bg.SetDebug(d)
}

// Debug returns the current debug switches.
func (g *Game) Debug() world.DebugConfig { return g.render.Debug }

// MapJSON encodes the current map document.
func (g *Game) MapJSON() ([]byte, error) {
	if g.current == nil {
		return nil, ErrNoMap
	}
	return json.MarshalIndent(g.current, "", "  ")
}

// CopyMapToClipboard puts the current map document on the system clipboard.
func (g *Game) CopyMapToClipboard() error {
	b, err := g.MapJSON()
	if err != nil {
		return err
	}
	return writeClipboard(string(b))
}
