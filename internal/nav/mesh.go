// Package nav builds the per-tile walkability mesh for the active map and
// answers pathfinding queries over it.
package nav

import (
	"log/slog"

	"github.com/zyedidia/generic/mapset"

	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

// Occupant is anything standing on a tile that may block it. The mesh only
// looks occupants up; it never owns them.
type Occupant interface {
	Tile() grid.Tile
	IsBlocking() bool
}

// Mesh is the walkability/cost grid derived from the map, the tile
// registry and the actors standing on the map. It is rebuilt in full by
// Update whenever any of those change.
type Mesh struct {
	m         *world.Map
	tiles     *world.TileRegistry
	occupants func() []Occupant
	finder    *Finder
	log       *slog.Logger

	cols   int
	rows   int
	costs  []float64 // row-major; 0 = blocked
	warned map[string]bool
}

// NewMesh creates a mesh over m. occupants is called on every Update to
// collect the actors currently on the map.
func NewMesh(m *world.Map, tiles *world.TileRegistry, occupants func() []Occupant, finder *Finder, log *slog.Logger) *Mesh {
	if log == nil {
		log = slog.Default()
	}
	ms := &Mesh{
		m:         m,
		tiles:     tiles,
		occupants: occupants,
		finder:    finder,
		log:       log,
		warned:    make(map[string]bool),
	}
	ms.Update()
	return ms
}

// Update rebuilds every cell. A cell is blocked when its tile (or the map's
// default tile, for unknown ids) blocks, when no definition resolves, or
// when a blocking occupant stands on it; otherwise it carries the tile's
// walk cost, which is also registered as an acceptable weight.
func (ms *Mesh) Update() {
	cols, rows := ms.m.Cols(), ms.m.Rows()
	occupied := make(map[grid.Tile]bool)
	if ms.occupants != nil {
		for _, o := range ms.occupants() {
			if o.IsBlocking() {
				occupied[o.Tile()] = true
			}
		}
	}

	costs := make([]float64, cols*rows)
	acceptable := mapset.New[float64]()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			def, ok := ms.resolve(ms.m.Grid[y][x])
			if !ok || def.Blocking || occupied[grid.Tile{X: x, Y: y}] {
				continue
			}
			c := def.Cost()
			costs[y*cols+x] = c
			acceptable.Put(c)
		}
	}

	ms.cols, ms.rows, ms.costs = cols, rows, costs
	if ms.finder != nil {
		ms.finder.SetGrid(costs, cols, rows, acceptable)
	}
}

func (ms *Mesh) resolve(id string) (world.TileDef, bool) {
	if def, ok := ms.tiles.Get(id); ok {
		return def, true
	}
	if !ms.warned[id] {
		ms.warned[id] = true
		ms.log.Warn("unknown tile id, using default tile", "map", ms.m.ID, "tile", id, "default", ms.m.DefaultTile)
	}
	return ms.tiles.Get(ms.m.DefaultTile)
}

// IsBlocked reports whether t cannot be entered. Tiles outside the grid are blocked.
func (ms *Mesh) IsBlocked(t grid.Tile) bool {
	if !t.In(ms.cols, ms.rows) {
		return true
	}
	return ms.costs[t.Y*ms.cols+t.X] == 0
}

// Cost returns the traversal weight of t, or false when t is blocked.
func (ms *Mesh) Cost(t grid.Tile) (float64, bool) {
	if ms.IsBlocked(t) {
		return 0, false
	}
	return ms.costs[t.Y*ms.cols+t.X], true
}

// Dims returns the mesh size in tiles.
func (ms *Mesh) Dims() (cols, rows int) { return ms.cols, ms.rows }

// Rows returns a copy of the mesh as rows of costs (0 = blocked).
func (ms *Mesh) Rows() [][]float64 {
	out := make([][]float64, ms.rows)
	for y := range out {
		out[y] = append([]float64(nil), ms.costs[y*ms.cols:(y+1)*ms.cols]...)
	}
	return out
}

// FindPath forwards to the finder. See Finder.FindPath.
func (ms *Mesh) FindPath(from, to grid.Tile, done func([]grid.Tile)) {
	ms.finder.FindPath(from, to, done)
}
