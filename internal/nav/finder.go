package nav

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/zyedidia/generic/mapset"

	"github.com/Garsondee/tilestage/internal/grid"
)

// Options configures a Finder.
type Options struct {
	// Diagonals allows the 4 diagonal steps in addition to the orthogonal ones.
	Diagonals bool
	// CornerCutting lets a diagonal step squeeze past a blocked orthogonal
	// neighbour. Without it both orthogonal neighbours must be open.
	CornerCutting bool
	// IterationsPerTick bounds how many nodes Calculate expands per call.
	IterationsPerTick int
	// Sync runs each search to completion inside FindPath.
	Sync bool
}

// Finder is a weighted A* grid search. Searches are sliced: FindPath queues
// an instance and Calculate advances the queue by a bounded number of node
// expansions per frame. Each instance owns its open list and node table, so
// any number of queries may be in flight at once.
type Finder struct {
	opts       Options
	cols       int
	rows       int
	costs      []float64 // 0 = not walkable
	acceptable mapset.Set[float64]
	queue      []*search
}

// NewFinder creates an empty finder. SetGrid must be called before searching.
func NewFinder(opts Options) *Finder {
	if opts.IterationsPerTick <= 0 {
		opts.IterationsPerTick = 1000
	}
	return &Finder{opts: opts, acceptable: mapset.New[float64]()}
}

// SetGrid installs the cost grid (row-major, cols*rows) and the set of
// acceptable traversal weights. Searches already in flight see the new grid.
func (f *Finder) SetGrid(costs []float64, cols, rows int, acceptable mapset.Set[float64]) {
	if len(costs) != cols*rows {
		panic(fmt.Sprintf("nav: grid has %d cells, want %dx%d", len(costs), cols, rows))
	}
	f.costs = costs
	f.cols = cols
	f.rows = rows
	f.acceptable = acceptable
}

// Options returns the finder configuration.
func (f *Finder) Options() Options { return f.opts }

// Pending returns the number of searches still in flight.
func (f *Finder) Pending() int { return len(f.queue) }

func (f *Finder) walkable(x, y int) bool {
	if x < 0 || y < 0 || x >= f.cols || y >= f.rows {
		return false
	}
	c := f.costs[y*f.cols+x]
	return c > 0 && f.acceptable.Has(c)
}

// FindPath searches from one tile to another and reports the result through
// done exactly once. The path excludes the start tile; it is empty when from
// equals to and nil when the target is unreachable. Same-tile and
// unacceptable-target queries resolve immediately. A nil callback or a tile
// outside the grid is a caller bug and panics.
func (f *Finder) FindPath(from, to grid.Tile, done func([]grid.Tile)) {
	if done == nil {
		panic("nav: FindPath called without a callback")
	}
	if !from.In(f.cols, f.rows) || !to.In(f.cols, f.rows) {
		panic(fmt.Sprintf("nav: FindPath %v -> %v outside %dx%d grid", from, to, f.cols, f.rows))
	}
	if from == to {
		done([]grid.Tile{})
		return
	}
	if !f.walkable(to.X, to.Y) {
		done(nil)
		return
	}

	s := &search{
		end:   to,
		nodes: make(map[int]*node),
		done:  done,
	}
	start := s.node(f, from.X, from.Y)
	start.h = heuristic(from.X, from.Y, to.X, to.Y)
	start.guess = start.h
	start.opened = true
	heap.Push(&s.open, start)

	if f.opts.Sync {
		for !s.step(f) {
		}
		return
	}
	f.queue = append(f.queue, s)
}

// Calculate advances queued searches by up to IterationsPerTick node
// expansions, oldest search first.
func (f *Finder) Calculate() {
	for budget := f.opts.IterationsPerTick; budget > 0 && len(f.queue) > 0; budget-- {
		s := f.queue[0]
		if s.step(f) {
			f.queue[0] = nil
			f.queue = f.queue[1:]
		}
	}
}

// --- A* internals ---

type node struct {
	x, y   int
	parent *node
	cost   float64 // cost so far
	h      float64 // heuristic to target
	guess  float64 // cost + h
	opened bool
	closed bool
	index  int // heap index
}

type openList []*node

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	if ol[i].guess != ol[j].guess {
		return ol[i].guess < ol[j].guess
	}
	return ol[i].h < ol[j].h
}
func (ol openList) Swap(i, j int)       { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x interface{}) { n := x.(*node); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

type search struct {
	end   grid.Tile
	open  openList
	nodes map[int]*node
	done  func([]grid.Tile)
}

var orthogonal = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

var diagonal = [4][2]int{{1, -1}, {1, 1}, {-1, 1}, {-1, -1}}

func (s *search) node(f *Finder, x, y int) *node {
	k := y*f.cols + x
	n, ok := s.nodes[k]
	if !ok {
		n = &node{x: x, y: y}
		s.nodes[k] = n
	}
	return n
}

// step expands one node. It returns true once the search has reported.
func (s *search) step(f *Finder) bool {
	if s.open.Len() == 0 {
		s.done(nil)
		return true
	}
	cur := heap.Pop(&s.open).(*node)
	if cur.x == s.end.X && cur.y == s.end.Y {
		s.done(buildPath(cur))
		return true
	}
	cur.closed = true

	for _, d := range orthogonal {
		nx, ny := cur.x+d[0], cur.y+d[1]
		if f.walkable(nx, ny) {
			s.relax(f, cur, nx, ny, 1)
		}
	}
	if !f.opts.Diagonals {
		return false
	}
	for _, d := range diagonal {
		nx, ny := cur.x+d[0], cur.y+d[1]
		if !f.walkable(nx, ny) {
			continue
		}
		if !f.opts.CornerCutting && (!f.walkable(cur.x+d[0], cur.y) || !f.walkable(cur.x, cur.y+d[1])) {
			continue
		}
		s.relax(f, cur, nx, ny, math.Sqrt2)
	}
	return false
}

func (s *search) relax(f *Finder, cur *node, nx, ny int, distance float64) {
	nb := s.node(f, nx, ny)
	if nb.closed {
		return
	}
	cost := cur.cost + f.costs[ny*f.cols+nx]*distance
	if nb.opened && cost >= nb.cost {
		return
	}
	nb.parent = cur
	nb.cost = cost
	nb.h = heuristic(nx, ny, s.end.X, s.end.Y)
	nb.guess = cost + nb.h
	if nb.opened {
		heap.Fix(&s.open, nb.index)
		return
	}
	nb.opened = true
	heap.Push(&s.open, nb)
}

func heuristic(ax, ay, bx, by int) float64 {
	return math.Hypot(float64(ax-bx), float64(ay-by))
}

func buildPath(end *node) []grid.Tile {
	var path []grid.Tile
	for n := end; n.parent != nil; n = n.parent {
		path = append(path, grid.Tile{X: n.x, Y: n.y})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
