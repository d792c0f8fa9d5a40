package world

import "sort"

// Clip is a source rectangle inside a texture atlas.
type Clip struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// TextureRef points at an image (by asset src) and optionally a clip of it.
type TextureRef struct {
	Src  string `json:"src"`
	Clip *Clip  `json:"clip,omitempty"`
}

// TileDef is a reusable tile definition referenced by grid cells.
type TileDef struct {
	ID       string     `json:"id"`
	Blocking bool       `json:"isBlocking"`
	WalkCost float64    `json:"walkCost,omitempty"`
	Texture  TextureRef `json:"texture"`
}

// Cost is the traversal weight of the tile. Walk costs below 1 read as 1.
func (t TileDef) Cost() float64 {
	if t.WalkCost < 1 {
		return 1
	}
	return t.WalkCost
}

// TileRegistry is the active set of tile definitions keyed by id.
// Definitions are copied in and never mutated afterwards.
type TileRegistry struct {
	defs map[string]TileDef
}

// NewTileRegistry builds a registry from the given definitions.
func NewTileRegistry(defs []TileDef) *TileRegistry {
	r := &TileRegistry{}
	r.Set(defs)
	return r
}

// Set replaces every definition in the registry. Later duplicates win.
func (r *TileRegistry) Set(defs []TileDef) {
	r.defs = make(map[string]TileDef, len(defs))
	for _, d := range defs {
		if d.WalkCost < 1 {
			d.WalkCost = 1
		}
		r.defs[d.ID] = d
	}
}

// Get returns the definition for id.
func (r *TileRegistry) Get(id string) (TileDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Len returns the number of definitions.
func (r *TileRegistry) Len() int { return len(r.defs) }

// All returns the definitions sorted by id.
func (r *TileRegistry) All() []TileDef {
	out := make([]TileDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
