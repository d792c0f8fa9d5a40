package world

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/Garsondee/tilestage/internal/grid"
)

var (
	ErrNotRectangular = errors.New("map grid is not rectangular")
	ErrEmptyGrid      = errors.New("map grid is empty")
	ErrShrinkTooFar   = errors.New("map grid cannot shrink below one row or column")
)

// Edge names a side of the map grid for resize operations.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseEdge maps a name to an Edge.
func ParseEdge(s string) (Edge, error) {
	switch s {
	case "left":
		return EdgeLeft, nil
	case "right":
		return EdgeRight, nil
	case "top":
		return EdgeTop, nil
	case "bottom":
		return EdgeBottom, nil
	}
	return EdgeLeft, fmt.Errorf("unknown edge %q", s)
}

// ScriptStep is one move of a map's intro sequence. An empty Actor means the player.
type ScriptStep struct {
	Actor string          `json:"actor,omitempty"`
	Tile  grid.Tile       `json:"tile"`
	Face  *grid.Direction `json:"face,omitempty"`
}

// Map is a single level: a grid of tile ids plus the actors placed on it.
// Grid is indexed Grid[row][col].
type Map struct {
	ID          string                  `json:"id"`
	Grid        [][]string              `json:"grid"`
	DefaultTile string                  `json:"defaultTile"`
	FillTile    string                  `json:"fillTile,omitempty"`
	FillColor   string                  `json:"fillColor,omitempty"`
	Padding     int                     `json:"padding,omitempty"`
	Actors      []ActorConfig           `json:"actors,omitempty"`
	PlayerTile  grid.Tile               `json:"playerTile"`
	Dialogs     map[string][]DialogLine `json:"dialogs,omitempty"`
	StartScript []ScriptStep            `json:"startScript,omitempty"`
}

// Rows returns the number of grid rows.
func (m *Map) Rows() int { return len(m.Grid) }

// Cols returns the number of grid columns.
func (m *Map) Cols() int {
	if len(m.Grid) == 0 {
		return 0
	}
	return len(m.Grid[0])
}

// Contains reports whether t is a cell of the grid.
func (m *Map) Contains(t grid.Tile) bool { return t.In(m.Cols(), m.Rows()) }

// TileAt returns the tile id at t, or false when t is outside the grid.
func (m *Map) TileAt(t grid.Tile) (string, bool) {
	if !m.Contains(t) {
		return "", false
	}
	return m.Grid[t.Y][t.X], true
}

// SetTile paints one cell. Painting outside the grid is a caller bug.
func (m *Map) SetTile(t grid.Tile, id string) {
	if !m.Contains(t) {
		panic(fmt.Sprintf("world: SetTile %v outside %dx%d grid", t, m.Cols(), m.Rows()))
	}
	m.Grid[t.Y][t.X] = id
}

// Validate checks the grid invariants.
func (m *Map) Validate() error {
	if len(m.Grid) == 0 || len(m.Grid[0]) == 0 {
		return fmt.Errorf("map %q: %w", m.ID, ErrEmptyGrid)
	}
	w := len(m.Grid[0])
	for y, row := range m.Grid {
		if len(row) != w {
			return fmt.Errorf("map %q row %d has %d columns, want %d: %w", m.ID, y, len(row), w, ErrNotRectangular)
		}
	}
	return nil
}

// FillRGBA parses FillColor.
func (m *Map) FillRGBA() (color.RGBA, bool) { return ParseColor(m.FillColor) }

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(c string) (color.RGBA, bool) {
	s := strings.TrimPrefix(c, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, false
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// Resize grows (delta > 0) or shrinks (delta < 0) the grid at edge by |delta|
// rows or columns. New cells take the default tile. The returned shift is
// the offset every existing tile coordinate moved by; actor configs, the
// player spawn and script steps stored on the map are shifted and clamped.
func (m *Map) Resize(edge Edge, delta int) (grid.Vector, error) {
	if delta == 0 {
		return grid.Vector{}, nil
	}
	if err := m.Validate(); err != nil {
		return grid.Vector{}, err
	}
	cols, rows := m.Cols(), m.Rows()
	horizontal := edge == EdgeLeft || edge == EdgeRight
	if horizontal && cols+delta < 1 || !horizontal && rows+delta < 1 {
		return grid.Vector{}, fmt.Errorf("map %q resize %s by %d: %w", m.ID, edge, delta, ErrShrinkTooFar)
	}

	var shift grid.Vector
	for i := 0; i < abs(delta); i++ {
		switch {
		case edge == EdgeLeft && delta > 0:
			for y := range m.Grid {
				m.Grid[y] = append([]string{m.DefaultTile}, m.Grid[y]...)
			}
			shift.X++
		case edge == EdgeLeft:
			for y := range m.Grid {
				m.Grid[y] = m.Grid[y][1:]
			}
			shift.X--
		case edge == EdgeRight && delta > 0:
			for y := range m.Grid {
				m.Grid[y] = append(m.Grid[y], m.DefaultTile)
			}
		case edge == EdgeRight:
			for y := range m.Grid {
				m.Grid[y] = m.Grid[y][:len(m.Grid[y])-1]
			}
		case edge == EdgeTop && delta > 0:
			m.Grid = append([][]string{m.blankRow()}, m.Grid...)
			shift.Y++
		case edge == EdgeTop:
			m.Grid = m.Grid[1:]
			shift.Y--
		case edge == EdgeBottom && delta > 0:
			m.Grid = append(m.Grid, m.blankRow())
		case edge == EdgeBottom:
			m.Grid = m.Grid[:len(m.Grid)-1]
		}
	}

	m.PlayerTile = m.ShiftTile(m.PlayerTile, shift)
	for i := range m.Actors {
		m.Actors[i].Tile = m.ShiftTile(m.Actors[i].Tile, shift)
	}
	for i := range m.StartScript {
		m.StartScript[i].Tile = m.ShiftTile(m.StartScript[i].Tile, shift)
	}
	return shift, nil
}

// ShiftTile applies a resize shift to t and pulls any coordinate that now
// falls outside the grid back to the midpoint of that axis.
func (m *Map) ShiftTile(t grid.Tile, shift grid.Vector) grid.Tile {
	t = t.Add(shift.X, shift.Y)
	if t.X < 0 || t.X >= m.Cols() {
		t.X = m.Cols() / 2
	}
	if t.Y < 0 || t.Y >= m.Rows() {
		t.Y = m.Rows() / 2
	}
	return t
}

func (m *Map) blankRow() []string { return filledRow(m.Cols(), m.DefaultTile) }

// Clone returns a deep copy of the grid and actor list.
func (m *Map) Clone() *Map {
	c := *m
	c.Grid = make([][]string, len(m.Grid))
	for y, row := range m.Grid {
		c.Grid[y] = append([]string(nil), row...)
	}
	c.Actors = append([]ActorConfig(nil), m.Actors...)
	c.StartScript = append([]ScriptStep(nil), m.StartScript...)
	return &c
}

// NewFilledMap builds a cols×rows map where every cell is tileID.
func NewFilledMap(id string, cols, rows int, tileID string) *Map {
	m := &Map{ID: id, DefaultTile: tileID}
	m.Grid = make([][]string, rows)
	for y := range m.Grid {
		m.Grid[y] = filledRow(cols, tileID)
	}
	return m
}

func filledRow(cols int, id string) []string {
	row := make([]string, cols)
	for i := range row {
		row[i] = id
	}
	return row
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
