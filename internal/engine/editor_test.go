package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

func TestEditor_NoMap(t *testing.T) {
	g := New(world.GameConfig{})
	assert.ErrorIs(t, g.PaintTile(grid.Tile{}, "grass"), ErrNoMap)
	assert.ErrorIs(t, g.ResizeMap(world.EdgeLeft, 1), ErrNoMap)
	assert.ErrorIs(t, g.SaveMap(), ErrNoMap)
	_, err := g.MapJSON()
	assert.ErrorIs(t, err, ErrNoMap)
}

func TestEditor_PaintTileReroutes(t *testing.T) {
	tg := NewTestGame(WithGrid("...", "...", "..."), WithPlayerAt(0, 1))
	require.NoError(t, tg.PaintTile(grid.Tile{X: 1, Y: 1}, "wall"))
	assert.True(t, tg.Mesh().IsBlocked(grid.Tile{X: 1, Y: 1}))
	assert.True(t, tg.Background().IsDirty())

	tg.Player().MoveTo(grid.Tile{X: 2, Y: 1}, nil)
	assert.NotContains(t, tg.Player().Path(), grid.Tile{X: 1, Y: 1})
	assert.Len(t, tg.Player().Path(), 3, "four-step detour with the first waypoint taken")

	err := tg.PaintTile(grid.Tile{X: 3, Y: 0}, "wall")
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestEditor_ResizeShiftsActors(t *testing.T) {
	tg := NewTestGame(
		WithActor(world.ActorConfig{ID: "npc", Tile: grid.Tile{X: 1, Y: 1}}),
		WithPlayerAt(3, 3),
	)

	require.NoError(t, tg.ResizeMap(world.EdgeLeft, 2))
	m := tg.CurrentMap()
	assert.Equal(t, 6, m.Cols())
	npc, _ := tg.GetActor("npc")
	assert.Equal(t, grid.Tile{X: 3, Y: 1}, npc.Tile())
	assert.Equal(t, grid.Tile{X: 5, Y: 3}, tg.Player().Tile())
	assert.Equal(t, grid.Tile{X: 3, Y: 1}, m.Actors[0].Tile, "stored config shifted too")
	cols, _ := tg.Mesh().Dims()
	assert.Equal(t, 6, cols)

	require.NoError(t, tg.ResizeMap(world.EdgeBottom, -2))
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, grid.Tile{X: 5, Y: 1}, tg.Player().Tile(), "pulled back onto the grid")

	assert.ErrorIs(t, tg.ResizeMap(world.EdgeTop, -2), world.ErrShrinkTooFar)
}

func TestEditor_SaveMap(t *testing.T) {
	dir := t.TempDir()
	tg := NewTestGame(WithMapDir(dir), WithGrid("..", "#."))
	require.NoError(t, tg.PaintTile(grid.Tile{X: 0, Y: 0}, "water"))
	require.NoError(t, tg.SaveMap())

	f, err := os.Open(filepath.Join(dir, "test.json"))
	require.NoError(t, err)
	defer f.Close()
	saved, err := world.DecodeMap(f)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"water", "grass"}, {"wall", "grass"}}, saved.Grid)

	memory := NewTestGame()
	assert.ErrorIs(t, memory.SaveMap(), world.ErrMapNotFound)
}

func TestEditor_SetTiles(t *testing.T) {
	tg := NewTestGame(WithGrid("..", ".."), WithPlayerAt(0, 0))
	assert.False(t, tg.Mesh().IsBlocked(grid.Tile{X: 1, Y: 1}))

	tiles := TestTiles()
	tiles[0].Blocking = true
	tg.SetTiles(tiles)
	assert.True(t, tg.Mesh().IsBlocked(grid.Tile{X: 1, Y: 1}))
	assert.True(t, tg.Background().IsDirty())
}

func TestEditor_CopyMapToClipboard(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { writeClipboard = orig })

	tg := NewTestGame(WithGrid(".#"))
	tg.Input.Push(KeyPress(ebiten.KeyF4))
	tg.Tick(dt)

	var m world.Map
	require.NoError(t, json.Unmarshal([]byte(copied), &m))
	assert.Equal(t, [][]string{{"grass", "wall"}}, m.Grid)
	assert.Equal(t, []string{"Map copied to clipboard"}, tg.HUD().Notices())

	writeClipboard = func(string) error { return errors.New("no clipboard") }
	tg.Input.Push(KeyPress(ebiten.KeyF4))
	tg.Tick(dt)
	assert.Len(t, tg.HUD().Notices(), 1)
}

func TestEditor_ToggleDebug(t *testing.T) {
	tg := NewTestGame(WithPlayerAt(1, 2))
	tg.Tick(dt)
	assert.Empty(t, tg.HUD().DebugLines())

	tg.Input.Push(KeyPress(ebiten.KeyF3))
	tg.Tick(dt)
	assert.Equal(t, world.DebugConfig{Enabled: true, Navmesh: true, Grid: true}, tg.Debug())
	lines := tg.HUD().DebugLines()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines, "player (1,2) idle")

	tg.ToggleDebug()
	assert.False(t, tg.Debug().Enabled)
}
