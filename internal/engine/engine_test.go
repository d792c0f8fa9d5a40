package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/event"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

// 32px tiles at 80px/s and 0.1s ticks: four ticks per tile.
const dt = 0.1

func recordEvents(g *Game, types ...event.Type) *[]event.Event {
	var got []event.Event
	for _, typ := range types {
		g.Events().On(typ, func(ev event.Event) { got = append(got, ev) })
	}
	return &got
}

func dialogModule(t *testing.T, raw string) world.ModuleConfig {
	t.Helper()
	m, err := world.NewModuleConfig([]byte(raw))
	require.NoError(t, err)
	return m
}

func TestGame_ActorWalksAcrossMapAndReachesOnce(t *testing.T) {
	tg := NewTestGame(
		WithGrid("...", "...", "..."),
		WithActor(world.ActorConfig{ID: "walker", Tile: grid.Tile{X: 0, Y: 0}, Speed: 80}),
		WithPlayerAt(0, 2),
	)
	require.Equal(t, StatusReady, tg.Status())
	reached := recordEvents(tg.Game, event.ActorReachedTarget)

	walker, ok := tg.GetActor("walker")
	require.True(t, ok)
	callbacks := 0
	require.True(t, walker.MoveTo(grid.Tile{X: 2, Y: 2}, func() { callbacks++ }))

	tg.RunTicks(16, dt)
	assert.Equal(t, grid.Tile{X: 2, Y: 2}, walker.Tile())
	assert.Equal(t, grid.PixelFromTile(grid.Tile{X: 2, Y: 2}, 32), walker.Position())
	assert.Equal(t, actor.StateIdle, walker.State())

	tg.RunTicks(10, dt)
	assert.Equal(t, 1, callbacks)
	require.Len(t, *reached, 1)
	assert.Equal(t, []string{"walker"}, (*reached)[0].Actors)
	assert.Equal(t, "test", (*reached)[0].MapID)
}

func TestGame_ReadyOnFirstTickOnly(t *testing.T) {
	tg := NewTestGame()
	ready := recordEvents(tg.Game, event.Ready)
	tg.RunTicks(3, dt)
	assert.Len(t, *ready, 1)
}

func TestGame_GoToCachedMap(t *testing.T) {
	tg := NewTestGame(WithPlayerAt(1, 1))
	created := recordEvents(tg.Game, event.MapCreated)

	second := world.NewFilledMap("second", 6, 5, "grass")
	second.PlayerTile = grid.Tile{X: 4, Y: 3}
	second.Actors = []world.ActorConfig{{ID: "guard", Tile: grid.Tile{X: 5, Y: 0}}}
	require.NoError(t, tg.AddMap(second))

	assert.Equal(t, GoToActivated, tg.GoToMap("second"))
	assert.Same(t, second, tg.CurrentMap())
	require.Len(t, *created, 1)
	assert.Equal(t, "second", (*created)[0].MapID)

	assert.Equal(t, grid.Tile{X: 4, Y: 3}, tg.Player().Tile(), "player carried over to the new spawn")
	_, ok := tg.GetActor("guard")
	assert.True(t, ok)
	assert.Equal(t, 2, len(tg.Actors()))
	cols, rows := tg.Mesh().Dims()
	assert.Equal(t, [2]int{6, 5}, [2]int{cols, rows})
}

func TestGame_AddMapRejectsRaggedGrid(t *testing.T) {
	tg := NewTestGame()
	err := tg.AddMap(&world.Map{ID: "bad", Grid: [][]string{{"grass", "grass"}, {"grass"}}})
	assert.ErrorIs(t, err, world.ErrNotRectangular)
}

func TestGame_LoadsMapFromDiskInBackground(t *testing.T) {
	dir := t.TempDir()
	doc, err := json.Marshal(world.NewFilledMap("cave", 3, 2, "grass"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cave.json"), doc, 0o644))

	g := New(world.GameConfig{Tiles: TestTiles(), Player: world.ActorConfig{Speed: 80}},
		WithStore(world.NewMapStore(dir)))
	assert.Equal(t, StatusNotLoaded, g.Status())

	assert.Equal(t, GoToStarted, g.GoToMap("cave"))
	assert.Equal(t, StatusLoading, g.Status())
	assert.Equal(t, GoToPending, g.GoToMap("cave"), "a second request while loading is ignored")
	assert.Equal(t, GoToPending, g.GoToMap("elsewhere"))

	require.Eventually(t, func() bool {
		g.Tick(dt)
		return g.Status() == StatusReady
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "cave", g.CurrentMap().ID)

	assert.Equal(t, GoToStarted, g.GoToMap("missing"))
	require.Eventually(t, func() bool {
		g.Tick(dt)
		return g.Status() != StatusLoading
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, StatusReady, g.Status(), "a failed load keeps the current map")
	assert.Equal(t, "cave", g.CurrentMap().ID)
}

func TestGame_StartMapFromConfig(t *testing.T) {
	dir := t.TempDir()
	doc, err := json.Marshal(world.NewFilledMap("intro", 2, 2, "grass"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intro.json"), doc, 0o644))

	g := New(world.GameConfig{StartMap: "intro", Tiles: TestTiles()}, WithStore(world.NewMapStore(dir)))
	assert.Equal(t, StatusLoading, g.Status())
	require.Eventually(t, func() bool {
		g.Tick(dt)
		return g.Status() == StatusReady
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "player", g.Player().ID())
}

func TestGame_ClickMovesPlayer(t *testing.T) {
	tg := NewTestGame(WithPlayerAt(0, 0))
	clicks := recordEvents(tg.Game, event.PrimaryClick)

	target := grid.Tile{X: 3, Y: 0}
	tg.Input.Push(tg.ClickTile(target))
	tg.Tick(dt)

	require.Len(t, *clicks, 1)
	assert.Equal(t, target, (*clicks)[0].Tile)
	assert.InDelta(t, 0.75, tg.HUD().FlashAlpha(), 1e-9, "flash started this tick and faded one step")
	assert.Equal(t, actor.StateFollowingPath, tg.Player().State())

	require.True(t, tg.RunUntil(20, dt, func() bool { return tg.Player().State() == actor.StateIdle }))
	assert.Equal(t, target, tg.Player().Tile())
}

func TestGame_ClickOnBlockedTileIgnored(t *testing.T) {
	tg := NewTestGame(WithGrid("..#", "..."), WithPlayerAt(0, 0))
	tg.Input.Push(tg.ClickTile(grid.Tile{X: 2, Y: 0}))
	tg.RunTicks(5, dt)
	assert.Equal(t, actor.StateIdle, tg.Player().State())
	assert.Equal(t, grid.Tile{X: 0, Y: 0}, tg.Player().Tile())
}

func TestGame_ClickOffMapIgnored(t *testing.T) {
	tg := NewTestGame(WithPlayerAt(0, 0))
	clicks := recordEvents(tg.Game, event.PrimaryClick)
	tg.Input.Push(ClickAt(1, 1))
	tg.Tick(dt)
	assert.Empty(t, *clicks)
	_, ok := tg.GetPointerTile()
	assert.False(t, ok)
}

func TestGame_KeyboardSteering(t *testing.T) {
	tg := NewTestGame(WithGrid(".....", "....#"), WithPlayerAt(0, 1))
	p := tg.Player()

	tg.Input.Hold(ebiten.KeyArrowRight)
	tg.Tick(dt)
	assert.Equal(t, actor.StateManualVector, p.State())

	tg.RunTicks(30, dt)
	assert.Equal(t, grid.Tile{X: 3, Y: 1}, p.Tile(), "stops in front of the wall")

	tg.Input.Hold()
	require.True(t, tg.RunUntil(10, dt, func() bool { return p.State() == actor.StateIdle }))
	assert.Equal(t, grid.PixelFromTile(grid.Tile{X: 3, Y: 1}, 32), p.Position())
}

func TestGame_DialogSuspendsInputUntilFinished(t *testing.T) {
	tg := NewTestGame(
		WithPlayerAt(0, 0),
		WithActor(world.ActorConfig{
			ID:       "npc",
			Tile:     grid.Tile{X: 2, Y: 0},
			Blocking: true,
			Modules: []world.ModuleConfig{dialogModule(t,
				`{"type":"dialog","suspendInput":true,"lines":[{"text":"Hello"},{"text":"Goodbye"}]}`)},
		}),
	)

	tg.Input.Push(tg.ClickTile(grid.Tile{X: 2, Y: 0}))
	tg.Tick(dt)
	line, ok := tg.HUD().Dialog()
	require.True(t, ok)
	assert.Equal(t, "Hello", line.Text)
	assert.True(t, tg.InputSuspended())

	tg.Input.Push(tg.ClickTile(grid.Tile{X: 0, Y: 3}))
	tg.Tick(dt)
	line, _ = tg.HUD().Dialog()
	assert.Equal(t, "Goodbye", line.Text)
	assert.Equal(t, actor.StateIdle, tg.Player().State(), "clicks advance the dialog instead of moving")

	tg.Input.Push(tg.ClickTile(grid.Tile{X: 0, Y: 3}))
	tg.Tick(dt)
	_, ok = tg.HUD().Dialog()
	assert.False(t, ok)
	assert.False(t, tg.InputSuspended())
}

func TestGame_DialogChoiceKeys(t *testing.T) {
	tg := NewTestGame(
		WithMapEdit(func(m *world.Map) {
			m.Dialogs = map[string][]world.DialogLine{"shop": {
				{ID: "ask", Text: "Buy?", Choices: []world.DialogChoice{{Text: "Yes", NextLine: "yes"}, {Text: "No", NextLine: "no"}}},
				{ID: "yes", Text: "Thanks"},
				{ID: "no", Text: "Maybe later"},
			}}
		}),
		WithActor(world.ActorConfig{
			ID:      "shopkeeper",
			Tile:    grid.Tile{X: 1, Y: 1},
			Modules: []world.ModuleConfig{dialogModule(t, `{"type":"dialog","dialog":"shop"}`)},
		}),
		WithPlayerAt(3, 3),
	)
	tg.Input.Push(tg.ClickTile(grid.Tile{X: 1, Y: 1}))
	tg.Tick(dt)
	line, ok := tg.HUD().Dialog()
	require.True(t, ok)
	assert.Equal(t, "Buy?", line.Text)

	tg.Input.Push(KeyPress(ebiten.KeyDigit2))
	tg.Tick(dt)
	line, _ = tg.HUD().Dialog()
	assert.Equal(t, "Maybe later", line.Text)
}

func TestGame_StartScriptRunsWithInputSuspended(t *testing.T) {
	top := grid.DirTop
	tg := NewTestGame(
		WithGrid("....", "....", "...#", "..#."),
		WithActor(world.ActorConfig{ID: "npc", Tile: grid.Tile{X: 1, Y: 1}, Speed: 80}),
		WithPlayerAt(0, 0),
		WithMapEdit(func(m *world.Map) {
			m.StartScript = []world.ScriptStep{
				{Tile: grid.Tile{X: 3, Y: 0}},
				{Actor: "npc", Tile: grid.Tile{X: 3, Y: 3}},
				{Actor: "ghost", Tile: grid.Tile{X: 0, Y: 0}},
				{Actor: "npc", Tile: grid.Tile{X: 0, Y: 3}, Face: &top},
			}
		}),
	)
	assert.True(t, tg.ScriptRunning())
	assert.True(t, tg.InputSuspended())

	tg.Input.Push(tg.ClickTile(grid.Tile{X: 0, Y: 1}))
	require.True(t, tg.RunUntil(60, dt, func() bool { return !tg.ScriptRunning() }))

	npc, _ := tg.GetActor("npc")
	assert.Equal(t, grid.Tile{X: 3, Y: 0}, tg.Player().Tile(), "clicks during the script are ignored")
	assert.Equal(t, grid.Tile{X: 0, Y: 3}, npc.Tile())
	assert.Equal(t, grid.DirTop, npc.Direction())
	assert.False(t, tg.InputSuspended())
}

func TestGame_InteractOffsetPastTheEdgeIsSkipped(t *testing.T) {
	tg := NewTestGame(
		WithGrid("...", "...", "..."),
		WithActor(world.ActorConfig{
			ID:       "npc",
			Tile:     grid.Tile{X: 0, Y: 1},
			Blocking: true,
			Modules: []world.ModuleConfig{dialogModule(t,
				`{"type":"dialog","interactOffset":{"x":-1,"y":0},"lines":[{"text":"Hello"}]}`)},
		}),
		WithPlayerAt(2, 2),
	)

	tg.Input.Push(tg.ClickTile(grid.Tile{X: 0, Y: 1}))
	require.NotPanics(t, func() { tg.RunTicks(10, dt) })
	assert.Equal(t, grid.Tile{X: 2, Y: 2}, tg.Player().Tile())
	assert.Equal(t, actor.StateIdle, tg.Player().State())
	_, ok := tg.HUD().Dialog()
	assert.False(t, ok)
}

func TestGame_ActorOutsideMapIsPulledIn(t *testing.T) {
	var tg *TestGame
	require.NotPanics(t, func() {
		tg = NewTestGame(
			WithGrid("...", "...", "..."),
			WithActor(world.ActorConfig{ID: "stray", Tile: grid.Tile{X: 9, Y: 9}, Speed: 80}),
			WithPlayerAt(0, 0),
			WithMapEdit(func(m *world.Map) {
				m.StartScript = []world.ScriptStep{{Actor: "stray", Tile: grid.Tile{X: 2, Y: 0}}}
			}),
		)
	})
	stray, ok := tg.GetActor("stray")
	require.True(t, ok)
	assert.Equal(t, grid.Tile{X: 1, Y: 1}, stray.Tile())

	require.True(t, tg.RunUntil(40, dt, func() bool { return !tg.ScriptRunning() }))
	assert.Equal(t, grid.Tile{X: 2, Y: 0}, stray.Tile())
	assert.Len(t, tg.CurrentMap().Actors, 1)
	assert.Equal(t, grid.Tile{X: 9, Y: 9}, tg.CurrentMap().Actors[0].Tile, "map data is left as authored")
}

func TestGame_PointerTooltipAndEvents(t *testing.T) {
	tg := NewTestGame(
		WithActor(world.ActorConfig{ID: "sign", Tile: grid.Tile{X: 2, Y: 1}, Tooltip: "Town square"}),
		WithPlayerAt(0, 0),
	)
	moves := recordEvents(tg.Game, event.PointerTileChanged)

	tg.Input.Point(tg.ScreenOf(grid.Tile{X: 2, Y: 1}))
	tg.RunTicks(2, dt)
	require.Len(t, *moves, 1, "only a change of tile is reported")
	assert.Equal(t, []string{"sign"}, (*moves)[0].Actors)
	assert.Equal(t, "Town square", tg.HUD().Tooltip())
	pt, ok := tg.GetPointerTile()
	require.True(t, ok)
	assert.Equal(t, grid.Tile{X: 2, Y: 1}, pt)

	tg.Input.Point(tg.ScreenOf(grid.Tile{X: 3, Y: 3}))
	tg.Tick(dt)
	assert.Len(t, *moves, 2)
	assert.Empty(t, tg.HUD().Tooltip())
}

func TestGame_SecondaryClickEvent(t *testing.T) {
	tg := NewTestGame(WithPlayerAt(0, 0))
	got := recordEvents(tg.Game, event.SecondaryClick)
	x, y := tg.ScreenOf(grid.Tile{X: 1, Y: 2})
	tg.Input.Push(InputState{CursorX: x, CursorY: y, CursorIn: true, SecondaryClick: true})
	tg.Tick(dt)
	require.Len(t, *got, 1)
	assert.Equal(t, grid.Tile{X: 1, Y: 2}, (*got)[0].Tile)
	assert.Equal(t, actor.StateIdle, tg.Player().State())
}

func TestGame_BlockingActorUpdatesMesh(t *testing.T) {
	tg := NewTestGame(
		WithActor(world.ActorConfig{ID: "cart", Tile: grid.Tile{X: 0, Y: 3}, Speed: 80, Blocking: true}),
		WithPlayerAt(3, 3),
	)
	assert.True(t, tg.Mesh().IsBlocked(grid.Tile{X: 0, Y: 3}))

	cart, _ := tg.GetActor("cart")
	cart.MoveTo(grid.Tile{X: 2, Y: 3}, nil)
	tg.RunTicks(12, dt)
	assert.False(t, tg.Mesh().IsBlocked(grid.Tile{X: 0, Y: 3}))
	assert.True(t, tg.Mesh().IsBlocked(grid.Tile{X: 2, Y: 3}))
}

func TestGame_Enqueue(t *testing.T) {
	tg := NewTestGame()
	ran := false
	tg.Enqueue(func(g *Game) { ran = g.CurrentMap() != nil })
	assert.False(t, ran)
	tg.Tick(dt)
	assert.True(t, ran)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "not_loaded", StatusNotLoaded.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "pending", GoToPending.String())
}

func TestGame_GridString(t *testing.T) {
	tg := NewTestGame(
		WithGrid("..#", ".~."),
		WithActor(world.ActorConfig{ID: "npc", Tile: grid.Tile{X: 2, Y: 1}}),
		WithPlayerAt(0, 0),
	)
	want := "p.#\n.~n\n"
	if diff := cmp.Diff(want, tg.GridString()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}
