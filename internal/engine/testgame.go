package engine

import (
	"io/fs"
	"log/slog"
	"strings"
	"testing/fstest"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/asset"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

// TestGame is a headless game harness for tests and the headless report.
// It loads no images, keeps maps in memory and takes its input from a
// script instead of ebiten.
type TestGame struct {
	*Game

	GameConfig world.GameConfig
	Assets     fstest.MapFS
	Input      *ScriptedInput
	Log        *slog.Logger

	m    *world.Map
	opts []Option
}

type testOptionKind int

const (
	testOptInfra testOptionKind = iota // config, assets, logger
	testOptMap                         // the start map, built after the config
	testOptActor                       // actors placed on the start map
)

// TestOption is a builder applied to a TestGame during construction.
type TestOption struct {
	kind testOptionKind
	fn   func(*TestGame)
}

// WithConfig edits the game config before the game is created.
func WithConfig(fn func(*world.GameConfig)) TestOption {
	return TestOption{testOptInfra, func(tg *TestGame) { fn(&tg.GameConfig) }}
}

// WithAsset adds a file to the in-memory asset file system.
func WithAsset(name, content string) TestOption {
	return TestOption{testOptInfra, func(tg *TestGame) {
		tg.Assets[name] = &fstest.MapFile{Data: []byte(content)}
	}}
}

// WithTestLogger routes game logs to l.
func WithTestLogger(l *slog.Logger) TestOption {
	return TestOption{testOptInfra, func(tg *TestGame) { tg.Log = l }}
}

// WithMapDir keeps maps in dir so SaveMap and disk loads work.
func WithMapDir(dir string) TestOption {
	return TestOption{testOptInfra, func(tg *TestGame) {
		tg.opts = append(tg.opts, WithStore(world.NewMapStore(dir)))
	}}
}

// WithGrid builds the start map from rows of runes: '.' grass, '#' wall,
// '~' water (walk cost 3).
func WithGrid(rows ...string) TestOption {
	return TestOption{testOptMap, func(tg *TestGame) {
		m := &world.Map{ID: "test", DefaultTile: "grass"}
		for _, r := range rows {
			row := make([]string, 0, len(r))
			for _, c := range r {
				switch c {
				case '#':
					row = append(row, "wall")
				case '~':
					row = append(row, "water")
				default:
					row = append(row, "grass")
				}
			}
			m.Grid = append(m.Grid, row)
		}
		tg.m = m
	}}
}

// WithMapEdit changes the start map after its grid is built.
func WithMapEdit(fn func(*world.Map)) TestOption {
	return TestOption{testOptActor, func(tg *TestGame) { fn(tg.m) }}
}

// WithActor places an actor on the start map.
func WithActor(cfg world.ActorConfig) TestOption {
	return TestOption{testOptActor, func(tg *TestGame) {
		tg.m.Actors = append(tg.m.Actors, cfg)
	}}
}

// WithPlayerAt sets where the player spawns.
func WithPlayerAt(x, y int) TestOption {
	return TestOption{testOptActor, func(tg *TestGame) {
		tg.m.PlayerTile = grid.Tile{X: x, Y: y}
	}}
}

// TestTiles are the tile definitions WithGrid maps onto.
func TestTiles() []world.TileDef {
	return []world.TileDef{
		{ID: "grass"},
		{ID: "wall", Blocking: true},
		{ID: "water", WalkCost: 3},
	}
}

// NewTestGame builds a game in ordered passes:
//  1. Infrastructure (config, assets, logger)
//  2. Start map grid
//  3. Actors and player spawn
//
// The start map is then registered and activated synchronously.
func NewTestGame(opts ...TestOption) *TestGame {
	tg := &TestGame{
		GameConfig: world.GameConfig{
			TileSize:   32,
			Tiles:      TestTiles(),
			Player:     world.ActorConfig{ID: "player", Speed: 80},
			Pathfinder: world.PathfinderConfig{Sync: true},
		},
		Assets: fstest.MapFS{},
		Input:  &ScriptedInput{},
		Log:    slog.New(slog.DiscardHandler),
	}
	for _, pass := range []testOptionKind{testOptInfra, testOptMap, testOptActor} {
		if pass == testOptActor && tg.m == nil {
			WithGrid("....", "....", "....", "....").fn(tg)
		}
		for _, o := range opts {
			if o.kind == pass {
				o.fn(tg)
			}
		}
	}

	textures := asset.NewCache(tg.Assets, tg.Log, asset.WithLoader(func(fs.FS, string) (*ebiten.Image, error) {
		return nil, nil
	}))
	tg.Game = New(tg.GameConfig, append([]Option{
		WithLogger(tg.Log),
		WithAssets(tg.Assets),
		WithTextures(textures),
		WithInput(tg.Input),
	}, tg.opts...)...)
	if err := tg.AddMap(tg.m); err != nil {
		panic("test game map: " + err.Error())
	}
	tg.GoToMap(tg.m.ID)
	return tg
}

// RunTicks advances the game n ticks of dt seconds.
func (tg *TestGame) RunTicks(n int, dt float64) {
	for range n {
		tg.Tick(dt)
	}
}

// RunUntil ticks until cond holds or max ticks pass, and reports whether
// cond held.
func (tg *TestGame) RunUntil(limit int, dt float64, cond func() bool) bool {
	for range limit {
		if cond() {
			return true
		}
		tg.Tick(dt)
	}
	return cond()
}

// ScreenOf returns the screen position of the center of t.
func (tg *TestGame) ScreenOf(t grid.Tile) (int, int) {
	p := grid.PixelFromTile(t, tg.GameConfig.TileSize)
	cam := tg.Camera().Position()
	return int(p.X - cam.X), int(p.Y - cam.Y)
}

// ClickTile is a frame with a primary click on the center of t.
func (tg *TestGame) ClickTile(t grid.Tile) InputState {
	return ClickAt(tg.ScreenOf(t))
}

// ScriptedInput replays queued frames; an empty queue repeats the held keys
// with no clicks.
type ScriptedInput struct {
	frames []InputState
	held   InputState
}

// Push queues frames to be returned by the following polls.
func (s *ScriptedInput) Push(frames ...InputState) { s.frames = append(s.frames, frames...) }

// Hold keeps keys pressed until released with Hold().
func (s *ScriptedInput) Hold(keys ...ebiten.Key) { s.held.Pressed = keys }

// Point moves the cursor to a screen position.
func (s *ScriptedInput) Point(x, y int) {
	s.held.CursorX, s.held.CursorY, s.held.CursorIn = x, y, true
}

func (s *ScriptedInput) Poll() InputState {
	if len(s.frames) == 0 {
		return s.held
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f
}

// ClickAt is a frame with a primary click on screen position (x, y).
func ClickAt(x, y int) InputState {
	return InputState{CursorX: x, CursorY: y, CursorIn: true, PrimaryClick: true}
}

// KeyPress is a frame with keys pressed this tick.
func KeyPress(keys ...ebiten.Key) InputState {
	return InputState{Pressed: keys, JustPressed: keys}
}

// GridString renders the current map with actors as their id's first letter.
func (tg *TestGame) GridString() string {
	m := tg.CurrentMap()
	var b strings.Builder
	for y := range m.Rows() {
		for x := range m.Cols() {
			t := grid.Tile{X: x, Y: y}
			if on := tg.GetActorsOnTile(t); len(on) > 0 {
				b.WriteByte(on[0].ID()[0])
				continue
			}
			switch id, _ := m.TileAt(t); id {
			case "wall":
				b.WriteByte('#')
			case "water":
				b.WriteByte('~')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
