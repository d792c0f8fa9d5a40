// Package engine is the game orchestrator. It owns the configuration, the
// current map and the per-map registries, runs the frame loop for ebiten and
// exposes the calls editors and other collaborators drive the game with.
package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/asset"
	"github.com/Garsondee/tilestage/internal/camera"
	"github.com/Garsondee/tilestage/internal/event"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/layer"
	"github.com/Garsondee/tilestage/internal/nav"
	"github.com/Garsondee/tilestage/internal/world"
)

var (
	ErrNoMap       = errors.New("no map is active")
	ErrOutOfBounds = errors.New("tile outside the map")
)

const (
	defaultViewW = 640
	defaultViewH = 480
	queueSize    = 64
)

// MapStatus is the lifecycle state of the current map.
type MapStatus int

const (
	StatusNotLoaded MapStatus = iota
	StatusLoading
	StatusReady
)

func (s MapStatus) String() string {
	switch s {
	case StatusNotLoaded:
		return "not_loaded"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// GoToStatus reports what GoToMap did.
type GoToStatus int

const (
	GoToActivated GoToStatus = iota // the map was cached and is now current
	GoToStarted                     // a load began; the map activates on a later tick
	GoToPending                     // a load is already running; nothing was done
)

func (s GoToStatus) String() string {
	switch s {
	case GoToActivated:
		return "activated"
	case GoToStarted:
		return "started"
	case GoToPending:
		return "pending"
	default:
		return "unknown"
	}
}

// RenderConfig carries the debug switches threaded through to the layers.
type RenderConfig struct {
	Debug world.DebugConfig
}

type loadResult struct {
	id  string
	m   *world.Map
	err error
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger used by the game and everything it creates.
func WithLogger(l *slog.Logger) Option { return func(g *Game) { g.log = l } }

// WithStore sets where maps are loaded from and saved to.
func WithStore(s *world.MapStore) Option { return func(g *Game) { g.store = s } }

// WithAssets sets the file system textures and text content are read from.
func WithAssets(fsys fs.FS) Option { return func(g *Game) { g.assets = fsys } }

// WithTextures replaces the texture cache.
func WithTextures(c *asset.Cache) Option { return func(g *Game) { g.textures = c } }

// WithInput sets the input source; without one the game takes no player input.
func WithInput(in InputSource) Option { return func(g *Game) { g.input = in } }

// WithViewport sets the initial screen size.
func WithViewport(w, h int) Option { return func(g *Game) { g.viewW, g.viewH = w, h } }

// WithRenderConfig overrides the debug switches from the game config.
func WithRenderConfig(rc RenderConfig) Option {
	return func(g *Game) { g.render = rc; g.renderSet = true }
}

// Game implements ebiten.Game. All simulation happens in Tick on the frame
// loop goroutine; map loads and queued commands are handed over through
// channels drained at the start of each tick.
type Game struct {
	cfg       world.GameConfig
	render    RenderConfig
	renderSet bool
	log       *slog.Logger
	events    *event.Emitter
	store     *world.MapStore
	assets    fs.FS
	textures  *asset.Cache
	tiles     *world.TileRegistry
	input     InputSource

	finder   *nav.Finder
	mesh     *nav.Mesh
	cam      *camera.Camera
	bg       *layer.Background
	actors   *layer.Actors
	hud      *layer.HUD
	pipeline *layer.Pipeline

	current   *world.Map
	status    MapStatus
	loadingID string
	loads     chan loadResult
	queue     chan func(*Game)
	player    *actor.Actor
	stage     *stage

	viewW, viewH int
	readySent    bool
	ticks        int
	suspended    int
	scriptGen    int
	scripting    bool
	ptr          pointerState
}

// New creates a game from cfg. When cfg names a start map its load begins
// immediately.
func New(cfg world.GameConfig, opts ...Option) *Game {
	cfg.ApplyDefaults()
	g := &Game{
		cfg:   cfg,
		log:   slog.Default(),
		loads: make(chan loadResult, 1),
		queue: make(chan func(*Game), queueSize),
		viewW: defaultViewW,
		viewH: defaultViewH,
	}
	for _, o := range opts {
		o(g)
	}
	if !g.renderSet {
		g.render = RenderConfig{Debug: cfg.Debug}
	}
	if g.store == nil {
		g.store = world.NewMapStore("")
	}
	if g.assets == nil {
		g.assets = os.DirFS(".")
	}
	if g.textures == nil {
		g.textures = asset.NewCache(g.assets, g.log)
	}
	g.stage = &stage{g: g}
	g.events = event.NewEmitter()
	g.tiles = world.NewTileRegistry(cfg.Tiles)
	g.finder = g.newFinder()
	g.cam = camera.New(cfg.LerpAlpha)
	g.cam.Resize(g.viewW, g.viewH)
	g.bg = layer.NewBackground(g.tiles, g.textures, g.cam, cfg.TileSize)
	g.bg.SetDebug(g.render.Debug)
	g.actors = layer.NewActors(g.cam)
	g.hud = layer.NewHUD(g.cam, g.textures, cfg.TileSize, cfg.ClickFeedback)
	g.hud.SetViewport(g.viewW, g.viewH)
	g.pipeline = layer.NewPipeline(g.bg, g.actors, g.hud)

	if cfg.StartMap != "" {
		g.GoToMap(cfg.StartMap)
	}
	return g
}

func (g *Game) newFinder() *nav.Finder {
	pc := g.cfg.Pathfinder
	return nav.NewFinder(nav.Options{
		Diagonals:         pc.Diagonals,
		CornerCutting:     pc.CornerCutting,
		IterationsPerTick: pc.IterationsPerTick,
		Sync:              pc.Sync,
	})
}

// Events is the emitter collaborators subscribe to.
func (g *Game) Events() *event.Emitter { return g.events }

func (g *Game) Config() world.GameConfig      { return g.cfg }
func (g *Game) Status() MapStatus             { return g.status }
func (g *Game) CurrentMap() *world.Map        { return g.current }
func (g *Game) Player() *actor.Actor          { return g.player }
func (g *Game) Camera() *camera.Camera        { return g.cam }
func (g *Game) HUD() *layer.HUD               { return g.hud }
func (g *Game) Mesh() *nav.Mesh               { return g.mesh }
func (g *Game) Background() *layer.Background { return g.bg }
func (g *Game) Ticks() int                    { return g.ticks }

// InputSuspended reports whether player input is currently ignored.
func (g *Game) InputSuspended() bool { return g.suspended > 0 }

// GetActor returns the actor with the given id on the current map.
func (g *Game) GetActor(id string) (*actor.Actor, bool) { return g.actors.Get(id) }

// GetActorsOnTile returns the actors standing on t.
func (g *Game) GetActorsOnTile(t grid.Tile) []*actor.Actor { return g.actors.OnTile(t) }

// Actors returns every actor on the current map in insertion order.
func (g *Game) Actors() []*actor.Actor { return g.actors.All() }

// Enqueue schedules fn to run on the frame loop at the start of the next
// tick. It is safe to call from any goroutine and blocks when the queue is
// full.
func (g *Game) Enqueue(fn func(*Game)) { g.queue <- fn }

// GoToMap makes id the current map. A cached map activates at once; an
// uncached one is loaded in the background. While a load is running every
// call returns GoToPending without fetching again.
func (g *Game) GoToMap(id string) GoToStatus {
	if g.status == StatusLoading {
		if id != g.loadingID {
			g.log.Info("map load in progress, request ignored", "requested", id, "loading", g.loadingID)
		}
		return GoToPending
	}
	if m, ok := g.store.Cached(id); ok {
		g.activate(m)
		return GoToActivated
	}
	g.status = StatusLoading
	g.loadingID = id
	store := g.store
	go func() {
		m, err := store.Load(context.Background(), id)
		g.loads <- loadResult{id: id, m: m, err: err}
	}()
	return GoToStarted
}

// AddMap validates m and makes it available to GoToMap.
func (g *Game) AddMap(m *world.Map) error {
	if err := m.Validate(); err != nil {
		return err
	}
	g.store.Put(m)
	return nil
}

func (g *Game) drainLoads() {
	for {
		select {
		case r := <-g.loads:
			if g.status != StatusLoading || r.id != g.loadingID {
				continue
			}
			g.loadingID = ""
			if r.err != nil {
				g.log.Error("map load failed", "map", r.id, "err", r.err)
				g.status = StatusNotLoaded
				if g.current != nil {
					g.status = StatusReady
				}
				continue
			}
			g.activate(r.m)
		default:
			return
		}
	}
}

func (g *Game) drainQueue() {
	for {
		select {
		case fn := <-g.queue:
			fn(g)
		default:
			return
		}
	}
}

// activate resets the per-map state around m: mesh, actors, player spawn,
// camera and the intro script.
func (g *Game) activate(m *world.Map) {
	g.scriptGen++
	g.scripting = false
	g.suspended = 0
	g.current = m
	g.status = StatusReady
	g.actors.Reset()
	g.hud.Reset()
	g.cam.SetActorToFollow(nil)
	g.ptr = pointerState{}

	g.finder = g.newFinder()
	g.mesh = nav.NewMesh(m, g.tiles, g.occupants, g.finder, g.log)

	for _, cfg := range m.Actors {
		if !m.Contains(cfg.Tile) {
			g.log.Warn("actor outside the map", "map", m.ID, "actor", cfg.ID, "tile", cfg.Tile)
			cfg.Tile = m.ShiftTile(cfg.Tile, grid.Vector{})
		}
		a := actor.New(cfg, g.stage, g.log)
		a.LoadModules(cfg.Modules, g.stage)
		g.actors.Add(a)
	}
	if g.player == nil {
		g.player = actor.New(g.cfg.Player, g.stage, g.log)
		g.player.LoadModules(g.cfg.Player.Modules, g.stage)
	}
	spawn := m.PlayerTile
	if !m.Contains(spawn) {
		spawn = m.ShiftTile(spawn, grid.Vector{})
	}
	g.player.Place(spawn)
	g.actors.Add(g.player)
	g.mesh.Update()

	w, h := m.Cols()*g.cfg.TileSize, m.Rows()*g.cfg.TileSize
	g.actors.SetWorldSize(w, h)
	g.bg.SetMap(m, g.mesh)
	if g.cfg.FollowPlayer {
		g.cam.SetActorToFollow(g.player)
	} else {
		g.cam.CenterOn(g.player.Position())
	}
	g.cam.SetBounds(w, h, m.Padding)

	g.log.Info("map ready", "map", m.ID, "cols", m.Cols(), "rows", m.Rows(), "actors", g.actors.Len())
	g.events.Emit(event.Event{Type: event.MapCreated, MapID: m.ID})
	if len(m.StartScript) > 0 {
		g.runScript(m.StartScript)
	}
}

func (g *Game) occupants() []nav.Occupant {
	all := g.actors.All()
	out := make([]nav.Occupant, len(all))
	for i, a := range all {
		out[i] = a
	}
	return out
}

// Tick advances the simulation by dt seconds: pending loads and commands,
// player input, path searches, actors and modules, then the camera.
func (g *Game) Tick(dt float64) {
	if !g.readySent {
		g.readySent = true
		g.events.Emit(event.Event{Type: event.Ready})
	}
	g.drainLoads()
	g.drainQueue()
	if g.status != StatusReady {
		return
	}
	if g.input != nil {
		g.handleInput(g.input.Poll())
	}
	g.finder.Calculate()
	g.pipeline.Update(dt)
	g.cam.Update()
	if g.render.Debug.Enabled {
		g.queueDebugLines()
	}
	g.ticks++
}

func (g *Game) queueDebugLines() {
	g.hud.Debugf("map %s  tps %.0f", g.current.ID, ebiten.ActualTPS())
	if g.player != nil {
		g.hud.Debugf("player %v %s", g.player.Tile(), g.player.State())
	}
	if t, ok := g.GetPointerTile(); ok {
		g.hud.Debugf("pointer %v", t)
	}
	g.hud.Debugf("paths in flight %d", g.finder.Pending())
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	g.Tick(1 / float64(ebiten.TPS()))
	return nil
}

// Draw implements ebiten.Game. It only renders.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.status != StatusReady {
		return
	}
	g.pipeline.Render(screen)
}

// Layout implements ebiten.Game. The viewport follows the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.viewW || outsideHeight != g.viewH {
		g.viewW, g.viewH = outsideWidth, outsideHeight
		g.cam.Resize(outsideWidth, outsideHeight)
		g.hud.SetViewport(outsideWidth, outsideHeight)
	}
	return g.viewW, g.viewH
}
