package engine

import (
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/event"
	"github.com/Garsondee/tilestage/internal/grid"
)

// InputState is one frame's worth of player input.
type InputState struct {
	Pressed        []ebiten.Key
	JustPressed    []ebiten.Key
	CursorX        int
	CursorY        int
	CursorIn       bool // cursor is over the game screen
	PrimaryClick   bool
	SecondaryClick bool
}

// InputSource produces the input for each tick.
type InputSource interface {
	Poll() InputState
}

type ebitenInput struct {
	pressed []ebiten.Key
	just    []ebiten.Key
}

// NewEbitenInput reads the keyboard and mouse through ebiten.
func NewEbitenInput() InputSource { return &ebitenInput{} }

func (in *ebitenInput) Poll() InputState {
	in.pressed = inpututil.AppendPressedKeys(in.pressed[:0])
	in.just = inpututil.AppendJustPressedKeys(in.just[:0])
	x, y := ebiten.CursorPosition()
	return InputState{
		Pressed:        in.pressed,
		JustPressed:    in.just,
		CursorX:        x,
		CursorY:        y,
		CursorIn:       x >= 0 && y >= 0,
		PrimaryClick:   inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		SecondaryClick: inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight),
	}
}

type pointerState struct {
	tile   grid.Tile
	valid  bool
	vector grid.Vector
}

var (
	keysUp    = []ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW}
	keysDown  = []ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS}
	keysLeft  = []ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA}
	keysRight = []ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD}
)

func anyKey(pressed, keys []ebiten.Key) bool {
	for _, k := range keys {
		if slices.Contains(pressed, k) {
			return true
		}
	}
	return false
}

// GetPointerTile returns the tile under the cursor, or false when the cursor
// is off the map.
func (g *Game) GetPointerTile() (grid.Tile, bool) { return g.ptr.tile, g.ptr.valid }

func (g *Game) handleInput(in InputState) {
	for _, k := range in.JustPressed {
		switch {
		case k == ebiten.KeyF3:
			g.ToggleDebug()
		case k == ebiten.KeyF4:
			if err := g.CopyMapToClipboard(); err != nil {
				g.log.Warn("copy map to clipboard", "err", err)
			} else {
				g.hud.Notice("Map copied to clipboard")
			}
		case k >= ebiten.KeyDigit1 && k <= ebiten.KeyDigit9:
			g.chooseDialog(int(k - ebiten.KeyDigit1))
		}
	}

	g.trackPointer(in)
	g.steer(in.Pressed)

	if in.PrimaryClick && g.ptr.valid {
		g.primaryClick(g.ptr.tile)
	}
	if in.SecondaryClick && g.ptr.valid {
		g.events.Emit(event.Event{Type: event.SecondaryClick, MapID: g.current.ID, Tile: g.ptr.tile, Actors: g.actorIDs(g.ptr.tile)})
		for _, a := range g.actors.OnTile(g.ptr.tile) {
			if a.Click(actor.Click{Tile: g.ptr.tile, Secondary: true}) {
				break
			}
		}
	}
}

func (g *Game) trackPointer(in InputState) {
	var t grid.Tile
	valid := false
	if in.CursorIn {
		t = grid.TileFromPixel(g.cam.ScreenToWorld(in.CursorX, in.CursorY), g.cfg.TileSize)
		valid = g.current.Contains(t)
	}
	changed := valid != g.ptr.valid || (valid && t != g.ptr.tile)
	g.ptr.tile, g.ptr.valid = t, valid
	if !changed {
		return
	}
	if valid {
		g.events.Emit(event.Event{Type: event.PointerTileChanged, MapID: g.current.ID, Tile: t, Actors: g.actorIDs(t)})
	}
	g.hud.SetTooltip("", grid.Point{})
	if !valid {
		return
	}
	for _, a := range g.actors.OnTile(t) {
		if tip := a.Tooltip(); tip != "" {
			g.hud.SetTooltip(tip, grid.Point{X: float64(in.CursorX), Y: float64(in.CursorY)})
			break
		}
	}
}

// steer turns held direction keys into vector movement for the player.
func (g *Game) steer(pressed []ebiten.Key) {
	if g.player == nil {
		return
	}
	var v grid.Vector
	if !g.InputSuspended() {
		switch {
		case anyKey(pressed, keysLeft):
			v.X = -1
		case anyKey(pressed, keysRight):
			v.X = 1
		}
		switch {
		case anyKey(pressed, keysUp):
			v.Y = -1
		case anyKey(pressed, keysDown):
			v.Y = 1
		}
	}
	if v == g.ptr.vector {
		return
	}
	g.ptr.vector = v
	if v.IsZero() && g.player.State() != actor.StateManualVector {
		return
	}
	g.player.MoveOnVector(v)
}

func (g *Game) primaryClick(t grid.Tile) {
	g.events.Emit(event.Event{Type: event.PrimaryClick, MapID: g.current.ID, Tile: t, Actors: g.actorIDs(t)})
	g.hud.Flash(t)

	if owner, ok := g.hud.DialogOwner(); ok {
		if d := g.dialogOf(owner); d != nil {
			d.Advance()
			return
		}
	}
	for _, a := range g.actors.OnTile(t) {
		if a.Click(actor.Click{Tile: t}) {
			return
		}
	}
	if g.InputSuspended() || g.player == nil || g.mesh.IsBlocked(t) {
		return
	}
	g.player.MoveTo(t, nil)
}

func (g *Game) chooseDialog(i int) {
	owner, ok := g.hud.DialogOwner()
	if !ok {
		return
	}
	if d := g.dialogOf(owner); d != nil {
		d.Choose(i)
	}
}

func (g *Game) dialogOf(id string) *actor.Dialog {
	a, ok := g.actors.Get(id)
	if !ok {
		return nil
	}
	m, ok := a.Module(actor.KindDialog)
	if !ok {
		return nil
	}
	d, _ := m.(*actor.Dialog)
	return d
}

func (g *Game) actorIDs(t grid.Tile) []string {
	on := g.actors.OnTile(t)
	if len(on) == 0 {
		return nil
	}
	ids := make([]string, len(on))
	for i, a := range on {
		ids[i] = a.ID()
	}
	return ids
}
