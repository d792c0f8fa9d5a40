package layer

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/tilestage/internal/asset"
	"github.com/Garsondee/tilestage/internal/camera"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

// TextureSource hands out shared textures by src.
type TextureSource interface {
	Get(src string) *asset.Texture
}

// Walkability is the mesh view the navmesh overlay draws.
type Walkability interface {
	Cost(t grid.Tile) (float64, bool)
}

var (
	blockedTint = color.RGBA{R: 200, G: 30, B: 30, A: 110}
	costlyTint  = color.RGBA{R: 220, G: 180, B: 40, A: 80}
	gridLine    = color.RGBA{R: 255, G: 255, B: 255, A: 40}
)

// Background renders the tile grid once into a map-sized canvas and then
// only repositions it. It is regenerated when marked dirty (map change,
// grid edit, debug toggle) and on every frame while a tile texture it
// needs is still loading.
type Background struct {
	tiles    *world.TileRegistry
	textures TextureSource
	cam      *camera.Camera
	tileSize int

	m     *world.Map
	mesh  Walkability
	debug world.DebugConfig

	canvas  canvas
	dirty   bool
	pending bool
	redraws int
}

func NewBackground(tiles *world.TileRegistry, textures TextureSource, cam *camera.Camera, tileSize int) *Background {
	return &Background{tiles: tiles, textures: textures, cam: cam, tileSize: tileSize}
}

func (b *Background) Name() string { return "background" }

// SetMap switches to a new map and its mesh.
func (b *Background) SetMap(m *world.Map, mesh Walkability) {
	b.m, b.mesh = m, mesh
	b.dirty = true
}

// Invalidate forces a regeneration on the next frame.
func (b *Background) Invalidate() { b.dirty = true }

// SetDebug changes the overlay flags, regenerating only on change.
func (b *Background) SetDebug(d world.DebugConfig) {
	if d != b.debug {
		b.debug = d
		b.dirty = true
	}
}

// Redraws counts canvas regenerations.
func (b *Background) Redraws() int { return b.redraws }

func (b *Background) Update(float64) {}

func (b *Background) IsDirty() bool { return b.m != nil && (b.dirty || b.pending) }

func (b *Background) Clear() {
	b.canvas.ensure(b.m.Cols()*b.tileSize, b.m.Rows()*b.tileSize).Clear()
}

func (b *Background) Draw() {
	dst := b.canvas.img
	ts := float64(b.tileSize)
	for y, row := range b.m.Grid {
		for x, id := range row {
			img := b.tileImage(id)
			if img == nil {
				continue
			}
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Scale(ts/float64(img.Bounds().Dx()), ts/float64(img.Bounds().Dy()))
			op.GeoM.Translate(float64(x)*ts, float64(y)*ts)
			dst.DrawImage(img, op)
		}
	}
	if b.debug.Enabled && b.debug.Navmesh && b.mesh != nil {
		b.drawNavmesh(dst)
	}
	if b.debug.Enabled && b.debug.Grid {
		b.drawGrid(dst)
	}
	b.settle()
}

// settle records a finished regeneration. The canvas stays dirty while any
// texture it uses is still loading.
func (b *Background) settle() {
	b.redraws++
	b.dirty = false
	b.pending = false
	for _, row := range b.m.Grid {
		for _, id := range row {
			def, ok := b.resolve(id)
			if ok && !b.textures.Get(def.Texture.Src).Settled() {
				b.pending = true
				return
			}
		}
	}
}

func (b *Background) Composite(screen *ebiten.Image) {
	if b.m == nil {
		return
	}
	if c, ok := b.m.FillRGBA(); ok {
		screen.Fill(c)
	}
	x, y := b.cam.Offset()
	b.canvas.blit(screen, x, y)
}

func (b *Background) resolve(id string) (world.TileDef, bool) {
	if def, ok := b.tiles.Get(id); ok {
		return def, true
	}
	return b.tiles.Get(b.m.DefaultTile)
}

func (b *Background) tileImage(id string) *ebiten.Image {
	def, ok := b.resolve(id)
	if !ok {
		return nil
	}
	return b.textures.Get(def.Texture.Src).Clip(def.Texture.Clip)
}

func (b *Background) drawNavmesh(dst *ebiten.Image) {
	ts := float32(b.tileSize)
	for y := 0; y < b.m.Rows(); y++ {
		for x := 0; x < b.m.Cols(); x++ {
			cost, ok := b.mesh.Cost(grid.Tile{X: x, Y: y})
			switch {
			case !ok:
				vector.FillRect(dst, float32(x)*ts, float32(y)*ts, ts, ts, blockedTint, false)
			case cost > 1:
				vector.FillRect(dst, float32(x)*ts, float32(y)*ts, ts, ts, costlyTint, false)
			}
		}
	}
}

func (b *Background) drawGrid(dst *ebiten.Image) {
	ts := float32(b.tileSize)
	w, h := float32(b.m.Cols())*ts, float32(b.m.Rows())*ts
	for x := 0; x <= b.m.Cols(); x++ {
		vector.StrokeLine(dst, float32(x)*ts, 0, float32(x)*ts, h, 1, gridLine, false)
	}
	for y := 0; y <= b.m.Rows(); y++ {
		vector.StrokeLine(dst, 0, float32(y)*ts, w, float32(y)*ts, 1, gridLine, false)
	}
}
