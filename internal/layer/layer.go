// Package layer is the frame's render pipeline: an ordered list of layers,
// each drawing into its own off-screen canvas that is composited onto the
// screen with the camera offset.
package layer

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Layer is one stage of the pipeline. Update runs during the simulation
// tick; Clear, Draw and Composite run during the frame's draw and must not
// change simulation state.
type Layer interface {
	Name() string
	Update(dt float64)
	// IsDirty reports whether the canvas must be regenerated this frame.
	IsDirty() bool
	Clear()
	Draw()
	Composite(screen *ebiten.Image)
}

// Pipeline runs its layers in insertion order.
type Pipeline struct {
	layers []Layer
}

// NewPipeline creates a pipeline over the given layers, bottom first.
func NewPipeline(layers ...Layer) *Pipeline {
	return &Pipeline{layers: layers}
}

// Layers returns the layers bottom first.
func (p *Pipeline) Layers() []Layer { return p.layers }

// Update runs every layer's update pass.
func (p *Pipeline) Update(dt float64) {
	for _, l := range p.layers {
		l.Update(dt)
	}
}

// Render regenerates dirty canvases and composites every layer onto
// screen. A nil screen regenerates without compositing.
func (p *Pipeline) Render(screen *ebiten.Image) {
	for _, l := range p.layers {
		if l.IsDirty() {
			l.Clear()
			l.Draw()
		}
		if screen != nil {
			l.Composite(screen)
		}
	}
}

// canvas is a lazily sized off-screen image.
type canvas struct {
	img  *ebiten.Image
	w, h int
}

// ensure returns an image of exactly w×h, reallocating on size change.
func (c *canvas) ensure(w, h int) *ebiten.Image {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if c.img == nil || c.w != w || c.h != h {
		if c.img != nil {
			c.img.Deallocate()
		}
		c.img = ebiten.NewImage(w, h)
		c.w, c.h = w, h
	}
	return c.img
}

// blit draws the canvas onto screen translated by (x, y).
func (c *canvas) blit(screen *ebiten.Image, x, y float64) {
	if c.img == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(x, y)
	screen.DrawImage(c.img, op)
}
