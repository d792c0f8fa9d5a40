package actor

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/asset"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

type textureParams struct {
	Src string `json:"src"`
	// Clip is the first frame when no per-direction clip applies.
	Clip *world.Clip `json:"clip"`
	// Clips holds the first frame for each facing ("bottom", "left", ...).
	Clips map[string]world.Clip `json:"clips"`
	// Frames are laid out left to right from the first frame.
	Frames        int        `json:"frames"`
	FrameDuration float64    `json:"frameDuration"` // seconds
	Offset        grid.Point `json:"offset"`
}

// Texture draws the owner's sprite. Animated sheets advance one frame every
// FrameDuration while the owner is moving and rest on the first frame
// otherwise.
type Texture struct {
	base
	params  textureParams
	tex     *asset.Texture
	frame   int
	elapsed float64
}

func newTexture(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error) {
	b, err := newBase(KindTexture, PolicyAutomatic, owner, cfg, host)
	if err != nil {
		return nil, err
	}
	t := &Texture{base: b}
	if err := cfg.Decode(&t.params); err != nil {
		return nil, err
	}
	if t.params.Frames < 1 {
		t.params.Frames = 1
	}
	if t.params.FrameDuration <= 0 {
		t.params.FrameDuration = 0.15
	}
	t.tex = host.Texture(t.params.Src)
	return t, nil
}

func (t *Texture) Activate() { t.activate() }

func (t *Texture) Stop() {
	if t.stop() {
		t.frame, t.elapsed = 0, 0
	}
}

func (t *Texture) OnClick(Click) bool { return false }

// Frame returns the current animation frame.
func (t *Texture) Frame() int { return t.frame }

func (t *Texture) Update(dt float64) {
	if !t.active {
		return
	}
	if !t.owner.Moving() || t.params.Frames == 1 {
		t.frame, t.elapsed = 0, 0
		return
	}
	t.elapsed += dt
	for t.elapsed >= t.params.FrameDuration {
		t.elapsed -= t.params.FrameDuration
		t.frame = (t.frame + 1) % t.params.Frames
	}
}

// CurrentClip returns the source rectangle for the owner's facing and the
// current frame. ok is false when the whole image is drawn.
func (t *Texture) CurrentClip() (c world.Clip, ok bool) {
	if dc, found := t.params.Clips[t.owner.Direction().String()]; found {
		c, ok = dc, true
	} else if t.params.Clip != nil {
		c, ok = *t.params.Clip, true
	}
	if ok {
		c.X += t.frame * c.W
	}
	return c, ok
}

func (t *Texture) Draw(dst *ebiten.Image) {
	if !t.active {
		return
	}
	var img *ebiten.Image
	if c, ok := t.CurrentClip(); ok {
		img = t.tex.Clip(&c)
	} else {
		img = t.tex.Image()
	}
	if img == nil {
		return
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	p := t.owner.Position()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(p.X-float64(w)/2+t.params.Offset.X, p.Y-float64(h)/2+t.params.Offset.Y)
	dst.DrawImage(img, op)
}
