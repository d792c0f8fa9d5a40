package actor

import (
	"image/color"
	"math/rand"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

type particleParams struct {
	Rate     float64 `json:"rate"`     // particles per second
	Lifetime float64 `json:"lifetime"` // seconds
	Gravity  float64 `json:"gravity"`  // px/s², positive is down
	Velocity struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Spread float64 `json:"spread"`
	} `json:"velocity"`
	Colors []string `json:"colors"`
	Size   float64  `json:"size"`
	Max    int      `json:"max"`
	// Duration limits emission; zero emits until StopEmitting.
	Duration float64 `json:"duration"`
	Seed     int64   `json:"seed"`
}

type particle struct {
	pos, vel grid.Point
	age      float64
	color    color.RGBA
}

// Particles emits short-lived squares from the owner's position. Once
// emission ends the module stops itself when the last particle dies.
type Particles struct {
	base
	params   particleParams
	colors   []color.RGBA
	rng      *rand.Rand
	emitting bool
	emitted  float64 // fractional particles owed
	elapsed  float64
	live     []particle
}

func newParticles(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error) {
	b, err := newBase(KindParticles, PolicyAutomatic, owner, cfg, host)
	if err != nil {
		return nil, err
	}
	p := &Particles{base: b}
	if err := cfg.Decode(&p.params); err != nil {
		return nil, err
	}
	if p.params.Lifetime <= 0 {
		p.params.Lifetime = 1
	}
	if p.params.Size <= 0 {
		p.params.Size = 2
	}
	if p.params.Max <= 0 {
		p.params.Max = 200
	}
	for _, s := range p.params.Colors {
		if c, ok := world.ParseColor(s); ok {
			p.colors = append(p.colors, c)
		}
	}
	if len(p.colors) == 0 {
		p.colors = []color.RGBA{{R: 0xff, G: 0xff, B: 0xff, A: 0xff}}
	}
	p.rng = rand.New(rand.NewSource(p.params.Seed))
	return p, nil
}

// Population returns the number of live particles.
func (p *Particles) Population() int { return len(p.live) }

// Emitting reports whether new particles are still being generated.
func (p *Particles) Emitting() bool { return p.emitting }

func (p *Particles) Activate() {
	if p.activate() {
		p.emitting = true
		p.emitted, p.elapsed = 0, 0
	}
}

// StopEmitting ends generation; live particles play out.
func (p *Particles) StopEmitting() { p.emitting = false }

// Stop ends the effect immediately.
func (p *Particles) Stop() {
	if p.stop() {
		p.emitting = false
		p.live = p.live[:0]
	}
}

func (p *Particles) OnClick(Click) bool { return false }

func (p *Particles) Update(dt float64) {
	if !p.active {
		return
	}
	alive := p.live[:0]
	for _, pt := range p.live {
		pt.age += dt
		if pt.age >= p.params.Lifetime {
			continue
		}
		pt.vel.Y += p.params.Gravity * dt
		pt.pos.X += pt.vel.X * dt
		pt.pos.Y += pt.vel.Y * dt
		alive = append(alive, pt)
	}
	p.live = alive

	if p.emitting {
		p.emitted += p.params.Rate * dt
		for p.emitted >= 1 && len(p.live) < p.params.Max {
			p.emitted--
			p.spawn()
		}
		if len(p.live) >= p.params.Max {
			p.emitted = 0
		}
		p.elapsed += dt
		if p.params.Duration > 0 && p.elapsed >= p.params.Duration {
			p.emitting = false
		}
	}

	if !p.emitting && len(p.live) == 0 {
		p.Stop()
	}
}

func (p *Particles) spawn() {
	v := p.params.Velocity
	p.live = append(p.live, particle{
		pos: p.owner.Position(),
		vel: grid.Point{
			X: v.X + (p.rng.Float64()*2-1)*v.Spread,
			Y: v.Y + (p.rng.Float64()*2-1)*v.Spread,
		},
		color: p.colors[p.rng.Intn(len(p.colors))],
	})
}

func (p *Particles) Draw(dst *ebiten.Image) {
	if !p.active {
		return
	}
	s := float32(p.params.Size)
	for _, pt := range p.live {
		c := pt.color
		fade := 1 - pt.age/p.params.Lifetime
		c.A = uint8(float64(c.A) * fade)
		vector.FillRect(dst, float32(pt.pos.X)-s/2, float32(pt.pos.Y)-s/2, s, s, c, false)
	}
}
