package actor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/asset"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

var ErrUnknownModule = errors.New("unknown module type")

// Kind names a module variant.
type Kind string

const (
	KindTexture     Kind = "texture"
	KindDialog      Kind = "dialog"
	KindWebPage     Kind = "webpage"
	KindHTMLElement Kind = "htmlelement"
	KindParticles   Kind = "particles"
)

// ParseKind accepts a variant name in any case, with or without a
// "Module" suffix ("Dialog", "dialogModule", "DIALOG").
func ParseKind(s string) (Kind, error) {
	k := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "module")
	if _, ok := constructors[Kind(k)]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, s)
	}
	return Kind(k), nil
}

// Policy decides how a module becomes active.
type Policy int

const (
	PolicyAutomatic Policy = iota // active from construction
	PolicyInteract                // activated by clicking the owner
	PolicyManual                  // activated by code only
	PolicyProximity               // activated by a nearby controller
)

func (p Policy) String() string {
	switch p {
	case PolicyAutomatic:
		return "AUTOMATIC"
	case PolicyInteract:
		return "INTERACT"
	case PolicyManual:
		return "MANUAL"
	case PolicyProximity:
		return "PROXIMITY"
	default:
		return "UNKNOWN"
	}
}

// ParsePolicy parses an activation policy; empty yields def.
func ParsePolicy(s string, def Policy) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "AUTOMATIC":
		return PolicyAutomatic, nil
	case "INTERACT":
		return PolicyInteract, nil
	case "MANUAL":
		return PolicyManual, nil
	case "PROXIMITY":
		return PolicyProximity, nil
	}
	return def, fmt.Errorf("unknown activation policy %q", s)
}

// Click is a pointer click routed to an actor's modules.
type Click struct {
	Tile      grid.Tile
	Secondary bool
}

// Module is an optional behaviour attached to an actor. Update and Draw do
// nothing while the module is inactive; Activate and Stop are idempotent.
type Module interface {
	Kind() Kind
	Policy() Policy
	IsActive() bool
	Activate()
	Stop()
	Update(dt float64)
	Draw(dst *ebiten.Image)
	// OnClick reports whether the click was consumed.
	OnClick(c Click) bool
}

// Overlay is the on-screen surface modules present through.
type Overlay interface {
	ShowDialog(owner string, line world.DialogLine)
	HideDialog(owner string)
	OpenPage(url string, newWindow bool) error
	ClosePage(url string)
	Notice(msg string)
	SetPanel(id, content string, visible bool)
}

// Host gives modules access to the running game.
type Host interface {
	Texture(src string) *asset.Texture
	// Content reads a text asset.
	Content(src string) (string, error)
	// Dialog looks up a dialog defined on the current map.
	Dialog(id string) ([]world.DialogLine, bool)
	// Controller is the actor the player drives.
	Controller() *Actor
	SuspendInput()
	ResumeInput()
	Overlay() Overlay
}

// base carries the state every variant shares.
type base struct {
	kind         Kind
	policy       Policy
	owner        *Actor
	host         Host
	active       bool
	suspendInput bool
	offset       *grid.Tile
	face         *grid.Direction
}

func newBase(kind Kind, def Policy, owner *Actor, cfg world.ModuleConfig, host Host) (base, error) {
	p, err := ParsePolicy(cfg.Activation, def)
	if err != nil {
		return base{}, err
	}
	return base{
		kind:         kind,
		policy:       p,
		owner:        owner,
		host:         host,
		suspendInput: cfg.SuspendInput,
		offset:       cfg.InteractOffset,
		face:         cfg.InteractDirection,
	}, nil
}

func (b *base) Kind() Kind     { return b.kind }
func (b *base) Policy() Policy { return b.policy }
func (b *base) IsActive() bool { return b.active }
func (b *base) Owner() *Actor  { return b.owner }

// activate flips the module on and reports whether it was off.
func (b *base) activate() bool {
	if b.active {
		return false
	}
	b.active = true
	if b.suspendInput {
		b.host.SuspendInput()
	}
	return true
}

// stop flips the module off and reports whether it was on.
func (b *base) stop() bool {
	if !b.active {
		return false
	}
	b.active = false
	if b.suspendInput {
		b.host.ResumeInput()
	}
	return true
}

// interact handles a click on an inactive INTERACT module: the controller
// walks to the interaction tile, turns, and then activate runs. Without an
// interaction offset activation is immediate.
func (b *base) interact(activate func()) bool {
	if b.policy != PolicyInteract {
		return false
	}
	ctrl := b.host.Controller()
	if b.offset == nil || ctrl == nil {
		activate()
		return true
	}
	dest := b.owner.Tile().Add(b.offset.X, b.offset.Y)
	return ctrl.MoveTo(dest, func() {
		if b.face != nil {
			ctrl.Face(*b.face)
		}
		activate()
	})
}

// Constructor builds one module variant.
type Constructor func(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error)

var constructors = map[Kind]Constructor{
	KindTexture:     newTexture,
	KindDialog:      newDialog,
	KindWebPage:     newWebPage,
	KindHTMLElement: newHTMLElement,
	KindParticles:   newParticles,
}

// NewModule builds the module cfg describes. AUTOMATIC modules come back
// already active.
func NewModule(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error) {
	k, err := ParseKind(cfg.Type)
	if err != nil {
		return nil, err
	}
	m, err := constructors[k](owner, cfg, host)
	if err != nil {
		return nil, fmt.Errorf("%s module: %w", k, err)
	}
	if m.Policy() == PolicyAutomatic {
		m.Activate()
	}
	return m, nil
}

// LoadModules builds and attaches every configured module. Modules that
// fail to build are logged and skipped.
func (a *Actor) LoadModules(cfgs []world.ModuleConfig, host Host) {
	for _, cfg := range cfgs {
		m, err := NewModule(a, cfg, host)
		if err != nil {
			a.log.Warn("module skipped", "type", cfg.Type, "err", err)
			continue
		}
		a.AddModule(m)
	}
}

// Click routes a click to the actor's modules until one consumes it.
func (a *Actor) Click(c Click) bool {
	for _, m := range a.modules {
		if m.OnClick(c) {
			return true
		}
	}
	return false
}

// Draw draws every module.
func (a *Actor) Draw(dst *ebiten.Image) {
	for _, m := range a.modules {
		m.Draw(dst)
	}
}
