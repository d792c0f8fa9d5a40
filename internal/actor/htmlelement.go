package actor

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/world"
)

type htmlElementParams struct {
	ID      string `json:"id"`
	Src     string `json:"src"`
	Content string `json:"content"`
}

// HTMLElement shows a text panel in the overlay. Content from Src is read
// once at construction.
type HTMLElement struct {
	base
	id      string
	content string
}

func newHTMLElement(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error) {
	b, err := newBase(KindHTMLElement, PolicyInteract, owner, cfg, host)
	if err != nil {
		return nil, err
	}
	var p htmlElementParams
	if err := cfg.Decode(&p); err != nil {
		return nil, err
	}
	h := &HTMLElement{base: b, id: p.ID, content: p.Content}
	if h.id == "" {
		h.id = owner.ID()
	}
	if p.Src != "" {
		content, err := host.Content(p.Src)
		if err != nil {
			owner.log.Warn("panel content unavailable", "src", p.Src, "err", err)
		} else {
			h.content = content
		}
	}
	return h, nil
}

// Content returns the panel text.
func (h *HTMLElement) Content() string { return h.content }

func (h *HTMLElement) Activate() {
	if h.activate() {
		h.host.Overlay().SetPanel(h.id, h.content, true)
	}
}

func (h *HTMLElement) Stop() {
	if h.stop() {
		h.host.Overlay().SetPanel(h.id, "", false)
	}
}

func (h *HTMLElement) Update(float64) {}

func (h *HTMLElement) Draw(*ebiten.Image) {}

func (h *HTMLElement) OnClick(Click) bool {
	if h.active {
		h.Stop()
		return true
	}
	return h.interact(h.Activate)
}
