package actor

import (
	"errors"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/world"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

type webPageParams struct {
	URL       string `json:"url"`
	NewWindow bool   `json:"newWindow"`
}

// WebPage opens a URL through the overlay. When the page cannot be opened
// the URL is copied to the clipboard and the player is told so.
type WebPage struct {
	base
	params webPageParams
}

func newWebPage(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error) {
	b, err := newBase(KindWebPage, PolicyInteract, owner, cfg, host)
	if err != nil {
		return nil, err
	}
	w := &WebPage{base: b}
	if err := cfg.Decode(&w.params); err != nil {
		return nil, err
	}
	if w.params.URL == "" {
		return nil, errors.New("web page has no url")
	}
	return w, nil
}

// URL returns the page address.
func (w *WebPage) URL() string { return w.params.URL }

func (w *WebPage) Activate() {
	if !w.activate() {
		return
	}
	ov := w.host.Overlay()
	err := ov.OpenPage(w.params.URL, w.params.NewWindow)
	if err == nil {
		return
	}
	w.owner.log.Info("page blocked", "url", w.params.URL, "err", err)
	if cerr := writeClipboard(w.params.URL); cerr != nil {
		ov.Notice("Could not open " + w.params.URL)
	} else {
		ov.Notice("Link copied to clipboard: " + w.params.URL)
	}
	w.stop()
}

func (w *WebPage) Stop() {
	if w.stop() {
		w.host.Overlay().ClosePage(w.params.URL)
	}
}

func (w *WebPage) Update(float64) {}

func (w *WebPage) Draw(*ebiten.Image) {}

func (w *WebPage) OnClick(Click) bool {
	if w.active {
		w.Stop()
		return true
	}
	return w.interact(w.Activate)
}
