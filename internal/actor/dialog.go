package actor

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/tilestage/internal/world"
)

type dialogParams struct {
	Lines []world.DialogLine `json:"lines"`
	// Dialog names a dialog defined on the map instead of inline lines.
	Dialog string `json:"dialog"`
}

// Dialog shows a sequence of lines in the overlay. Each click advances to
// the line's NextLine, or to the following line when it has none; lines with
// choices wait for Choose.
type Dialog struct {
	base
	lines   []world.DialogLine
	index   map[string]int
	ref     string
	current int
}

func newDialog(owner *Actor, cfg world.ModuleConfig, host Host) (Module, error) {
	b, err := newBase(KindDialog, PolicyInteract, owner, cfg, host)
	if err != nil {
		return nil, err
	}
	var p dialogParams
	if err := cfg.Decode(&p); err != nil {
		return nil, err
	}
	if len(p.Lines) == 0 && p.Dialog == "" {
		return nil, errors.New("dialog has neither lines nor a dialog reference")
	}
	d := &Dialog{base: b, ref: p.Dialog, current: -1}
	d.setLines(p.Lines)
	return d, nil
}

func (d *Dialog) setLines(lines []world.DialogLine) {
	d.lines = lines
	d.index = make(map[string]int, len(lines))
	for i, l := range lines {
		if l.ID != "" {
			d.index[l.ID] = i
		}
	}
}

// Current returns the line on screen.
func (d *Dialog) Current() (world.DialogLine, bool) {
	if !d.active || d.current < 0 {
		return world.DialogLine{}, false
	}
	return d.lines[d.current], true
}

// Activate shows the first line. Map dialogs are resolved on every
// activation so a map switch picks up the new map's text.
func (d *Dialog) Activate() {
	if d.active {
		return
	}
	if d.ref != "" {
		lines, ok := d.host.Dialog(d.ref)
		if !ok {
			d.owner.log.Warn("dialog not found", "dialog", d.ref)
			return
		}
		d.setLines(lines)
	}
	if len(d.lines) == 0 {
		return
	}
	d.activate()
	d.show(0)
}

func (d *Dialog) Stop() {
	if d.stop() {
		d.current = -1
		d.host.Overlay().HideDialog(d.owner.ID())
	}
}

func (d *Dialog) Update(float64) {}

// Draw is a no-op: the overlay renders dialog text.
func (d *Dialog) Draw(*ebiten.Image) {}

func (d *Dialog) OnClick(Click) bool {
	if !d.active {
		return d.interact(d.Activate)
	}
	d.Advance()
	return true
}

// Advance moves past the current line, ending the dialog after the last.
// A line offering choices does not advance.
func (d *Dialog) Advance() {
	if !d.active {
		return
	}
	line := d.lines[d.current]
	if len(line.Choices) > 0 {
		return
	}
	if line.NextLine != "" {
		d.goTo(line.NextLine)
		return
	}
	if d.current+1 >= len(d.lines) {
		d.Stop()
		return
	}
	d.show(d.current + 1)
}

// Choose follows choice i of the current line.
func (d *Dialog) Choose(i int) bool {
	if !d.active {
		return false
	}
	choices := d.lines[d.current].Choices
	if i < 0 || i >= len(choices) {
		return false
	}
	d.goTo(choices[i].NextLine)
	return true
}

func (d *Dialog) goTo(id string) {
	i, ok := d.index[id]
	if !ok {
		d.Stop()
		return
	}
	d.show(i)
}

func (d *Dialog) show(i int) {
	d.current = i
	d.host.Overlay().ShowDialog(d.owner.ID(), d.lines[i])
}
