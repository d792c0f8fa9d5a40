package layer

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"slices"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Garsondee/tilestage/internal/camera"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

// ErrPopupBlocked is returned when a page asks for a new window and no
// opener is installed.
var ErrPopupBlocked = errors.New("cannot open a new window")

const (
	noticeSecs = 3.0
	fontSize   = 14
	lineHeight = 18
	hudMargin  = 8
)

var (
	panelBg    = color.RGBA{R: 10, G: 12, B: 18, A: 220}
	panelEdge  = color.RGBA{R: 90, G: 110, B: 140, A: 255}
	textColor  = color.RGBA{R: 230, G: 232, B: 236, A: 255}
	flashColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

var (
	faceOnce   sync.Once
	faceSource *text.GoTextFaceSource
)

// hudFace returns the HUD font, or nil when it cannot be parsed.
func hudFace() text.Face {
	faceOnce.Do(func() {
		src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
		if err == nil {
			faceSource = src
		}
	})
	if faceSource == nil {
		return nil
	}
	return &text.GoTextFace{Source: faceSource, Size: fontSize}
}

type notice struct {
	msg  string
	left float64
}

type dialogView struct {
	owner string
	line  world.DialogLine
}

// HUD is the screen-space layer: click feedback, tooltips, dialogs, panels,
// notices and the per-frame debug lines. It is also the overlay actor
// modules present through.
type HUD struct {
	cam      *camera.Camera
	textures TextureSource
	tileSize int
	feedback world.ClickFeedback
	// OpenURL opens a page in a new window. Nil blocks new windows.
	OpenURL func(url string) error

	flashTile grid.Tile
	flashLeft float64

	tooltip   string
	tooltipAt grid.Point

	debug      []string
	dialog     *dialogView
	notices    []notice
	panels     map[string]string
	panelOrder []string
	pages      []string

	canvas canvas
	w, h   int
}

func NewHUD(cam *camera.Camera, textures TextureSource, tileSize int, feedback world.ClickFeedback) *HUD {
	return &HUD{
		cam:      cam,
		textures: textures,
		tileSize: tileSize,
		feedback: feedback,
		panels:   make(map[string]string),
	}
}

func (h *HUD) Name() string { return "hud" }

// SetViewport sizes the canvas to the screen.
func (h *HUD) SetViewport(w, height int) { h.w, h.h = w, height }

// Flash starts the click feedback on t.
func (h *HUD) Flash(t grid.Tile) {
	h.flashTile = t
	h.flashLeft = h.feedback.Duration
}

// FlashAlpha is the feedback opacity in [0, 1]; zero when no flash shows.
func (h *HUD) FlashAlpha() float64 {
	if h.flashLeft <= 0 || h.feedback.Duration <= 0 {
		return 0
	}
	return h.flashLeft / h.feedback.Duration
}

// SetTooltip shows s near the screen point at; an empty s hides it.
func (h *HUD) SetTooltip(s string, at grid.Point) {
	h.tooltip, h.tooltipAt = s, at
}

func (h *HUD) Tooltip() string { return h.tooltip }

// Debugf queues a debug line for the next frame only.
func (h *HUD) Debugf(format string, args ...any) {
	h.debug = append(h.debug, fmt.Sprintf(format, args...))
}

// DebugLines returns the lines queued since the last frame.
func (h *HUD) DebugLines() []string { return slices.Clone(h.debug) }

func (h *HUD) ShowDialog(owner string, line world.DialogLine) {
	h.dialog = &dialogView{owner: owner, line: line}
}

// HideDialog closes the dialog if owner is the one showing it.
func (h *HUD) HideDialog(owner string) {
	if h.dialog != nil && h.dialog.owner == owner {
		h.dialog = nil
	}
}

// Dialog returns the line on screen.
func (h *HUD) Dialog() (world.DialogLine, bool) {
	if h.dialog == nil {
		return world.DialogLine{}, false
	}
	return h.dialog.line, true
}

// DialogOwner returns the id of the actor whose dialog is on screen.
func (h *HUD) DialogOwner() (string, bool) {
	if h.dialog == nil {
		return "", false
	}
	return h.dialog.owner, true
}

// OpenPage shows url in an overlay frame, or hands it to OpenURL for a
// new window.
func (h *HUD) OpenPage(url string, newWindow bool) error {
	if newWindow {
		if h.OpenURL == nil {
			return ErrPopupBlocked
		}
		return h.OpenURL(url)
	}
	if !slices.Contains(h.pages, url) {
		h.pages = append(h.pages, url)
	}
	return nil
}

func (h *HUD) ClosePage(url string) {
	h.pages = slices.DeleteFunc(h.pages, func(p string) bool { return p == url })
}

// Pages returns the urls shown in overlay frames.
func (h *HUD) Pages() []string { return slices.Clone(h.pages) }

func (h *HUD) Notice(msg string) {
	h.notices = append(h.notices, notice{msg: msg, left: noticeSecs})
}

// Notices returns the messages still on screen, oldest first.
func (h *HUD) Notices() []string {
	out := make([]string, len(h.notices))
	for i, n := range h.notices {
		out[i] = n.msg
	}
	return out
}

func (h *HUD) SetPanel(id, content string, visible bool) {
	if !visible {
		delete(h.panels, id)
		h.panelOrder = slices.DeleteFunc(h.panelOrder, func(p string) bool { return p == id })
		return
	}
	if _, ok := h.panels[id]; !ok {
		h.panelOrder = append(h.panelOrder, id)
	}
	h.panels[id] = content
}

// Panel returns a visible panel's content.
func (h *HUD) Panel(id string) (string, bool) {
	c, ok := h.panels[id]
	return c, ok
}

// Reset drops everything tied to the current map.
func (h *HUD) Reset() {
	h.flashLeft = 0
	h.tooltip = ""
	h.dialog = nil
	clear(h.panels)
	h.panelOrder = nil
	h.pages = nil
}

func (h *HUD) Update(dt float64) {
	if h.flashLeft > 0 {
		h.flashLeft -= dt
	}
	live := h.notices[:0]
	for _, n := range h.notices {
		n.left -= dt
		if n.left > 0 {
			live = append(live, n)
		}
	}
	h.notices = live
}

// IsDirty is always true: the debug buffer is flushed every frame.
func (h *HUD) IsDirty() bool { return true }

func (h *HUD) Clear() { h.canvas.ensure(h.w, h.h).Clear() }

func (h *HUD) Draw() {
	dst := h.canvas.img
	h.drawFlash(dst)
	if h.tooltip != "" {
		h.drawBox(dst, []string{h.tooltip}, float32(h.tooltipAt.X)+12, float32(h.tooltipAt.Y)+12)
	}

	y := float32(hudMargin)
	for _, id := range h.panelOrder {
		y += h.drawBox(dst, strings.Split(h.panels[id], "\n"), float32(h.w)/2, y) + hudMargin
	}
	for _, url := range h.pages {
		y += h.drawBox(dst, []string{"Page: " + url, "(click again to close)"}, float32(h.w)/2, y) + hudMargin
	}

	if h.dialog != nil {
		h.drawDialog(dst)
	}

	ny := float32(h.h) - hudMargin
	for i := len(h.notices) - 1; i >= 0; i-- {
		ny -= lineHeight + 2*hudMargin
		h.drawBox(dst, []string{h.notices[i].msg}, hudMargin, ny)
	}

	for i, line := range h.debug {
		drawText(dst, line, hudMargin, hudMargin+float64(i*lineHeight), textColor)
	}
	h.debug = h.debug[:0]
}

func (h *HUD) Composite(screen *ebiten.Image) { h.canvas.blit(screen, 0, 0) }

func (h *HUD) drawFlash(dst *ebiten.Image) {
	alpha := h.FlashAlpha()
	if alpha <= 0 {
		return
	}
	ox, oy := h.cam.Offset()
	x := float64(h.flashTile.X*h.tileSize) + ox
	y := float64(h.flashTile.Y*h.tileSize) + oy
	ref := h.feedback.Texture
	if img := h.textures.Get(ref.Src).Clip(ref.Clip); img != nil {
		ts := float64(h.tileSize)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(ts/float64(img.Bounds().Dx()), ts/float64(img.Bounds().Dy()))
		op.GeoM.Translate(x, y)
		op.ColorScale.ScaleAlpha(float32(alpha))
		dst.DrawImage(img, op)
		return
	}
	c := flashColor
	c.A = uint8(120 * alpha)
	ts := float32(h.tileSize)
	vector.StrokeRect(dst, float32(x)+1, float32(y)+1, ts-2, ts-2, 2, c, false)
}

func (h *HUD) drawDialog(dst *ebiten.Image) {
	line := h.dialog.line
	lines := []string{}
	if line.Speaker != "" {
		lines = append(lines, line.Speaker+":")
	}
	lines = append(lines, strings.Split(line.Text, "\n")...)
	for i, c := range line.Choices {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, c.Text))
	}
	height := float32(len(lines)*lineHeight + 2*hudMargin)
	h.drawBox(dst, lines, hudMargin, float32(h.h)-height-hudMargin)
}

// drawBox draws lines in a framed panel at (x, y) and returns its height.
func (h *HUD) drawBox(dst *ebiten.Image, lines []string, x, y float32) float32 {
	width := 0
	for _, l := range lines {
		width = max(width, textWidth(l))
	}
	bw := float32(width + 2*hudMargin)
	bh := float32(len(lines)*lineHeight + 2*hudMargin)
	if x+bw > float32(h.w) {
		x = max(0, float32(h.w)-bw)
	}
	vector.FillRect(dst, x, y, bw, bh, panelBg, false)
	vector.StrokeRect(dst, x, y, bw, bh, 1, panelEdge, false)
	for i, l := range lines {
		drawText(dst, l, float64(x)+hudMargin, float64(y)+hudMargin+float64(i*lineHeight), textColor)
	}
	return bh
}

func drawText(dst *ebiten.Image, s string, x, y float64, c color.Color) {
	face := hudFace()
	if face == nil {
		ebitenutil.DebugPrintAt(dst, s, int(x), int(y))
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, face, op)
}

func textWidth(s string) int {
	face := hudFace()
	if face == nil {
		return len(s) * 6
	}
	w, _ := text.Measure(s, face, lineHeight)
	return int(w)
}
