// Package asset is the process-wide texture cache. Images are keyed by their
// src, decoded once in the background, and stay not-ready forever when the
// decode fails.
package asset

import (
	"image"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/Garsondee/tilestage/internal/world"
)

// Loader decodes one image from the asset file system.
type Loader func(fsys fs.FS, src string) (*ebiten.Image, error)

// DefaultLoader decodes through ebitenutil.
func DefaultLoader(fsys fs.FS, src string) (*ebiten.Image, error) {
	img, _, err := ebitenutil.NewImageFromFileSystem(fsys, src)
	return img, err
}

// Texture is a shared image handle. It is safe to read from the frame loop
// while the loader goroutine fills it in.
type Texture struct {
	src    string
	mutex  sync.RWMutex
	img    *ebiten.Image
	ready  bool
	failed bool
}

// Src returns the key the texture was requested with.
func (t *Texture) Src() string { return t.src }

// Ready reports whether the image finished loading.
func (t *Texture) Ready() bool {
	if t == nil {
		return false
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.ready
}

// Settled reports whether loading finished, successfully or not.
func (t *Texture) Settled() bool {
	if t == nil {
		return true
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.ready || t.failed
}

// Image returns the decoded image, or nil until it is ready.
func (t *Texture) Image() *ebiten.Image {
	if t == nil {
		return nil
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.img
}

// Clip returns the clipped region of the image, the whole image for a nil
// clip, or nil while the texture is not ready.
func (t *Texture) Clip(c *world.Clip) *ebiten.Image {
	img := t.Image()
	if img == nil || c == nil {
		return img
	}
	return img.SubImage(image.Rect(c.X, c.Y, c.X+c.W, c.Y+c.H)).(*ebiten.Image)
}

func (t *Texture) set(img *ebiten.Image) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.img = img
	t.ready = true
}

func (t *Texture) fail() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.failed = true
}

// Option configures a Cache.
type Option func(*Cache)

// WithLoader replaces the image decoder.
func WithLoader(l Loader) Option {
	return func(c *Cache) { c.load = l }
}

// Cache hands out textures by src. Insertions are append-only per key.
type Cache struct {
	fsys fs.FS
	load Loader
	log  *slog.Logger

	mutex    sync.Mutex
	textures map[string]*Texture
	pending  sync.WaitGroup
}

// NewCache creates a cache reading from fsys (the working directory when nil).
func NewCache(fsys fs.FS, log *slog.Logger, opts ...Option) *Cache {
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		fsys:     fsys,
		load:     DefaultLoader,
		log:      log,
		textures: make(map[string]*Texture),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the texture for src, starting its load on first request.
// An empty src has no texture.
func (c *Cache) Get(src string) *Texture {
	if src == "" {
		return nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if t, ok := c.textures[src]; ok {
		return t
	}
	t := &Texture{src: src}
	c.textures[src] = t
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		img, err := c.load(c.fsys, src)
		if err != nil {
			c.log.Error("texture load failed", "src", src, "err", err)
			t.fail()
			return
		}
		t.set(img)
	}()
	return t
}

// Wait blocks until every load started so far has finished.
func (c *Cache) Wait() { c.pending.Wait() }

// Len returns the number of known textures.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.textures)
}
