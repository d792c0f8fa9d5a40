package asset

import (
	"errors"
	"io/fs"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
)

func TestCache_LoadsOncePerSrc(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(fstest.MapFS{}, nil, WithLoader(func(fs.FS, string) (*ebiten.Image, error) {
		calls.Add(1)
		return nil, nil
	}))

	a := c.Get("hero.png")
	b := c.Get("hero.png")
	c.Wait()

	assert.Same(t, a, b)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, a.Ready())
	assert.Equal(t, 1, c.Len())
}

func TestCache_FailedLoadNeverReady(t *testing.T) {
	c := NewCache(fstest.MapFS{}, nil, WithLoader(func(fs.FS, string) (*ebiten.Image, error) {
		return nil, errors.New("corrupt")
	}))
	tex := c.Get("broken.png")
	c.Wait()
	assert.False(t, tex.Ready())
	assert.True(t, tex.Settled())
	assert.Nil(t, tex.Image())
	assert.Nil(t, tex.Clip(nil))
}

func TestCache_EmptySrcHasNoTexture(t *testing.T) {
	c := NewCache(fstest.MapFS{}, nil)
	tex := c.Get("")
	assert.Nil(t, tex)
	assert.False(t, tex.Ready())
	assert.True(t, tex.Settled())
}
