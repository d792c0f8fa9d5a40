package world

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/tilestage/internal/grid"
)

const sampleJSONConfig = `{
  "tileSize": 16,
  "followPlayer": true,
  "startMap": "town",
  "tiles": [
    {"id": "grass", "texture": {"src": "tiles.png", "clip": {"x": 0, "y": 0, "w": 16, "h": 16}}},
    {"id": "wall", "isBlocking": true, "texture": {"src": "tiles.png"}}
  ],
  "player": {"speed": 64, "isBlocking": true,
    "modules": [{"type": "texture", "src": "hero.png", "frames": 3}]}
}`

func TestDecodeGameConfigJSON_Defaults(t *testing.T) {
	cfg, err := DecodeGameConfigJSON([]byte(sampleJSONConfig))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.TileSize)
	assert.Equal(t, 1.0, cfg.LerpAlpha)
	assert.Equal(t, "player", cfg.Player.ID)
	assert.Equal(t, defaultIterationsPerTick, cfg.Pathfinder.IterationsPerTick)
	require.Len(t, cfg.Tiles, 2)
	assert.True(t, cfg.Tiles[1].Blocking)

	require.Len(t, cfg.Player.Modules, 1)
	var tex struct {
		Src    string `json:"src"`
		Frames int    `json:"frames"`
	}
	require.NoError(t, cfg.Player.Modules[0].Decode(&tex))
	assert.Equal(t, "hero.png", tex.Src)
	assert.Equal(t, 3, tex.Frames)
}

const sampleHCLConfig = `
tile_size     = 24
follow_player = true
lerp_alpha    = 0.25
start_map     = "cellar"

tile "grass" {
  texture = "${assets}/tiles.png"
  clip    = [0, 0, 24, 24]
}

tile "mud" {
  walk_cost = 3
  texture   = "${assets}/tiles.png"
}

tile "rock" {
  blocking = true
}

player {
  id        = "hero"
  speed     = 96
  blocking  = true
  direction = "left"

  module "texture" {
    src    = "${assets}/hero.png"
    frames = 4
  }
}

pathfinder {
  diagonals      = true
  corner_cutting = false
}

debug {
  enabled = true
  navmesh = true
}
`

func TestDecodeGameConfigHCL(t *testing.T) {
	cfg, err := DecodeGameConfigHCL([]byte(sampleHCLConfig), "game.hcl", "/srv/assets")
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.TileSize)
	assert.Equal(t, 0.25, cfg.LerpAlpha)
	assert.Equal(t, "cellar", cfg.StartMap)
	require.Len(t, cfg.Tiles, 3)
	assert.Equal(t, "/srv/assets/tiles.png", cfg.Tiles[0].Texture.Src)
	require.NotNil(t, cfg.Tiles[0].Texture.Clip)
	assert.Equal(t, 24, cfg.Tiles[0].Texture.Clip.W)
	assert.Equal(t, 3.0, cfg.Tiles[1].WalkCost)
	assert.True(t, cfg.Tiles[2].Blocking)

	assert.Equal(t, "hero", cfg.Player.ID)
	assert.Equal(t, grid.DirLeft, cfg.Player.Direction)
	require.Len(t, cfg.Player.Modules, 1)
	assert.Equal(t, "texture", cfg.Player.Modules[0].Type)
	var tex struct {
		Src    string `json:"src"`
		Frames int    `json:"frames"`
	}
	require.NoError(t, cfg.Player.Modules[0].Decode(&tex))
	assert.Equal(t, "/srv/assets/hero.png", tex.Src)
	assert.Equal(t, 4, tex.Frames)

	assert.True(t, cfg.Pathfinder.Diagonals)
	assert.False(t, cfg.Pathfinder.CornerCutting)
	assert.True(t, cfg.Debug.Navmesh)
}

func TestLoadGameConfig_RejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := LoadGameConfig(path, "")
	require.Error(t, err)
}

func TestModuleConfig_RoundTripKeepsVariantFields(t *testing.T) {
	mc, err := NewModuleConfig([]byte(`{"type":"particles","activation":"MANUAL","rate":12}`))
	require.NoError(t, err)
	assert.Equal(t, "particles", mc.Type)
	assert.Equal(t, "MANUAL", mc.Activation)

	out, err := json.Marshal(mc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"particles","activation":"MANUAL","rate":12}`, string(out))
}

func TestMapStore_LoadCachesAndSaves(t *testing.T) {
	dir := t.TempDir()
	doc := `{"grid": [["a","a"],["a","b"]], "defaultTile": "a", "playerTile": {"x": 1, "y": 0}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "town.json"), []byte(doc), 0o644))

	store := NewMapStore(dir)
	m, err := store.Load(context.Background(), "town")
	require.NoError(t, err)
	assert.Equal(t, "town", m.ID)
	assert.Equal(t, 2, m.Cols())

	again, err := store.Load(context.Background(), "town")
	require.NoError(t, err)
	assert.Same(t, m, again)

	m.SetTile(grid.Tile{X: 0, Y: 0}, "b")
	require.NoError(t, store.Save(m))

	fresh := NewMapStore(dir)
	reloaded, err := fresh.Load(context.Background(), "town")
	require.NoError(t, err)
	id, _ := reloaded.TileAt(grid.Tile{X: 0, Y: 0})
	assert.Equal(t, "b", id)
}

func TestMapStore_Errors(t *testing.T) {
	store := NewMapStore(t.TempDir())
	_, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, ErrMapNotFound)

	_, err = store.Load(context.Background(), "../escape")
	require.Error(t, err)

	memory := NewMapStore("")
	_, err = memory.Load(context.Background(), "any")
	require.ErrorIs(t, err, ErrMapNotFound)
	memory.Put(NewFilledMap("any", 1, 1, "a"))
	_, err = memory.Load(context.Background(), "any")
	require.NoError(t, err)
}

func TestDecodeMap_RejectsRaggedGrid(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "map")
	require.NoError(t, err)
	_, err = f.WriteString(`{"grid": [["a","a"],["a"]], "defaultTile": "a"}`)
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	_, err = DecodeMap(f)
	require.ErrorIs(t, err, ErrNotRectangular)
	f.Close()
}
