package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultTileSize          = 32
	defaultClickFeedbackSecs = 0.4
	defaultIterationsPerTick = 1000
)

// ClickFeedback is the flash shown on the clicked tile.
type ClickFeedback struct {
	Texture  TextureRef `json:"texture"`
	Duration float64    `json:"duration"` // seconds
}

// PathfinderConfig tunes the grid search.
type PathfinderConfig struct {
	Diagonals         bool `json:"diagonals"`
	CornerCutting     bool `json:"cornerCutting"`
	IterationsPerTick int  `json:"iterationsPerTick"`
	Sync              bool `json:"sync"`
}

// DebugConfig selects debug overlays.
type DebugConfig struct {
	Enabled bool `json:"enabled"`
	Navmesh bool `json:"navmesh"`
	Grid    bool `json:"grid"`
}

// GameConfig is the global tile and engine configuration document.
type GameConfig struct {
	TileSize      int              `json:"tileSize"`
	FollowPlayer  bool             `json:"followPlayer"`
	LerpAlpha     float64          `json:"lerpAlpha"`
	StartMap      string           `json:"startMap"`
	Tiles         []TileDef        `json:"tiles"`
	Player        ActorConfig      `json:"player"`
	ClickFeedback ClickFeedback    `json:"clickFeedback"`
	Pathfinder    PathfinderConfig `json:"pathfinder"`
	Debug         DebugConfig      `json:"debug"`
}

// ApplyDefaults fills unset fields.
func (c *GameConfig) ApplyDefaults() {
	if c.TileSize <= 0 {
		c.TileSize = defaultTileSize
	}
	if c.LerpAlpha <= 0 || c.LerpAlpha > 1 {
		c.LerpAlpha = 1
	}
	if c.ClickFeedback.Duration <= 0 {
		c.ClickFeedback.Duration = defaultClickFeedbackSecs
	}
	if c.Pathfinder.IterationsPerTick <= 0 {
		c.Pathfinder.IterationsPerTick = defaultIterationsPerTick
	}
	if c.Player.ID == "" {
		c.Player.ID = "player"
	}
}

// LoadGameConfig reads a game config from a .json or .hcl file. assetRoot is
// exposed to HCL expressions as the `assets` variable.
func LoadGameConfig(path, assetRoot string) (*GameConfig, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game config %s: %w", path, err)
	}
	var cfg *GameConfig
	switch filepath.Ext(path) {
	case ".json":
		cfg, err = DecodeGameConfigJSON(src)
	case ".hcl":
		cfg, err = DecodeGameConfigHCL(src, path, assetRoot)
	default:
		return nil, fmt.Errorf("game config %s: unsupported extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeGameConfigJSON parses the JSON form of the game config.
func DecodeGameConfigJSON(src []byte) (*GameConfig, error) {
	var cfg GameConfig
	dec := json.NewDecoder(bytes.NewReader(src))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode game config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
