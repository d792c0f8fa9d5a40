package world

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/Garsondee/tilestage/internal/grid"
)

// hclGameFile is the top-level structure of a .hcl game config.
type hclGameFile struct {
	TileSize      int               `hcl:"tile_size,optional"`
	FollowPlayer  bool              `hcl:"follow_player,optional"`
	LerpAlpha     float64           `hcl:"lerp_alpha,optional"`
	StartMap      string            `hcl:"start_map,optional"`
	Tiles         []*hclTile        `hcl:"tile,block"`
	Player        *hclActor         `hcl:"player,block"`
	ClickFeedback *hclClickFeedback `hcl:"click_feedback,block"`
	Pathfinder    *hclPathfinder    `hcl:"pathfinder,block"`
	Debug         *hclDebug         `hcl:"debug,block"`
}

type hclTile struct {
	ID       string  `hcl:"id,label"`
	Blocking bool    `hcl:"blocking,optional"`
	WalkCost float64 `hcl:"walk_cost,optional"`
	Texture  string  `hcl:"texture,optional"`
	Clip     []int   `hcl:"clip,optional"`
}

type hclActor struct {
	ID        string       `hcl:"id,optional"`
	Speed     float64      `hcl:"speed,optional"`
	Blocking  bool         `hcl:"blocking,optional"`
	ZIndex    int          `hcl:"z_index,optional"`
	Direction string       `hcl:"direction,optional"`
	Modules   []*hclModule `hcl:"module,block"`
}

// hclModule keeps its body raw: attributes are evaluated and re-encoded as
// the JSON object the module variant decodes, so attribute names follow the
// JSON field names.
type hclModule struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclClickFeedback struct {
	Texture  string  `hcl:"texture,optional"`
	Clip     []int   `hcl:"clip,optional"`
	Duration float64 `hcl:"duration,optional"`
}

type hclPathfinder struct {
	Diagonals         bool `hcl:"diagonals,optional"`
	CornerCutting     bool `hcl:"corner_cutting,optional"`
	IterationsPerTick int  `hcl:"iterations_per_tick,optional"`
	Sync              bool `hcl:"sync,optional"`
}

type hclDebug struct {
	Enabled bool `hcl:"enabled,optional"`
	Navmesh bool `hcl:"navmesh,optional"`
	Grid    bool `hcl:"grid,optional"`
}

// DecodeGameConfigHCL parses the HCL form of the game config.
func DecodeGameConfigHCL(src []byte, filename, assetRoot string) (*GameConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"assets": cty.StringVal(assetRoot),
		},
	}
	var parsed hclGameFile
	diags = gohcl.DecodeBody(file.Body, ctx, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := &GameConfig{
		TileSize:     parsed.TileSize,
		FollowPlayer: parsed.FollowPlayer,
		LerpAlpha:    parsed.LerpAlpha,
		StartMap:     parsed.StartMap,
	}
	for _, t := range parsed.Tiles {
		cfg.Tiles = append(cfg.Tiles, TileDef{
			ID:       t.ID,
			Blocking: t.Blocking,
			WalkCost: t.WalkCost,
			Texture:  TextureRef{Src: t.Texture, Clip: clipFromSlice(t.Clip)},
		})
	}
	if parsed.Player != nil {
		player, err := parsed.Player.toConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("player block in %s: %w", filename, err)
		}
		cfg.Player = player
	}
	if cf := parsed.ClickFeedback; cf != nil {
		cfg.ClickFeedback = ClickFeedback{
			Texture:  TextureRef{Src: cf.Texture, Clip: clipFromSlice(cf.Clip)},
			Duration: cf.Duration,
		}
	}
	if pf := parsed.Pathfinder; pf != nil {
		cfg.Pathfinder = PathfinderConfig(*pf)
	}
	if d := parsed.Debug; d != nil {
		cfg.Debug = DebugConfig(*d)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func (a *hclActor) toConfig(ctx *hcl.EvalContext) (ActorConfig, error) {
	dir, err := grid.ParseDirection(a.Direction)
	if err != nil {
		return ActorConfig{}, err
	}
	out := ActorConfig{
		ID:        a.ID,
		Speed:     a.Speed,
		Blocking:  a.Blocking,
		ZIndex:    a.ZIndex,
		Direction: dir,
	}
	for _, m := range a.Modules {
		mc, err := m.toConfig(ctx)
		if err != nil {
			return ActorConfig{}, err
		}
		out.Modules = append(out.Modules, mc)
	}
	return out, nil
}

func (m *hclModule) toConfig(ctx *hcl.EvalContext) (ModuleConfig, error) {
	attrs, diags := m.Body.JustAttributes()
	if diags.HasErrors() {
		return ModuleConfig{}, fmt.Errorf("module %q: %w", m.Type, diags)
	}
	fields := map[string]cty.Value{"type": cty.StringVal(m.Type)}
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(ctx)
		if diags.HasErrors() {
			return ModuleConfig{}, fmt.Errorf("module %q attribute %s: %w", m.Type, name, diags)
		}
		fields[name] = v
	}
	raw, err := ctyjson.SimpleJSONValue{Value: cty.ObjectVal(fields)}.MarshalJSON()
	if err != nil {
		return ModuleConfig{}, fmt.Errorf("module %q: %w", m.Type, err)
	}
	var mc ModuleConfig
	if err := json.Unmarshal(raw, &mc); err != nil {
		return ModuleConfig{}, fmt.Errorf("module %q: %w", m.Type, err)
	}
	return mc, nil
}

func clipFromSlice(v []int) *Clip {
	if len(v) != 4 {
		return nil
	}
	return &Clip{X: v[0], Y: v[1], W: v[2], H: v[3]}
}
