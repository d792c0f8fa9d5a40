package world

import (
	"encoding/json"

	"github.com/Garsondee/tilestage/internal/grid"
)

// ActorConfig places an actor on a map.
type ActorConfig struct {
	ID        string         `json:"id"`
	Tile      grid.Tile      `json:"tile"`
	Direction grid.Direction `json:"direction"`
	Speed     float64        `json:"speed"`
	Blocking  bool           `json:"isBlocking"`
	ZIndex    int            `json:"zIndex"`
	Tooltip   string         `json:"tooltip,omitempty"`
	Modules   []ModuleConfig `json:"modules,omitempty"`
}

// ModuleConfig is one actor module instance. Type selects the variant; the
// variant decodes its own fields from the raw object via Decode.
type ModuleConfig struct {
	Type              string          `json:"type"`
	Activation        string          `json:"activation,omitempty"`
	SuspendInput      bool            `json:"suspendInput,omitempty"`
	InteractOffset    *grid.Tile      `json:"interactOffset,omitempty"`
	InteractDirection *grid.Direction `json:"interactDirection,omitempty"`

	raw json.RawMessage
}

type moduleConfigFields ModuleConfig

// UnmarshalJSON decodes the shared fields and keeps the whole object for the variant.
func (m *ModuleConfig) UnmarshalJSON(b []byte) error {
	var f moduleConfigFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = ModuleConfig(f)
	m.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON writes the original object back so variant fields survive a save.
func (m ModuleConfig) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	return json.Marshal(moduleConfigFields(m))
}

// Decode unmarshals the variant-specific fields into v.
func (m ModuleConfig) Decode(v any) error {
	if len(m.raw) == 0 {
		return nil
	}
	return json.Unmarshal(m.raw, v)
}

// NewModuleConfig builds a config from a complete JSON object.
func NewModuleConfig(raw []byte) (ModuleConfig, error) {
	var m ModuleConfig
	err := m.UnmarshalJSON(raw)
	return m, err
}

// DialogChoice branches a dialog to another line.
type DialogChoice struct {
	Text     string `json:"text"`
	NextLine string `json:"nextLine"`
}

// DialogLine is one line of a dialog. Without NextLine the dialog proceeds
// to the following line in order.
type DialogLine struct {
	ID       string         `json:"id"`
	Speaker  string         `json:"speaker,omitempty"`
	Text     string         `json:"text"`
	NextLine string         `json:"nextLine,omitempty"`
	Choices  []DialogChoice `json:"choices,omitempty"`
}
