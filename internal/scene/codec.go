package scene

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// blockHeader holds the fields shared by every block on the wire.
type blockHeader struct {
	ID        string    `json:"id" yaml:"id"`
	Type      BlockType `json:"type" yaml:"type"`
	StartTime int64     `json:"startTime" yaml:"startTime"`
	Duration  int64     `json:"duration" yaml:"duration"`
	Animation Overrides `json:"animationConfig" yaml:"animationConfig"`
}

type blockOut struct {
	ID        string    `json:"id" yaml:"id"`
	Type      BlockType `json:"type" yaml:"type"`
	Content   any       `json:"content" yaml:"content"`
	StartTime int64     `json:"startTime" yaml:"startTime"`
	Duration  int64     `json:"duration" yaml:"duration"`
	Animation Overrides `json:"animationConfig" yaml:"animationConfig"`
}

// bulletWire keeps Items as a pointer so a missing key is distinguishable
// from an empty list.
type bulletWire struct {
	Title string        `json:"title" yaml:"title"`
	Items *[]BulletItem `json:"items" yaml:"items"`
}

type chartWire struct {
	ChartType ChartType      `json:"chartType" yaml:"chartType"`
	Data      *ChartData     `json:"data" yaml:"data"`
	Options   map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

func (b ContentBlock) wire() blockOut {
	return blockOut{
		ID:        b.ID,
		Type:      b.Type,
		Content:   ContentValue(b.Content),
		StartTime: b.StartTime,
		Duration:  b.Duration,
		Animation: b.Animation,
	}
}

// ContentValue returns the value a payload is serialized as. Paragraphs
// serialize as a bare string.
func ContentValue(c Content) any {
	switch c := c.(type) {
	case ParagraphContent:
		return c.Text
	case BulletListContent:
		items := c.Items
		if items == nil {
			items = []BulletItem{}
		}
		return BulletListContent{Title: c.Title, Items: items}
	case ChartContent:
		return c
	case MalformedContent:
		return c.Raw
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.wire())
}

// UnmarshalJSON implements json.Unmarshaler. A content payload that does not
// match the declared type decodes to MalformedContent instead of failing.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var in struct {
		blockHeader
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.ID = in.ID
	b.Type = in.Type
	b.StartTime = in.StartTime
	b.Duration = in.Duration
	b.Animation = in.Animation
	b.Content = DecodeContentJSON(in.Type, in.Content)
	return nil
}

// DecodeContentJSON decodes raw into the payload type t declares.
func DecodeContentJSON(t BlockType, raw json.RawMessage) Content {
	var generic any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &generic)
	}
	malformed := func(reason string) Content {
		return MalformedContent{Declared: t, Reason: reason, Raw: generic}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return malformed("missing content")
	}

	switch t {
	case Paragraph:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return malformed("paragraph content is not a string")
		}
		return ParagraphContent{Text: text}
	case BulletList:
		var w bulletWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return malformed(fmt.Sprintf("bullet list content: %v", err))
		}
		return bulletFromWire(t, w, generic)
	case Chart:
		var w chartWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return malformed(fmt.Sprintf("chart content: %v", err))
		}
		return chartFromWire(t, w, generic)
	}
	return malformed(fmt.Sprintf("unknown block type %q", t))
}

// MarshalYAML implements yaml.Marshaler.
func (b ContentBlock) MarshalYAML() (interface{}, error) {
	return b.wire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler with the same tolerance as
// UnmarshalJSON.
func (b *ContentBlock) UnmarshalYAML(value *yaml.Node) error {
	var in struct {
		blockHeader `yaml:",inline"`
		Content     yaml.Node `yaml:"content"`
	}
	if err := value.Decode(&in); err != nil {
		return err
	}
	b.ID = in.ID
	b.Type = in.Type
	b.StartTime = in.StartTime
	b.Duration = in.Duration
	b.Animation = in.Animation
	b.Content = DecodeContentYAML(in.Type, &in.Content)
	return nil
}

// DecodeContentYAML decodes node into the payload type t declares.
func DecodeContentYAML(t BlockType, node *yaml.Node) Content {
	var generic any
	if node != nil && node.Kind != 0 {
		_ = node.Decode(&generic)
	}
	malformed := func(reason string) Content {
		return MalformedContent{Declared: t, Reason: reason, Raw: generic}
	}
	if node == nil || node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return malformed("missing content")
	}

	switch t {
	case Paragraph:
		if node.Kind != yaml.ScalarNode {
			return malformed("paragraph content is not a string")
		}
		return ParagraphContent{Text: node.Value}
	case BulletList:
		var w bulletWire
		if err := node.Decode(&w); err != nil {
			return malformed(fmt.Sprintf("bullet list content: %v", err))
		}
		return bulletFromWire(t, w, generic)
	case Chart:
		var w chartWire
		if err := node.Decode(&w); err != nil {
			return malformed(fmt.Sprintf("chart content: %v", err))
		}
		return chartFromWire(t, w, generic)
	}
	return malformed(fmt.Sprintf("unknown block type %q", t))
}

func bulletFromWire(t BlockType, w bulletWire, raw any) Content {
	if w.Items == nil {
		return MalformedContent{Declared: t, Reason: "bullet list has no items", Raw: raw}
	}
	return BulletListContent{Title: w.Title, Items: *w.Items}
}

func chartFromWire(t BlockType, w chartWire, raw any) Content {
	if w.Data == nil {
		return MalformedContent{Declared: t, Reason: "chart has no data", Raw: raw}
	}
	if w.ChartType == "" {
		w.ChartType = ChartBar
	}
	if !w.ChartType.Valid() {
		return MalformedContent{Declared: t, Reason: fmt.Sprintf("unknown chart type %q", w.ChartType), Raw: raw}
	}
	return ChartContent{ChartType: w.ChartType, Data: *w.Data, Options: w.Options}
}
