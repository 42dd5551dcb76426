package scene

import "unicode/utf8"

// Content is the typed payload of a block. The set of implementations is
// closed: ParagraphContent, BulletListContent, ChartContent and
// MalformedContent.
type Content interface {
	// Kind returns the block type this payload belongs to.
	Kind() BlockType
	clone() Content
}

// ParagraphContent is plain text.
type ParagraphContent struct {
	Text string
}

func (ParagraphContent) Kind() BlockType { return Paragraph }

func (c ParagraphContent) clone() Content { return c }

// BulletItem is one list entry rendered as a bold label followed by its description.
type BulletItem struct {
	Bold string `json:"bold" yaml:"bold"`
	Desc string `json:"desc" yaml:"desc"`
}

// BulletListContent is a titled list.
type BulletListContent struct {
	Title string       `json:"title" yaml:"title"`
	Items []BulletItem `json:"items" yaml:"items"`
}

func (BulletListContent) Kind() BlockType { return BulletList }

func (c BulletListContent) clone() Content {
	out := c
	out.Items = append([]BulletItem(nil), c.Items...)
	if c.Items != nil && out.Items == nil {
		out.Items = []BulletItem{}
	}
	return out
}

// ChartType selects the chart renderer.
type ChartType string

const (
	ChartBar      ChartType = "bar"
	ChartLine     ChartType = "line"
	ChartPie      ChartType = "pie"
	ChartDoughnut ChartType = "doughnut"
)

// Valid reports whether t is a known chart type.
func (t ChartType) Valid() bool {
	switch t {
	case ChartBar, ChartLine, ChartPie, ChartDoughnut:
		return true
	}
	return false
}

// Dataset is one data series. Style carries renderer fields such as colors
// verbatim.
type Dataset struct {
	Label string         `json:"label" yaml:"label"`
	Data  []float64      `json:"data" yaml:"data"`
	Style map[string]any `json:"style,omitempty" yaml:"style,omitempty"`
}

// ChartData is the labels plus datasets of a chart.
type ChartData struct {
	Labels   []string  `json:"labels" yaml:"labels"`
	Datasets []Dataset `json:"datasets" yaml:"datasets"`
}

// ChartContent describes a chart. Options is passed to the renderer untouched.
type ChartContent struct {
	ChartType ChartType      `json:"chartType" yaml:"chartType"`
	Data      ChartData      `json:"data" yaml:"data"`
	Options   map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

func (ChartContent) Kind() BlockType { return Chart }

func (c ChartContent) clone() Content {
	out := c
	out.Data.Labels = append([]string(nil), c.Data.Labels...)
	out.Data.Datasets = make([]Dataset, len(c.Data.Datasets))
	for i, ds := range c.Data.Datasets {
		out.Data.Datasets[i] = Dataset{
			Label: ds.Label,
			Data:  append([]float64(nil), ds.Data...),
			Style: copyMap(ds.Style),
		}
	}
	out.Options = copyMap(c.Options)
	return out
}

// MalformedContent stands in for a payload that did not match its declared
// type. Raw keeps the decoded value so the document round-trips.
type MalformedContent struct {
	Declared BlockType
	Reason   string
	Raw      any
}

func (c MalformedContent) Kind() BlockType { return c.Declared }

func (c MalformedContent) clone() Content { return c }

// DisplayText is the short label shown on timeline tracks.
func DisplayText(b ContentBlock) string {
	switch c := b.Content.(type) {
	case ParagraphContent:
		return truncate(c.Text, 20)
	case BulletListContent:
		return c.Title
	case ChartContent:
		return "Chart"
	}
	return "Unknown"
}

// DefaultContent returns the payload a newly added block of type t starts with.
func DefaultContent(t BlockType) Content {
	switch t {
	case Paragraph:
		return ParagraphContent{Text: "New paragraph content..."}
	case BulletList:
		return BulletListContent{
			Title: "New List",
			Items: []BulletItem{{Bold: "Item", Desc: "Description"}},
		}
	case Chart:
		return ChartContent{
			ChartType: ChartBar,
			Data: ChartData{
				Labels: []string{"Q1", "Q2", "Q3", "Q4"},
				Datasets: []Dataset{{
					Label: "Dataset 1",
					Data:  []float64{12, 19, 3, 5},
					Style: map[string]any{"backgroundColor": "rgba(54, 162, 235, 0.5)"},
				}},
			},
		}
	}
	return MalformedContent{Declared: t, Reason: "unknown block type"}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
