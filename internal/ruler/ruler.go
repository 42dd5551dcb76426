// Package ruler draws the timeline editor's ruler and block tracks into an
// image: ticks every second, one track per block and the playhead.
package ruler

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/system"
	"github.com/joyeues/wordflow-animation-lab/internal/timing"
)

// TickInterval is the spacing of labelled ruler ticks, in ms.
const TickInterval = 1000

const (
	rulerHeight = 24
	trackHeight = 28
	trackGap    = 4
)

var (
	background = color.RGBA{0x1e, 0x1e, 0x24, 0xff}
	tickColor  = color.RGBA{0x70, 0x70, 0x80, 0xff}
	labelColor = color.RGBA{0xc8, 0xc8, 0xd0, 0xff}
	playhead   = color.RGBA{0xff, 0x45, 0x3a, 0xff}
	selection  = color.RGBA{0xff, 0xff, 0xff, 0xff}

	blockColors = map[scene.BlockType]color.RGBA{
		scene.Paragraph:  {0x3b, 0x82, 0xf6, 0xff},
		scene.BulletList: {0x22, 0xc5, 0x5e, 0xff},
		scene.Chart:      {0xf5, 0x9e, 0x0b, 0xff},
	}
)

// Tick is one labelled mark on the ruler.
type Tick struct {
	At    int64
	X     int
	Label string
}

// Options controls the rendered image.
type Options struct {
	Width    int
	Height   int // minimum height; grows to fit all tracks
	Playhead float64
	Selected []string
}

// Ticks returns the marks for a timeline of total ms drawn width pixels wide.
func Ticks(total int64, width int) []Tick {
	if total <= 0 {
		total = 1
	}
	var ticks []Tick
	for at := int64(0); at <= total; at += TickInterval {
		ticks = append(ticks, Tick{At: at, X: position(float64(at), total, width), Label: timing.FormatClock(at)})
	}
	return ticks
}

// BlockSpan returns the horizontal pixel span of b: x = start/total*width.
func BlockSpan(b scene.ContentBlock, total int64, width int) (x, w int) {
	x = position(float64(b.StartTime), total, width)
	end := position(float64(b.End()), total, width)
	w = end - x
	if w < 1 {
		w = 1
	}
	return x, w
}

// TimeAt converts a pixel column back to a snapped timeline time, as a drag
// on the ruler would.
func TimeAt(x, width int, total int64) float64 {
	if width <= 0 {
		return 0
	}
	t := float64(x) / float64(width) * float64(total)
	return timing.Clamp(timing.SnapToGrid(t, timing.DefaultGridResolution), 0, float64(total))
}

// Render draws the ruler for blocks over a timeline of total ms. The image
// comes from the shared pool; hand it back with system.PutImage when done.
func Render(blocks []scene.ContentBlock, total int64, opts Options) *image.RGBA {
	width := opts.Width
	if width <= 0 {
		width = 1280
	}
	height := rulerHeight + len(blocks)*(trackHeight+trackGap) + trackGap
	if opts.Height > height {
		height = opts.Height
	}

	img := system.GetImage(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for _, tk := range Ticks(total, width) {
		fill(img, image.Rect(tk.X, rulerHeight-8, tk.X+1, rulerHeight), tickColor)
		label(img, tk.X+2, rulerHeight-10, tk.Label, labelColor)
	}
	fill(img, image.Rect(0, rulerHeight-1, width, rulerHeight), tickColor)

	selected := make(map[string]bool, len(opts.Selected))
	for _, id := range opts.Selected {
		selected[id] = true
	}

	for i, b := range blocks {
		y := rulerHeight + trackGap + i*(trackHeight+trackGap)
		x, w := BlockSpan(b, total, width)
		r := image.Rect(x, y, x+w, y+trackHeight)

		c, ok := blockColors[b.Type]
		if !ok {
			c = tickColor
		}
		fill(img, r, c)
		if selected[b.ID] {
			outline(img, r, selection)
		}

		text := scene.DisplayText(b)
		if n := w / basicfont.Face7x13.Advance; n < len([]rune(text)) {
			text = string([]rune(text)[:clampInt(n, 0, len([]rune(text)))])
		}
		label(img, x+3, y+trackHeight/2+4, text, selection)
	}

	px := position(opts.Playhead, total, width)
	fill(img, image.Rect(px, 0, px+2, height), playhead)
	return img
}

// WritePNG renders and saves the ruler to path.
func WritePNG(path string, blocks []scene.ContentBlock, total int64, opts Options) error {
	img := Render(blocks, total, opts)
	defer system.PutImage(img)

	if err := system.EnsureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ruler: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("ruler: encode png: %w", err)
	}
	return nil
}

func position(t float64, total int64, width int) int {
	if total <= 0 {
		return 0
	}
	x := int(timing.Clamp(t/float64(total), 0, 1) * float64(width))
	if x >= width {
		x = width - 1
	}
	return x
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fill(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fill(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func label(img *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
