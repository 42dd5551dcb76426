// Package preview plays a timeline in the terminal.
package preview

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/joyeues/wordflow-animation-lab/internal/curve"
	"github.com/joyeues/wordflow-animation-lab/internal/evaluator"
	"github.com/joyeues/wordflow-animation-lab/internal/playback"
	"github.com/joyeues/wordflow-animation-lab/internal/ruler"
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timing"
)

// SeekStep is how far the arrow keys move the playhead, in ms.
const SeekStep = 500

// SpeedStep is added or removed by the +/- keys.
const SpeedStep = 0.25

var (
	styleDefault = tcell.StyleDefault
	styleHeader  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleText    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleGleam   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleBold    = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleBar     = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	stylePlay    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed)

	trackStyles = map[scene.BlockType]tcell.Style{
		scene.Paragraph:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
		scene.BulletList: tcell.StyleDefault.Foreground(tcell.ColorGreen),
		scene.Chart:      tcell.StyleDefault.Foreground(tcell.ColorOrange),
	}
)

// Preview draws session frames to a tcell screen and maps keys to clock
// controls.
type Preview struct {
	screen  tcell.Screen
	session *playback.Session

	frames chan playback.Frame
	unsub  func()

	mu   sync.Mutex
	last playback.Frame
}

// New attaches a preview to session. The screen must already be initialised.
func New(screen tcell.Screen, session *playback.Session) *Preview {
	p := &Preview{
		screen:  screen,
		session: session,
		frames:  make(chan playback.Frame, 1),
	}
	p.unsub = session.Subscribe(p.push)
	return p
}

// push keeps only the newest frame; the draw loop never falls behind.
func (p *Preview) push(f playback.Frame) {
	select {
	case p.frames <- f:
	default:
		select {
		case <-p.frames:
		default:
		}
		select {
		case p.frames <- f:
		default:
		}
	}
}

// Run processes input and frames until quit or ctx is done.
func (p *Preview) Run(ctx context.Context) error {
	defer p.unsub()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	p.Draw(p.session.Frame())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !p.HandleKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				p.screen.Sync()
				p.redraw()
			}

		case f := <-p.frames:
			p.Draw(f)
		}
	}
}

// HandleKey applies a key press. It returns false when the preview should
// exit.
func (p *Preview) HandleKey(ev *tcell.EventKey) bool {
	clk := p.session.Clock()

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		p.seekBy(-SeekStep)
		return true
	case tcell.KeyRight:
		p.seekBy(SeekStep)
		return true
	case tcell.KeyHome:
		clk.Seek(0)
		return true
	case tcell.KeyRune:
	default:
		return true
	}

	switch ev.Rune() {
	case 'q':
		return false
	case ' ':
		clk.Toggle()
	case 's':
		clk.Stop()
	case 'l':
		clk.SetLoop(!clk.Snapshot().Looping)
	case '+', '=':
		p.session.SetSpeed(clk.Snapshot().Speed + SpeedStep)
	case '-':
		if s := clk.Snapshot().Speed - SpeedStep; s > 0 {
			p.session.SetSpeed(s)
		}
	}
	return true
}

func (p *Preview) seekBy(delta float64) {
	clk := p.session.Clock()
	t := timing.SnapToGrid(clk.Time()+delta, timing.DefaultGridResolution)
	clk.Seek(t)
}

func (p *Preview) redraw() {
	p.mu.Lock()
	f := p.last
	p.mu.Unlock()
	p.Draw(f)
}

// Draw renders one frame and shows it.
func (p *Preview) Draw(f playback.Frame) {
	p.mu.Lock()
	p.last = f
	p.mu.Unlock()

	p.screen.Clear()
	w, h := p.screen.Size()

	p.drawStatus(f, w)

	y := 2
	for _, fb := range f.Blocks {
		if y >= h-3 {
			break
		}
		if fb.Err != nil {
			y = p.text(0, y, w, fmt.Sprintf("! %s", fb.Error), styleError) + 1
			continue
		}
		if !fb.Rendered {
			continue
		}
		y = p.drawBlock(fb.Block, fb, y, w) + 1
	}

	p.drawTracks(f, w, h)
	p.screen.Show()
}

func (p *Preview) drawStatus(f playback.Frame, w int) {
	cs := f.Clock
	loop := ""
	if cs.Looping {
		loop = " loop"
	}
	status := fmt.Sprintf("%-7s %s / %s  x%.2f%s", cs.State,
		timing.FormatClock(int64(cs.Time)), timing.FormatClock(int64(cs.Total)), cs.Speed, loop)
	p.text(0, 0, w, status, styleHeader)
	p.text(0, 1, w, "space play/pause  s stop  l loop  ←/→ seek  +/- speed  q quit", styleDim)
}

func (p *Preview) drawBlock(b scene.ContentBlock, fb playback.FrameBlock, y, w int) int {
	switch r := fb.Reveal.(type) {
	case evaluator.CharacterReveal:
		return p.units(r.Units, "", fadeFunc(fb.Curve), fb.LocalTime, evaluator.CharFadeTransition, y, w)
	case evaluator.WordReveal:
		return p.units(r.Units, " ", fadeFunc(fb.Curve), fb.LocalTime, evaluator.WordFadeTransition, y, w)
	case evaluator.GleamReveal:
		return p.gleam(r, fb.Gleam, y, w)
	case evaluator.BulletReveal:
		c, _ := b.Content.(scene.BulletListContent)
		return p.bullets(c, r, y, w)
	case evaluator.ChartReveal:
		c, _ := b.Content.(scene.ChartContent)
		return p.chart(c, r, y, w)
	}
	return y
}

// fadeFunc parses the block curve; unknown identifiers fade linearly.
func fadeFunc(id string) curve.Func {
	f, err := curve.Parse(id)
	if err != nil {
		return curve.Linear
	}
	return f
}

// units lays out character or word units left to right with wrapping.
// Hidden units keep their cell so the text does not reflow. A unit is
// drawn dim until the first half of its fade has passed.
func (p *Preview) units(units []evaluator.Unit, sep string, ease curve.Func, local, fade float64, y, w int) int {
	x := 0
	for _, u := range units {
		word := u.Text + sep
		n := len([]rune(word))
		if x+n > w && x > 0 {
			x = 0
			y++
		}
		if u.Visible {
			style := styleText
			if !u.Whitespace && curve.Fade(ease, local, u.RevealAt, fade) < 0.5 {
				style = styleDim
			}
			p.text(x, y, w, word, style)
		}
		x += n
	}
	return y + 1
}

func (p *Preview) gleam(r evaluator.GleamReveal, active bool, y, w int) int {
	if !r.TextVisible {
		return y
	}
	runes := []rune(r.Text)
	band := -1
	if active {
		band = int(math.Round(r.SweepProgress * float64(len(runes))))
	}

	x := 0
	for i, ch := range runes {
		if x >= w {
			x = 0
			y++
		}
		style := styleText
		if band >= 0 && i >= band-2 && i <= band+2 {
			style = styleGleam
		}
		p.screen.SetContent(x, y, ch, nil, style)
		x++
	}
	return y + 1
}

func (p *Preview) bullets(c scene.BulletListContent, r evaluator.BulletReveal, y, w int) int {
	if r.HeaderVisible {
		y = p.text(0, y, w, c.Title, styleHeader) + 1
	}
	for i, visible := range r.ItemVisible {
		if !visible || i >= len(c.Items) {
			continue
		}
		item := c.Items[i]
		p.text(0, y, w, "• ", styleText)
		x := 2
		p.text(x, y, w, item.Bold+" ", styleBold)
		x += len([]rune(item.Bold)) + 1
		p.text(x, y, w, item.Desc, styleText)
		y++
	}
	return y
}

func (p *Preview) chart(c scene.ChartContent, r evaluator.ChartReveal, y, w int) int {
	if r.Datasets == nil {
		return y
	}

	var peak float64
	for _, ds := range c.Data.Datasets {
		for _, v := range ds.Data {
			peak = math.Max(peak, v)
		}
	}
	if peak <= 0 {
		peak = 1
	}

	labelW := 0
	for _, l := range c.Data.Labels {
		labelW = max(labelW, len([]rune(l)))
	}
	barW := w - labelW - 2
	if barW < 1 {
		barW = 1
	}

	for _, ds := range r.Datasets {
		for i, v := range ds.Data {
			label := ""
			if i < len(c.Data.Labels) {
				label = c.Data.Labels[i]
			}
			p.text(0, y, w, label, styleDim)
			n := int(math.Round(v / peak * float64(barW)))
			p.text(labelW+1, y, w, strings.Repeat("█", n), styleBar)
			y++
		}
	}
	return y
}

// drawTracks draws one row per block and the playhead at the bottom.
func (p *Preview) drawTracks(f playback.Frame, w, h int) {
	total := int64(f.Clock.Total)
	if total <= 0 || w <= 0 {
		return
	}

	row := h - 2
	for _, tick := range ruler.Ticks(total, w) {
		if tick.X < w {
			p.screen.SetContent(tick.X, row-1, '|', nil, styleDim)
		}
	}

	for _, fb := range f.Blocks {
		b := fb.Block
		x, bw := ruler.BlockSpan(b, total, w)
		style, ok := trackStyles[b.Type]
		if !ok {
			style = styleDefault
		}
		for i := x; i < x+max(bw, 1) && i < w; i++ {
			p.screen.SetContent(i, row, '▀', nil, style)
		}
	}

	px := int(f.Clock.Time / float64(total) * float64(w-1))
	px = min(max(px, 0), w-1)
	p.screen.SetContent(px, row, '▲', nil, stylePlay)
	p.text(0, h-1, w, timing.FormatClock(int64(f.Clock.Time)), styleDim)
}

// text writes s at (x, y) clipped to width w and returns y.
func (p *Preview) text(x, y, w int, s string, style tcell.Style) int {
	for _, ch := range s {
		if x >= w {
			break
		}
		p.screen.SetContent(x, y, ch, nil, style)
		x++
	}
	return y
}
