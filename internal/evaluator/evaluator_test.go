package evaluator

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
)

func paragraph(text string, anim scene.TextAnimation) scene.ContentBlock {
	return scene.ContentBlock{
		ID:        "p",
		Type:      scene.Paragraph,
		Content:   scene.ParagraphContent{Text: text},
		Duration:  3000,
		Animation: scene.Overrides{TextAnimation: scene.Animation(anim)},
	}
}

func bullets(n int) scene.ContentBlock {
	items := make([]scene.BulletItem, n)
	for i := range items {
		items[i] = scene.BulletItem{Bold: "item", Desc: "desc"}
	}
	return scene.ContentBlock{
		ID:       "b",
		Type:     scene.BulletList,
		Content:  scene.BulletListContent{Title: "List", Items: items},
		Duration: 3000,
	}
}

func chart(duration int64) scene.ContentBlock {
	return scene.ContentBlock{
		ID:       "c",
		Type:     scene.Chart,
		Content:  scene.DefaultContent(scene.Chart),
		Duration: duration,
	}
}

func resolved(charDelay int64) scene.Resolved {
	global := scene.DefaultAnimationConfig()
	global.CharFadeDelay = charDelay
	return scene.Overrides{}.Resolve(global)
}

func TestCharacterRevealScenario(t *testing.T) {
	b := paragraph("ab cd", scene.AnimateCharacter)
	st, err := Evaluate(b, resolved(10), 15, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	r, ok := st.(CharacterReveal)
	if !ok {
		t.Fatalf("expected CharacterReveal, got %T", st)
	}
	if len(r.Units) != 5 {
		t.Fatalf("expected 5 units, got %d", len(r.Units))
	}
	if !r.Units[2].Whitespace {
		t.Error("space should be tagged as whitespace")
	}

	expectedAt := []float64{0, 10, 0, 20, 30}
	for i, u := range r.Units {
		if !u.Whitespace && u.RevealAt != expectedAt[i] {
			t.Errorf("unit %d (%q): revealAt %.0f, expected %.0f", i, u.Text, u.RevealAt, expectedAt[i])
		}
	}

	if got := r.Revealed(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("expected a and b revealed, got %v", got)
	}
	if r.Units[3].Visible || r.Units[4].Visible {
		t.Error("c and d should be hidden")
	}
}

func TestNotStartedHidesEverything(t *testing.T) {
	blocks := []scene.ContentBlock{
		paragraph("ab cd", scene.AnimateCharacter),
		paragraph("ab cd", scene.AnimateWord),
		paragraph("ab cd", scene.AnimateGleam),
		bullets(3),
		chart(1000),
	}

	for _, b := range blocks {
		cfg := b.Animation.Resolve(scene.DefaultAnimationConfig())
		st, err := Evaluate(b, cfg, 99999, false)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		switch r := st.(type) {
		case CharacterReveal:
			for _, u := range r.Units {
				if u.Visible {
					t.Errorf("character %q visible before start", u.Text)
				}
			}
		case WordReveal:
			if len(r.Revealed()) != 0 {
				t.Error("words visible before start")
			}
		case GleamReveal:
			if r.TextVisible || r.GleamActive {
				t.Error("gleam visible before start")
			}
		case BulletReveal:
			if r.HeaderVisible || r.VisibleItems() != 0 {
				t.Error("bullets visible before start")
			}
		case ChartReveal:
			if r.Progress != 0 || r.Datasets != nil {
				t.Error("chart rendered before start")
			}
		}
	}
}

func TestWordReveal(t *testing.T) {
	b := paragraph("one two three", scene.AnimateWord)

	tests := []struct {
		local    float64
		expected []int
	}{
		{0, []int{0}},
		{29, []int{0}},
		{30, []int{0, 1}},
		{60, []int{0, 1, 2}},
	}

	for _, tt := range tests {
		st, err := Evaluate(b, b.Animation.Resolve(scene.AnimationConfig{CharFadeDelay: 10}), tt.local, true)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if got := st.(WordReveal).Revealed(); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("at %.0f: revealed %v, expected %v", tt.local, got, tt.expected)
		}
	}
}

func TestEmptyParagraph(t *testing.T) {
	for _, mode := range []scene.TextAnimation{scene.AnimateCharacter, scene.AnimateWord} {
		b := paragraph("", mode)
		st, err := Evaluate(b, b.Animation.Resolve(scene.DefaultAnimationConfig()), 0, true)
		if err != nil {
			t.Fatalf("%s: Evaluate failed: %v", mode, err)
		}
		switch r := st.(type) {
		case CharacterReveal:
			if len(r.Units) != 0 || !r.Complete() {
				t.Errorf("expected empty, complete reveal: %+v", r)
			}
		case WordReveal:
			if len(r.Units) != 0 || !r.Complete() {
				t.Errorf("expected empty, complete reveal: %+v", r)
			}
		}
	}
}

func TestGleam(t *testing.T) {
	b := paragraph("shine", scene.AnimateGleam)
	cfg := b.Animation.Resolve(scene.DefaultAnimationConfig())

	st, _ := Evaluate(b, cfg, 0, true)
	g := st.(GleamReveal)
	if !g.TextVisible || !g.GleamActive {
		t.Errorf("expected visible text and active sweep at start: %+v", g)
	}

	st, _ = Evaluate(b, cfg, GleamSweepDuration, true)
	g = st.(GleamReveal)
	if !g.TextVisible || g.GleamActive {
		t.Errorf("sweep should have finished: %+v", g)
	}
	if g.SweepProgress != 1 {
		t.Errorf("expected sweep progress 1, got %v", g.SweepProgress)
	}
}

func TestBulletStaggerScenario(t *testing.T) {
	b := bullets(3)
	b.Animation = scene.Overrides{MaskFadeDelay: scene.Int64(200), StaggerDelay: scene.Int64(100)}
	cfg := b.Animation.Resolve(scene.DefaultAnimationConfig())

	st, err := Evaluate(b, cfg, 250, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	r := st.(BulletReveal)

	if !r.HeaderVisible {
		t.Error("header should be visible")
	}
	if !reflect.DeepEqual(r.ItemVisible, []bool{true, false, false}) {
		t.Errorf("unexpected item visibility %v", r.ItemVisible)
	}
	if !reflect.DeepEqual(r.ItemRevealAt, []float64{200, 300, 400}) {
		t.Errorf("unexpected reveal times %v", r.ItemRevealAt)
	}
}

func TestEmptyBulletList(t *testing.T) {
	b := bullets(0)
	st, err := Evaluate(b, b.Animation.Resolve(scene.DefaultAnimationConfig()), 500, true)
	if err != nil {
		t.Fatalf("empty list must evaluate: %v", err)
	}
	r := st.(BulletReveal)
	if !r.HeaderVisible || len(r.ItemVisible) != 0 {
		t.Errorf("unexpected reveal %+v", r)
	}
}

func TestChartProgressScenario(t *testing.T) {
	b := chart(1000)
	cfg := b.Animation.Resolve(scene.DefaultAnimationConfig())

	tests := []struct {
		local    float64
		expected float64
	}{
		{0, 0},
		{400, 0.4},
		{1000, 1},
		{1500, 1},
	}

	for _, tt := range tests {
		st, err := Evaluate(b, cfg, tt.local, true)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		r := st.(ChartReveal)
		if math.Abs(r.Progress-tt.expected) > 1e-9 {
			t.Errorf("at %.0f: progress %v, expected %v", tt.local, r.Progress, tt.expected)
		}
	}

	st, _ := Evaluate(b, cfg, 500, true)
	r := st.(ChartReveal)
	if got := r.Datasets[0].Data[0]; math.Abs(got-6) > 1e-9 {
		t.Errorf("expected first value scaled to 6, got %v", got)
	}
}

func TestChartDegenerateDuration(t *testing.T) {
	b := chart(0)
	st, err := Evaluate(b, b.Animation.Resolve(scene.DefaultAnimationConfig()), 100, true)

	var be *BlockError
	if !errors.As(err, &be) || be.Kind != DegenerateDuration {
		t.Fatalf("expected DegenerateDuration, got %v", err)
	}
	if !errors.Is(err, ErrDegenerateDuration) {
		t.Error("error should match ErrDegenerateDuration")
	}
	if r, ok := st.(ChartReveal); !ok || r.Progress != 0 {
		t.Errorf("expected zero progress, got %+v", st)
	}
}

func TestInvalidContent(t *testing.T) {
	tests := []struct {
		name  string
		block scene.ContentBlock
	}{
		{"malformed list", scene.ContentBlock{ID: "x", Type: scene.BulletList, Duration: 100,
			Content: scene.MalformedContent{Declared: scene.BulletList, Reason: "items missing"}}},
		{"nil content", scene.ContentBlock{ID: "x", Type: scene.Paragraph, Duration: 100}},
		{"type mismatch", scene.ContentBlock{ID: "x", Type: scene.Chart, Duration: 100,
			Content: scene.ParagraphContent{Text: "hi"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Evaluate(tt.block, scene.Resolved{}, 0, true)
			if st != nil {
				t.Errorf("expected no state, got %T", st)
			}
			var be *BlockError
			if !errors.As(err, &be) || be.Kind != InvalidContent || be.BlockID != "x" {
				t.Fatalf("expected InvalidContent block error, got %v", err)
			}
			if !errors.Is(err, ErrInvalidContent) {
				t.Error("error should match ErrInvalidContent")
			}
		})
	}
}

func TestIdempotence(t *testing.T) {
	b := paragraph("hello world", scene.AnimateCharacter)
	cfg := resolved(4)

	first, _ := Evaluate(b, cfg, 17, true)
	second, _ := Evaluate(b, cfg, 17, true)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated evaluation differs")
	}

	// A larger time followed by a smaller one un-reveals.
	Evaluate(b, cfg, 1000, true)
	third, _ := Evaluate(b, cfg, 17, true)
	if !reflect.DeepEqual(first, third) {
		t.Error("evaluation depends on call history")
	}
}

func TestMonotonicity(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	cfg := resolved(7)

	for _, mode := range []scene.TextAnimation{scene.AnimateCharacter, scene.AnimateWord} {
		b := paragraph(text, mode)
		prev := map[int]bool{}
		for local := 0.0; local <= 400; local += 5 {
			st, _ := Evaluate(b, cfg, local, true)
			var idx []int
			switch r := st.(type) {
			case CharacterReveal:
				idx = r.Revealed()
			case WordReveal:
				idx = r.Revealed()
			}
			cur := map[int]bool{}
			for _, i := range idx {
				cur[i] = true
			}
			for i := range prev {
				if !cur[i] {
					t.Fatalf("%s: unit %d hidden again at %.0f", mode, i, local)
				}
			}
			prev = cur
		}
	}
}

func TestTimelinePass(t *testing.T) {
	s := scene.SampleScene()
	s.ContentBlocks = append(s.ContentBlocks,
		scene.ContentBlock{ID: "bad", Type: scene.BulletList, StartTime: 0, Duration: 500,
			Content: scene.MalformedContent{Declared: scene.BulletList, Reason: "items missing"}},
		scene.ContentBlock{ID: "flat", Type: scene.Chart, StartTime: 0, Duration: 0,
			Content: scene.DefaultContent(scene.Chart)},
	)

	states := EvaluateTimeline(s.ContentBlocks, 4250, s.GlobalConfig)
	if len(states) != 5 {
		t.Fatalf("expected 5 states, got %d", len(states))
	}

	idx := Index(states)
	if idx["1"].Active || !idx["1"].Started {
		t.Errorf("block 1 should be past its window: %+v", idx["1"])
	}
	list := idx["2"]
	if !list.Active || list.LocalTime != 250 {
		t.Errorf("block 2 should be active at local 250: %+v", list)
	}
	if list.Curve != "cubic-bezier(0.00,0.00,0.00,1.00)" {
		t.Errorf("override curve not resolved: %s", list.Curve)
	}
	if r := list.Reveal.(BulletReveal); !reflect.DeepEqual(r.ItemVisible, []bool{true, false, false}) {
		t.Errorf("unexpected bullet state %v", r.ItemVisible)
	}
	if idx["3"].Started || idx["3"].Reveal.(ChartReveal).Progress != 0 {
		t.Errorf("chart should not have started: %+v", idx["3"])
	}

	if !idx["bad"].Skipped() || idx["bad"].Error == "" {
		t.Errorf("malformed block should be skipped: %+v", idx["bad"])
	}
	if idx["flat"].Active || !idx["flat"].Skipped() {
		t.Errorf("zero-length block should be inactive and skipped: %+v", idx["flat"])
	}
	if n := len(Failures(states)); n != 2 {
		t.Errorf("expected 2 failures, got %d", n)
	}

	active := ActiveStates(states)
	if len(active) != 1 || active[0].ID != "2" {
		t.Errorf("expected only block 2 active, got %+v", active)
	}
}

func TestTimelinePassSpeed(t *testing.T) {
	s := scene.SampleScene()
	s.GlobalConfig.GlobalSpeed = 2

	states := Index(EvaluateTimeline(s.ContentBlocks, 4500, s.GlobalConfig))
	if got := states["2"].LocalTime; got != 250 {
		t.Errorf("expected speed-adjusted local time 250, got %v", got)
	}
}
