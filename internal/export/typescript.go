package export

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/joyeues/wordflow-animation-lab/internal/evaluator"
)

type timingFunc struct {
	Name  string
	Value string
}

type tsData struct {
	Animation       string
	Scene           string
	TimingFunctions []timingFunc
	CharFade        int
	WordFade        int
}

var tsTemplate = template.Must(template.New("ts").Parse(`// Animation configuration and timing data
export const ANIMATION_CONFIG = {{.Animation}};
{{if .Scene}}
export const animationConfig = {{.Scene}};
{{end}}
export const AnimationUtils = {
  getCharacterRevealTime: (charIndex: number, config: { charFadeDelay: number }) =>
    charIndex * config.charFadeDelay,

  getStaggerTime: (itemIndex: number, config: { maskFadeDelay: number; staggerDelay?: number }) =>
    config.maskFadeDelay + itemIndex * (config.staggerDelay || 100),

  isBlockActive: (blockId: string, currentTime: number) => {
    const block = ANIMATION_CONFIG.contentBlocks.find(b => b.id === blockId);
    if (!block) return false;
    return currentTime >= block.startTime && currentTime <= block.startTime + block.duration;
  },

  getBlockProgress: (blockId: string, currentTime: number) => {
    const block = ANIMATION_CONFIG.contentBlocks.find(b => b.id === blockId);
    if (!block || block.duration <= 0) return 0;
    const adjustedTime = Math.max(0, currentTime - block.startTime);
    return Math.min(1, adjustedTime / block.duration);
  },
};

export const TIMING_FUNCTIONS = {
{{- range .TimingFunctions}}
  {{.Name}}: '{{.Value}}',
{{- end}}
};

export const ANIMATION_STYLES = ` + "`" + `
.char-fade {
  opacity: 0;
  display: inline-block;
  transition: opacity {{.CharFade}}ms var(--curve, cubic-bezier(0.45,0,0.58,1));
}
.char-fade.visible { opacity: 1; }

.stagger-item {
  opacity: 0;
  transform: translateY(40px);
  transition: opacity 100ms linear, transform {{.WordFade}}ms var(--curve, cubic-bezier(0.00,0.00,0.00,1.00));
}
.stagger-item.visible { opacity: 1; transform: translateY(0); }
` + "`" + `;
`))

func writeTS(w io.Writer, doc Document) error {
	anim, err := json.MarshalIndent(doc.Animation, "", "  ")
	if err != nil {
		return fmt.Errorf("export ts: %w", err)
	}

	data := tsData{
		Animation:       string(anim),
		TimingFunctions: sortedTimingFunctions(doc.TimingFunctions),
		CharFade:        evaluator.CharFadeTransition,
		WordFade:        evaluator.WordFadeTransition,
	}
	if doc.Scene != nil {
		s, err := json.MarshalIndent(doc.Scene, "", "  ")
		if err != nil {
			return fmt.Errorf("export ts: %w", err)
		}
		data.Scene = string(s)
	}

	if err := tsTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("export ts: %w", err)
	}
	return nil
}
