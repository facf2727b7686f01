package studio

import (
	"fmt"

	"carpet-studio/internal/mask"
	"carpet-studio/internal/removal"
)

type Stage string

const (
	StageRemoval  Stage = "removal"
	StageGenerate Stage = "generate"
	StageCompose  Stage = "compose"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Event is a progress notification. Percent is 0 when unknown.
type Event struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

func removalEvent(p removal.Progress) Event {
	switch p.Stage {
	case removal.StageUpload:
		return Event{Stage: StageRemoval, Message: fmt.Sprintf("Uploading photo... %d%%", p.Percent), Percent: p.Percent}
	case removal.StageProcessing:
		return Event{Stage: StageRemoval, Message: "Removing background..."}
	default:
		return Event{Stage: StageRemoval, Message: "Background removal finished.", Percent: 100}
	}
}

// Stroke is one pointer-down to pointer-up gesture. Points are in mask space
// unless DisplayWidth and DisplayHeight are set, in which case they are mapped
// from that display size first. A positive Radius changes the brush before the
// stroke starts.
type Stroke struct {
	Points        []mask.Point `json:"points"`
	Radius        float64      `json:"radius,omitempty"`
	DisplayWidth  float64      `json:"displayWidth,omitempty"`
	DisplayHeight float64      `json:"displayHeight,omitempty"`
}

func (st Stroke) apply(p *mask.Painter) {
	if len(st.Points) == 0 {
		return
	}
	if st.Radius > 0 {
		p.SetBrushRadius(st.Radius)
	}
	for i, pt := range st.Points {
		if st.DisplayWidth > 0 && st.DisplayHeight > 0 {
			pt = p.MapPoint(pt, st.DisplayWidth, st.DisplayHeight)
		}
		if i == 0 {
			p.BeginStroke(pt)
			continue
		}
		p.ExtendStroke(pt)
	}
	p.EndStroke()
}
