package route

import (
	"strings"
	"time"
)

// Decision captures the routing decision for one request.
//
// A Decision is created by the classifier, adjusted at most once by the
// preference adapter, and is immutable from dispatch onward. Reasoning is
// append-only: adjustment stages add notes, they never replace earlier ones.
type Decision struct {
	Route             Route         `json:"route"`
	Confidence        float64       `json:"confidence"`
	Reasoning         []string      `json:"reasoning,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
	EstimatedCost     float64       `json:"estimated_cost,omitempty"`
}

// AppendReasoning adds a note to the decision's audit trail.
func (d *Decision) AppendReasoning(note string) {
	if note == "" {
		return
	}
	d.Reasoning = append(d.Reasoning, note)
}

// ReasoningText joins the reasoning trail for display.
func (d *Decision) ReasoningText() string {
	return strings.Join(d.Reasoning, "; ")
}

// Clone returns an independent copy so a later stage can adjust the decision
// without mutating the classifier's output.
func (d *Decision) Clone() *Decision {
	out := *d
	out.Reasoning = append([]string(nil), d.Reasoning...)
	return &out
}

// ClampConfidence bounds confidence to [0,1] after an adjustment.
func (d *Decision) ClampConfidence() {
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
}
