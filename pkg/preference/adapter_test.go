package preference

import (
	"math"
	"testing"

	"github.com/zen-systems/promptroute/pkg/route"
)

func baseDecision() *route.Decision {
	d := &route.Decision{Route: route.DirectEdit, Confidence: 0.90}
	d.AppendReasoning("direct-edit tier")
	return d
}

func TestAdjustEvidenceFloor(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	cases := []struct {
		name  string
		prefs []RoutePreference
	}{
		{"no preferences", nil},
		{"below floor", []RoutePreference{
			{Route: route.DirectEdit, SuccessCount: 0, TotalCount: 4},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseDecision()
			out := adapter.Adjust(in, tc.prefs)
			if out.Route != in.Route {
				t.Fatalf("route changed below evidence floor: %s", out.Route)
			}
			if out.Confidence != in.Confidence {
				t.Fatalf("confidence changed below evidence floor: %.3f", out.Confidence)
			}
			if len(out.Reasoning) != len(in.Reasoning)+1 {
				t.Fatalf("expected one appended reasoning note, got %v", out.Reasoning)
			}
		})
	}
}

func TestAdjustBoost(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	// 90% success over 10 samples: boost = (0.9-0.5)*0.2 = +0.08.
	out := adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 9, TotalCount: 10},
	})
	if out.Route != route.DirectEdit {
		t.Fatalf("unexpected override: %s", out.Route)
	}
	if math.Abs(out.Confidence-0.98) > 1e-9 {
		t.Fatalf("boosted confidence: got %.3f want 0.98", out.Confidence)
	}

	// Mediocre but not override-worthy history shrinks confidence.
	out = adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 7, TotalCount: 10},
	})
	if math.Abs(out.Confidence-0.94) > 1e-9 {
		t.Fatalf("boosted confidence: got %.3f want 0.94", out.Confidence)
	}
}

func TestAdjustBoostClamped(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	d := &route.Decision{Route: route.MetaChat, Confidence: 0.95}
	out := adapter.Adjust(d, []RoutePreference{
		{Route: route.MetaChat, SuccessCount: 10, TotalCount: 10},
	})
	if out.Confidence != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %.3f", out.Confidence)
	}
}

func TestAdjustOverride(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	out := adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 4, TotalCount: 10},
		{Route: route.FeatureBuild, SuccessCount: 7, TotalCount: 8},
	})
	if out.Route != route.FeatureBuild {
		t.Fatalf("expected override to feature_build, got %s", out.Route)
	}
	if out.Confidence != 0.75 {
		t.Fatalf("override confidence: got %.2f want 0.75", out.Confidence)
	}
	if out.ReasoningText() == "" {
		t.Fatalf("override must cite the switch in reasoning")
	}
}

func TestAdjustOverrideScenario(t *testing.T) {
	// Ten DirectEdit samples with 3 successes, five FeatureBuild samples all
	// successful: a new DirectEdit decision is rerouted to FeatureBuild.
	adapter := NewAdapter(Thresholds{})

	out := adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 3, TotalCount: 10},
		{Route: route.FeatureBuild, SuccessCount: 5, TotalCount: 5},
	})
	if out.Route != route.FeatureBuild || out.Confidence != 0.75 {
		t.Fatalf("got %s/%.2f want feature_build/0.75", out.Route, out.Confidence)
	}
}

func TestAdjustOverridePicksBest(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	out := adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 2, TotalCount: 10},
		{Route: route.FeatureBuild, SuccessCount: 17, TotalCount: 20},
		{Route: route.Refactor, SuccessCount: 9, TotalCount: 10},
	})
	if out.Route != route.Refactor {
		t.Fatalf("expected highest success rate to win, got %s", out.Route)
	}

	// Equal rates: the larger sample count wins.
	out = adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 2, TotalCount: 10},
		{Route: route.FeatureBuild, SuccessCount: 9, TotalCount: 10},
		{Route: route.Refactor, SuccessCount: 18, TotalCount: 20},
	})
	if out.Route != route.Refactor {
		t.Fatalf("expected tie broken by sample count, got %s", out.Route)
	}
}

func TestAdjustOverrideNeedsEvidence(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	// The alternative is excellent but under the evidence floor.
	out := adapter.Adjust(baseDecision(), []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 3, TotalCount: 10},
		{Route: route.FeatureBuild, SuccessCount: 4, TotalCount: 4},
	})
	if out.Route != route.DirectEdit {
		t.Fatalf("override must not act on thin evidence, got %s", out.Route)
	}
}

func TestAdjustDoesNotMutateInput(t *testing.T) {
	adapter := NewAdapter(Thresholds{})

	in := baseDecision()
	_ = adapter.Adjust(in, []RoutePreference{
		{Route: route.DirectEdit, SuccessCount: 3, TotalCount: 10},
		{Route: route.FeatureBuild, SuccessCount: 5, TotalCount: 5},
	})
	if in.Route != route.DirectEdit || in.Confidence != 0.90 || len(in.Reasoning) != 1 {
		t.Fatalf("input decision mutated: %+v", in)
	}
}

func TestApplyDeltaIncrementalMean(t *testing.T) {
	p := &RoutePreference{Route: route.Refactor}
	for _, ms := range []int64{100, 200, 300} {
		ApplyDelta(p, Delta{Success: true, DurationMs: ms})
	}
	if p.TotalCount != 3 || p.SuccessCount != 3 {
		t.Fatalf("counters: %d/%d", p.SuccessCount, p.TotalCount)
	}
	if math.Abs(p.AvgDurationMs-200) > 1e-9 {
		t.Fatalf("avg: got %.2f want 200", p.AvgDurationMs)
	}
	if p.LastUsedAt.IsZero() {
		t.Fatalf("last used not set")
	}

	ApplyDelta(p, Delta{Success: false, DurationMs: 600})
	if p.TotalCount != 4 || p.SuccessCount != 3 {
		t.Fatalf("counters after failure: %d/%d", p.SuccessCount, p.TotalCount)
	}
	if math.Abs(p.AvgDurationMs-300) > 1e-9 {
		t.Fatalf("avg after failure: got %.2f want 300", p.AvgDurationMs)
	}
}
