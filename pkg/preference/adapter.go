package preference

import (
	"fmt"

	"github.com/zen-systems/promptroute/pkg/route"
)

// Thresholds tunes the adjustment rules. The defaults reproduce the
// historical behavior of the routing layer; treat them as configuration,
// not law.
type Thresholds struct {
	// MinSamples is the evidence floor: aggregates with fewer samples never
	// influence a decision.
	MinSamples int64 `yaml:"min_samples"`
	// BoostScale maps success-rate deviation from 0.5 to a confidence delta.
	BoostScale float64 `yaml:"boost_scale"`
	// OverrideBelow: the classified route must underperform this rate before
	// an override is considered.
	OverrideBelow float64 `yaml:"override_below"`
	// OverrideAbove: an alternative route must outperform this rate to
	// qualify as an override target.
	OverrideAbove float64 `yaml:"override_above"`
	// OverrideConfidence is assigned to an overridden decision.
	OverrideConfidence float64 `yaml:"override_confidence"`
}

// DefaultThresholds returns the standard adjustment constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSamples:         5,
		BoostScale:         0.2,
		OverrideBelow:      0.60,
		OverrideAbove:      0.80,
		OverrideConfidence: 0.75,
	}
}

func (t *Thresholds) applyDefaults() {
	def := DefaultThresholds()
	if t.MinSamples <= 0 {
		t.MinSamples = def.MinSamples
	}
	if t.BoostScale <= 0 {
		t.BoostScale = def.BoostScale
	}
	if t.OverrideBelow <= 0 {
		t.OverrideBelow = def.OverrideBelow
	}
	if t.OverrideAbove <= 0 {
		t.OverrideAbove = def.OverrideAbove
	}
	if t.OverrideConfidence <= 0 {
		t.OverrideConfidence = def.OverrideConfidence
	}
}

// Adapter adjusts classifier decisions using historical aggregates. It is
// the only adaptive behavior in the routing layer and every rule it applies
// is reflected in the decision's reasoning trail.
type Adapter struct {
	thresholds Thresholds
}

// NewAdapter creates an adapter with the given thresholds. Zero fields fall
// back to the defaults.
func NewAdapter(t Thresholds) *Adapter {
	t.applyDefaults()
	return &Adapter{thresholds: t}
}

// Adjust applies the preference rules to a decision and returns the adjusted
// copy. The input decision is never mutated.
//
// Rules, in order: the evidence floor, the confidence boost, and at most one
// route override when the classified route has historically underperformed
// and a well-evidenced alternative clearly outperforms it.
func (a *Adapter) Adjust(decision *route.Decision, prefs []RoutePreference) *route.Decision {
	out := decision.Clone()

	current := findPreference(prefs, out.Route)
	if current == nil || current.TotalCount < a.thresholds.MinSamples {
		out.AppendReasoning("insufficient data for preference adjustment")
		return out
	}

	rate := current.SuccessRate()
	boost := (rate - 0.5) * a.thresholds.BoostScale
	out.Confidence += boost
	out.ClampConfidence()

	if rate < a.thresholds.OverrideBelow {
		if best := a.bestAlternative(prefs, out.Route); best != nil {
			out.AppendReasoning(fmt.Sprintf(
				"override: %s underperforming for user (%.0f%% over %d samples); switching to %s (%.0f%% over %d samples)",
				decision.Route, rate*100, current.TotalCount,
				best.Route, best.SuccessRate()*100, best.TotalCount))
			out.Route = best.Route
			out.Confidence = a.thresholds.OverrideConfidence
			return out
		}
	}

	out.AppendReasoning(fmt.Sprintf(
		"preference boost %+.3f from %.0f%% success over %d samples",
		boost, rate*100, current.TotalCount))
	return out
}

// bestAlternative picks the qualifying override target: highest success rate
// above the override threshold with enough evidence, ties broken by the
// larger sample count.
func (a *Adapter) bestAlternative(prefs []RoutePreference, exclude route.Route) *RoutePreference {
	var best *RoutePreference
	for i := range prefs {
		p := &prefs[i]
		if p.Route == exclude || p.TotalCount < a.thresholds.MinSamples {
			continue
		}
		rate := p.SuccessRate()
		if rate <= a.thresholds.OverrideAbove {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		bestRate := best.SuccessRate()
		if rate > bestRate || (rate == bestRate && p.TotalCount > best.TotalCount) {
			best = p
		}
	}
	return best
}

func findPreference(prefs []RoutePreference, r route.Route) *RoutePreference {
	for i := range prefs {
		if prefs[i].Route == r {
			return &prefs[i]
		}
	}
	return nil
}
