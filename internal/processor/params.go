package processor

import (
	"pixelforge/generation-engine/internal/topics"
	"pixelforge/generation-engine/pkg/types"
)

// effectiveParams overlays the caller's parameters onto the topic
// defaults, dropping overrides outside the topic's inline allow-list and
// clamping numeric values into their configured {min,max} range.
func effectiveParams(topic *topics.Topic, overrides types.ParameterSet) types.ParameterSet {
	eff := topic.Defaults.Clone()
	for name, value := range overrides {
		if !inlineAllowed(topic, name) {
			continue
		}
		eff[name] = clampValue(topic, name, value)
	}
	return eff
}

func inlineAllowed(topic *topics.Topic, name string) bool {
	if topic.InlineAllowed == nil {
		return true
	}
	for _, allowed := range topic.InlineAllowed {
		if allowed == name {
			return true
		}
	}
	return false
}

func clampValue(topic *topics.Topic, name string, value any) any {
	lim, ok := topic.InlineLimits[name]
	if !ok {
		return value
	}
	f, numeric := toFloat(value)
	if !numeric {
		return value
	}
	if lim.Min != nil && f < *lim.Min {
		f = *lim.Min
	}
	if lim.Max != nil && f > *lim.Max {
		f = *lim.Max
	}
	// Integer inputs stay integers after clamping.
	switch value.(type) {
	case int, int32, int64:
		return int64(f)
	default:
		return f
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
