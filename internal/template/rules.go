// Package template rewrites a generic node graph with runtime values
// according to a topic's parameter-mapping rules.
package template

import (
	"strings"

	"pixelforge/generation-engine/pkg/types"
)

// Kind is the closed set of rule behaviors. Free-form kind strings from
// topic configuration are resolved to one of these exactly once, at topic
// load time, so the render loop is a fixed switch.
type Kind int

const (
	// KindPrompt writes the request prompt into the target inputs.
	KindPrompt Kind = iota
	// KindNegativePrompt writes params["negative_prompt"] when present.
	KindNegativePrompt
	// KindText writes params[Param] when present.
	KindText
	// KindInputImage writes params["input_image"] when present.
	KindInputImage
	// KindInputImages assigns params["input_images"] sequentially and
	// prunes surplus target nodes.
	KindInputImages
	// KindScalar writes params[Param] when present; Param carries the raw
	// lower-cased kind string ("width", "steps", "model", ...).
	KindScalar
	// kindNoop marks rules that can never fire (blank kind, text rule
	// without a parameter name). Kept so rule counts stay stable.
	kindNoop
)

// Rule is a compiled NodeRule.
type Rule struct {
	Kind     Kind
	NodeIDs  []string
	InputKey string

	// Param is the parameter name consulted at render time; unused for
	// KindPrompt, KindNegativePrompt, KindInputImage and KindInputImages.
	Param string
}

// Compile resolves raw rule kind strings into the closed Rule set.
func Compile(rules []types.NodeRule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kind := strings.ToLower(strings.TrimSpace(r.Kind))
		c := Rule{NodeIDs: r.NodeIDs, InputKey: r.InputKey}

		switch {
		case kind == "":
			c.Kind = kindNoop
		case kind == "prompt":
			c.Kind = KindPrompt
		case kind == "negative_prompt":
			c.Kind = KindNegativePrompt
		case kind == "input_image":
			c.Kind = KindInputImage
		case kind == "input_images":
			c.Kind = KindInputImages
		case kind == "text" || kind == "string":
			param := strings.TrimSpace(r.Param)
			if param == "" {
				c.Kind = kindNoop
			} else {
				c.Kind = KindText
				c.Param = strings.ToLower(param)
			}
		case strings.HasPrefix(kind, "text:") || strings.HasPrefix(kind, "string:"):
			param := strings.TrimSpace(kind[strings.Index(kind, ":")+1:])
			if param == "" {
				c.Kind = kindNoop
			} else {
				c.Kind = KindText
				c.Param = param
			}
		case strings.HasPrefix(kind, "text") || strings.HasPrefix(kind, "string"):
			// Malformed text-ish kinds never fall through to the scalar
			// pass; they just do nothing.
			c.Kind = kindNoop
		default:
			c.Kind = KindScalar
			c.Param = kind
		}

		out = append(out, c)
	}
	return out
}
