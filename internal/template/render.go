package template

import (
	"fmt"

	"github.com/bytedance/sonic"

	"pixelforge/generation-engine/pkg/types"
)

// json is the std-compatible sonic configuration: sorted map keys, so the
// same graph always marshals to the same bytes.
var json = sonic.ConfigStd

// Render produces a concrete graph from a template, a compiled rule set,
// the request prompt and runtime parameters. Inputs are never mutated: the
// template is deep-copied and params is cloned before the seed backfill.
//
// Passes run in a fixed order; the multi-image pass may prune nodes that
// earlier passes already touched, which is why the order is significant.
func Render(template types.NodeGraph, rules []Rule, prompt string, params types.ParameterSet) (types.NodeGraph, error) {
	g, err := CopyGraph(template)
	if err != nil {
		return nil, err
	}

	eff := params.Clone()
	eff.EnsureSeed()

	// Pass 1: prompt.
	for _, r := range rules {
		if r.Kind == KindPrompt {
			setInputs(g, r.NodeIDs, r.InputKey, prompt)
		}
	}

	// Pass 2: negative prompt; absent means the template default stays.
	for _, r := range rules {
		if r.Kind != KindNegativePrompt {
			continue
		}
		if v, ok := eff.Get("negative_prompt"); ok {
			setInputs(g, r.NodeIDs, r.InputKey, v)
		}
	}

	// Pass 3: generic named text fields.
	for _, r := range rules {
		if r.Kind != KindText {
			continue
		}
		if v, ok := eff.Get(r.Param); ok {
			setInputs(g, r.NodeIDs, r.InputKey, v)
		}
	}

	// Pass 4: single input image (already-uploaded remote filename).
	for _, r := range rules {
		if r.Kind != KindInputImage {
			continue
		}
		if v, ok := eff.Get("input_image"); ok {
			setInputs(g, r.NodeIDs, r.InputKey, v)
		}
	}

	// Pass 5: multiple input images with pruning of unused loader nodes.
	for _, r := range rules {
		if r.Kind != KindInputImages {
			continue
		}
		names := stringList(eff, "input_images")
		used := len(names)
		if used > len(r.NodeIDs) {
			used = len(r.NodeIDs)
		}
		for i := 0; i < used; i++ {
			setInputs(g, r.NodeIDs[i:i+1], r.InputKey, names[i])
		}
		pruneNodes(g, r.NodeIDs[used:])
	}

	// Pass 6: scalar catch-all (width, height, steps, seed, model, ...).
	for _, r := range rules {
		if r.Kind != KindScalar {
			continue
		}
		if v, ok := eff.Get(r.Param); ok {
			setInputs(g, r.NodeIDs, r.InputKey, v)
		}
	}

	return g, nil
}

// CopyGraph deep-copies a graph through its canonical JSON form.
func CopyGraph(g types.NodeGraph) (types.NodeGraph, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("copy graph: %w", err)
	}
	var out types.NodeGraph
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("copy graph: %w", err)
	}
	return out, nil
}

// MarshalGraph serializes a graph deterministically (sorted keys).
func MarshalGraph(g types.NodeGraph) ([]byte, error) {
	return json.Marshal(g)
}

func setInputs(g types.NodeGraph, ids []string, key string, v any) {
	for _, id := range ids {
		node, ok := g[id]
		if !ok || node.Inputs == nil {
			// Referential integrity is checked at topic load time; an id
			// missing here was pruned by an earlier pass.
			continue
		}
		node.Inputs[key] = v
	}
}

// pruneNodes removes the given ids from the graph and detaches every
// remaining input whose edge references a removed id, so no dangling
// references survive.
func pruneNodes(g types.NodeGraph, ids []string) {
	if len(ids) == 0 {
		return
	}
	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		removed[id] = struct{}{}
	}
	for _, node := range g {
		if node == nil || node.Inputs == nil {
			continue
		}
		for key, v := range node.Inputs {
			if src, ok := types.EdgeTarget(v); ok {
				if _, gone := removed[src]; gone {
					delete(node.Inputs, key)
				}
			}
		}
	}
	for _, id := range ids {
		delete(g, id)
	}
}

// stringList reads a parameter as a list of strings, accepting both
// []string and the []any that JSON decoding produces. Absent, empty or
// non-list values yield nil.
func stringList(p types.ParameterSet, name string) []string {
	v, ok := p.Get(name)
	if !ok {
		return nil
	}
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
