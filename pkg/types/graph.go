// Package types defines the core data structures for the generation engine.
package types

import (
	"math/rand"
	"strings"
)

// NodeGraph is the remote engine's execution plan: a mapping from node id to
// the node's operation class and input slots. An input value is either a
// literal or an edge to another node's output.
type NodeGraph map[string]*GraphNode

// GraphNode is a single node of an execution graph.
type GraphNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`

	// Meta carries optional display info the engine echoes back; it is
	// forwarded untouched.
	Meta map[string]any `json:"_meta,omitempty"`
}

// EdgeTarget returns the source node id if v encodes an edge reference
// ([sourceNodeID, outputIndex]) and ok=false for literal values.
func EdgeTarget(v any) (string, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) < 1 {
		return "", false
	}
	id, ok := arr[0].(string)
	return id, ok
}

// NodeRule declares how one logical parameter maps onto node input slots.
// Kind is a free-form string: "prompt", "negative_prompt", "text"/"string"
// (with Param naming the parameter), "text:<name>"/"string:<name>",
// "input_image", "input_images", or any scalar parameter name such as
// "width", "steps", "seed", "model", "fps". NodeIDs order matters for
// sequential assignment.
type NodeRule struct {
	Kind     string   `json:"type"`
	NodeIDs  []string `json:"node_ids"`
	InputKey string   `json:"key"`
	Param    string   `json:"param,omitempty"`
}

// ParameterSet holds runtime parameter values keyed case-insensitively.
type ParameterSet map[string]any

// NewParameterSet builds a ParameterSet with all keys lower-cased.
func NewParameterSet(values map[string]any) ParameterSet {
	p := make(ParameterSet, len(values))
	for k, v := range values {
		p[strings.ToLower(k)] = v
	}
	return p
}

// Get looks up a parameter by case-insensitive name. Nil values count as
// absent.
func (p ParameterSet) Get(name string) (any, bool) {
	v, ok := p[strings.ToLower(name)]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Set stores a parameter under its lower-cased name.
func (p ParameterSet) Set(name string, value any) {
	p[strings.ToLower(name)] = value
}

// Clone returns a shallow copy; values are shared, keys are not.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MaxSeed bounds generated seeds to 48 bits, large enough to avoid
// collisions while staying inside the engine's numeric range.
const MaxSeed = int64(1) << 48

// EnsureSeed backfills a pseudo-random seed when the set has none.
// Callers that want reproducible renders set "seed" explicitly.
func (p ParameterSet) EnsureSeed() {
	if _, ok := p.Get("seed"); !ok {
		p.Set("seed", rand.Int63n(MaxSeed))
	}
}
