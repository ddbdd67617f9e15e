// Package topics loads generation topics from disk: each topic directory
// holds a node-graph template, its parameter-mapping rules and metadata.
// Misconfigured topics are excluded from service at load time, so render
// time can assume referential integrity.
package topics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pixelforge/generation-engine/internal/template"
	"pixelforge/generation-engine/pkg/logger"
	"pixelforge/generation-engine/pkg/types"
)

// Topic file names inside a topic directory.
const (
	graphFile = "workflow.json"
	rulesFile = "nodes.json"
	metaFile  = "meta.json"
)

// Limit is a per-parameter numeric clamp.
type Limit struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Topic is one loaded, validated generation topic.
type Topic struct {
	Alias       string
	Title       string
	Description string

	// Defaults are the rule-file defaults overlaid by metadata defaults.
	Defaults types.ParameterSet

	// InlineAllowed restricts which parameters callers may override
	// inline; nil allows all supported parameters.
	InlineAllowed []string

	// InlineLimits clamps numeric inline overrides per parameter name.
	InlineLimits map[string]Limit

	// Graph is the generic parameterized template.
	Graph types.NodeGraph

	// Rules are the compiled mapping rules, resolved once here so the
	// render loop never parses kind strings.
	Rules []template.Rule
}

// Repository scans a working directory of topic subdirectories and caches
// the result. Reload swaps the cache atomically.
type Repository struct {
	workdir string

	mu      sync.RWMutex
	byAlias map[string]*Topic
}

// NewRepository creates a repository over the given working directory.
func NewRepository(workdir string) *Repository {
	return &Repository{
		workdir: workdir,
		byAlias: make(map[string]*Topic),
	}
}

// Reload rescans the working directory and replaces the cache. Individual
// bad topics are logged and skipped; the error is non-nil only when the
// directory itself cannot be read.
func (r *Repository) Reload() error {
	entries, err := os.ReadDir(r.workdir)
	if err != nil {
		return fmt.Errorf("read topics dir: %w", err)
	}

	loaded := make(map[string]*Topic)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		alias := entry.Name()
		topic, err := loadTopic(alias, filepath.Join(r.workdir, alias))
		if err != nil {
			logger.Error("bad topic %s: %v", alias, err)
			continue
		}
		loaded[alias] = topic
	}

	r.mu.Lock()
	r.byAlias = loaded
	r.mu.Unlock()
	logger.Info("topics loaded: %d", len(loaded))
	return nil
}

// Get returns a topic by alias.
func (r *Repository) Get(alias string) (*Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byAlias[alias]
	return t, ok
}

// All returns a copy of the alias -> topic mapping.
func (r *Repository) All() map[string]*Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Topic, len(r.byAlias))
	for k, v := range r.byAlias {
		out[k] = v
	}
	return out
}

func loadTopic(alias, dir string) (*Topic, error) {
	var graph types.NodeGraph
	if err := readJSON(filepath.Join(dir, graphFile), &graph); err != nil {
		return nil, err
	}

	var rules rulesDoc
	if err := readJSON(filepath.Join(dir, rulesFile), &rules); err != nil {
		return nil, err
	}

	var meta metaDoc
	if err := readJSON(filepath.Join(dir, metaFile), &meta); err != nil {
		return nil, err
	}

	if err := validateRules(graph, rules.Nodes); err != nil {
		return nil, err
	}

	defaults := types.NewParameterSet(rules.Defaults)
	for k, v := range types.NewParameterSet(meta.Defaults) {
		defaults[k] = v
	}

	title := meta.Title
	if title == "" {
		title = alias
	}

	var allowed []string
	if meta.InlineAllowed != nil {
		allowed = make([]string, 0, len(meta.InlineAllowed))
		for _, name := range meta.InlineAllowed {
			allowed = append(allowed, strings.ToLower(name))
		}
	}

	limits := make(map[string]Limit, len(meta.InlineLimits))
	for name, lim := range meta.InlineLimits {
		limits[strings.ToLower(name)] = lim
	}

	return &Topic{
		Alias:         alias,
		Title:         title,
		Description:   meta.Description,
		Defaults:      defaults,
		InlineAllowed: allowed,
		InlineLimits:  limits,
		Graph:         graph,
		Rules:         template.Compile(rules.Nodes),
	}, nil
}

// validateRules checks referential integrity: every node id a rule targets
// must exist in the graph and own an inputs map.
func validateRules(graph types.NodeGraph, rules []types.NodeRule) error {
	for _, rule := range rules {
		for _, id := range rule.NodeIDs {
			node, ok := graph[id]
			if !ok {
				return fmt.Errorf("rule %q references node %s absent from the graph", rule.Kind, id)
			}
			if node.Inputs == nil {
				return fmt.Errorf("graph node %s has no inputs", id)
			}
		}
	}
	return nil
}

type rulesDoc struct {
	Nodes    []types.NodeRule `json:"nodes"`
	Defaults map[string]any   `json:"defaults"`
}

type metaDoc struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Defaults      map[string]any   `json:"defaults"`
	InlineAllowed []string         `json:"inline_allowed"`
	InlineLimits  map[string]Limit `json:"inline_limits"`
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}
