package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelforge/generation-engine/pkg/types"
)

func textNode(text string) *types.GraphNode {
	return &types.GraphNode{
		ClassType: "CLIPTextEncode",
		Inputs:    map[string]any{"text": text},
	}
}

func TestRender_PromptRule(t *testing.T) {
	graph := types.NodeGraph{"5": textNode("")}
	rules := Compile([]types.NodeRule{
		{Kind: "prompt", NodeIDs: []string{"5"}, InputKey: "text"},
	})

	out, err := Render(graph, rules, "a cat", types.NewParameterSet(nil))
	require.NoError(t, err)
	assert.Equal(t, "a cat", out["5"].Inputs["text"])

	// The template itself must stay untouched.
	assert.Equal(t, "", graph["5"].Inputs["text"])
}

func TestRender_NegativePrompt(t *testing.T) {
	graph := types.NodeGraph{"7": textNode("template default")}
	rules := Compile([]types.NodeRule{
		{Kind: "negative_prompt", NodeIDs: []string{"7"}, InputKey: "text"},
	})

	// Absent: node keeps its template default.
	out, err := Render(graph, rules, "x", types.NewParameterSet(nil))
	require.NoError(t, err)
	assert.Equal(t, "template default", out["7"].Inputs["text"])

	// Present: overwritten.
	params := types.NewParameterSet(map[string]any{"negative_prompt": "blurry"})
	out, err = Render(graph, rules, "x", params)
	require.NoError(t, err)
	assert.Equal(t, "blurry", out["7"].Inputs["text"])
}

func TestRender_NamedTextRules(t *testing.T) {
	tests := []struct {
		name string
		rule types.NodeRule
	}{
		{"param field", types.NodeRule{Kind: "text", Param: "style", NodeIDs: []string{"3"}, InputKey: "text"}},
		{"embedded name", types.NodeRule{Kind: "text:style", NodeIDs: []string{"3"}, InputKey: "text"}},
		{"string variant", types.NodeRule{Kind: "string:style", NodeIDs: []string{"3"}, InputKey: "text"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := types.NodeGraph{"3": textNode("")}
			params := types.NewParameterSet(map[string]any{"STYLE": "noir"})

			out, err := Render(graph, Compile([]types.NodeRule{tt.rule}), "x", params)
			require.NoError(t, err)
			assert.Equal(t, "noir", out["3"].Inputs["text"])
		})
	}
}

func TestRender_ScalarCatchAll(t *testing.T) {
	graph := types.NodeGraph{
		"4": {ClassType: "EmptyLatentImage", Inputs: map[string]any{"width": 512, "height": 512}},
	}
	rules := Compile([]types.NodeRule{
		{Kind: "width", NodeIDs: []string{"4"}, InputKey: "width"},
		{Kind: "height", NodeIDs: []string{"4"}, InputKey: "height"},
		{Kind: "steps", NodeIDs: []string{"4"}, InputKey: "steps"},
	})
	params := types.NewParameterSet(map[string]any{"width": 768})

	out, err := Render(graph, rules, "x", params)
	require.NoError(t, err)
	assert.Equal(t, 768, out["4"].Inputs["width"])
	// No height/steps params: template values stay.
	assert.Equal(t, float64(512), toF(out["4"].Inputs["height"]))
	_, hasSteps := out["4"].Inputs["steps"]
	assert.False(t, hasSteps)
}

func toF(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return -1
}

func TestRender_SingleInputImage(t *testing.T) {
	graph := types.NodeGraph{
		"9": {ClassType: "LoadImage", Inputs: map[string]any{"image": ""}},
	}
	rules := Compile([]types.NodeRule{
		{Kind: "input_image", NodeIDs: []string{"9"}, InputKey: "image"},
	})
	params := types.NewParameterSet(map[string]any{"input_image": "up_001.png"})

	out, err := Render(graph, rules, "x", params)
	require.NoError(t, err)
	assert.Equal(t, "up_001.png", out["9"].Inputs["image"])
}

func TestRender_MultiImagePruning(t *testing.T) {
	graph := types.NodeGraph{
		"10": {ClassType: "LoadImage", Inputs: map[string]any{"image": ""}},
		"11": {ClassType: "LoadImage", Inputs: map[string]any{"image": ""}},
		"12": {ClassType: "LoadImage", Inputs: map[string]any{"image": ""}},
		"20": {ClassType: "ImageBatch", Inputs: map[string]any{
			"a": []any{"10", 0},
			"b": []any{"11", 0},
			"c": []any{"12", 0},
		}},
	}
	rules := Compile([]types.NodeRule{
		{Kind: "input_images", NodeIDs: []string{"10", "11", "12"}, InputKey: "image"},
	})
	params := types.NewParameterSet(map[string]any{"input_images": []string{"a.png", "b.png"}})

	out, err := Render(graph, rules, "x", params)
	require.NoError(t, err)

	assert.Equal(t, "a.png", out["10"].Inputs["image"])
	assert.Equal(t, "b.png", out["11"].Inputs["image"])
	assert.NotContains(t, out, "12")

	// The edge into the pruned node is detached, the others survive.
	_, hasC := out["20"].Inputs["c"]
	assert.False(t, hasC)
	assert.Contains(t, out["20"].Inputs, "a")
	assert.Contains(t, out["20"].Inputs, "b")
}

func TestRender_MultiImageNoneSupplied(t *testing.T) {
	graph := types.NodeGraph{
		"10": {ClassType: "LoadImage", Inputs: map[string]any{"image": ""}},
		"11": {ClassType: "LoadImage", Inputs: map[string]any{"image": ""}},
		"30": {ClassType: "KSampler", Inputs: map[string]any{
			"latent": []any{"10", 0},
			"seed":   1,
		}},
	}
	rules := Compile([]types.NodeRule{
		{Kind: "input_images", NodeIDs: []string{"10", "11"}, InputKey: "image"},
	})

	out, err := Render(graph, rules, "x", types.NewParameterSet(nil))
	require.NoError(t, err)

	assert.NotContains(t, out, "10")
	assert.NotContains(t, out, "11")
	_, hasLatent := out["30"].Inputs["latent"]
	assert.False(t, hasLatent)
	assert.Contains(t, out["30"].Inputs, "seed")
}

func TestRender_SeedBackfill(t *testing.T) {
	graph := types.NodeGraph{
		"2": {ClassType: "KSampler", Inputs: map[string]any{"seed": 0}},
	}
	rules := Compile([]types.NodeRule{
		{Kind: "seed", NodeIDs: []string{"2"}, InputKey: "seed"},
	})
	params := types.NewParameterSet(nil)

	out, err := Render(graph, rules, "x", params)
	require.NoError(t, err)

	seed, ok := out["2"].Inputs["seed"].(int64)
	require.True(t, ok, "backfilled seed should be an int64, got %T", out["2"].Inputs["seed"])
	assert.GreaterOrEqual(t, seed, int64(0))
	assert.Less(t, seed, types.MaxSeed)

	// The caller's params must not gain a seed.
	_, has := params.Get("seed")
	assert.False(t, has)
}

func TestRender_DeterministicWithExplicitSeed(t *testing.T) {
	graph := types.NodeGraph{
		"2": {ClassType: "KSampler", Inputs: map[string]any{"seed": 0, "steps": 20}},
		"5": textNode(""),
	}
	rules := Compile([]types.NodeRule{
		{Kind: "prompt", NodeIDs: []string{"5"}, InputKey: "text"},
		{Kind: "seed", NodeIDs: []string{"2"}, InputKey: "seed"},
	})
	params := types.NewParameterSet(map[string]any{"seed": 42})

	first, err := Render(graph, rules, "a cat", params)
	require.NoError(t, err)
	second, err := Render(graph, rules, "a cat", params)
	require.NoError(t, err)

	b1, err := MarshalGraph(first)
	require.NoError(t, err)
	b2, err := MarshalGraph(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}
