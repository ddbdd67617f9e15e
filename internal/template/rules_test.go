package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelforge/generation-engine/pkg/types"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name      string
		rule      types.NodeRule
		wantKind  Kind
		wantParam string
	}{
		{"prompt", types.NodeRule{Kind: "prompt"}, KindPrompt, ""},
		{"prompt mixed case", types.NodeRule{Kind: " Prompt "}, KindPrompt, ""},
		{"negative", types.NodeRule{Kind: "negative_prompt"}, KindNegativePrompt, ""},
		{"input image", types.NodeRule{Kind: "input_image"}, KindInputImage, ""},
		{"input images", types.NodeRule{Kind: "input_images"}, KindInputImages, ""},
		{"text with param", types.NodeRule{Kind: "text", Param: "Style"}, KindText, "style"},
		{"string with param", types.NodeRule{Kind: "string", Param: "lora"}, KindText, "lora"},
		{"text embedded", types.NodeRule{Kind: "text:style"}, KindText, "style"},
		{"string embedded", types.NodeRule{Kind: "string:lora"}, KindText, "lora"},
		{"text without param", types.NodeRule{Kind: "text"}, kindNoop, ""},
		{"text empty embedded", types.NodeRule{Kind: "text:"}, kindNoop, ""},
		{"malformed textish", types.NodeRule{Kind: "textual"}, kindNoop, ""},
		{"blank", types.NodeRule{Kind: "  "}, kindNoop, ""},
		{"scalar width", types.NodeRule{Kind: "width"}, KindScalar, "width"},
		{"scalar mixed case", types.NodeRule{Kind: "STEPS"}, KindScalar, "steps"},
		{"scalar seed", types.NodeRule{Kind: "seed"}, KindScalar, "seed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled := Compile([]types.NodeRule{tt.rule})
			require.Len(t, compiled, 1)
			assert.Equal(t, tt.wantKind, compiled[0].Kind)
			assert.Equal(t, tt.wantParam, compiled[0].Param)
		})
	}
}

func TestCompile_PreservesCountAndTargets(t *testing.T) {
	raw := []types.NodeRule{
		{Kind: "prompt", NodeIDs: []string{"1", "2"}, InputKey: "text"},
		{Kind: "", NodeIDs: []string{"3"}, InputKey: "x"},
		{Kind: "width", NodeIDs: []string{"4"}, InputKey: "width"},
	}
	compiled := Compile(raw)
	require.Len(t, compiled, len(raw))
	assert.Equal(t, []string{"1", "2"}, compiled[0].NodeIDs)
	assert.Equal(t, "text", compiled[0].InputKey)
	assert.Equal(t, kindNoop, compiled[1].Kind)
}
