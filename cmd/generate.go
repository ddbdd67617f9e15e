package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pixelforge/generation-engine/pkg/types"
)

var (
	genTopic  string
	genPrompt string
	genParams []string
	genImages []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a single generation job and wait for it",
	Example: `  # Text to image
  generation-engine generate -t flux -p "a cat in a hat"

  # With inline parameter overrides
  generation-engine generate -t flux -p "a cat" --param width=768 --param steps=20

  # Image to video
  generation-engine generate -t wan-video -p "slow zoom" --image cat.png`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "topic alias (required)")
	generateCmd.Flags().StringVarP(&genPrompt, "prompt", "p", "", "generation prompt (required)")
	generateCmd.Flags().StringArrayVar(&genParams, "param", nil, "inline parameter override, key=value (repeatable)")
	generateCmd.Flags().StringArrayVar(&genImages, "image", nil, "input image file (repeatable)")
	_ = generateCmd.MarkFlagRequired("topic")
	_ = generateCmd.MarkFlagRequired("prompt")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	parts, err := bootstrap()
	if err != nil {
		return err
	}
	defer parts.dispatcher.Shutdown()

	if _, ok := parts.repo.Get(genTopic); !ok {
		return fmt.Errorf("unknown topic %q", genTopic)
	}

	params := types.NewParameterSet(nil)
	for _, kv := range genParams {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return fmt.Errorf("bad --param %q, expected key=value", kv)
		}
		params.Set(key, value)
	}

	var assets []types.InputAsset
	for _, path := range genImages {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input image: %w", err)
		}
		assets = append(assets, types.InputAsset{Data: data, Filename: filepath.Base(path)})
	}

	job := &types.Job{
		MessageID:     time.Now().UnixNano(),
		RequesterID:   1,
		TopicAlias:    genTopic,
		Prompt:        genPrompt,
		Params:        params,
		InputImages:   assets,
		CorrelationID: uuid.NewString(),
		EnqueuedAt:    time.Now(),
	}

	if !parts.dispatcher.Enqueue(genTopic, job, false) {
		return fmt.Errorf("job rejected")
	}
	fmt.Fprintf(os.Stderr, "job enqueued (corr=%s), waiting...\n", job.CorrelationID)

	// The job leaves the registry when processing finishes either way.
	for parts.dispatcher.GetJob(job.MessageID) != nil {
		time.Sleep(200 * time.Millisecond)
	}
	return nil
}
