// Package processor wires templating, protocol submission and delivery
// into the processing callback the dispatcher invokes per job.
package processor

import (
	"context"
	"fmt"

	"pixelforge/generation-engine/internal/metrics"
	"pixelforge/generation-engine/internal/template"
	"pixelforge/generation-engine/internal/topics"
	"pixelforge/generation-engine/pkg/logger"
	"pixelforge/generation-engine/pkg/types"
)

// Engine is the remote-engine client surface the pipeline needs.
type Engine interface {
	UploadInputAsset(data []byte, filename string) (string, error)
	SubmitAndTrack(ctx context.Context, graph types.NodeGraph) (*types.GenerationResult, error)
	FetchArtifactBytes(url string) ([]byte, error)
}

// TopicSource resolves a topic alias to its loaded configuration.
type TopicSource interface {
	Get(alias string) (*topics.Topic, bool)
}

// Payload pairs an artifact with its downloaded bytes.
type Payload struct {
	Artifact types.MediaArtifact
	Data     []byte
}

// Deliverer receives the outcome of a job. It stands in for the chat
// front end, which is outside this engine.
type Deliverer interface {
	Deliver(ctx context.Context, job *types.Job, result *types.GenerationResult, payloads []Payload) error
	Fail(ctx context.Context, job *types.Job, err error)
}

// Pipeline processes one job end to end. Failure reporting is owned here:
// every error path notifies the deliverer before returning.
type Pipeline struct {
	engine   Engine
	topics   TopicSource
	deliver  Deliverer
	recorder *metrics.Recorder
}

// New builds a pipeline. The recorder may be nil.
func New(engine Engine, src TopicSource, deliverer Deliverer, recorder *metrics.Recorder) *Pipeline {
	return &Pipeline{
		engine:   engine,
		topics:   src,
		deliver:  deliverer,
		recorder: recorder,
	}
}

// Process is the dispatcher's processing callback.
func (p *Pipeline) Process(ctx context.Context, job *types.Job) error {
	topic, ok := p.topics.Get(job.TopicAlias)
	if !ok {
		return p.fail(ctx, job, fmt.Errorf("unknown topic %q", job.TopicAlias))
	}

	params := effectiveParams(topic, job.Params)

	// Uploads are issued one at a time; the engine handles concurrent
	// uploads poorly.
	if len(job.InputImages) > 0 {
		names := make([]string, 0, len(job.InputImages))
		for _, asset := range job.InputImages {
			name, err := p.engine.UploadInputAsset(asset.Data, asset.Filename)
			if err != nil {
				return p.fail(ctx, job, err)
			}
			names = append(names, name)
		}
		params.Set("input_images", names)
		if len(names) == 1 {
			params.Set("input_image", names[0])
		}
	}

	graph, err := template.Render(topic.Graph, topic.Rules, job.Prompt, params)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	result, err := p.engine.SubmitAndTrack(ctx, graph)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	// Result extraction is all-or-nothing: one failed download fails the
	// whole job.
	payloads := make([]Payload, 0, len(result.Artifacts))
	for _, artifact := range result.Artifacts {
		data, err := p.engine.FetchArtifactBytes(artifact.URL)
		if err != nil {
			return p.fail(ctx, job, err)
		}
		payloads = append(payloads, Payload{Artifact: artifact, Data: data})
	}

	if p.recorder != nil {
		p.recorder.Record(job.TopicAlias, result.QueueSeconds, result.ExecSeconds)
	}

	if err := p.deliver.Deliver(ctx, job, result, payloads); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	logger.Info("job done (topic=%s, corr=%s): artifacts=%d queue=%.2fs exec=%.2fs",
		job.TopicAlias, job.CorrelationID, len(payloads), result.QueueSeconds, result.ExecSeconds)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, job *types.Job, err error) error {
	p.deliver.Fail(ctx, job, err)
	return err
}
