package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pixelforge/generation-engine/pkg/logger"
	"pixelforge/generation-engine/pkg/types"
)

// FileDeliverer writes produced artifacts to an output directory. It is
// the stand-in delivery collaborator for CLI runs; a chat front end would
// provide its own Deliverer.
type FileDeliverer struct {
	dir string
}

// NewFileDeliverer creates a deliverer rooted at dir, creating it if
// needed.
func NewFileDeliverer(dir string) (*FileDeliverer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileDeliverer{dir: dir}, nil
}

// Deliver writes each payload as <correlationID>_<n>_<filename>.
func (d *FileDeliverer) Deliver(_ context.Context, job *types.Job, result *types.GenerationResult, payloads []Payload) error {
	for i, p := range payloads {
		name := fmt.Sprintf("%s_%d_%s", job.CorrelationID, i, filepath.Base(p.Artifact.Filename))
		path := filepath.Join(d.dir, name)
		if err := os.WriteFile(path, p.Data, 0o644); err != nil {
			return fmt.Errorf("write artifact %s: %w", name, err)
		}
		logger.Info("artifact saved: %s (%s, %d bytes)", path, p.Artifact.Kind, len(p.Data))
	}
	logger.Debug("delivered %d artifact(s) for corr=%s (queue=%.2fs exec=%.2fs)",
		len(payloads), job.CorrelationID, result.QueueSeconds, result.ExecSeconds)
	return nil
}

// Fail logs the failure; there is no user to notify in CLI runs.
func (d *FileDeliverer) Fail(_ context.Context, job *types.Job, err error) {
	logger.Error("generation failed (topic=%s, corr=%s): %v", job.TopicAlias, job.CorrelationID, err)
}
