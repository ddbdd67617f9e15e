package types

// MediaKind classifies a produced artifact.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// MediaArtifact is one output file reported by the remote engine's history,
// with a constructed retrieval URL and a MIME type guessed from the
// filename extension.
type MediaArtifact struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Subfolder string    `json:"subfolder"`
	Kind      MediaKind `json:"kind"`
	MimeType  string    `json:"mime_type"`
}

// GenerationResult is the typed outcome of one tracked execution.
type GenerationResult struct {
	Artifacts []MediaArtifact `json:"artifacts"`

	// QueueSeconds is the time the prompt waited inside the remote engine
	// before its first node executed; ExecSeconds is the node execution
	// time. Both are clamped to be non-negative.
	QueueSeconds float64 `json:"queue_seconds"`
	ExecSeconds  float64 `json:"exec_seconds"`
}
