package client

import (
	"net/url"
	"sort"
	"strings"

	"pixelforge/generation-engine/pkg/types"
)

// Save-node classes the engine uses to mark final outputs. Audio outputs
// are recognized by their output field names alone.
const (
	classSaveImage = "SaveImage"
	classSaveVideo = "SaveVideo"
)

// historyEntry is one prompt's record in the /history response.
type historyEntry struct {
	Outputs map[string]*NodeOutput `json:"outputs"`
}

// NodeOutput lists the files one node declared, by output field.
type NodeOutput struct {
	Images   []OutputFile `json:"images"`
	Videos   []OutputFile `json:"videos"`
	Audio    []OutputFile `json:"audio"`
	Audios   []OutputFile `json:"audios"`
	Animated truthy       `json:"animated"`
}

// OutputFile is one declared output file.
type OutputFile struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// truthy accepts the engine's loose "animated" encodings: a plain bool or
// an array (truthy when non-empty).
type truthy bool

func (t *truthy) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "true":
		*t = true
	case strings.HasPrefix(s, "["):
		*t = truthy(s != "[]")
	default:
		*t = false
	}
	return nil
}

// extractArtifacts classifies every declared output file and builds one
// MediaArtifact per file. Classification cross-references the submitted
// graph's save-node classes, falls back to the animated flag and output
// field names, and, when nothing matched, rescans all node outputs
// unconditionally. The fallback is best-effort and may pick up
// intermediate outputs.
func extractArtifacts(baseURL string, graph types.NodeGraph, outputs map[string]*NodeOutput) []types.MediaArtifact {
	saveImage := nodesOfClass(graph, classSaveImage)
	saveVideo := nodesOfClass(graph, classSaveVideo)

	ids := sortedIDs(outputs)
	var artifacts []types.MediaArtifact

	// Videos: tagged save-video nodes or animated outputs; some engines
	// report animated results under "images".
	for _, id := range ids {
		out := outputs[id]
		if out == nil || (!saveVideo[id] && !bool(out.Animated)) {
			continue
		}
		files := out.Videos
		if files == nil {
			files = out.Images
		}
		for _, f := range files {
			artifacts = append(artifacts, newArtifact(baseURL, f, types.MediaVideo))
		}
	}

	// Images: everything under "images" that is not a video, restricted to
	// declared save-image nodes when the graph has any.
	for _, id := range ids {
		out := outputs[id]
		if out == nil || saveVideo[id] || bool(out.Animated) {
			continue
		}
		if out.Images == nil {
			continue
		}
		if len(saveImage) > 0 && !saveImage[id] {
			continue
		}
		for _, f := range out.Images {
			artifacts = append(artifacts, newArtifact(baseURL, f, types.MediaImage))
		}
	}

	// Audio: either declared field name.
	for _, id := range ids {
		out := outputs[id]
		if out == nil {
			continue
		}
		files := out.Audio
		if files == nil {
			files = out.Audios
		}
		for _, f := range files {
			artifacts = append(artifacts, newArtifact(baseURL, f, types.MediaAudio))
		}
	}

	if len(artifacts) > 0 {
		return artifacts
	}

	// Fallback: nothing matched the save-node heuristics, so take every
	// recognized output field on every node.
	for _, id := range ids {
		out := outputs[id]
		if out == nil {
			continue
		}
		for _, group := range []struct {
			files []OutputFile
			kind  types.MediaKind
		}{
			{out.Videos, types.MediaVideo},
			{out.Images, types.MediaImage},
			{out.Audio, types.MediaAudio},
			{out.Audios, types.MediaAudio},
		} {
			for _, f := range group.files {
				kind := group.kind
				if kind == types.MediaImage && bool(out.Animated) {
					kind = types.MediaVideo
				}
				artifacts = append(artifacts, newArtifact(baseURL, f, kind))
			}
		}
	}
	return artifacts
}

func newArtifact(baseURL string, f OutputFile, kind types.MediaKind) types.MediaArtifact {
	return types.MediaArtifact{
		URL:       viewURL(baseURL, f),
		Filename:  f.Filename,
		Subfolder: f.Subfolder,
		Kind:      kind,
		MimeType:  guessMime(f.Filename, kind),
	}
}

func viewURL(baseURL string, f OutputFile) string {
	q := url.Values{}
	q.Set("filename", f.Filename)
	q.Set("subfolder", f.Subfolder)
	q.Set("type", f.Type)
	return baseURL + "/view?" + q.Encode()
}

func nodesOfClass(graph types.NodeGraph, class string) map[string]bool {
	out := make(map[string]bool)
	for id, node := range graph {
		if node != nil && node.ClassType == class {
			out[id] = true
		}
	}
	return out
}

func sortedIDs(outputs map[string]*NodeOutput) []string {
	ids := make([]string, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

const mimeBinary = "application/octet-stream"

var (
	imageMimes = map[string]string{
		".png": "image/png", ".jpg": "image/jpeg", ".jpeg": "image/jpeg",
		".webp": "image/webp", ".bmp": "image/bmp", ".tiff": "image/tiff",
		".tif": "image/tiff",
	}
	videoMimes = map[string]string{
		".mp4": "video/mp4", ".m4v": "video/mp4", ".webm": "video/webm",
		".mov": "video/quicktime", ".mkv": "video/x-matroska",
		".gif": "image/gif",
	}
	audioMimes = map[string]string{
		".flac": "audio/flac", ".wav": "audio/wav", ".mp3": "audio/mpeg",
		".m4a": "audio/aac", ".aac": "audio/aac", ".ogg": "audio/ogg",
		".oga": "audio/ogg",
	}
)

// guessMime maps a filename extension to a MIME type using the fixed table
// for the artifact's kind; unknown extensions get the generic binary type.
func guessMime(filename string, kind types.MediaKind) string {
	name := strings.ToLower(filename)
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return mimeBinary
	}
	ext := name[dot:]
	var table map[string]string
	switch kind {
	case types.MediaImage:
		table = imageMimes
	case types.MediaVideo:
		table = videoMimes
	case types.MediaAudio:
		table = audioMimes
	default:
		return mimeBinary
	}
	if mime, ok := table[ext]; ok {
		return mime
	}
	return mimeBinary
}
