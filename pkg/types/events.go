package types

import "encoding/json"

// EventType names the remote engine's event stream message types.
type EventType string

const (
	// EventExecuting is emitted for each node as it runs; a null node for
	// the tracked prompt id signals graph completion.
	EventExecuting EventType = "executing"
	// EventExecutionError reports a failed execution with a message.
	EventExecutionError EventType = "execution_error"
)

// EventFrame is the envelope of a JSON text frame on the event channel.
// Binary frames (preview data) never reach this type.
type EventFrame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ExecutingData is the payload of an "executing" event. Node is nil when
// the graph has finished.
type ExecutingData struct {
	PromptID string  `json:"prompt_id"`
	Node     *string `json:"node"`
}

// ExecutionErrorData is the payload of an "execution_error" event.
type ExecutionErrorData struct {
	PromptID         string `json:"prompt_id"`
	ExceptionMessage string `json:"exception_message"`
}
