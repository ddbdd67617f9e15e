package types

import "time"

// InputAsset is a caller-supplied input image: raw bytes plus a filename
// hint used when uploading to the remote engine.
type InputAsset struct {
	Data     []byte
	Filename string
}

// Job is one accepted generation request. MessageID is the placeholder
// message id: the registry key for cancellation and lookup, unique among
// outstanding jobs.
//
// Lifecycle: queued -> (canceled | started -> completed/failed). Started
// and Canceled are mutated only by the dispatcher under its lock; once
// Started is observed true, cancellation is permanently refused.
type Job struct {
	ChatID        int64
	ThreadID      int64
	MessageID     int64
	RequesterID   int64
	TopicAlias    string
	Prompt        string
	Params        ParameterSet
	InputImages   []InputAsset
	CorrelationID string
	EnqueuedAt    time.Time

	// InitiallyQueued records whether the job was predicted to wait at
	// admission time; used only for user-facing status wording.
	InitiallyQueued bool

	Started         bool
	Canceled        bool
	CanceledByAdmin bool
}
