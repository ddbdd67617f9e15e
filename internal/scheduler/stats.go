package scheduler

// TopicStats is a point-in-time view of one topic's queue.
type TopicStats struct {
	QueueDepth int `json:"queue_depth"`
	Active     int `json:"active"`
}

// Stats is a point-in-time view of the dispatcher, served on the control
// surface. Values may be stale the moment the lock is released.
type Stats struct {
	MaxWorkers        int                   `json:"max_workers"`
	PerTopicLimit     int                   `json:"per_topic_limit"`
	ActiveGlobal      int                   `json:"active_global"`
	PendingRequesters int                   `json:"pending_requesters"`
	Topics            map[string]TopicStats `json:"topics"`
}

// Snapshot collects current queue depths and activity counters.
func (d *Dispatcher) Snapshot() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		MaxWorkers:        d.maxWorkers,
		PerTopicLimit:     d.perTopicLimit,
		ActiveGlobal:      d.activeAll,
		PendingRequesters: len(d.pending),
		Topics:            make(map[string]TopicStats, len(d.queues)),
	}
	for alias, q := range d.queues {
		s.Topics[alias] = TopicStats{
			QueueDepth: len(q),
			Active:     d.activeTopic[alias],
		}
	}
	return s
}
