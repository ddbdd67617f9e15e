// Package scheduler admits generation jobs under global, per-topic and
// per-requester limits and drives them through an injected processor.
package scheduler

import (
	"context"
	"sync"

	"pixelforge/generation-engine/pkg/logger"
	"pixelforge/generation-engine/pkg/types"
)

// Processor handles one started job end to end: templating, submission and
// delivery. It fully owns failure reporting for the job; the dispatcher
// only logs a returned error.
type Processor func(ctx context.Context, job *types.Job) error

// Config holds the dispatcher limits.
type Config struct {
	// MaxWorkers caps concurrently processing jobs across all topics.
	MaxWorkers int

	// PerTopicLimit is the worker-pool size created per topic alias.
	PerTopicLimit int

	// QueueSize is the per-topic queue capacity; Enqueue fails fast when a
	// queue is full instead of blocking admission.
	QueueSize int
}

// DefaultConfig returns the default dispatcher limits.
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:    2,
		PerTopicLimit: 1,
		QueueSize:     1024,
	}
}

// Dispatcher owns per-topic FIFO queues with lazily started worker pools,
// a global concurrency permit, the cancellation registry and per-requester
// pending counters. All mutable state is guarded by one mutex so limit
// checks, reservations and the started/canceled transition are atomic.
type Dispatcher struct {
	mu sync.Mutex

	maxWorkers    int
	perTopicLimit int
	queueSize     int

	queues      map[string]chan *types.Job
	activeTopic map[string]int
	activeAll   int

	// registry maps placeholder message id to outstanding (queued or
	// running) jobs; entries are removed on drop, cancel-drop or finish.
	registry map[int64]*types.Job

	// pending counts accepted-but-not-started jobs per requester; zero
	// entries are removed.
	pending map[int64]int

	processor Processor
	closed    bool

	globalSem chan struct{}
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a dispatcher. SetProcessor must be called before the first
// admission call.
func New(config *Config) *Dispatcher {
	if config == nil {
		config = DefaultConfig()
	}
	maxWorkers := config.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	perTopic := config.PerTopicLimit
	if perTopic < 1 {
		perTopic = 1
	}
	queueSize := config.QueueSize
	if queueSize < 1 {
		queueSize = DefaultConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		maxWorkers:    maxWorkers,
		perTopicLimit: perTopic,
		queueSize:     queueSize,
		queues:        make(map[string]chan *types.Job),
		activeTopic:   make(map[string]int),
		registry:      make(map[int64]*types.Job),
		pending:       make(map[int64]int),
		globalSem:     make(chan struct{}, maxWorkers),
		baseCtx:       ctx,
		cancel:        cancel,
	}
	logger.Info("dispatcher init: max_workers=%d per_topic=%d queue_size=%d", maxWorkers, perTopic, queueSize)
	return d
}

// SetProcessor installs the processing callback. Must be called once,
// before any job is enqueued.
func (d *Dispatcher) SetProcessor(p Processor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processor = p
}

// CanEnqueue reports whether the requester is under the pending limit. A
// non-positive limit or requester id always allows.
func (d *Dispatcher) CanEnqueue(requesterID int64, limit int) bool {
	if requesterID <= 0 || limit <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[requesterID] < limit
}

// ReserveSlot atomically checks the pending limit and increments the
// requester's counter, closing the race between a check and a later
// enqueue. Returns false when the limit is reached or disabled.
func (d *Dispatcher) ReserveSlot(requesterID int64, limit int) bool {
	if requesterID <= 0 || limit <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[requesterID] >= limit {
		return false
	}
	d.incPendingLocked(requesterID)
	return true
}

// ReleaseSlot decrements the requester's pending counter. Calling it
// without a reservation is a no-op.
func (d *Dispatcher) ReleaseSlot(requesterID int64) {
	if requesterID <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decPendingLocked(requesterID)
}

// Enqueue registers the job for cancellation lookup and appends it to the
// topic's queue, lazily starting that topic's worker pool. When reserved
// is true the pending counter was already incremented by ReserveSlot.
// Returns false if the dispatcher is shut down, no processor is set or the
// topic queue is full.
func (d *Dispatcher) Enqueue(alias string, job *types.Job, reserved bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.processor == nil {
		return false
	}
	q := d.ensureWorkersLocked(alias)

	d.registry[job.MessageID] = job
	counted := false
	if job.RequesterID > 0 && !reserved {
		d.incPendingLocked(job.RequesterID)
		counted = true
	}

	select {
	case q <- job:
		return true
	default:
		// Queue full: roll back so the rejection leaves no trace.
		delete(d.registry, job.MessageID)
		if counted {
			d.decPendingLocked(job.RequesterID)
		}
		logger.Warn("queue full for topic %s, rejecting job corr=%s", alias, job.CorrelationID)
		return false
	}
}

// WillQueue predicts whether a job enqueued now would wait rather than
// start immediately. Best effort only: it combines queue depth, per-topic
// activity and global permits, and is used solely for status wording.
func (d *Dispatcher) WillQueue(alias string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return true
	}
	q := d.ensureWorkersLocked(alias)
	if len(q) > 0 {
		return true
	}
	if d.activeTopic[alias] >= d.perTopicLimit {
		return true
	}
	return d.maxWorkers-d.activeAll <= 0
}

// CancelJob marks the job canceled if it is still pending. It succeeds at
// most once per job and immediately frees the requester's pending slot.
func (d *Dispatcher) CancelJob(messageID int64, byAdmin bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	job, ok := d.registry[messageID]
	if !ok || job.Started || job.Canceled {
		return false
	}
	job.Canceled = true
	job.CanceledByAdmin = byAdmin
	d.decPendingLocked(job.RequesterID)
	return true
}

// GetJob returns the outstanding job registered under the placeholder
// message id, or nil.
func (d *Dispatcher) GetJob(messageID int64) *types.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry[messageID]
}

// PendingCount returns the requester's accepted-but-not-started job count.
func (d *Dispatcher) PendingCount(requesterID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[requesterID]
}

// Shutdown stops accepting work, drains every worker and clears all
// in-memory state.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cancel()
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	d.queues = make(map[string]chan *types.Job)
	d.activeTopic = make(map[string]int)
	d.registry = make(map[int64]*types.Job)
	d.pending = make(map[int64]int)
	d.mu.Unlock()
}

// ensureWorkersLocked returns the topic's queue, creating it and its
// worker pool on first use. Caller holds d.mu.
func (d *Dispatcher) ensureWorkersLocked(alias string) chan *types.Job {
	if q, ok := d.queues[alias]; ok {
		return q
	}
	q := make(chan *types.Job, d.queueSize)
	d.queues[alias] = q
	for i := 0; i < d.perTopicLimit; i++ {
		d.wg.Add(1)
		go d.workerLoop(alias, q)
	}
	return q
}

func (d *Dispatcher) workerLoop(alias string, q chan *types.Job) {
	defer d.wg.Done()
	logger.Info("worker started for topic %s", alias)
	defer logger.Info("worker stopped for topic %s", alias)

	for job := range q {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		if job.Canceled {
			// Canceled before start: drop without consuming a permit. The
			// pending slot was freed by CancelJob.
			delete(d.registry, job.MessageID)
			d.mu.Unlock()
			continue
		}
		d.mu.Unlock()

		select {
		case d.globalSem <- struct{}{}:
		case <-d.baseCtx.Done():
			d.mu.Lock()
			delete(d.registry, job.MessageID)
			d.mu.Unlock()
			return
		}

		d.mu.Lock()
		if job.Canceled {
			// Cancel won the race against the permit wait; still honored
			// because Started was never set.
			delete(d.registry, job.MessageID)
			d.mu.Unlock()
			<-d.globalSem
			continue
		}
		d.decPendingLocked(job.RequesterID)
		job.Started = true
		d.activeAll++
		d.activeTopic[alias]++
		proc := d.processor
		d.mu.Unlock()

		d.invoke(proc, alias, job)

		d.mu.Lock()
		d.activeAll--
		if d.activeTopic[alias] > 0 {
			d.activeTopic[alias]--
		}
		delete(d.registry, job.MessageID)
		d.mu.Unlock()
		<-d.globalSem
	}
}

// invoke runs the processor, containing both errors and panics so a failed
// job never takes its worker down.
func (d *Dispatcher) invoke(proc Processor, alias string, job *types.Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("processor panic (topic=%s, corr=%s): %v", alias, job.CorrelationID, r)
		}
	}()
	if proc == nil {
		logger.Error("no processor set; dropping job (topic=%s, corr=%s)", alias, job.CorrelationID)
		return
	}
	if err := proc(d.baseCtx, job); err != nil {
		logger.Error("job failed (topic=%s, corr=%s): %v", alias, job.CorrelationID, err)
	}
}

func (d *Dispatcher) incPendingLocked(requesterID int64) {
	if requesterID <= 0 {
		return
	}
	d.pending[requesterID]++
}

func (d *Dispatcher) decPendingLocked(requesterID int64) {
	if requesterID <= 0 {
		return
	}
	cur := d.pending[requesterID]
	if cur <= 1 {
		delete(d.pending, requesterID)
		return
	}
	d.pending[requesterID] = cur - 1
}
