package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	assert.Empty(t, r.Snapshot())

	r.Record("flux", 1.0, 5.0)
	r.Record("flux", 2.0, 10.0)
	r.Record("wan", 0.5, 60.0)

	snap := r.Snapshot()
	require.Len(t, snap, 2)

	flux := snap["flux"]
	assert.Equal(t, int64(2), flux.Count)
	assert.InDelta(t, 2.0, flux.QueueMax, 0.01)
	assert.InDelta(t, 10.0, flux.ExecMax, 0.05)
	assert.Greater(t, flux.ExecP95, flux.ExecP50-0.001)

	wan := snap["wan"]
	assert.Equal(t, int64(1), wan.Count)
	assert.InDelta(t, 60.0, wan.ExecP50, 0.5)
}

func TestRecorder_ClampsOutOfRange(t *testing.T) {
	r := NewRecorder()
	// Sub-millisecond and multi-hour values must not be dropped.
	r.Record("flux", 0.0, 7200.0)

	snap := r.Snapshot()
	flux := snap["flux"]
	assert.Equal(t, int64(1), flux.Count)
	assert.InDelta(t, 0.001, flux.QueueMax, 0.001)
	assert.InDelta(t, 3600.0, flux.ExecMax, 5.0)
}
