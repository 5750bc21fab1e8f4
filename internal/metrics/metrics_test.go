package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder("phantom")
	r.ObserveUtterance("created")
	r.ObserveUtterance("created")
	r.ObserveUtterance("clarify")
	r.ObservePlan(4, 1, 2, 0, 1)
	r.ObserveDelete(1)
	r.ObserveStoreFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.utterances.WithLabelValues("created")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.created))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.deleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.storeFailures))

	snap, err := r.Snapshot()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, s := range snap {
		values[s.Name] = s.Value
	}
	assert.Equal(t, 1.0, values["phantom_utterances_total{kind=clarify}"])
	assert.Equal(t, 1.0, values["phantom_optimizer_iterations_count"])
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder("phantom")
	b := NewRecorder("phantom")
	a.ObserveStoreFailure()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.storeFailures))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveUtterance("created")
	r.ObservePlan(1, 1, 1, 1, 1)
	snap, err := r.Snapshot()
	assert.NoError(t, err)
	assert.Nil(t, snap)
}
