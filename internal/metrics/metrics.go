// Package metrics keeps Prometheus counters for planner activity. Each
// Recorder owns its registry, so tests can create as many as they like.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type Recorder struct {
	registry *prometheus.Registry

	utterances    *prometheus.CounterVec
	created       prometheus.Counter
	rescheduled   prometheus.Counter
	deleted       prometheus.Counter
	unresolved    prometheus.Counter
	storeFailures prometheus.Counter
	iterations    prometheus.Histogram
}

func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		utterances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Requests handled, by response kind.",
		}, []string{"kind"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_created_total",
			Help:      "Events created.",
		}),
		rescheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rescheduled_total",
			Help:      "Events moved to resolve a conflict.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_deleted_total",
			Help:      "Events deleted by request or by the optimizer.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_unresolved_total",
			Help:      "Conflicting pairs left unresolved.",
		}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Batches rolled back by the store.",
		}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimizer_iterations",
			Help:      "Detect and resolve passes per optimization.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
	}
	r.registry.MustRegister(r.utterances, r.created, r.rescheduled, r.deleted, r.unresolved, r.storeFailures, r.iterations)
	return r
}

// A nil Recorder ignores every observation.

func (r *Recorder) ObserveUtterance(kind string) {
	if r == nil {
		return
	}
	r.utterances.WithLabelValues(kind).Inc()
}

func (r *Recorder) ObservePlan(created, rescheduled, deleted, unresolved, iterations int) {
	if r == nil {
		return
	}
	r.created.Add(float64(created))
	r.rescheduled.Add(float64(rescheduled))
	r.deleted.Add(float64(deleted))
	r.unresolved.Add(float64(unresolved))
	r.iterations.Observe(float64(iterations))
}

func (r *Recorder) ObserveDelete(n int) {
	if r == nil {
		return
	}
	r.deleted.Add(float64(n))
}

func (r *Recorder) ObserveStoreFailure() {
	if r == nil {
		return
	}
	r.storeFailures.Inc()
}

// Sample is one gathered metric value, flattened for display.
type Sample struct {
	Name  string
	Value float64
}

// Snapshot gathers counters and histogram sample counts, sorted by name.
func (r *Recorder) Snapshot() ([]Sample, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := sampleName(mf.GetName(), m)
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, Sample{Name: name, Value: m.GetCounter().GetValue()})
			case dto.MetricType_HISTOGRAM:
				out = append(out, Sample{Name: name + "_count", Value: float64(m.GetHistogram().GetSampleCount())})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func sampleName(family string, m *dto.Metric) string {
	name := family
	for _, lp := range m.GetLabel() {
		name += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
	}
	return name
}
