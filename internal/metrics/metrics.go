// Package metrics exposes reconciliation counters in Prometheus format.
// The CLI is short-lived, so metrics are written to a node_exporter textfile
// instead of being served.
package metrics

import (
	"fmt"

	"github.com/javanstorm/utmnet/internal/network"
	"github.com/prometheus/client_golang/prometheus"
)

// Run results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Recorder bundles the reconciliation metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	Runs      *prometheus.CounterVec
	Mutations *prometheus.CounterVec
	Desired   *prometheus.GaugeVec
}

// New registers the metrics on a fresh registry.
func New() (*Recorder, error) {
	reg := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "utmnet",
		Name:      "reconcile_runs_total",
		Help:      "Reconciliation runs, labeled by VM and result.",
	}, []string{"vm", "result"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "utmnet",
		Name:      "adapter_mutations_total",
		Help:      "Adapter arguments added or removed, labeled by VM and operation.",
	}, []string{"vm", "op"})

	desired := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "utmnet",
		Name:      "adapters_desired",
		Help:      "Number of additional adapters declared for the VM.",
	}, []string{"vm"})

	for _, c := range []prometheus.Collector{runs, mutations, desired} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	return &Recorder{
		registry:  reg,
		Runs:      runs,
		Mutations: mutations,
		Desired:   desired,
	}, nil
}

// Gatherer returns the registry backing the recorder.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Observe records one reconciliation of vm. res may be partial when err is
// set.
func (r *Recorder) Observe(vm string, res *network.Result, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	r.Runs.WithLabelValues(vm, result).Inc()

	if res == nil {
		return
	}
	r.Desired.WithLabelValues(vm).Set(float64(res.Desired))
	r.Mutations.WithLabelValues(vm, "add").Add(float64(len(res.Added)))
	r.Mutations.WithLabelValues(vm, "remove").Add(float64(len(res.Removed)))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
