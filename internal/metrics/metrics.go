// Package metrics exposes training and prediction counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "brain"

// Run results.
const (
	ResultConverged = "converged"
	ResultExhausted = "exhausted"
	ResultCancelled = "cancelled"
	ResultFailed    = "failed"
)

// Observer records network activity. A nil *Observer discards everything.
type Observer struct {
	iterations  prometheus.Counter
	trainError  prometheus.Gauge
	runs        *prometheus.CounterVec
	predictions prometheus.Counter
}

// NewObserver creates the collectors and registers them on reg.
// It panics if a collector with the same name is already registered.
func NewObserver(reg prometheus.Registerer) *Observer {
	o := &Observer{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_iterations_total",
			Help:      "Training iterations run across all networks.",
		}),
		trainError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_error",
			Help:      "Network error measured after the latest training iteration.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Finished training runs by result.",
		}, []string{"result"}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Feed-forward predictions served.",
		}),
	}
	reg.MustRegister(o.iterations, o.trainError, o.runs, o.predictions)
	return o
}

// Iteration records one training iteration ending with the given error.
func (o *Observer) Iteration(err float64) {
	if o == nil {
		return
	}
	o.iterations.Inc()
	o.trainError.Set(err)
}

// Run records the end of a training run.
func (o *Observer) Run(result string) {
	if o == nil {
		return
	}
	o.runs.WithLabelValues(result).Inc()
}

// Prediction records one prediction.
func (o *Observer) Prediction() {
	if o == nil {
		return
	}
	o.predictions.Inc()
}
