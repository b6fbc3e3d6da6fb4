/*
Copyright 2025 The KServe Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package serving

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "servingctl"

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics are the Prometheus collectors of the lifecycle controller.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	polls      *prometheus.CounterVec
	rollbacks  prometheus.Counter
}

// NewMetrics creates the controller collectors and registers them on reg. A
// nil reg registers on a private registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "lifecycle",
				Name:      "operations_total",
				Help:      "Lifecycle operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "lifecycle",
				Name:      "operation_duration_seconds",
				Help:      "Duration of lifecycle operations in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "status_polls_total",
				Help:      "Status snapshots fetched while waiting for a target status",
			},
			[]string{"target"},
		),
		rollbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "start_rollbacks_total",
				Help:      "Compensating stop actions issued after a failed start",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.polls, m.rollbacks} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation string, elapsed time.Duration, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
