// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Detection pipeline metrics. Registered with the default registry on init.
var (
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piiscope",
			Name:      "detections_total",
			Help:      "Spans returned by the reconciler",
		},
		[]string{"source", "type"},
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piiscope",
			Name:      "cache_requests_total",
			Help:      "Result cache lookups and evictions",
		},
		[]string{"result"}, // "hit" / "miss" / "l2_hit" / "evict"
	)

	InferenceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "piiscope",
			Name:      "inference_failures_total",
			Help:      "Model passes that degraded to pattern-only output",
		},
		[]string{"reason"},
	)

	DetectDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "piiscope",
			Name:      "detect_duration_seconds",
			Help:      "Duration of detection stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(DetectionsTotal)
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(InferenceFailuresTotal)
	prometheus.MustRegister(DetectDuration)
}

// ObserveStage records the time elapsed since start for a pipeline stage
func ObserveStage(stage string, start time.Time) {
	DetectDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
