// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnosis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Diagnosis Pipeline
// =============================================================================

var (
	// diagnosisRequestsTotal counts diagnosis runs by outcome.
	// Labels: status (ok, not_wheat, classifier_error, no_input)
	diagnosisRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wheatsight",
		Subsystem: "diagnosis",
		Name:      "requests_total",
		Help:      "Total diagnosis pipeline runs by outcome",
	}, []string{"status"})

	// diagnosisDurationSeconds measures end-to-end pipeline latency,
	// classifier and explanation calls included.
	diagnosisDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wheatsight",
		Subsystem: "diagnosis",
		Name:      "duration_seconds",
		Help:      "End-to-end diagnosis pipeline latency",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// knowledgeTriples reports the size of the currently loaded fact store.
	knowledgeTriples = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wheatsight",
		Subsystem: "diagnosis",
		Name:      "knowledge_triples",
		Help:      "Number of triples in the loaded knowledge store",
	})
)
