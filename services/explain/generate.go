// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package explain turns a reasoning result into a farmer-readable report:
// hosted LLM providers tried in order, with a static template as the final
// fallback so a report is always produced.
package explain

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agrovista/wheatsight/services/reason"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// explainCallsTotal counts provider calls by outcome.
	//
	// Labels:
	//   - provider: "groq", "openai", "template"
	//   - status: "success", "error", "rate_limited"
	explainCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wheatsight",
			Subsystem: "explain",
			Name:      "calls_total",
			Help:      "Total explanation provider calls.",
		},
		[]string{"provider", "status"},
	)

	// explainCallDuration measures provider call latency.
	explainCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wheatsight",
			Subsystem: "explain",
			Name:      "call_duration_seconds",
			Help:      "Duration of explanation provider calls in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)
)

// TemplateSource identifies the static fallback in DiagnosisResponse
// explanation_source fields.
const TemplateSource = "template"

// =============================================================================
// Generator
// =============================================================================

// Generator produces explanations by trying hosted providers in order and
// rendering the static template when every provider fails or is skipped.
//
// Thread Safety: Safe for concurrent use.
type Generator struct {
	providers []Provider
	limiter   *RateLimiter
}

// NewGenerator creates a Generator over an ordered provider chain. limiter
// may be nil to disable rate limiting. Zero providers is valid and yields
// template-only output.
func NewGenerator(limiter *RateLimiter, providers ...Provider) *Generator {
	return &Generator{providers: providers, limiter: limiter}
}

// Generate produces the explanation for a reasoning result.
//
// Description:
//
//	Builds the prompt once, then walks the provider chain: rate-limited
//	providers are skipped, failing providers are logged and skipped, the
//	first success wins. The static template closes the chain so this
//	method always returns usable text.
//
// Outputs:
//   - string: The report text.
//   - string: The source that produced it (provider name or "template").
func (g *Generator) Generate(ctx context.Context, res reason.Result) (string, string) {
	prompt := BuildPrompt(res)

	for _, p := range g.providers {
		if g.limiter != nil {
			if ok, wait := g.limiter.Allow(p.Name()); !ok {
				explainCallsTotal.WithLabelValues(p.Name(), "rate_limited").Inc()
				slog.Warn("Explanation provider rate-limited, skipping",
					slog.String("provider", p.Name()),
					slog.Duration("retry_after", wait),
				)
				continue
			}
		}

		start := time.Now()
		text, err := p.Generate(ctx, prompt)
		explainCallDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			explainCallsTotal.WithLabelValues(p.Name(), "error").Inc()
			slog.Warn("Explanation provider failed, trying next",
				slog.String("provider", p.Name()),
				slog.String("error", SafeLogString(err.Error())),
			)
			continue
		}

		explainCallsTotal.WithLabelValues(p.Name(), "success").Inc()
		return text, p.Name()
	}

	explainCallsTotal.WithLabelValues(TemplateSource, "success").Inc()
	slog.Info("No LLM provider available, using template fallback")
	return RenderTemplate(res), TemplateSource
}
