// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reason combines resolved disease facts, a classifier confidence
// score, and text-derived symptom strings into an auditable diagnosis
// result. It performs no I/O and never fails per-request: missing facts,
// missing symptoms, and out-of-range confidences all degrade to empty or
// neutral fields.
package reason

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/agrovista/wheatsight/services/knowledge"
)

// Risk tier cutoffs, inclusive on the lower bound of each tier.
const (
	// HighRiskThreshold is the minimum confidence for the High tier.
	HighRiskThreshold = 0.7

	// MediumRiskThreshold is the minimum confidence for the Medium tier.
	MediumRiskThreshold = 0.4
)

// LowConfidenceThreshold flags results that warrant human verification.
// Numerically equal to HighRiskThreshold today but a separate policy
// decision; keep the two constants independent.
const LowConfidenceThreshold = 0.7

// Reasoner applies the confidence and evidence rules over an already loaded
// fact store.
//
// Thread Safety: Safe for concurrent use; the store is read-only and the
// reasoner holds no per-request state.
type Reasoner struct {
	store *knowledge.Store
}

// NewReasoner creates a Reasoner over the given store. The store must
// already be loaded; a store that failed to load is the caller's startup
// error to surface, not this package's.
func NewReasoner(store *knowledge.Store) *Reasoner {
	return &Reasoner{store: store}
}

// Reason produces a Result for one diagnosis request.
//
// Description:
//
//	Resolves diseaseLabel against the fact store, cross-checks the entity's
//	symptoms against the supplied text symptoms, derives the risk tier from
//	confidence alone, and sets the low-confidence flag. Trace lines are
//	appended in exactly that order. The risk tier is score-driven only; the
//	entity's environmental conditions are reported in the facts but do not
//	move the tier.
//
// Inputs:
//   - diseaseLabel: Free-form disease name, typically classifier output.
//     Unresolved labels yield empty facts, not an error.
//   - confidence: Classifier score in [0,1]. Out-of-range values are not
//     rejected; they simply land in the nearest tier.
//   - textSymptoms: Symptom strings extracted from the user's free text.
//     May be nil.
//
// Outputs:
//   - Result: Fully populated; never an error.
func (r *Reasoner) Reason(diseaseLabel string, confidence float64, textSymptoms []string) Result {
	facts := r.store.Facts(diseaseLabel)

	var trace []string
	var evidence []string

	if len(textSymptoms) > 0 && facts != nil {
		evidence = matchSymptoms(facts.Symptoms, textSymptoms)
		if len(evidence) > 0 {
			trace = append(trace, fmt.Sprintf(
				"Text symptoms %s match known symptoms %s for %s.",
				quoteList(textSymptoms), quoteList(evidence), diseaseLabel,
			))
		} else {
			trace = append(trace, fmt.Sprintf(
				"Text symptoms %s did NOT clearly match known symptoms for %s.",
				quoteList(textSymptoms), diseaseLabel,
			))
		}
	}

	var risk RiskLevel
	switch {
	case confidence >= HighRiskThreshold:
		risk = RiskHigh
	case confidence >= MediumRiskThreshold:
		risk = RiskMedium
	default:
		risk = RiskLow
	}

	lowConfidence := confidence < LowConfidenceThreshold
	if lowConfidence {
		trace = append(trace, fmt.Sprintf(
			"Classifier confidence %.2f is below threshold %.2f -> suggest human verification.",
			confidence, LowConfidenceThreshold,
		))
	}

	slog.Debug("Reasoning complete",
		slog.String("label", diseaseLabel),
		slog.Float64("confidence", confidence),
		slog.String("risk", string(risk)),
		slog.Bool("facts_resolved", facts != nil),
		slog.Int("evidence", len(evidence)),
	)

	return Result{
		DiseaseLabel:     diseaseLabel,
		Confidence:       confidence,
		RiskLevel:        risk,
		IsLowConfidence:  lowConfidence,
		Facts:            facts.ToMap(),
		SymptomEvidence:  evidence,
		ExplanationTrace: trace,
	}
}

// matchSymptoms collects the entity symptoms corroborated by at least one
// text symptom. A match means one string case-insensitively contains the
// other. Entity order is preserved and each symptom appears at most once.
func matchSymptoms(entitySymptoms, textSymptoms []string) []string {
	var matched []string
	seen := make(map[string]bool, len(entitySymptoms))
	for _, sym := range entitySymptoms {
		if seen[sym] {
			continue
		}
		symLower := strings.ToLower(sym)
		for _, ts := range textSymptoms {
			tsLower := strings.ToLower(ts)
			if strings.Contains(symLower, tsLower) || strings.Contains(tsLower, symLower) {
				matched = append(matched, sym)
				seen[sym] = true
				break
			}
		}
	}
	return matched
}

// quoteList renders a string list for a trace line, ['a', 'b'] style,
// without relying on %v's Go-syntax formatting.
func quoteList(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(it)
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}
