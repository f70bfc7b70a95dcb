// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reason

// =============================================================================
// Reasoning Result
// =============================================================================

// RiskLevel is the coarse tier a diagnosis confidence falls into.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Result is the output of one reasoning run. Constructed fresh per request
// and immutable after construction; it carries everything the explanation
// generator and the API surface need.
type Result struct {
	// DiseaseLabel is the caller's input label, passed through verbatim.
	// Not necessarily the canonical entity label.
	DiseaseLabel string

	// Confidence is the classifier score in [0,1] supplied by the caller.
	Confidence float64

	RiskLevel       RiskLevel
	IsLowConfidence bool

	// Facts is the flattened snapshot of the matched entity, or an empty
	// map when the label did not resolve.
	Facts map[string]any

	// SymptomEvidence lists the entity symptoms corroborated by the
	// caller's text symptoms, in entity order, each at most once.
	SymptomEvidence []string

	// ExplanationTrace records which rules fired, in firing order, as
	// human-auditable sentences.
	ExplanationTrace []string
}

// ToMap flattens the result to a primitive mapping: strings, numbers,
// booleans, string sequences, and a nested mapping for facts.
func (r Result) ToMap() map[string]any {
	return map[string]any{
		"disease_label":     r.DiseaseLabel,
		"confidence":        r.Confidence,
		"risk_level":        string(r.RiskLevel),
		"is_low_confidence": r.IsLowConfidence,
		"facts":             r.Facts,
		"symptom_evidence":  append([]string(nil), r.SymptomEvidence...),
		"explanation_trace": append([]string(nil), r.ExplanationTrace...),
	}
}

// FromMap reconstructs a Result from a flattened mapping. Inverse of ToMap;
// string sequences are accepted both as []string and as the []any form
// JSON decoding produces.
func FromMap(m map[string]any) Result {
	r := Result{}
	if v, ok := m["disease_label"].(string); ok {
		r.DiseaseLabel = v
	}
	switch v := m["confidence"].(type) {
	case float64:
		r.Confidence = v
	case int:
		r.Confidence = float64(v)
	}
	if v, ok := m["risk_level"].(string); ok {
		r.RiskLevel = RiskLevel(v)
	}
	if v, ok := m["is_low_confidence"].(bool); ok {
		r.IsLowConfidence = v
	}
	if v, ok := m["facts"].(map[string]any); ok {
		r.Facts = v
	} else {
		r.Facts = map[string]any{}
	}
	r.SymptomEvidence = stringSlice(m["symptom_evidence"])
	r.ExplanationTrace = stringSlice(m["explanation_trace"])
	return r
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
