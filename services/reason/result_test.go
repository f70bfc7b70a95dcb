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

import (
	"reflect"
	"testing"
)

func TestResult_ToMapFromMapRoundTrip(t *testing.T) {
	orig := Result{
		DiseaseLabel:    "Leaf Rust",
		Confidence:      0.8125,
		RiskLevel:       RiskHigh,
		IsLowConfidence: false,
		Facts: map[string]any{
			"disease_name": "Leaf Rust",
			"pathogen":     "Puccinia triticina",
			"symptoms":     []string{"orange pustules on leaves"},
		},
		SymptomEvidence:  []string{"orange pustules on leaves"},
		ExplanationTrace: []string{"Text symptoms ['orange pustules'] match known symptoms ['orange pustules on leaves'] for Leaf Rust."},
	}

	got := FromMap(orig.ToMap())

	if !reflect.DeepEqual(got, orig) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, orig)
	}
}

func TestResult_FromMapAcceptsJSONShapes(t *testing.T) {
	// JSON decoding turns string sequences into []any.
	m := map[string]any{
		"disease_label":     "Stem Rust",
		"confidence":        0.42,
		"risk_level":        "Medium",
		"is_low_confidence": true,
		"facts":             map[string]any{"disease_name": "Stem Rust"},
		"symptom_evidence":  []any{"dark pustules"},
		"explanation_trace": []any{"line one", "line two"},
	}

	got := FromMap(m)
	if got.DiseaseLabel != "Stem Rust" || got.Confidence != 0.42 {
		t.Errorf("scalars not decoded: %#v", got)
	}
	if got.RiskLevel != RiskMedium || !got.IsLowConfidence {
		t.Errorf("flags not decoded: %#v", got)
	}
	if !reflect.DeepEqual(got.SymptomEvidence, []string{"dark pustules"}) {
		t.Errorf("symptom_evidence = %v", got.SymptomEvidence)
	}
	if !reflect.DeepEqual(got.ExplanationTrace, []string{"line one", "line two"}) {
		t.Errorf("explanation_trace = %v", got.ExplanationTrace)
	}
}

func TestResult_FromMapMissingFieldsAreNeutral(t *testing.T) {
	got := FromMap(map[string]any{})
	if got.Facts == nil || len(got.Facts) != 0 {
		t.Errorf("facts = %v, want empty non-nil map", got.Facts)
	}
	if got.Confidence != 0 || got.IsLowConfidence {
		t.Errorf("unexpected defaults: %#v", got)
	}
}
