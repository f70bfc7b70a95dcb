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
	"strings"
	"testing"

	"github.com/agrovista/wheatsight/services/knowledge"
)

const reasonerFixture = `
@prefix wheat: <http://example.org/wheat#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

wheat:Orange_Pustules rdfs:label "orange pustules on leaves" .
wheat:Yellow_Halo rdfs:label "yellowing around lesions" .

wheat:Leaf_Rust rdf:type wheat:Disease ;
    rdfs:label "Leaf Rust" ;
    wheat:hasSymptom wheat:Orange_Pustules ;
    wheat:hasSymptom wheat:Yellow_Halo .
`

func newTestReasoner(t *testing.T) *Reasoner {
	t.Helper()
	store, err := knowledge.Read(strings.NewReader(reasonerFixture))
	if err != nil {
		t.Fatalf("fixture store: %v", err)
	}
	return NewReasoner(store)
}

func TestReason_RiskTierBoundaries(t *testing.T) {
	r := newTestReasoner(t)

	tests := []struct {
		confidence float64
		want       RiskLevel
	}{
		{0.39, RiskLow},
		{0.40, RiskMedium},
		{0.69, RiskMedium},
		{0.70, RiskHigh},
		{0.0, RiskLow},
		{1.0, RiskHigh},
	}
	for _, tt := range tests {
		got := r.Reason("Leaf Rust", tt.confidence, nil)
		if got.RiskLevel != tt.want {
			t.Errorf("confidence %.2f: risk = %s, want %s", tt.confidence, got.RiskLevel, tt.want)
		}
	}
}

func TestReason_LowConfidenceFlag(t *testing.T) {
	r := newTestReasoner(t)

	for _, tt := range []struct {
		confidence float64
		want       bool
	}{
		{0.69, true},
		{0.70, false},
		{0.71, false},
	} {
		got := r.Reason("Leaf Rust", tt.confidence, nil)
		if got.IsLowConfidence != tt.want {
			t.Errorf("confidence %.2f: is_low_confidence = %v, want %v", tt.confidence, got.IsLowConfidence, tt.want)
		}
		if tt.want && len(got.ExplanationTrace) == 0 {
			t.Errorf("confidence %.2f: expected a low-confidence trace line", tt.confidence)
		}
	}
}

func TestReason_SymptomCrossCheckPositive(t *testing.T) {
	r := newTestReasoner(t)

	got := r.Reason("Leaf Rust", 0.9, []string{"orange pustules"})

	if len(got.SymptomEvidence) != 1 || got.SymptomEvidence[0] != "orange pustules on leaves" {
		t.Errorf("symptom_evidence = %v, want the containing entity symptom", got.SymptomEvidence)
	}
	if len(got.ExplanationTrace) != 1 {
		t.Fatalf("trace = %v, want exactly one line", got.ExplanationTrace)
	}
	if !strings.Contains(got.ExplanationTrace[0], "match") ||
		strings.Contains(got.ExplanationTrace[0], "NOT") {
		t.Errorf("trace line should record a positive match: %q", got.ExplanationTrace[0])
	}
}

func TestReason_SymptomCrossCheckNegative(t *testing.T) {
	r := newTestReasoner(t)

	got := r.Reason("Leaf Rust", 0.9, []string{"blue spots"})

	if len(got.SymptomEvidence) != 0 {
		t.Errorf("symptom_evidence = %v, want empty", got.SymptomEvidence)
	}
	if len(got.ExplanationTrace) != 1 || !strings.Contains(got.ExplanationTrace[0], "did NOT clearly match") {
		t.Errorf("trace should record an explicit negative line, got %v", got.ExplanationTrace)
	}
}

func TestReason_NoTextSymptomsNoCrossCheckLine(t *testing.T) {
	r := newTestReasoner(t)

	// High confidence so the low-confidence line is absent too: the trace
	// must be empty, distinguishing "not supplied" from "non-matching".
	got := r.Reason("Leaf Rust", 0.9, nil)
	if len(got.ExplanationTrace) != 0 {
		t.Errorf("trace = %v, want empty when no text symptoms supplied", got.ExplanationTrace)
	}
}

func TestReason_TraceLineOrder(t *testing.T) {
	r := newTestReasoner(t)

	got := r.Reason("Leaf Rust", 0.5, []string{"orange pustules"})
	if len(got.ExplanationTrace) != 2 {
		t.Fatalf("trace = %v, want cross-check line then low-confidence line", got.ExplanationTrace)
	}
	if !strings.Contains(got.ExplanationTrace[0], "match") {
		t.Errorf("first trace line should be the symptom cross-check: %q", got.ExplanationTrace[0])
	}
	if !strings.Contains(got.ExplanationTrace[1], "below threshold") {
		t.Errorf("second trace line should be the low-confidence rule: %q", got.ExplanationTrace[1])
	}
}

func TestReason_UnresolvedLabelDegrades(t *testing.T) {
	r := newTestReasoner(t)

	got := r.Reason("Nonexistent Disease", 0.85, []string{"orange pustules"})

	if len(got.Facts) != 0 {
		t.Errorf("facts = %v, want empty map", got.Facts)
	}
	if len(got.SymptomEvidence) != 0 {
		t.Errorf("symptom_evidence = %v, want empty", got.SymptomEvidence)
	}
	// No facts means no cross-check is attempted at all.
	for _, line := range got.ExplanationTrace {
		if strings.Contains(line, "symptom") {
			t.Errorf("unexpected symptom trace line without facts: %q", line)
		}
	}
	if got.RiskLevel != RiskHigh {
		t.Errorf("risk = %s, want High (tier is independent of facts)", got.RiskLevel)
	}
}

func TestReason_PassesLabelThroughVerbatim(t *testing.T) {
	r := newTestReasoner(t)

	got := r.Reason("leaf rust", 0.8, nil)
	if got.DiseaseLabel != "leaf rust" {
		t.Errorf("disease_label = %q, want caller input passed through", got.DiseaseLabel)
	}
	if got.Facts["disease_name"] != "Leaf Rust" {
		t.Errorf("facts disease_name = %v, want canonical label", got.Facts["disease_name"])
	}
}
