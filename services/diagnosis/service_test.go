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
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/agrovista/wheatsight/services/classify"
	"github.com/agrovista/wheatsight/services/knowledge"
	"github.com/agrovista/wheatsight/services/reason"
)

const fixtureTurtle = `
@prefix wheat: <http://example.org/wheat#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

wheat:Puccinia_triticina rdf:type wheat:Pathogen ;
    rdfs:label "Puccinia triticina" .
wheat:Orange_Pustules rdfs:label "orange pustules on leaves" .

wheat:Leaf_Rust rdf:type wheat:Disease ;
    rdfs:label "Leaf Rust" ;
    wheat:causedBy wheat:Puccinia_triticina ;
    wheat:hasSymptom wheat:Orange_Pustules .

wheat:Stripe_Rust rdf:type wheat:Disease ;
    rdfs:label "Stripe Rust (Yellow Rust)" .
`

var testKeywords = []string{"orange pustules", "yellow stripes", "rust"}

type stubClassifier struct {
	wheat      bool
	wheatScore float64
	wheatErr   error

	best        classify.Score
	scores      []classify.Score
	classifyErr error

	warmCalls   int
	seenLabels  []string
	gotImageB64 string
}

func (s *stubClassifier) IsWheatImage(_ context.Context, imageB64 string) (bool, float64, error) {
	s.gotImageB64 = imageB64
	return s.wheat, s.wheatScore, s.wheatErr
}

func (s *stubClassifier) Classify(_ context.Context, _ string, candidates []string) (classify.Score, []classify.Score, error) {
	s.seenLabels = append([]string(nil), candidates...)
	return s.best, s.scores, s.classifyErr
}

func (s *stubClassifier) Warm(_ context.Context, _ []string) error {
	s.warmCalls++
	return nil
}

type stubExplainer struct {
	text   string
	source string
}

func (s *stubExplainer) Generate(_ context.Context, _ reason.Result) (string, string) {
	return s.text, s.source
}

func fixtureStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Read(strings.NewReader(fixtureTurtle))
	if err != nil {
		t.Fatalf("Read fixture: %v", err)
	}
	return store
}

func TestDiagnose_FullPipeline(t *testing.T) {
	clf := &stubClassifier{
		wheat: true, wheatScore: 0.8,
		best: classify.Score{Label: "Leaf Rust", Score: 0.82},
		scores: []classify.Score{
			{Label: "Leaf Rust", Score: 0.82},
			{Label: "Healthy", Score: 0.1},
		},
	}
	svc := NewService(fixtureStore(t), clf, &stubExplainer{text: "report", source: "groq"}, testKeywords)

	d, err := svc.Diagnose(context.Background(), Input{
		ImageB64:    "aW1n",
		SymptomText: "I can see orange pustules all over the leaves",
	})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if d.Label != "Leaf Rust" || d.Confidence != 0.82 {
		t.Errorf("got label=%q confidence=%v, want Leaf Rust / 0.82", d.Label, d.Confidence)
	}
	if len(d.TextSymptoms) == 0 || d.TextSymptoms[0] != "orange pustules" {
		t.Errorf("TextSymptoms = %v, want orange pustules first", d.TextSymptoms)
	}
	if d.Reasoning.RiskLevel != reason.RiskHigh {
		t.Errorf("RiskLevel = %v, want High", d.Reasoning.RiskLevel)
	}
	if len(d.Reasoning.SymptomEvidence) == 0 {
		t.Error("expected symptom evidence from the fixture cross-check")
	}
	if d.Explanation != "report" || d.ExplanationSource != "groq" {
		t.Errorf("explanation = %q/%q, want report/groq", d.Explanation, d.ExplanationSource)
	}
	if clf.gotImageB64 != "aW1n" {
		t.Errorf("classifier saw image %q, want aW1n", clf.gotImageB64)
	}
}

func TestDiagnose_NotWheat(t *testing.T) {
	clf := &stubClassifier{wheat: false, wheatScore: 0.12}
	svc := NewService(fixtureStore(t), clf, &stubExplainer{}, testKeywords)

	_, err := svc.Diagnose(context.Background(), Input{ImageB64: "aW1n"})
	var notWheat *NotWheatError
	if !errors.As(err, &notWheat) {
		t.Fatalf("err = %v, want *NotWheatError", err)
	}
	if notWheat.Score != 0.12 {
		t.Errorf("Score = %v, want 0.12", notWheat.Score)
	}
}

func TestDiagnose_NoInput(t *testing.T) {
	svc := NewService(fixtureStore(t), &stubClassifier{}, &stubExplainer{}, testKeywords)

	if _, err := svc.Diagnose(context.Background(), Input{}); !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
}

func TestDiagnose_TextOnly(t *testing.T) {
	svc := NewService(fixtureStore(t), &stubClassifier{}, &stubExplainer{text: "t", source: "template"}, testKeywords)

	d, err := svc.Diagnose(context.Background(), Input{SymptomText: "rust colored spots"})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if d.Label != "" || len(d.Scores) != 0 {
		t.Errorf("text-only run should carry no classifier verdict, got label=%q scores=%v", d.Label, d.Scores)
	}
	if len(d.TextSymptoms) == 0 {
		t.Error("expected extracted text symptoms")
	}
	if d.Reasoning.RiskLevel != reason.RiskLow {
		t.Errorf("RiskLevel = %v, want Low for zero confidence", d.Reasoning.RiskLevel)
	}
}

func TestDiagnose_ClassifierError(t *testing.T) {
	clf := &stubClassifier{wheat: true, wheatScore: 0.9, classifyErr: errors.New("connection refused")}
	svc := NewService(fixtureStore(t), clf, &stubExplainer{}, testKeywords)

	_, err := svc.Diagnose(context.Background(), Input{ImageB64: "aW1n"})
	if err == nil || !strings.Contains(err.Error(), "diagnosis: classify") {
		t.Errorf("err = %v, want wrapped classify error", err)
	}
}

func TestLabels_HealthyPrepended(t *testing.T) {
	svc := NewService(fixtureStore(t), &stubClassifier{}, &stubExplainer{}, testKeywords)

	got := svc.Labels()
	want := []string{"Healthy", "Leaf Rust", "Stripe Rust (Yellow Rust)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
}

func TestLabels_FallbackWithoutStore(t *testing.T) {
	svc := NewService(nil, &stubClassifier{}, &stubExplainer{}, testKeywords)

	got := svc.Labels()
	if !reflect.DeepEqual(got, fallbackLabels) {
		t.Errorf("Labels() = %v, want fallback list %v", got, fallbackLabels)
	}
	// Callers must not be able to mutate the shared fallback list.
	got[0] = "mutated"
	if fallbackLabels[0] != "Healthy" {
		t.Error("Labels() returned the fallback slice itself, not a copy")
	}
}

func TestDiagnose_WithoutStoreDegrades(t *testing.T) {
	clf := &stubClassifier{
		wheat: true, wheatScore: 0.9,
		best: classify.Score{Label: "Leaf Rust", Score: 0.5},
	}
	svc := NewService(nil, clf, &stubExplainer{text: "t", source: "template"}, testKeywords)

	d, err := svc.Diagnose(context.Background(), Input{ImageB64: "aW1n"})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if len(d.Reasoning.Facts) != 0 {
		t.Errorf("Facts = %v, want empty without a store", d.Reasoning.Facts)
	}
	if d.Reasoning.RiskLevel != reason.RiskMedium {
		t.Errorf("RiskLevel = %v, want Medium", d.Reasoning.RiskLevel)
	}
}

func TestReload_SwapsStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.ttl")
	if err := os.WriteFile(path, []byte(fixtureTurtle), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := knowledge.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := NewService(store, &stubClassifier{}, &stubExplainer{}, testKeywords)
	before := svc.Store().TripleCount()

	extended := fixtureTurtle + `
wheat:Powdery_Mildew rdf:type wheat:Disease ;
    rdfs:label "Powdery Mildew" .
`
	if err := os.WriteFile(path, []byte(extended), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := svc.Store().TripleCount(); got <= before {
		t.Errorf("TripleCount after reload = %d, want > %d", got, before)
	}
	labels := svc.Labels()
	found := false
	for _, l := range labels {
		if l == "Powdery Mildew" {
			found = true
		}
	}
	if !found {
		t.Errorf("Labels after reload = %v, want Powdery Mildew included", labels)
	}
}

func TestReload_WithoutStoreFails(t *testing.T) {
	svc := NewService(nil, &stubClassifier{}, &stubExplainer{}, testKeywords)
	if err := svc.Reload(); err == nil {
		t.Error("Reload without a backing file should fail")
	}
}

func TestWarm_UsesCandidateLabels(t *testing.T) {
	clf := &stubClassifier{}
	svc := NewService(fixtureStore(t), clf, &stubExplainer{}, testKeywords)

	if err := svc.Warm(context.Background()); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if clf.warmCalls != 1 {
		t.Errorf("warm calls = %d, want 1", clf.warmCalls)
	}
}
