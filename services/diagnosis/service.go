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
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/agrovista/wheatsight/services/classify"
	"github.com/agrovista/wheatsight/services/knowledge"
	"github.com/agrovista/wheatsight/services/reason"
	"github.com/agrovista/wheatsight/services/symptoms"
)

// fallbackLabels is the candidate set offered when the knowledge store is
// missing or holds no diseases. The classifier still needs something to
// score against, and these cover the common wheat leaf conditions.
var fallbackLabels = []string{
	"Healthy",
	"Leaf Rust",
	"Stem Rust",
	"Stripe Rust (Yellow Rust)",
	"Powdery Mildew",
}

// healthyLabel is prepended to the candidate list because the store only
// describes diseases; "no disease" is a classifier outcome, not a fact.
const healthyLabel = "Healthy"

// ErrNoInput is returned when a diagnosis request carries neither an image
// nor symptom text.
var ErrNoInput = errors.New("diagnosis: request carries no image and no symptom text")

// ErrNoClassifier is returned for image requests when the service was
// built without a classifier (CLIP service not configured).
var ErrNoClassifier = errors.New("diagnosis: no classifier configured")

// NotWheatError is returned when the wheat-image gate rejects an upload.
// Carries the gate score so the API can report how close the call was.
type NotWheatError struct {
	Score float64
}

func (e *NotWheatError) Error() string {
	return fmt.Sprintf("diagnosis: image does not appear to show a wheat plant (wheat score %.2f)", e.Score)
}

// Classifier scores an image against candidate disease labels. Satisfied by
// *classify.Client; stubbed in tests.
type Classifier interface {
	IsWheatImage(ctx context.Context, imageB64 string) (bool, float64, error)
	Classify(ctx context.Context, imageB64 string, candidates []string) (classify.Score, []classify.Score, error)
	Warm(ctx context.Context, candidates []string) error
}

// Explainer turns a reasoning result into a farmer-facing report. Satisfied
// by *explain.Generator.
type Explainer interface {
	Generate(ctx context.Context, res reason.Result) (string, string)
}

// Input is one diagnosis request. ImageB64 drives the classifier;
// SymptomText is optional free-text evidence for the reasoner.
type Input struct {
	ImageB64    string
	SymptomText string
}

// Diagnosis is the full pipeline output for one request.
type Diagnosis struct {
	Label             string
	Confidence        float64
	Scores            []classify.Score
	TextSymptoms      []string
	Reasoning         reason.Result
	Explanation       string
	ExplanationSource string
}

// Service orchestrates the diagnosis pipeline: wheat gate, candidate
// classification, symptom extraction, fact-backed reasoning, and report
// generation.
//
// Description:
//
//	The knowledge store is held behind an atomic pointer so a reload swaps
//	the whole store at once; in-flight requests keep reasoning over the
//	store they started with. Everything else is immutable after construction.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	store      atomic.Pointer[knowledge.Store]
	classifier Classifier
	explainer  Explainer
	keywords   []string
}

// NewService creates a diagnosis service over the given collaborators.
// A nil store is allowed; the service then serves fallback labels and
// degrades reasoning to facts-free results. Nil keywords fall back to the
// embedded keyword list.
func NewService(store *knowledge.Store, classifier Classifier, explainer Explainer, keywords []string) *Service {
	if keywords == nil {
		keywords = symptoms.MustLoadKeywords()
	}
	s := &Service{
		classifier: classifier,
		explainer:  explainer,
		keywords:   keywords,
	}
	if store != nil {
		s.store.Store(store)
		knowledgeTriples.Set(float64(store.TripleCount()))
	}
	return s
}

// Store returns the currently loaded knowledge store, or nil.
func (s *Service) Store() *knowledge.Store {
	return s.store.Load()
}

// Reload re-reads the knowledge store from its backing file and swaps it in
// atomically. No-op error when the service was constructed without a store.
func (s *Service) Reload() error {
	current := s.store.Load()
	if current == nil || current.Path() == "" {
		return errors.New("diagnosis: no knowledge file to reload from")
	}
	fresh, err := knowledge.Load(current.Path())
	if err != nil {
		return fmt.Errorf("diagnosis: reload knowledge store: %w", err)
	}
	s.store.Store(fresh)
	knowledgeTriples.Set(float64(fresh.TripleCount()))
	slog.Info("knowledge store reloaded",
		slog.String("path", fresh.Path()),
		slog.Int("triples", fresh.TripleCount()),
	)
	return nil
}

// Labels returns the candidate labels for classification: the store's
// disease labels with "Healthy" prepended, or the fallback list when the
// store has nothing to offer.
func (s *Service) Labels() []string {
	store := s.store.Load()
	if store == nil {
		return append([]string(nil), fallbackLabels...)
	}
	diseases := store.AllDiseaseLabels()
	if len(diseases) == 0 {
		return append([]string(nil), fallbackLabels...)
	}
	for _, l := range diseases {
		if l == healthyLabel {
			return diseases
		}
	}
	return append([]string{healthyLabel}, diseases...)
}

// Warm pre-computes classifier embeddings for the current candidate labels.
// Called at startup; safe to skip when the classifier is unreachable.
func (s *Service) Warm(ctx context.Context) error {
	if s.classifier == nil {
		return nil
	}
	return s.classifier.Warm(ctx, s.Labels())
}

// Diagnose runs the full pipeline for one request.
//
// Description:
//
//	Extracts symptom keywords from the free text, gates the image on
//	"is this wheat at all", scores it against the candidate labels, reasons
//	over the winning label with the extracted symptoms as evidence, and
//	generates the report. An unresolvable winning label degrades inside the
//	reasoner; it does not fail the request.
//
// Outputs:
//   - Diagnosis: Complete on success.
//   - error: ErrNoInput, *NotWheatError, or a wrapped classifier error.
func (s *Service) Diagnose(ctx context.Context, in Input) (Diagnosis, error) {
	start := time.Now()
	defer func() { diagnosisDurationSeconds.Observe(time.Since(start).Seconds()) }()

	textSymptoms := symptoms.ExtractWith(s.keywords, in.SymptomText)

	if in.ImageB64 == "" && len(textSymptoms) == 0 {
		diagnosisRequestsTotal.WithLabelValues("no_input").Inc()
		return Diagnosis{}, ErrNoInput
	}

	d := Diagnosis{TextSymptoms: textSymptoms}

	if in.ImageB64 != "" {
		if s.classifier == nil {
			diagnosisRequestsTotal.WithLabelValues("classifier_error").Inc()
			return Diagnosis{}, ErrNoClassifier
		}
		wheat, score, err := s.classifier.IsWheatImage(ctx, in.ImageB64)
		if err != nil {
			diagnosisRequestsTotal.WithLabelValues("classifier_error").Inc()
			return Diagnosis{}, fmt.Errorf("diagnosis: wheat gate: %w", err)
		}
		if !wheat {
			diagnosisRequestsTotal.WithLabelValues("not_wheat").Inc()
			return Diagnosis{}, &NotWheatError{Score: score}
		}

		best, scores, err := s.classifier.Classify(ctx, in.ImageB64, s.Labels())
		if err != nil {
			diagnosisRequestsTotal.WithLabelValues("classifier_error").Inc()
			return Diagnosis{}, fmt.Errorf("diagnosis: classify: %w", err)
		}
		d.Label = best.Label
		d.Confidence = best.Score
		d.Scores = scores
	} else {
		// Text-only request: no classifier verdict to reason over, so the
		// reasoner runs label-free and the report leans on the extracted
		// symptoms alone.
		d.Label = ""
		d.Confidence = 0
	}

	d.Reasoning = reason.NewReasoner(s.store.Load()).Reason(d.Label, d.Confidence, textSymptoms)
	if s.explainer != nil {
		d.Explanation, d.ExplanationSource = s.explainer.Generate(ctx, d.Reasoning)
	}

	diagnosisRequestsTotal.WithLabelValues("ok").Inc()
	slog.Info("diagnosis complete",
		slog.String("label", d.Label),
		slog.Float64("confidence", d.Confidence),
		slog.String("risk", string(d.Reasoning.RiskLevel)),
		slog.Int("text_symptoms", len(textSymptoms)),
		slog.String("explanation_source", d.ExplanationSource),
	)
	return d, nil
}
