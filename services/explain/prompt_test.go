// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explain

import (
	"strings"
	"testing"

	"github.com/agrovista/wheatsight/services/reason"
)

func TestBuildPrompt_IncludesFacts(t *testing.T) {
	got := BuildPrompt(testResult())

	for _, want := range []string{
		"Disease Name: Leaf Rust",
		"Pathogen: Puccinia triticina",
		"Classifier Confidence: 82.0%",
		"Risk Level: High",
		"- orange pustules on leaves",
		"warm humid weather",
		"- Apply triazole fungicide at first sign",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_LimitsSymptomsToThree(t *testing.T) {
	res := testResult()
	res.Facts["symptoms"] = []string{"one", "two", "three", "four"}

	got := BuildPrompt(res)
	if strings.Contains(got, "- four") {
		t.Error("prompt should cap symptoms at three")
	}
	if !strings.Contains(got, "- three") {
		t.Error("prompt should keep the first three symptoms")
	}
}

func TestBuildPrompt_EmptyFactsDegrade(t *testing.T) {
	res := reason.Result{DiseaseLabel: "Nonexistent Disease", Confidence: 0.3, RiskLevel: reason.RiskLow, Facts: map[string]any{}}

	got := BuildPrompt(res)
	for _, want := range []string{
		"Pathogen: Unknown pathogen",
		"No specific symptoms provided",
		"No specific conditions provided",
		"No specific treatments available in knowledge base",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing degraded placeholder %q", want)
		}
	}
}

func TestRenderTemplate_FullFacts(t *testing.T) {
	got := RenderTemplate(testResult())

	for _, want := range []string{
		"**Leaf Rust**",
		"model confidence: 0.82",
		"**Puccinia triticina**",
		"**leaves**",
		"**bread wheat**",
		"risk level is High",
		"Follow local guidelines",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("template missing %q", want)
		}
	}
}

func TestRenderTemplate_EmptyFactsStillReadable(t *testing.T) {
	res := reason.Result{
		DiseaseLabel:    "Nonexistent Disease",
		Confidence:      0.2,
		RiskLevel:       reason.RiskLow,
		IsLowConfidence: true,
		Facts:           map[string]any{},
	}
	got := RenderTemplate(res)

	if !strings.Contains(got, "Nonexistent Disease") {
		t.Errorf("template should name the disease: %q", got)
	}
	if !strings.Contains(got, "verified by a local expert") {
		t.Errorf("template should flag low confidence: %q", got)
	}
	if strings.Contains(got, "caused by") {
		t.Errorf("template should skip absent pathogen: %q", got)
	}
}
