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
	"fmt"
	"strings"

	"github.com/agrovista/wheatsight/services/reason"
)

// maxPromptSymptoms caps the symptom bullets in the prompt so the report
// stays focused on the leading indicators.
const maxPromptSymptoms = 3

// BuildPrompt renders the LLM prompt from a reasoning result.
//
// Description:
//
//	Lays out the resolved facts, classifier confidence, and risk tier as
//	structured context, then instructs the model to produce a sectioned
//	markdown report in farmer-friendly language. Missing facts degrade to
//	explicit "not provided" placeholders so the model falls back to general
//	best-practice advice instead of inventing specifics.
func BuildPrompt(res reason.Result) string {
	diseaseName := res.DiseaseLabel
	if diseaseName == "" {
		diseaseName = factString(res.Facts, "disease_name")
	}
	if diseaseName == "" {
		diseaseName = "Unknown disease"
	}
	pathogen := factString(res.Facts, "pathogen")
	if pathogen == "" {
		pathogen = "Unknown pathogen"
	}

	symptoms := factStrings(res.Facts, "symptoms")
	if len(symptoms) > maxPromptSymptoms {
		symptoms = symptoms[:maxPromptSymptoms]
	}
	symptomText := "No specific symptoms provided"
	if len(symptoms) > 0 {
		symptomText = "- " + strings.Join(symptoms, "\n- ")
	}

	conditionText := "No specific conditions provided"
	if conditions := factStrings(res.Facts, "conditions"); len(conditions) > 0 {
		conditionText = conditions[0]
	}

	partsText := "Not specified"
	if parts := factStrings(res.Facts, "plant_parts"); len(parts) > 0 {
		partsText = strings.Join(parts, ", ")
	}

	treatmentText := "No specific treatments available in knowledge base - provide general management advice based on best practices"
	if treatments := factStrings(res.Facts, "treatments"); len(treatments) > 0 {
		treatmentText = "- " + strings.Join(treatments, "\n- ")
	}

	var b strings.Builder
	b.WriteString("You are an expert agronomist and plant pathologist helping a farmer diagnose wheat diseases.\n\n")
	fmt.Fprintf(&b, "**Disease Information:**\n- Disease Name: %s\n- Pathogen: %s\n- Classifier Confidence: %.1f%%\n- Risk Level: %s\n\n",
		diseaseName, pathogen, res.Confidence*100, res.RiskLevel)
	fmt.Fprintf(&b, "**Symptoms:**\n%s\n\n", symptomText)
	fmt.Fprintf(&b, "**Environmental Conditions:**\n%s\n\n", conditionText)
	fmt.Fprintf(&b, "**Affected Plant Parts:**\n%s\n\n", partsText)
	fmt.Fprintf(&b, "**Available Treatment/Management Options:**\n%s\n\n", treatmentText)
	b.WriteString(`Write a clear, helpful diagnosis report in markdown format that includes:

1. **Diagnosis**: Clearly state the predicted disease and confidence level
2. **Symptoms**: Describe the key symptoms in simple, farmer-friendly language
3. **Pathogen**: Explain what causes this disease
4. **Risk Assessment**: Explain the risk level based on current conditions
5. **Treatment Recommendations**: Provide 3-5 practical treatment and management steps. IMPORTANT: Use the treatment options provided above if available, and expand on them with specific, actionable advice. If no treatments are provided, give general best-practice management recommendations.
6. **Prevention**: Suggest preventive measures
7. **When to Consult Expert**: If confidence is below 70%, recommend consulting a local expert

Format your response in clean markdown with clear sections. Be practical and farmer-friendly.
`)
	return b.String()
}

// factString reads a string fact, tolerating the nil pathogen case.
func factString(facts map[string]any, key string) string {
	if s, ok := facts[key].(string); ok {
		return s
	}
	return ""
}

// factStrings reads a string sequence fact, accepting both the []string
// form the store produces and the []any form JSON decoding produces.
func factStrings(facts map[string]any, key string) []string {
	switch v := facts[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
