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

// RenderTemplate produces the static fallback explanation used when no LLM
// provider is reachable. Plain paragraphs assembled from the resolved
// facts; skips anything the knowledge base does not have.
func RenderTemplate(res reason.Result) string {
	diseaseName := res.DiseaseLabel
	if diseaseName == "" {
		diseaseName = factString(res.Facts, "disease_name")
	}
	if diseaseName == "" {
		diseaseName = "Unknown disease"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf(
		"Based on your input, the system thinks your wheat most likely has **%s** (model confidence: %.2f).",
		diseaseName, res.Confidence,
	))

	if pathogen := factString(res.Facts, "pathogen"); pathogen != "" {
		parts = append(parts, fmt.Sprintf("This disease is caused by **%s**.", pathogen))
	}
	if plantParts := factStrings(res.Facts, "plant_parts"); len(plantParts) > 0 {
		parts = append(parts, fmt.Sprintf("This disease typically affects **%s**.", strings.Join(plantParts, ", ")))
	}
	if hosts := factStrings(res.Facts, "hosts"); len(hosts) > 0 {
		parts = append(parts, fmt.Sprintf("Affected hosts include: **%s**.", strings.Join(hosts, ", ")))
	}
	if conditions := factStrings(res.Facts, "conditions"); len(conditions) > 0 {
		parts = append(parts, fmt.Sprintf(
			"It tends to develop under conditions such as **%s**. The current **risk level is %s**.",
			strings.Join(conditions, ", "), res.RiskLevel,
		))
	}
	if treatments := factStrings(res.Facts, "treatments"); len(treatments) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Recommended management includes: **%s**. Follow local guidelines and product labels carefully.",
			strings.Join(treatments, "; "),
		))
	}
	if res.IsLowConfidence {
		parts = append(parts, "Model confidence is low for this prediction; please have the diagnosis verified by a local expert before acting on it.")
	}

	return strings.Join(parts, "\n\n")
}
