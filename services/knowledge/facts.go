// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import "strings"

// =============================================================================
// Disease Facts
// =============================================================================

// DiseaseFacts is an immutable snapshot of one disease entity's attributes,
// assembled by following each relation once. Slice fields may be empty;
// Pathogen may be "".
type DiseaseFacts struct {
	IRI        string
	Label      string
	Pathogen   string
	Symptoms   []string
	Treatments []string
	Conditions []string
	PlantParts []string
	Hosts      []string
	Notes      []string
}

// Facts resolves diseaseLabel through the ordered matching policy and
// assembles the entity's fact snapshot.
//
// Description:
//
//	The snapshot's display label prefers, in order: the entity label that
//	exactly matches the query, the first label without parentheses, the
//	first label, and finally the IRI fragment with underscores spaced out.
//	Relation objects contribute their first rdfs:label; notes are literal
//	values taken as-is.
//
// Outputs:
//   - *DiseaseFacts: Nil when the label does not resolve, or when the
//     receiver is nil. Not an error: unresolved labels are a supported
//     degraded case.
func (s *Store) Facts(diseaseLabel string) *DiseaseFacts {
	if s == nil {
		return nil
	}
	subj, ok := s.FindDisease(diseaseLabel)
	if !ok {
		return nil
	}
	return s.FactsOf(subj, diseaseLabel)
}

// FactsOf assembles the fact snapshot for a known entity IRI. queryLabel
// steers display-label preference and may be "".
func (s *Store) FactsOf(subj, queryLabel string) *DiseaseFacts {
	f := &DiseaseFacts{IRI: subj}

	for _, p := range s.objectsOf(subj, PredCausedBy) {
		if l := s.firstLabel(p); l != "" {
			f.Pathogen = l
		}
	}
	f.Symptoms = s.relatedLabels(subj, PredHasSymptom)
	f.Treatments = s.relatedLabels(subj, PredHasTreatment)
	f.Conditions = s.relatedLabels(subj, PredDevelopsUnder)
	f.PlantParts = s.relatedLabels(subj, PredAffectsPlantPart)
	f.Hosts = s.relatedLabels(subj, PredAffectsHost)
	f.Notes = append(f.Notes, s.objectsOf(subj, PredHasNote)...)

	f.Label = s.displayLabel(subj, queryLabel)
	return f
}

// relatedLabels follows one relation and collects the first label of each
// object entity, preserving file order.
func (s *Store) relatedLabels(subj, pred string) []string {
	objs := s.objectsOf(subj, pred)
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		if l := s.firstLabel(o); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// displayLabel picks the snapshot label for subj given the caller's query.
func (s *Store) displayLabel(subj, queryLabel string) string {
	all := s.labels[subj]
	if len(all) == 0 {
		// Fall back to the IRI fragment, "Leaf_Rust" -> "Leaf Rust".
		frag := subj
		if i := strings.LastIndex(frag, "#"); i >= 0 {
			frag = frag[i+1:]
		}
		return strings.ReplaceAll(frag, "_", " ")
	}
	if queryLabel != "" {
		q := normalizeLabel(queryLabel)
		for _, l := range all {
			if normalizeLabel(l) == q {
				return l
			}
		}
	}
	return s.preferredLabel(subj)
}

// ToMap flattens the snapshot into the primitive mapping consumed by the
// reasoner, the explanation generator, and the JSON handlers. A nil
// receiver yields an empty map (the "no facts available" case).
func (f *DiseaseFacts) ToMap() map[string]any {
	if f == nil {
		return map[string]any{}
	}
	var pathogen any
	if f.Pathogen != "" {
		pathogen = f.Pathogen
	}
	return map[string]any{
		"disease_uri":  f.IRI,
		"disease_name": f.Label,
		"pathogen":     pathogen,
		"symptoms":     append([]string(nil), f.Symptoms...),
		"treatments":   append([]string(nil), f.Treatments...),
		"conditions":   append([]string(nil), f.Conditions...),
		"plant_parts":  append([]string(nil), f.PlantParts...),
		"hosts":        append([]string(nil), f.Hosts...),
		"notes":        append([]string(nil), f.Notes...),
	}
}
