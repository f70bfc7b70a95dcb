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

import (
	"log/slog"
	"strings"
)

// =============================================================================
// Label Resolution
// =============================================================================

// matchStrategy is one step of the ordered label-matching policy. Each step
// takes the normalized (lowercased, trimmed) query and returns the matched
// entity IRI, or ok=false to hand over to the next step.
type matchStrategy struct {
	Name  string
	Match func(s *Store, query string) (subj string, ok bool)
}

// matchStrategies is the ordered matching policy, first success wins:
//
//  1. Exact label equality, Disease-typed entities only.
//  2. Base-name equality (parenthetical suffix stripped from both sides),
//     only attempted when stripping changed the query.
//  3. Best substring containment with overlap-length scoring; an exact
//     equality found here short-circuits, ties keep the first entity
//     encountered in file order.
//  4. Exact equality ignoring the Disease type filter, guarding against
//     entities whose type triple is missing from the data.
//
// The substring score is the length of the contained string, so longer
// overlaps win over shorter ones when labels nest.
var matchStrategies = []matchStrategy{
	{Name: "exact", Match: matchExact},
	{Name: "base_name", Match: matchBaseName},
	{Name: "substring", Match: matchSubstring},
	{Name: "untyped_exact", Match: matchUntypedExact},
}

// FindDisease maps an arbitrary disease-name string (typically classifier
// output, which may use informal or alternate naming) to the best-matching
// entity IRI.
//
// Description:
//
//	Applies the ordered matching policy above. An unresolved label is a
//	supported, non-error case: callers must degrade to "no facts available",
//	never treat it as a failure.
//
// Inputs:
//   - label: Free-form disease name. Case and surrounding whitespace are
//     ignored.
//
// Outputs:
//   - string: The matched entity IRI. Empty when ok is false.
//   - bool: Whether any strategy matched.
func (s *Store) FindDisease(label string) (string, bool) {
	query := normalizeLabel(label)
	if query == "" {
		return "", false
	}
	for _, strat := range matchStrategies {
		if subj, ok := strat.Match(s, query); ok {
			slog.Debug("Disease label resolved",
				slog.String("query", label),
				slog.String("strategy", strat.Name),
				slog.String("entity", subj),
			)
			return subj, true
		}
	}
	slog.Debug("Disease label unresolved", slog.String("query", label))
	return "", false
}

// matchExact returns the first Disease entity with a label equal to the query.
func matchExact(s *Store, query string) (string, bool) {
	for _, e := range s.labelEntries {
		if normalizeLabel(e.Label) == query && s.IsDisease(e.Subj) {
			return e.Subj, true
		}
	}
	return "", false
}

// matchBaseName compares parenthetical-stripped forms so that labels like
// "Stripe Rust (Yellow Rust)" match a plain "stripe rust" query and vice
// versa. Skipped when stripping leaves the query unchanged or empty.
func matchBaseName(s *Store, query string) (string, bool) {
	qBase := baseName(query)
	if qBase == "" || qBase == query {
		return "", false
	}
	for _, e := range s.labelEntries {
		if !s.IsDisease(e.Subj) {
			continue
		}
		if baseName(normalizeLabel(e.Label)) == qBase {
			return e.Subj, true
		}
	}
	return "", false
}

// matchSubstring scores every Disease label that contains, or is contained
// by, the query. The score is the length of the contained string; the
// highest score across all entities wins and ties keep the first entity
// encountered. An exact equality found here returns immediately.
func matchSubstring(s *Store, query string) (string, bool) {
	best := ""
	bestScore := 0
	for _, e := range s.labelEntries {
		if !s.IsDisease(e.Subj) {
			continue
		}
		dl := normalizeLabel(e.Label)
		if !strings.Contains(dl, query) && !strings.Contains(query, dl) {
			continue
		}
		if dl == query {
			return e.Subj, true
		}
		score := len(dl)
		if strings.Contains(dl, query) {
			score = len(query)
		}
		if score > bestScore {
			bestScore = score
			best = e.Subj
			slog.Debug("Substring candidate",
				slog.String("label", e.Label),
				slog.Int("score", score),
			)
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// matchUntypedExact repeats the exact match without the Disease type filter.
// Guards against data-quality gaps where an entity's type triple is missing.
func matchUntypedExact(s *Store, query string) (string, bool) {
	for _, e := range s.labelEntries {
		if normalizeLabel(e.Label) == query {
			return e.Subj, true
		}
	}
	return "", false
}
