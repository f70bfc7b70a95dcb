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
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/knakk/rdf"
)

// =============================================================================
// Store
// =============================================================================

// labelEntry is one (subject, label) pair in backing-file order. The label
// resolver iterates these in order so that ties between equally scored
// candidates keep the first entity encountered.
type labelEntry struct {
	Subj  string
	Label string
}

// Store is the in-memory wheat disease fact store, loaded once from a
// Turtle file and read-only afterwards.
//
// Description:
//
//	Indexes the backing triples by subject for point lookups: entity types,
//	labels (in file order), and relation objects. The store never mutates
//	after construction; picking up an updated backing file means loading a
//	fresh Store and swapping the reference atomically.
//
// Thread Safety: Safe for concurrent use after construction (immutable).
type Store struct {
	path string

	// types maps subject IRI -> set of rdf:type IRIs.
	types map[string]map[string]bool

	// labels maps subject IRI -> rdfs:label literals in file order.
	labels map[string][]string

	// objects maps subject IRI -> predicate IRI -> object terms in file
	// order. Object IRIs are stored raw; literal objects (notes) store the
	// literal value.
	objects map[string]map[string][]string

	// labelEntries holds every (subject, label) pair in file order.
	labelEntries []labelEntry

	// diseaseOrder lists Disease-typed subjects in first-seen order.
	diseaseOrder []string

	tripleCount int
}

// Load reads the backing Turtle file at path and builds a Store.
//
// Description:
//
//	Fatal-at-startup semantics: a missing file wraps ErrNotFound, malformed
//	content wraps ErrParse. There is no retry and no default data synthesis;
//	a higher layer may offer a built-in fallback label list, the store
//	itself never invents facts.
//
// Inputs:
//   - path: Filesystem path to the Turtle file.
//
// Outputs:
//   - *Store: The loaded store. Nil on error.
//   - error: ErrNotFound or ErrParse wrapped with detail.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("knowledge: opening %s: %w", path, err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	s.path = path
	slog.Info("Knowledge base loaded",
		slog.String("path", path),
		slog.Int("triples", s.tripleCount),
		slog.Int("diseases", len(s.diseaseOrder)),
	)
	return s, nil
}

// Read builds a Store from Turtle data on r. Used by Load and by tests that
// supply fixture graphs without touching the filesystem.
func Read(r io.Reader) (*Store, error) {
	dec := rdf.NewTripleDecoder(r, rdf.Turtle)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	s := &Store{
		types:   make(map[string]map[string]bool),
		labels:  make(map[string][]string),
		objects: make(map[string]map[string][]string),
	}
	for _, t := range triples {
		s.add(t)
	}
	s.tripleCount = len(triples)
	s.warnDuplicateLabels()
	return s, nil
}

// add indexes a single triple.
func (s *Store) add(t rdf.Triple) {
	subj := t.Subj.String()
	pred := t.Pred.String()
	obj := t.Obj.String()

	switch pred {
	case RDFType:
		if s.types[subj] == nil {
			s.types[subj] = make(map[string]bool)
		}
		if obj == TypeDisease && !s.types[subj][TypeDisease] {
			s.diseaseOrder = append(s.diseaseOrder, subj)
		}
		s.types[subj][obj] = true
	case RDFSLabel:
		s.labels[subj] = append(s.labels[subj], obj)
		s.labelEntries = append(s.labelEntries, labelEntry{Subj: subj, Label: obj})
	default:
		if s.objects[subj] == nil {
			s.objects[subj] = make(map[string][]string)
		}
		s.objects[subj][pred] = append(s.objects[subj][pred], obj)
	}
}

// warnDuplicateLabels logs a data-quality warning for any full label shared
// by more than one entity. Duplicates are a curation problem, not a runtime
// error; lookups still resolve via the ordered matching policy.
func (s *Store) warnDuplicateLabels() {
	seen := make(map[string]string, len(s.labelEntries))
	for _, e := range s.labelEntries {
		key := normalizeLabel(e.Label)
		if prev, ok := seen[key]; ok && prev != e.Subj {
			slog.Warn("Duplicate label across entities",
				slog.String("label", e.Label),
				slog.String("entity", e.Subj),
				slog.String("previous", prev),
			)
			continue
		}
		seen[key] = e.Subj
	}
}

// =============================================================================
// Lookups
// =============================================================================

// Path returns the backing file path, or "" for reader-built stores.
func (s *Store) Path() string { return s.path }

// TripleCount returns the number of triples indexed at load time.
func (s *Store) TripleCount() int { return s.tripleCount }

// IsDisease reports whether subj carries the wheat:Disease type.
func (s *Store) IsDisease(subj string) bool {
	return s.types[subj][TypeDisease]
}

// LabelsOf returns every rdfs:label of subj in file order. The returned
// slice is owned by the store and must not be mutated.
func (s *Store) LabelsOf(subj string) []string {
	return s.labels[subj]
}

// objectsOf returns the objects of (subj, pred) in file order.
func (s *Store) objectsOf(subj, pred string) []string {
	return s.objects[subj][pred]
}

// firstLabel returns the first label of subj, or "".
func (s *Store) firstLabel(subj string) string {
	if ls := s.labels[subj]; len(ls) > 0 {
		return ls[0]
	}
	return ""
}

// preferredLabel returns the display label for subj: the first label
// without parenthetical content if one exists, otherwise the first label.
func (s *Store) preferredLabel(subj string) string {
	ls := s.labels[subj]
	for _, l := range ls {
		if !strings.Contains(l, "(") {
			return l
		}
	}
	if len(ls) > 0 {
		return ls[0]
	}
	return ""
}

// AllDiseaseLabels returns the preferred label of every Disease entity,
// deduplicated and sorted. Used to build the default candidate list for
// classification when the caller supplies none.
//
// Description:
//
//	For each Disease entity the preferred label is the first label without
//	parentheses, falling back to the first label found. The result is
//	stable for a fixed backing file.
func (s *Store) AllDiseaseLabels() []string {
	seen := make(map[string]bool, len(s.diseaseOrder))
	out := make([]string, 0, len(s.diseaseOrder))
	for _, subj := range s.diseaseOrder {
		label := s.preferredLabel(subj)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// normalizeLabel lowercases and trims a label for comparison.
func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// baseName strips everything from the first '(' onward and trims the rest.
// "Stripe Rust (Yellow Rust)" -> "stripe rust" when given normalized input.
func baseName(label string) string {
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}
