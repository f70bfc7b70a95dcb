// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command kb-import merges treatment recommendations from a CSV file into
// the Turtle knowledge file.
//
// The CSV carries two columns, disease and treatment. Disease names go
// through the same tolerant label matching the diagnosis service uses, so
// "leaf rust", "Leaf Rust (Brown Rust)" and "Stripe Rust (Yellow)" all land
// on the right entity. Rows whose disease cannot be resolved are skipped
// with a warning. Treatments a disease already lists are not duplicated.
//
// Usage:
//
//	kb-import --kb data/wheat_diseases.ttl --csv treatments.csv
//	kb-import --kb data/wheat_diseases.ttl --csv treatments.csv --out merged.ttl
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/knakk/rdf"

	"github.com/agrovista/wheatsight/services/knowledge"
)

func main() {
	kbPath := flag.String("kb", "data/wheat_diseases.ttl", "Turtle knowledge file to merge into")
	csvPath := flag.String("csv", "", "CSV file with disease,treatment rows (required)")
	outPath := flag.String("out", "", "output file (default: append to --kb)")
	flag.Parse()

	if *csvPath == "" {
		log.Fatal("Error: --csv is required")
	}

	store, err := knowledge.Load(*kbPath)
	if err != nil {
		log.Fatalf("Error: load knowledge file: %v", err)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Error: open CSV: %v", err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		log.Fatalf("Error: read CSV: %v", err)
	}

	triples, skipped, duplicates := buildTriples(store, rows)
	if len(triples) == 0 {
		slog.Info("Nothing to import",
			slog.Int("rows", len(rows)),
			slog.Int("skipped", skipped),
			slog.Int("duplicates", duplicates),
		)
		return
	}

	target := *outPath
	appendMode := target == ""
	if appendMode {
		target = *kbPath
	}
	if err := writeTriples(target, appendMode, triples); err != nil {
		log.Fatalf("Error: write triples: %v", err)
	}

	slog.Info("Import complete",
		slog.String("target", target),
		slog.Int("rows", len(rows)),
		slog.Int("triples", len(triples)),
		slog.Int("skipped", skipped),
		slog.Int("duplicates", duplicates),
	)
}

// row is one disease/treatment pair from the CSV.
type row struct {
	Disease   string
	Treatment string
}

// readRows parses the CSV, tolerating an optional header row and ragged
// trailing columns. The treatment cell may pack several treatments
// separated by semicolons, pipes, or newlines; each becomes its own row.
func readRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []row
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kb-import: parse csv: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		disease := strings.TrimSpace(rec[0])
		cell := strings.TrimSpace(rec[1])
		if first {
			first = false
			if isHeader(disease, cell) {
				continue
			}
		}
		if disease == "" || cell == "" {
			continue
		}
		for _, treatment := range splitTreatments(cell) {
			rows = append(rows, row{Disease: disease, Treatment: treatment})
		}
	}
	return rows, nil
}

func isHeader(first, second string) bool {
	return (strings.EqualFold(first, "disease") || strings.EqualFold(first, "disease_name")) &&
		(strings.EqualFold(second, "treatment") || strings.EqualFold(second, "treatments"))
}

// splitTreatments breaks a packed treatment cell on the first delimiter
// that occurs in it. No delimiter means one treatment.
func splitTreatments(cell string) []string {
	for _, delim := range []string{";", "\n", "|"} {
		if !strings.Contains(cell, delim) {
			continue
		}
		var out []string
		for _, part := range strings.Split(cell, delim) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return []string{cell}
}

// buildTriples resolves each row against the store and produces the new
// treatment entities and has-treatment links.
func buildTriples(store *knowledge.Store, rows []row) (triples []rdf.Triple, skipped, duplicates int) {
	// Track what we mint in this run so two rows sharing a treatment text
	// reuse one entity.
	minted := map[string]rdf.IRI{}

	for _, r := range rows {
		subj, ok := store.FindDisease(r.Disease)
		if !ok {
			slog.Warn("Disease not found in knowledge file, skipping row",
				slog.String("disease", r.Disease),
			)
			skipped++
			continue
		}

		if hasTreatment(store, subj, r.Treatment) {
			duplicates++
			continue
		}

		treatmentIRI, existed := minted[strings.ToLower(r.Treatment)]
		if !existed {
			treatmentIRI = mustIRI(knowledge.WheatNS + "Treatment_" + slug(r.Treatment))
			minted[strings.ToLower(r.Treatment)] = treatmentIRI

			triples = append(triples,
				rdf.Triple{Subj: treatmentIRI, Pred: mustIRI(knowledge.RDFType), Obj: mustIRI(knowledge.TypeTreatment)},
				rdf.Triple{Subj: treatmentIRI, Pred: mustIRI(knowledge.RDFSLabel), Obj: mustLiteral(r.Treatment)},
			)
		}
		triples = append(triples, rdf.Triple{
			Subj: mustIRI(subj),
			Pred: mustIRI(knowledge.PredHasTreatment),
			Obj:  treatmentIRI,
		})
	}
	return triples, skipped, duplicates
}

// hasTreatment reports whether the disease already lists this treatment,
// case-insensitively.
func hasTreatment(store *knowledge.Store, subj, treatment string) bool {
	facts := store.FactsOf(subj, "")
	for _, t := range facts.Treatments {
		if strings.EqualFold(strings.TrimSpace(t), treatment) {
			return true
		}
	}
	return false
}

// slug turns a treatment text into an IRI-safe fragment.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	return b.String()
}

func mustIRI(s string) rdf.IRI {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		log.Fatalf("Error: invalid IRI %q: %v", s, err)
	}
	return iri
}

func mustLiteral(s string) rdf.Literal {
	lit, err := rdf.NewLiteral(s)
	if err != nil {
		log.Fatalf("Error: invalid literal %q: %v", s, err)
	}
	return lit
}

// writeTriples serializes the new triples. Statements are written in the
// line-per-triple subset of Turtle, so appending to an existing prefixed
// file stays valid.
func writeTriples(path string, appendMode bool, triples []rdf.Triple) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("kb-import: open %s: %w", path, err)
	}
	defer f.Close()

	if appendMode {
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("kb-import: write %s: %w", path, err)
		}
	}
	enc := rdf.NewTripleEncoder(f, rdf.Turtle)
	for _, t := range triples {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("kb-import: encode triple: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("kb-import: close encoder: %w", err)
	}
	return nil
}
