// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symptoms extracts symptom phrases from a farmer's free-text
// description by keyword matching. Deliberately simple; a future iteration
// could swap in a proper NLP model behind the same function signature.
package symptoms

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Keyword Configuration
// =============================================================================

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// rawTextLimit caps the truncated raw description appended as a generic
// symptom entry.
const rawTextLimit = 120

// keywordConfig is the YAML shape of keywords.yaml.
type keywordConfig struct {
	Keywords []string `yaml:"keywords"`
}

var (
	cachedKeywords []string
	keywordsOnce   sync.Once
	keywordsErr    error
)

// LoadKeywords loads and caches the symptom keyword list from the embedded
// YAML configuration. Returns the cached result on subsequent calls.
//
// # Outputs
//
//   - []string: The keyword list in file order. Never nil on success.
//   - error: Non-nil if YAML parsing fails.
//
// # Thread Safety
//
// Safe for concurrent use (uses sync.Once internally).
func LoadKeywords() ([]string, error) {
	keywordsOnce.Do(func() {
		var cfg keywordConfig
		if err := yaml.Unmarshal(defaultKeywordsYAML, &cfg); err != nil {
			keywordsErr = fmt.Errorf("symptoms: parsing keywords.yaml: %w", err)
			return
		}
		cachedKeywords = cfg.Keywords
		slog.Info("Symptom keywords loaded", slog.Int("keyword_count", len(cfg.Keywords)))
	})
	return cachedKeywords, keywordsErr
}

// MustLoadKeywords loads the keyword list or returns an empty list on error.
// Extraction then degrades to the truncated raw text only.
func MustLoadKeywords() []string {
	kws, err := LoadKeywords()
	if err != nil {
		slog.Warn("Symptom keyword loading failed, extracting raw text only",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return kws
}

// Extract returns the symptom strings found in text: every matched keyword
// in configuration order, followed by the trimmed raw text truncated to 120
// characters as a generic description. Duplicates are removed preserving
// first occurrence. Empty or whitespace-only input yields nil.
func Extract(text string) []string {
	return ExtractWith(MustLoadKeywords(), text)
}

// ExtractWith is Extract with an explicit keyword list, for callers and
// tests that manage their own configuration.
func ExtractWith(keywords []string, text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	textLower := strings.ToLower(text)

	var found []string
	seen := make(map[string]bool, len(keywords)+1)
	for _, kw := range keywords {
		if strings.Contains(textLower, kw) && !seen[kw] {
			seen[kw] = true
			found = append(found, kw)
		}
	}

	raw := strings.TrimSpace(text)
	if r := []rune(raw); len(r) > rawTextLimit {
		raw = string(r[:rawTextLimit])
	}
	if !seen[raw] {
		found = append(found, raw)
	}
	return found
}
