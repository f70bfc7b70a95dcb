// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command wheatsight runs the wheat leaf disease diagnosis service.
//
// WheatSight combines:
//   - A Turtle-backed disease fact store with tolerant label matching
//   - An external CLIP classifier (wheat gate + candidate scoring)
//   - Keyword symptom extraction from farmer free text
//   - Confidence/evidence reasoning with an auditable trace
//   - LLM-generated reports (Groq, then OpenAI, then a static template)
//
// Usage:
//
//	wheatsight serve --port 8080
//	wheatsight diagnose --image leaf.jpg --text "orange spots on the leaves"
//	wheatsight labels
//
// Environment:
//
//	WHEATSIGHT_KB_PATH  Turtle knowledge file (default data/wheat_diseases.ttl)
//	CLIP_SERVICE_URL    Base URL of the CLIP inference service
//	GROQ_API_KEY        Enables Groq report generation
//	OPENAI_API_KEY      Enables OpenAI report generation
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agrovista/wheatsight/services/classify"
	"github.com/agrovista/wheatsight/services/diagnosis"
	"github.com/agrovista/wheatsight/services/explain"
	"github.com/agrovista/wheatsight/services/knowledge"
)

const defaultKBPath = "data/wheat_diseases.ttl"

// Default per-minute request budgets for the hosted LLM providers. Over
// budget the generator falls through to the next provider.
var providerLimits = map[string]int{
	"groq":   30,
	"openai": 60,
}

// kbPath holds the --kb persistent flag value.
var kbPath string

var rootCmd = &cobra.Command{
	Use:   "wheatsight",
	Short: "Wheat leaf disease diagnosis service",
	Long: "WheatSight diagnoses wheat leaf diseases from photos and symptom\n" +
		"descriptions, backed by a Turtle fact store and an external CLIP classifier.",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&kbPath, "kb", "", "path to the Turtle knowledge file (default $WHEATSIGHT_KB_PATH or "+defaultKBPath+")")
	rootCmd.AddCommand(serveCmd, diagnoseCmd, labelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveKBPath applies the flag > env > default precedence.
func resolveKBPath() string {
	if kbPath != "" {
		return kbPath
	}
	if p := os.Getenv("WHEATSIGHT_KB_PATH"); p != "" {
		return p
	}
	return defaultKBPath
}

// loadStore loads the knowledge store, degrading to nil on failure. A
// missing or unparseable file is a warning, not a startup failure: the
// service still works off the fallback label list and facts-free reasoning.
func loadStore(path string) *knowledge.Store {
	store, err := knowledge.Load(path)
	if err != nil {
		slog.Warn("Knowledge store unavailable, continuing with fallback labels",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil
	}
	slog.Info("Knowledge store loaded",
		slog.String("path", path),
		slog.Int("triples", store.TripleCount()),
	)
	return store
}

// buildGenerator assembles the explanation chain from whichever providers
// have API keys configured. The static template always closes the chain.
func buildGenerator() *explain.Generator {
	var providers []explain.Provider
	if groq, err := explain.NewGroqClient(); err == nil {
		providers = append(providers, groq)
	} else {
		slog.Info("Groq provider disabled", slog.String("reason", err.Error()))
	}
	if openai, err := explain.NewOpenAIClient(); err == nil {
		providers = append(providers, openai)
	} else {
		slog.Info("OpenAI provider disabled", slog.String("reason", err.Error()))
	}
	return explain.NewGenerator(explain.NewRateLimiter(providerLimits), providers...)
}

// buildService wires the full pipeline. requireClassifier distinguishes the
// server (which degrades without CLIP) from one-shot image diagnosis (which
// cannot do anything useful without it).
func buildService(requireClassifier bool) *diagnosis.Service {
	clip, err := classify.NewClient()
	if err != nil {
		if requireClassifier {
			log.Fatalf("Error: %v", err)
		}
		clip = nil
	}

	var classifier diagnosis.Classifier
	if clip != nil {
		classifier = clip
	}
	return diagnosis.NewService(loadStore(resolveKBPath()), classifier, buildGenerator(), nil)
}
