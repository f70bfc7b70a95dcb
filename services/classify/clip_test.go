// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNewClient_MissingServiceURL(t *testing.T) {
	t.Setenv("CLIP_SERVICE_URL", "")
	_, err := NewClient()
	if err == nil {
		t.Fatal("expected error for missing service URL")
	}
}

func TestClassify_SortsAndPicksBest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Labels) != 3 {
			t.Errorf("prompts = %d, want 3", len(req.Labels))
		}
		// "Healthy" uses the dedicated healthy-leaf prompt.
		if req.Labels[0] != "a photo of a healthy wheat leaf" {
			t.Errorf("healthy prompt = %q", req.Labels[0])
		}
		if req.Labels[1] != "a photo of wheat leaf with Leaf Rust" {
			t.Errorf("disease prompt = %q", req.Labels[1])
		}
		json.NewEncoder(w).Encode(classifyResponse{Scores: []float64{0.1, 0.7, 0.2}})
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL)
	best, all, err := client.Classify(context.Background(), "aW1n", []string{"Healthy", "Leaf Rust", "Stem Rust"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.Label != "Leaf Rust" || best.Score != 0.7 {
		t.Errorf("best = %+v, want Leaf Rust @ 0.7", best)
	}
	if all[2].Label != "Healthy" {
		t.Errorf("scores not sorted descending: %+v", all)
	}
}

func TestClassify_ScoreCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{Scores: []float64{0.5}})
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL)
	_, _, err := client.Classify(context.Background(), "aW1n", []string{"Healthy", "Leaf Rust"})
	if err == nil {
		t.Fatal("expected error on score/prompt count mismatch")
	}
}

func TestIsWheatImage_Gate(t *testing.T) {
	tests := []struct {
		name     string
		wheat    float64
		nonWheat float64
		want     bool
	}{
		{"clear wheat", 0.8, 0.1, true},
		{"below threshold", 0.2, 0.1, false},
		{"non-wheat wins", 0.4, 0.6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req classifyRequest
				json.NewDecoder(r.Body).Decode(&req)
				scores := make([]float64, len(req.Labels))
				for i := range scores {
					if i < len(wheatPrompts) {
						scores[i] = tt.wheat
					} else {
						scores[i] = tt.nonWheat
					}
				}
				json.NewEncoder(w).Encode(classifyResponse{Scores: scores})
			}))
			defer server.Close()

			client := NewClientWithConfig(server.URL)
			isWheat, conf, err := client.IsWheatImage(context.Background(), "aW1n")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if isWheat != tt.want {
				t.Errorf("is_wheat = %v, want %v", isWheat, tt.want)
			}
			if conf != tt.wheat {
				t.Errorf("confidence = %v, want best wheat prob %v", conf, tt.wheat)
			}
		})
	}
}

func TestWarm_HitsEveryPrompt(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClientWithConfig(server.URL)
	candidates := []string{"Healthy", "Leaf Rust"}
	if err := client.Warm(context.Background(), candidates); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := int64(len(candidates) + len(wheatPrompts) + len(nonWheatPrompts))
	if calls.Load() != want {
		t.Errorf("warm calls = %d, want %d", calls.Load(), want)
	}
}
