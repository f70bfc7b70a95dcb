// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify wraps an external CLIP inference service for zero-shot
// wheat disease classification. The service scores an image against a set
// of text prompts; everything model-related stays on the other side of the
// HTTP boundary.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Wire Types
// =============================================================================

const defaultClassifyTimeout = 60 * time.Second

// warmConcurrency bounds parallel prompt warm-up calls so a local inference
// server is saturated without being overwhelmed.
const warmConcurrency = 4

// wheatGateThreshold is the minimum wheat-prompt probability for an image
// to be treated as wheat-related at all.
const wheatGateThreshold = 0.3

type classifyRequest struct {
	ImageB64 string   `json:"image_b64"`
	Labels   []string `json:"labels"`
}

type classifyResponse struct {
	// Scores are softmax probabilities aligned index-for-index with the
	// request's Labels.
	Scores []float64 `json:"scores"`
	Error  string    `json:"error,omitempty"`
}

type warmRequest struct {
	Text string `json:"text"`
}

// Score is one candidate label with its probability.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// =============================================================================
// Prompt Sets
// =============================================================================

// wheatPrompts and nonWheatPrompts drive the wheat-image gate: an upload is
// only classified for disease when it scores higher against the wheat set.
var wheatPrompts = []string{
	"a photo of a wheat plant",
	"a photo of wheat leaves",
	"a photo of wheat leaf",
	"a photo of wheat crop",
	"a photo of wheat field",
}

var nonWheatPrompts = []string{
	"a photo of an animal",
	"a photo of a pet",
	"a photo of a person",
	"a photo of food",
	"a photo of a building",
	"a photo of a car",
	"a photo of nature without plants",
}

// promptFor turns a candidate disease label into the text prompt the CLIP
// service scores against.
func promptFor(label string) string {
	if label == "Healthy" {
		return "a photo of a healthy wheat leaf"
	}
	return fmt.Sprintf("a photo of wheat leaf with %s", label)
}

// =============================================================================
// Client
// =============================================================================

// Client calls the CLIP inference HTTP service.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client from the CLIP_SERVICE_URL environment variable.
//
// Outputs:
//   - *Client: The configured client.
//   - error: Non-nil if CLIP_SERVICE_URL is missing.
func NewClient() (*Client, error) {
	baseURL := os.Getenv("CLIP_SERVICE_URL")
	if baseURL == "" {
		slog.Warn("CLIP service URL is empty. Classifier will not function.")
		return nil, fmt.Errorf("classify: service URL is missing (CLIP_SERVICE_URL)")
	}
	slog.Info("Initializing CLIP classifier client", "base_url", baseURL)
	return NewClientWithConfig(baseURL), nil
}

// NewClientWithConfig creates a Client with an explicit base URL. Useful for
// tests with mock servers.
func NewClientWithConfig(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultClassifyTimeout},
		baseURL:    baseURL,
	}
}

// score posts one classify request and returns the probability vector.
func (c *Client) score(ctx context.Context, imageB64 string, prompts []string) ([]float64, error) {
	reqBody, err := json.Marshal(classifyRequest{ImageB64: imageB64, Labels: prompts})
	if err != nil {
		return nil, fmt.Errorf("classify: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/classify", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("classify: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("classify: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("classify: reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify: service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp classifyResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("classify: parsing response JSON: %w", err)
	}
	if apiResp.Error != "" {
		return nil, fmt.Errorf("classify: service error: %s", apiResp.Error)
	}
	if len(apiResp.Scores) != len(prompts) {
		return nil, fmt.Errorf("classify: got %d scores for %d prompts", len(apiResp.Scores), len(prompts))
	}
	return apiResp.Scores, nil
}

// IsWheatImage gates disease classification on the upload actually showing
// wheat.
//
// Description:
//
//	Scores the image against wheat and non-wheat prompt sets in one call.
//	The image passes when its best wheat probability clears the gate
//	threshold and beats its best non-wheat probability.
//
// Outputs:
//   - bool: Whether the image is wheat-related.
//   - float64: The best wheat-prompt probability, for reporting.
//   - error: Non-nil on transport or service failure.
func (c *Client) IsWheatImage(ctx context.Context, imageB64 string) (bool, float64, error) {
	prompts := append(append([]string(nil), wheatPrompts...), nonWheatPrompts...)
	scores, err := c.score(ctx, imageB64, prompts)
	if err != nil {
		return false, 0, err
	}

	maxWheat, maxNonWheat := 0.0, 0.0
	for i, s := range scores {
		if i < len(wheatPrompts) {
			if s > maxWheat {
				maxWheat = s
			}
		} else if s > maxNonWheat {
			maxNonWheat = s
		}
	}

	isWheat := maxWheat > wheatGateThreshold && maxWheat > maxNonWheat
	slog.Debug("Wheat gate evaluated",
		slog.Bool("is_wheat", isWheat),
		slog.Float64("wheat_prob", maxWheat),
		slog.Float64("non_wheat_prob", maxNonWheat),
	)
	return isWheat, maxWheat, nil
}

// Classify scores the image against the candidate disease labels.
//
// Outputs:
//   - Score: The best-scoring candidate.
//   - []Score: All candidates sorted by descending score.
//   - error: Non-nil on transport or service failure, or empty candidates.
func (c *Client) Classify(ctx context.Context, imageB64 string, candidates []string) (Score, []Score, error) {
	if len(candidates) == 0 {
		return Score{}, nil, fmt.Errorf("classify: no candidate labels")
	}

	prompts := make([]string, len(candidates))
	for i, label := range candidates {
		prompts[i] = promptFor(label)
	}

	probs, err := c.score(ctx, imageB64, prompts)
	if err != nil {
		return Score{}, nil, err
	}

	scored := make([]Score, len(candidates))
	for i, label := range candidates {
		scored[i] = Score{Label: label, Score: probs[i]}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	slog.Debug("Image classified",
		slog.String("best_label", scored[0].Label),
		slog.Float64("best_score", scored[0].Score),
		slog.Int("candidates", len(candidates)),
	)
	return scored[0], scored, nil
}

// Warm primes the inference service's text-embedding cache for every
// candidate prompt plus the wheat-gate prompt sets, in parallel.
//
// Description:
//
//	Best effort: individual prompt failures abort the group and are
//	returned, but callers typically log and continue since warming is an
//	optimization, not a correctness requirement.
func (c *Client) Warm(ctx context.Context, candidates []string) error {
	prompts := make([]string, 0, len(candidates)+len(wheatPrompts)+len(nonWheatPrompts))
	for _, label := range candidates {
		prompts = append(prompts, promptFor(label))
	}
	prompts = append(prompts, wheatPrompts...)
	prompts = append(prompts, nonWheatPrompts...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, p := range prompts {
		g.Go(func() error {
			return c.warmOne(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("classify: warm-up: %w", err)
	}
	slog.Info("Classifier prompt cache warmed", slog.Int("prompts", len(prompts)))
	return nil
}

func (c *Client) warmOne(ctx context.Context, prompt string) error {
	reqBody, err := json.Marshal(warmRequest{Text: prompt})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/warm", bytes.NewBuffer(reqBody))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warm %q: status %d", prompt, resp.StatusCode)
	}
	return nil
}
