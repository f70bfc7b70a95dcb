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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// =============================================================================
// Chat Completions Wire Types
// =============================================================================

// Both hosted providers speak the OpenAI chat completions wire format, so
// one client covers Groq and OpenAI with different base URLs and models.

const (
	defaultGroqBaseURL   = "https://api.groq.com/openai/v1/chat/completions"
	defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"

	defaultGroqModel   = "llama-3.1-70b-versatile"
	defaultOpenAIModel = "gpt-4o-mini"
)

// systemPrompt frames every explanation request.
const systemPrompt = "You are an expert agronomist and plant pathologist specializing in wheat diseases. Provide practical, actionable advice for farmers."

// Generation parameters for diagnosis reports: low temperature for factual
// tone, capped length for a readable report.
const (
	reportTemperature = 0.4
	reportMaxTokens   = 1500
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client
// =============================================================================

// Provider produces a farmer-readable report from a prompt. Implemented by
// ChatClient for hosted LLM APIs; the static template fallback lives in the
// Generator itself.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatClient calls an OpenAI-compatible chat completions API using raw
// net/http.
//
// Thread Safety: ChatClient is safe for concurrent use.
type ChatClient struct {
	name       string
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewGroqClient creates a ChatClient for the Groq API from environment
// variables GROQ_API_KEY and GROQ_MODEL.
//
// Outputs:
//   - *ChatClient: The configured client.
//   - error: Non-nil if GROQ_API_KEY is missing.
func NewGroqClient() (*ChatClient, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	model := os.Getenv("GROQ_MODEL")
	if apiKey == "" {
		slog.Warn("Groq API Key is empty. Groq client will not function.")
		return nil, fmt.Errorf("groq: API key is missing (GROQ_API_KEY)")
	}
	if model == "" {
		model = defaultGroqModel
		slog.Warn("GROQ_MODEL not set, defaulting to " + defaultGroqModel)
	}
	slog.Info("Initializing Groq client", "model", model)
	return NewChatClientWithConfig("groq", apiKey, model, defaultGroqBaseURL), nil
}

// NewOpenAIClient creates a ChatClient for the OpenAI API from environment
// variables OPENAI_API_KEY and OPENAI_MODEL.
//
// Outputs:
//   - *ChatClient: The configured client.
//   - error: Non-nil if OPENAI_API_KEY is missing.
func NewOpenAIClient() (*ChatClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL")
	if apiKey == "" {
		slog.Warn("OpenAI API Key is empty. OpenAI client will not function.")
		return nil, fmt.Errorf("openai: API key is missing (OPENAI_API_KEY)")
	}
	if model == "" {
		model = defaultOpenAIModel
		slog.Warn("OPENAI_MODEL not set, defaulting to " + defaultOpenAIModel)
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return NewChatClientWithConfig("openai", apiKey, model, defaultOpenAIBaseURL), nil
}

// NewChatClientWithConfig creates a ChatClient with explicit configuration.
// Useful for testing with mock servers or when configuration comes from a
// source other than environment variables.
func NewChatClientWithConfig(name, apiKey, model, baseURL string) *ChatClient {
	return &ChatClient{
		name:       name,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// Name implements Provider.
func (c *ChatClient) Name() string { return c.name }

// Generate implements Provider by sending a one-shot chat completion.
//
// Description:
//
//	Sends the agronomist system prompt plus the diagnosis prompt via raw
//	HTTP and returns the assistant's reply. Errors are redacted before
//	wrapping so API keys never reach logs.
//
// Thread Safety: This method is safe for concurrent use.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	slog.Debug("Generating explanation", slog.String("provider", c.name), slog.String("model", c.model))

	reqPayload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: reportTemperature,
		MaxTokens:   reportMaxTokens,
	}
	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("%s: marshaling request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("%s: creating HTTP request: %w", c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: HTTP request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: reading response body: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: API returned status %d: %s", c.name, resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("%s: parsing response JSON: %w", c.name, err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("%s: API error: %s - %s", c.name, apiResp.Error.Type, SafeLogString(apiResp.Error.Message))
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("%s: returned no choices", c.name)
	}

	slog.Debug("Received explanation",
		slog.String("provider", c.name),
		slog.String("finish_reason", apiResp.Choices[0].FinishReason),
		slog.Int("response_len", len(apiResp.Choices[0].Message.Content)),
	)
	return apiResp.Choices[0].Message.Content, nil
}
