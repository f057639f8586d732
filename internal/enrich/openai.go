// Package enrich generates short game descriptions through an
// OpenAI-compatible chat completions endpoint. Strictly best-effort: the
// cache pipeline works identically when this collaborator is absent.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gamebot/internal/domain"
	"gamebot/internal/ratelimit"
)

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultModel      = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-3-small"
	defaultTimeout    = 30 * time.Second

	// The embedding pass hits the endpoint in a tight loop, so its
	// requests are spaced and rate-limit rejections retried
	embedInterval   = time.Second
	embedMaxRetries = 3

	systemPrompt = "You are a knowledgeable gaming expert."
)

// Client implements domain.Describer and domain.Embedder against an
// OpenAI-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	embedModel string
	httpClient *http.Client
	logger     *slog.Logger

	gate       *ratelimit.Gate
	retryDelay time.Duration
}

// NewClient creates a describer. Base URL and model fall back to defaults
// when empty.
func NewClient(apiKey, baseURL, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: defaultEmbedModel,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:     logger,
		gate:       ratelimit.NewGate(embedInterval),
		retryDelay: embedInterval,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Describe asks the model for an engaging description of the title.
func (c *Client) Describe(ctx context.Context, title, hint string) (string, error) {
	prompt := fmt.Sprintf("Describe the game %q in an engaging way. Include notable features and what makes it special.", title)
	if hint != "" {
		prompt += "\nAdditional info: " + hint
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("enrichment request", "title", title, "model", c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("enrichment: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("enrichment request error", "status", resp.StatusCode)
		return "", fmt.Errorf("enrichment: unexpected status code: %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse enrichment response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("enrichment: empty response")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed generates a vector for the text through the embeddings endpoint,
// honoring the cadence gate and retrying rate-limit rejections.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 1; attempt <= embedMaxRetries; attempt++ {
		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}

		vec, err := c.embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		if attempt == embedMaxRetries {
			break
		}

		delay := c.retryDelay * time.Duration(attempt)
		c.logger.Warn("retrying embedding", "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// embed performs one embeddings request.
func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(embedRequest{
		Model: c.embedModel,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("embedding: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("embedding request error", "status", resp.StatusCode)
		return nil, fmt.Errorf("embedding: unexpected status code: %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}

	return parsed.Data[0].Embedding, nil
}
