package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	providerAnthropic       = "anthropic"
	defaultAnthropicURL     = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultAnthropicVersion = "2023-06-01"
)

//Anthropic calls the Messages API
type Anthropic struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

//NewAnthropic fails with ErrNoAPIKey when the key is missing or obviously invalid
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if len(cfg.APIKey) < minAPIKeyLength {
		return nil, wrapError(providerAnthropic, ErrNoAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Anthropic{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

//Complete sends one user message and returns the concatenated text blocks
func (a *Anthropic) Complete(ctx context.Context, prompt string, maxOutput int) (string, error) {
	if maxOutput <= 0 {
		maxOutput = 1500
	}

	payload := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxOutput,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}

	resp, err := postJSON(ctx, a.http, a.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": defaultAnthropicVersion,
	}, payload)
	if err != nil {
		return "", wrapError(providerAnthropic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Provider: providerAnthropic}
		body := readErrorBody(resp)
		var parsed anthropicError
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		} else {
			apiErr.Message = string(body)
		}
		return "", apiErr
	}

	var result anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", wrapError(providerAnthropic, fmt.Errorf("decode response: %w", err))
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", wrapError(providerAnthropic, ErrEmptyCompletion)
	}

	return sb.String(), nil
}
