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
	providerOpenAI     = "openai"
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

//OpenAI works with any OpenAI-compatible chat completions API (OpenAI, Ollama, vLLM, Groq...)
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

//NewOpenAI accepts an empty key for local servers that do not need one
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIURL
		if len(cfg.APIKey) < minAPIKeyLength {
			return nil, wrapError(providerOpenAI, ErrNoAPIKey)
		}
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OpenAI{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) Complete(ctx context.Context, prompt string, maxOutput int) (string, error) {
	if maxOutput <= 0 {
		maxOutput = 1500
	}

	payload := map[string]interface{}{
		"model":      o.model,
		"max_tokens": maxOutput,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	resp, err := postJSON(ctx, o.http, o.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return "", wrapError(providerOpenAI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Provider: providerOpenAI}
		body := readErrorBody(resp)
		var parsed openAIError
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		} else {
			apiErr.Message = string(body)
		}
		return "", apiErr
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", wrapError(providerOpenAI, fmt.Errorf("decode response: %w", err))
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", wrapError(providerOpenAI, ErrEmptyCompletion)
	}

	return result.Choices[0].Message.Content, nil
}
