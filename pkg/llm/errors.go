package llm

import (
	"errors"
	"fmt"
)

var (
	//ErrNoAPIKey is returned when a provider is configured without a usable key
	ErrNoAPIKey = errors.New("llm: API key required")

	//ErrEmptyCompletion is returned when the provider answered without any text
	ErrEmptyCompletion = errors.New("llm: empty completion")

	//ErrNoProviders is returned by an empty chain
	ErrNoProviders = errors.New("llm: no providers configured")
)

//APIError represents an error response from a text-generation API
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

//IsUnauthorized returns true for HTTP 401
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

//IsRetryable returns true for rate limits and server errors
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

//ProviderError wraps an error with provider context
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func wrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

//ChainError aggregates errors from all providers in a chain
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("llm chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("llm chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

//Unwrap returns the last error in the chain
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
