package llm

import (
	"context"
	"errors"
	"log"
)

//Chain tries providers in order until one answers
type Chain struct {
	providers []Completer
	names     []string
}

//NewChain returns an empty chain
func NewChain() *Chain {
	return &Chain{}
}

//Add appends a provider under a display name used in logs. Nil providers are skipped.
func (c *Chain) Add(name string, p Completer) *Chain {
	if p == nil {
		return c
	}
	c.providers = append(c.providers, p)
	c.names = append(c.names, name)
	return c
}

//Len returns the number of providers
func (c *Chain) Len() int {
	return len(c.providers)
}

//Complete returns the first successful completion. Context cancellation stops the chain.
func (c *Chain) Complete(ctx context.Context, prompt string, maxOutput int) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	var errs []error
	for i, p := range c.providers {
		text, err := p.Complete(ctx, prompt, maxOutput)
		if err == nil {
			if i > 0 {
				log.Printf("llm: %s answered after %d failed provider(s)", c.names[i], i)
			}
			return text, nil
		}
		log.Printf("llm: provider %s failed: %v", c.names[i], err)
		errs = append(errs, err)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
	}

	return "", &ChainError{Errors: errs}
}
