package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a provider with a client-side request budget so a
// burst of section narratives cannot trip remote rate limits.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// RateLimit caps calls to p at rpm requests per minute. A nil provider
// or non-positive rpm returns p unchanged.
func RateLimit(p Provider, rpm int) Provider {
	if p == nil || rpm <= 0 {
		return p
	}
	return &RateLimited{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// Generate blocks until the limiter admits the call, then delegates.
func (r *RateLimited) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Generate(ctx, prompt, maxTokens)
}

// IsConfigured delegates to the wrapped provider.
func (r *RateLimited) IsConfigured() bool {
	return r.inner.IsConfigured()
}
