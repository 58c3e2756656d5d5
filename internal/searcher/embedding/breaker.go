package embedding

import (
	"context"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
)

// BreakerProvider guards a Provider with a circuit breaker so a failing
// encoder is skipped quickly instead of being retried on every document.
type BreakerProvider struct {
	inner   Provider
	breaker *resilience.CircuitBreaker
}

func NewBreakerProvider(inner Provider, breaker *resilience.CircuitBreaker) *BreakerProvider {
	return &BreakerProvider{inner: inner, breaker: breaker}
}

func (p *BreakerProvider) Encode(ctx context.Context, text string) (Vector, error) {
	var vec Vector
	err := p.breaker.Execute(func() error {
		return resilience.Recover("encode", func() error {
			v, err := p.inner.Encode(ctx, text)
			if err != nil {
				return err
			}
			vec = v
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrEmbeddingFailed, p.inner.Name(), err)
	}
	return vec, nil
}

func (p *BreakerProvider) Name() string {
	return p.inner.Name()
}
