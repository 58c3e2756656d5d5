package content

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
)

// RetryingFetcher retries a flaky Fetcher with backoff behind a circuit
// breaker. Exhausted retries and an open breaker both surface as
// ErrCorpusUnavailable.
type RetryingFetcher struct {
	next    Fetcher
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewRetryingFetcher(next Fetcher, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *RetryingFetcher {
	return &RetryingFetcher{
		next:    next,
		retry:   retry,
		breaker: breaker,
		logger:  slog.Default().With("component", "corpus-fetcher"),
	}
}

func (f *RetryingFetcher) FetchCorpus(ctx context.Context) ([]Document, error) {
	var docs []Document
	fetch := func() error {
		return resilience.Retry(ctx, "fetch-corpus", f.retry, func(ctx context.Context) error {
			d, err := f.next.FetchCorpus(ctx)
			if err != nil {
				return err
			}
			docs = d
			return nil
		})
	}

	var err error
	if f.breaker != nil {
		err = f.breaker.Execute(fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		f.logger.Warn("corpus fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	return docs, nil
}
