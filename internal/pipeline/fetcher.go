package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

// MediaFetcher downloads the bytes of one attachment.
type MediaFetcher interface {
	Fetch(ctx context.Context, att models.Attachment) ([]byte, error)
}

// FetchPolicy configures media retries.
type FetchPolicy struct {
	Attempts        int           // total attempts for ordinary failures
	InitialInterval time.Duration // first backoff; doubles each attempt
}

// DefaultFetchPolicy matches three attempts with 3s and 6s pauses.
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{Attempts: 3, InitialInterval: 3 * time.Second}
}

// RetryingFetcher wraps a MediaFetcher: retry-after signals are waited out
// without consuming attempts, other failures are retried with backoff.
type RetryingFetcher struct {
	next   MediaFetcher
	policy FetchPolicy
	p      *Pipeline
}

// Fetcher returns f wrapped with the pipeline's retry handling.
func (p *Pipeline) Fetcher(f MediaFetcher, policy FetchPolicy) *RetryingFetcher {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	return &RetryingFetcher{next: f, policy: policy, p: p}
}

// Fetch downloads att. Failures after all attempts wrap ErrMediaFetch.
func (f *RetryingFetcher) Fetch(ctx context.Context, att models.Attachment) ([]byte, error) {
	var data []byte

	op := func() error {
		for {
			b, err := f.next.Fetch(ctx, att)
			if err == nil {
				data = b
				return nil
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			wait, ok := AsRetryAfter(err)
			if !ok {
				return err
			}
			f.p.stats.RetryWaits++
			f.p.log.Warn().Dur("wait", wait).Int("message_id", att.MessageID).Msg("pipeline: media rate limited, pausing")
			if err := f.p.sleep(ctx, wait); err != nil {
				return backoff.Permanent(err)
			}
		}
	}

	notify := func(err error, next time.Duration) {
		f.p.log.Warn().Err(err).Dur("retry_in", next).Int("message_id", att.MessageID).Msg("pipeline: media fetch failed, retrying")
	}

	err := backoff.RetryNotify(op, f.backoff(ctx), notify)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: message %d: %v", ErrMediaFetch, att.MessageID, err)
	}
	return data, nil
}

func (f *RetryingFetcher) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.policy.InitialInterval
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.policy.Attempts-1)), ctx)
}
