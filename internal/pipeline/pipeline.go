// Package pipeline drives iteration over the raw message stream: it paces
// requests and absorbs upstream rate-limit signals without losing position.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/models"
)

// Source yields raw messages and io.EOF when exhausted.
// On a RetryAfterError the source must not advance, so the next call resumes at the same position.
type Source interface {
	Next(ctx context.Context) (models.RawMessage, error)
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options configure a Pipeline.
type Options struct {
	// PacingDelay is applied after each message handed downstream.
	PacingDelay time.Duration
	// MaxRetryWaits bounds consecutive retry-after waits for one message; 0 means unbounded.
	MaxRetryWaits int
	// Sleep replaces the real sleep, mostly for tests.
	Sleep SleepFunc
}

// Stats counts what the pipeline has seen.
type Stats struct {
	Fetched    int
	RetryWaits int
	Skipped    int
}

// Pipeline wraps a Source with pacing and retry-after handling.
type Pipeline struct {
	src   Source
	opts  Options
	sleep SleepFunc
	log   *logger.Logger

	handedOut bool
	stats     Stats
}

// New creates a pipeline over src.
func New(src Source, opts Options, log *logger.Logger) *Pipeline {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	if log == nil {
		log = logger.Get()
	}
	return &Pipeline{src: src, opts: opts, sleep: sleep, log: log}
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Next returns the next raw message.
// It returns io.EOF at the end of the stream, ctx.Err() on cancellation and a
// wrapped transport error when the source fails for a reason other than a
// rate limit or a single skipped message.
func (p *Pipeline) Next(ctx context.Context) (models.RawMessage, error) {
	if p.handedOut && p.opts.PacingDelay > 0 {
		if err := p.sleep(ctx, p.opts.PacingDelay); err != nil {
			return models.RawMessage{}, err
		}
	}
	p.handedOut = false

	waits := 0
	for {
		if err := ctx.Err(); err != nil {
			return models.RawMessage{}, err
		}

		msg, err := p.src.Next(ctx)
		switch {
		case err == nil:
			p.stats.Fetched++
			p.handedOut = true
			return msg, nil

		case errors.Is(err, io.EOF):
			return models.RawMessage{}, io.EOF

		case errors.Is(err, ErrSkipMessage):
			p.stats.Skipped++
			p.log.Warn().Err(err).Msg("pipeline: skipping message")
			continue
		}

		wait, ok := AsRetryAfter(err)
		if !ok {
			return models.RawMessage{}, fmt.Errorf("fetch message: %w", err)
		}

		waits++
		if p.opts.MaxRetryWaits > 0 && waits > p.opts.MaxRetryWaits {
			return models.RawMessage{}, fmt.Errorf("%w: %d", ErrTooManyRetryWaits, waits-1)
		}
		p.stats.RetryWaits++
		p.log.Warn().Dur("wait", wait).Int("attempt", waits).Msg("pipeline: rate limited, pausing")
		if err := p.sleep(ctx, wait); err != nil {
			return models.RawMessage{}, err
		}
	}
}
