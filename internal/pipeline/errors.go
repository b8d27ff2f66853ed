package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSkipMessage marks a failure confined to one message; the pipeline logs it and moves on.
	ErrSkipMessage = errors.New("message skipped")

	// ErrMediaFetch marks a media download that failed after all attempts.
	ErrMediaFetch = errors.New("media fetch failed")

	// ErrTooManyRetryWaits is returned when the configured number of retry-after waits is exhausted.
	ErrTooManyRetryWaits = errors.New("too many rate-limit waits")
)

// RetryAfterError is the upstream "slow down" signal. The caller must pause for Wait.
type RetryAfterError struct {
	Wait time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// AsRetryAfter extracts the wait duration from a retry-after signal anywhere in err's chain.
func AsRetryAfter(err error) (time.Duration, bool) {
	var ra *RetryAfterError
	if errors.As(err, &ra) {
		return ra.Wait, true
	}
	return 0, false
}
