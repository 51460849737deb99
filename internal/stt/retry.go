package stt

import (
	"context"
	"errors"
	"time"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
)

// retrying wraps a Provider with bounded retry for transient errors.
// Rate-limit and network errors are retried with exponential backoff;
// everything else propagates immediately.
type retrying struct {
	inner    Provider
	attempts int
	base     time.Duration
}

// NewRetrying wraps p so transient failures are retried up to attempts
// times in total, sleeping base, 2*base, 4*base, ... between tries.
func NewRetrying(p Provider, attempts int, base time.Duration) Provider {
	if attempts < 1 {
		attempts = 1
	}
	return &retrying{inner: p, attempts: attempts, base: base}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Close() error { return r.inner.Close() }

func (r *retrying) Transcribe(ctx context.Context, clip *audio.Clip) (Transcript, error) {
	delay := r.base
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		tr, err := r.inner.Transcribe(ctx, clip)
		if err == nil {
			return tr, nil
		}
		lastErr = err

		if !retryable(err) || attempt == r.attempts {
			return Transcript{}, err
		}

		select {
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return Transcript{}, lastErr
}

// retryable reports whether the error class is transient.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}
