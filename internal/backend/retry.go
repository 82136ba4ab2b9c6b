// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// RETRY POLICY
// =============================================================================

// RetryPolicy controls how stream establishment is retried.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Delay is the fixed wait between consecutive attempts.
	Delay time.Duration
}

// DefaultRetryPolicy matches the cloud providers' behavior: three tries
// with a flat one-second pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 1 * time.Second}
}

// =============================================================================
// RETRYING ADAPTER
// =============================================================================

// WithRetry wraps an adapter so that stream establishment is retried on
// transport failures. Only establishment: once the inner adapter hands
// back a Stream, the attempt has succeeded and any later failure surfaces
// from Recv without another try, so a fragment is never delivered twice.
//
// Backend, credential, and config errors are returned immediately, as is
// context cancellation.
func WithRetry(inner Adapter, policy RetryPolicy) Adapter {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &retryAdapter{inner: inner, policy: policy}
}

type retryAdapter struct {
	inner  Adapter
	policy RetryPolicy
}

func (r *retryAdapter) Name() string {
	return r.inner.Name()
}

func (r *retryAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	var lastErr error

	for attempt := 0; attempt < r.policy.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.policy.Delay):
			}
		}

		stream, err := r.inner.Stream(ctx, req)
		if err == nil {
			return stream, nil
		}
		if !retryable(ctx, err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// retryable reports whether a failed establishment attempt should be
// tried again.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return IsTransport(err)
}
