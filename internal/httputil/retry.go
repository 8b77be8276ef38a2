// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by source adapters and
// generative backends.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryBaseDelay is the first backoff delay; it doubles on each attempt.
// Lookups sit on an interactive path, so the base is short. Tests override
// this to avoid real sleeps.
var RetryBaseDelay = 200 * time.Millisecond

const defaultMaxRetries = 2

// StatusError reports a response that was still retryable when the retry
// budget ran out.
type StatusError struct {
	StatusCode int
	Attempts   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d after %d attempts", e.StatusCode, e.Attempts)
}

// retryable reports whether the status is worth another attempt.
func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request and retries on 429, 502, 503 and 504
// with exponential backoff starting at RetryBaseDelay.
//
// When maxRetries is 0 the default (2) is used. The body of each retried
// response is drained and closed. Transport errors are returned as-is
// without retrying, so a dead host fails fast. A request body is resent
// through req.GetBody, which http.NewRequest sets for in-memory readers.
// If retries are exhausted a *StatusError is returned. If the context ends
// during a backoff wait the context error is returned.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	backoff := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(RetryBaseDelay))

	var (
		resp     *http.Response
		attempts int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		attempt := req.Clone(ctx)
		if req.GetBody != nil && attempts > 1 {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			attempt.Body = body
		}
		r, err := client.Do(attempt)
		if err != nil {
			return err
		}
		if retryable(r.StatusCode) {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return retry.RetryableError(&StatusError{StatusCode: r.StatusCode, Attempts: attempts})
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
