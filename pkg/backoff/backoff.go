/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package backoff retries an operation at a fixed interval. Retryable
// operations (runtime reconnect, controller reload) back off at a fixed
// 1-2s interval; nanocld deliberately has no unbounded exponential
// backoff implementation.
package backoff

import (
	"context"
	"time"
)

// Retry calls fn until it returns a nil error, ctx is done, or attempts is
// exhausted (0 means unlimited). It sleeps interval between attempts.
func Retry(ctx context.Context, interval time.Duration, attempts int, fn func() error) error {
	var err error
	for i := 0; attempts == 0 || i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return err
}

// Forever calls fn in a loop until ctx is done, sleeping interval between
// calls regardless of whether fn returned an error. It is used for
// long-running ingestion loops (the docker-event ingester) that must never
// give up, only back off and retry.
func Forever(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error) {
	for {
		if ctx.Err() != nil {
			return
		}

		_ = fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
