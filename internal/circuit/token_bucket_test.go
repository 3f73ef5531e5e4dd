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

package circuit

import (
	"context"
	"testing"
	"time"
)

type countingMetrics struct {
	opens  int
	closes int
}

func (m *countingMetrics) IncOpen(_ string)         { m.opens++ }
func (m *countingMetrics) IncClose(_ string)        { m.closes++ }
func (m *countingMetrics) IncEvent(_, _ string)     {}

func TestTokenBucketBreakerClosedUntilBurstExhausted(t *testing.T) {
	metrics := &countingMetrics{}
	b := NewTokenBucketBreaker(metrics, "test", WithBurst(2), WithRefillRatePerSecond(0))
	ctx := context.Background()

	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	if st := b.GetState(ctx, "node-a"); st.IsOpen {
		t.Fatal("GetState(...): circuit open after consuming only one of two burst tokens")
	}

	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	if st := b.GetState(ctx, "node-a"); st.IsOpen {
		t.Fatal("GetState(...): circuit open after consuming exactly the burst allowance")
	}

	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	st := b.GetState(ctx, "node-a")
	if !st.IsOpen {
		t.Fatal("GetState(...): want circuit open once the burst is exceeded with no refill")
	}
	if st.TriggeredBy != "docker/c1" {
		t.Errorf("GetState(...): TriggeredBy = %q, want %q", st.TriggeredBy, "docker/c1")
	}
	if metrics.opens != 1 {
		t.Errorf("metrics.opens = %d, want 1", metrics.opens)
	}
}

func TestTokenBucketBreakerClosesAfterCooldown(t *testing.T) {
	metrics := &countingMetrics{}
	b := NewTokenBucketBreaker(metrics, "test",
		WithBurst(1),
		WithRefillRatePerSecond(0),
		WithOpenDuration(50*time.Millisecond),
	)
	ctx := context.Background()

	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	if st := b.GetState(ctx, "node-a"); !st.IsOpen {
		t.Fatal("GetState(...): want circuit open after exceeding a 1-token burst")
	}

	time.Sleep(75 * time.Millisecond)
	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	if st := b.GetState(ctx, "node-a"); st.IsOpen {
		t.Fatal("GetState(...): want circuit closed once the cooldown elapses and a new event arrives")
	}
	if metrics.closes != 1 {
		t.Errorf("metrics.closes = %d, want 1", metrics.closes)
	}
}

func TestTokenBucketBreakerGetStateUnknownTargetIsClosed(t *testing.T) {
	b := NewTokenBucketBreaker(nil, "test")
	if st := b.GetState(context.Background(), "never-seen"); st.IsOpen {
		t.Fatal("GetState(...): want a never-recorded target reported closed")
	}
}

func TestTokenBucketBreakerRecordAllowedUpdatesNextAllowedAt(t *testing.T) {
	b := NewTokenBucketBreaker(nil, "test", WithBurst(1), WithRefillRatePerSecond(0), WithHalfOpenInterval(10*time.Millisecond))
	ctx := context.Background()

	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	b.RecordEvent(ctx, "node-a", EventSource{Kind: "docker", Name: "c1"})
	before := b.GetState(ctx, "node-a").NextAllowedAt

	time.Sleep(5 * time.Millisecond)
	b.RecordAllowed(ctx, "node-a")
	after := b.GetState(ctx, "node-a").NextAllowedAt

	if !after.After(before) {
		t.Errorf("NextAllowedAt did not advance after RecordAllowed: before=%v after=%v", before, after)
	}
}

func TestNopBreakerNeverOpens(t *testing.T) {
	var b NopBreaker
	ctx := context.Background()
	b.RecordEvent(ctx, "x", EventSource{Kind: "docker", Name: "c1"})
	b.RecordAllowed(ctx, "x")
	if st := b.GetState(ctx, "x"); st.IsOpen {
		t.Fatal("NopBreaker.GetState(...): want always closed")
	}
}
