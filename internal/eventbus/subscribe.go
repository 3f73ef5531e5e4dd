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

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// Subscription is a live, per-caller view of the bus filtered by a list of
// EventConditions (OR'd together, per EventCondition's own doc comment).
// Callers read from C until ctx is done or the bus closes it, then must
// call Close to release the subscriber slot.
type Subscription struct {
	C     <-chan v1.Event
	Close func()
}

// Subscribe registers a new subscriber matching any one of conds and returns
// the Subscription; a subscriber with no conditions matches everything. The
// subscriber channel is bounded; a slow reader misses events rather than
// blocking emit() for everyone else.
//
// Taking the full condition list here, rather than one condition per call,
// is what lets a single subscriber slot serve an OR of several conditions:
// opening one subscription per condition and merging their channels would
// instead deliver an event matching two conditions twice.
func (b *Bus) Subscribe(ctx context.Context, conds ...v1.EventCondition) Subscription {
	s := &subscriber{
		id:        uuid.NewString(),
		conds:     conds,
		ch:        make(chan v1.Event, subscriberBuffer),
		closed:    make(chan struct{}),
		lastAlive: time.Now(),
	}

	b.mu.Lock()
	b.subs[s.id] = s
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s.id)
			b.mu.Unlock()
			close(s.closed)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-s.closed:
		}
	}()

	return Subscription{C: s.ch, Close: release}
}

// WaitFor blocks until an event matching cond is observed or ctx is done,
// returning that event. It backs a one-shot wait: waiting for a specific
// transition rather than streaming.
func (b *Bus) WaitFor(ctx context.Context, cond v1.EventCondition) (*v1.Event, error) {
	sub := b.Subscribe(ctx, cond)
	defer sub.Close()

	select {
	case e, ok := <-sub.C:
		if !ok {
			return nil, ctx.Err()
		}
		return &e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
