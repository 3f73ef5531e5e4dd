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

// Package task manages a set of at-most-one-per-key background
// reconciliation tasks. Adding a task for a key that already has one running
// cancels the old task and installs the new one in its place: the object's
// latest desired state always wins.
package task

import (
	"context"
	"sync"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// Func is the work a task performs. It must return promptly after ctx is
// canceled.
type Func func(ctx context.Context) error

// OnError is called on the task's own goroutine, after its Func returns, if
// that Func returned a non-nil error. It is never called when a task is replaced or
// explicitly removed, only on genuine failure.
type OnError func(key string, err error)

type entry struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs at most one Func per key.
type Manager struct {
	log logging.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a Manager.
func New(log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{log: log, entries: map[string]*entry{}}
}

// Add starts fn for key, canceling and replacing any task already running
// for that key. The replaced task's own OnError is never invoked: being
// superseded isn't a failure.
func (m *Manager) Add(key string, fn Func, onErr OnError) {
	m.mu.Lock()

	if old, running := m.entries[key]; running {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancel: cancel, done: make(chan struct{})}
	m.entries[key] = e

	m.mu.Unlock()

	go func() {
		defer close(e.done)

		err := fn(ctx)

		m.mu.Lock()
		current, stillCurrent := m.entries[key]
		if stillCurrent && current == e {
			delete(m.entries, key)
		}
		m.mu.Unlock()

		if err != nil && ctx.Err() == nil {
			m.log.Debug("task failed", "key", key, "error", err)
			if onErr != nil {
				onErr(key, err)
			}
		}
	}()
}

// Cancel stops the task running for key, if any, without waiting for it to
// return.
func (m *Manager) Cancel(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.cancel()
		delete(m.entries, key)
	}
}

// Wait blocks until the task running for key (at the time Wait is called)
// returns, or ctx is done. It returns immediately if no task is running for
// key.
func (m *Manager) Wait(ctx context.Context, key string) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()

	if !ok {
		return nil
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether a task is currently installed for key.
func (m *Manager) IsRunning(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
