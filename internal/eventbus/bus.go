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

// Package eventbus implements the durable, append-only event log and the
// in-process fan-out that lets API clients watch it live. Every emitted
// event is persisted first, then broadcast to subscribers on a best-effort,
// bounded basis: a slow subscriber drops events rather than stall emit().
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// subscriberBuffer is how many unread events a subscriber channel holds
// before emit() starts dropping events for it.
const subscriberBuffer = 100

// healthSweepInterval is how often the bus prunes subscribers whose
// receiving goroutine has gone away.
const healthSweepInterval = 10 * time.Second

// Repository is the subset of store.Repository[v1.Event] the bus needs.
type Repository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Event) error
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Event, error)
}

// Bus is the durable event log plus its live subscribers.
type Bus struct {
	repo Repository
	log  logging.Logger

	mu   sync.RWMutex
	subs map[string]*subscriber
}

type subscriber struct {
	id        string
	conds     []v1.EventCondition
	ch        chan v1.Event
	closed    chan struct{}
	lastAlive time.Time
}

// New builds a Bus backed by repo.
func New(repo Repository, log logging.Logger) *Bus {
	return &Bus{repo: repo, log: log, subs: map[string]*subscriber{}}
}

// Run starts the periodic subscriber health sweep. It blocks until ctx is
// done.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(healthSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

func (b *Bus) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range b.subs {
		select {
		case <-s.closed:
			delete(b.subs, id)
		default:
		}
	}
}

// Emit persists p as a new Event row and broadcasts it to every matching
// subscriber. Persistence happens before broadcast: a subscriber can never
// observe an event the durable log doesn't also have.
func (b *Bus) Emit(ctx context.Context, p v1.EventPartial) (*v1.Event, error) {
	now := time.Now()
	e := v1.Event{
		Key:                  uuid.NewString(),
		CreatedAt:            now,
		ExpiresAt:            now.Add(v1.DefaultEventTTL),
		ReportingNode:        p.ReportingNode,
		ReportingController:  p.ReportingController,
		Kind:                 p.Kind,
		Action:               p.Action,
		Reason:               p.Reason,
		Note:                 p.Note,
		Actor:                p.Actor,
		Related:              p.Related,
		Metadata:             p.Metadata,
	}

	columns := []string{
		"key", "created_at", "expires_at", "reporting_node", "reporting_controller",
		"kind", "action", "reason", "note", "actor", "related", "metadata",
	}
	values := []any{
		e.Key, e.CreatedAt, e.ExpiresAt, e.ReportingNode, e.ReportingController,
		e.Kind, e.Action, e.Reason, e.Note, e.Actor, e.Related, e.Metadata,
	}

	if err := b.repo.CreateFrom(ctx, columns, values, &e); err != nil {
		return nil, xerrors.Wrap(err, "cannot persist event")
	}

	b.broadcast(e)
	return &e, nil
}

func (b *Bus) broadcast(e v1.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if !matchesAny(s.conds, e) {
			continue
		}
		select {
		case s.ch <- e:
			s.lastAlive = time.Now()
		default:
			b.log.Debug("dropping event for slow subscriber", "subscriber", s.id, "event", e.Key)
		}
	}
}

// matchesAny reports whether e satisfies any one of conds — the OR
// semantics EventCondition's doc comment describes. No conditions at all
// matches everything, same as a single zero-value EventCondition would.
func matchesAny(conds []v1.EventCondition, e v1.Event) bool {
	if len(conds) == 0 {
		return true
	}
	for _, cond := range conds {
		if matches(cond, e) {
			return true
		}
	}
	return false
}

// matches reports whether e satisfies cond: every non-empty field of cond
// must match, an empty slice field is a wildcard.
func matches(cond v1.EventCondition, e v1.Event) bool {
	if cond.ActorKey != "" && (e.Actor == nil || e.Actor.Key != cond.ActorKey) {
		return false
	}
	if cond.ActorKind != "" && (e.Actor == nil || e.Actor.Kind != cond.ActorKind) {
		return false
	}
	if cond.RelatedKey != "" && (e.Related == nil || e.Related.Key != cond.RelatedKey) {
		return false
	}
	if len(cond.Kind) > 0 && !containsStr(cond.Kind, string(e.Kind)) {
		return false
	}
	if len(cond.Action) > 0 && !containsStr(cond.Action, e.Action) {
		return false
	}
	return true
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// List returns the persisted events matching f, for the /events REST
// endpoint and for history replay before a watch starts streaming live.
func (b *Bus) List(ctx context.Context, f *v1.GenericFilter) ([]v1.Event, error) {
	rows, err := b.repo.ReadBy(ctx, f)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// EventColumns is the ColumnRegistry for the events table.
var EventColumns = store.ColumnRegistry{
	"key":                   {Type: store.ColumnScalar, Table: "events.key"},
	"kind":                  {Type: store.ColumnScalar, Table: "events.kind"},
	"action":                {Type: store.ColumnScalar, Table: "events.action"},
	"reporting_node":        {Type: store.ColumnScalar, Table: "events.reporting_node"},
	"reporting_controller":  {Type: store.ColumnScalar, Table: "events.reporting_controller"},
	"actor":                 {Type: store.ColumnJSON, Table: "events.actor"},
	"related":               {Type: store.ColumnJSON, Table: "events.related"},
	"metadata":              {Type: store.ColumnJSON, Table: "events.metadata"},
}
