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

package reconciler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/docker/docker/api/types/events"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/pkg/backoff"
)

// ingestReconnectInterval is how long the ingester waits before resubscribing
// to the docker event stream after a disconnect: a fixed, non-exponential
// retry interval.
const ingestReconnectInterval = 2 * time.Second

// Ingest runs the inbound half forever: it subscribes to the docker daemon's
// container events, reconnecting at a fixed interval on disconnect, and for
// every event upserts or removes the corresponding Process row and
// recomputes the owning object's aggregate actual status. It blocks until
// ctx is done.
func (r *Reconciler) Ingest(ctx context.Context) {
	backoff.Forever(ctx, ingestReconnectInterval, func(ctx context.Context) error {
		stream, errs := r.docker.Stream(ctx)

		for {
			select {
			case <-ctx.Done():
				return nil
			case err, ok := <-errs:
				if !ok {
					return nil
				}
				r.log.Info("docker event stream disconnected, reconnecting", "error", err)
				return err
			case ev, ok := <-stream:
				if !ok {
					return nil
				}
				if err := r.handleEvent(ctx, ev); err != nil {
					r.log.Debug("cannot handle docker event", "container", ev.ContainerID, "error", err)
				}
			}
		}
	})
}

func (r *Reconciler) handleEvent(ctx context.Context, ev dockerclient.ContainerEvent) error {
	if ev.KindKey == "" {
		return nil // not one of ours
	}

	owner := &v1.Actor{Key: ev.KindKey, Kind: ev.Kind}

	switch ev.Action {
	case events.ActionDestroy, events.ActionRemove:
		r.emit(ctx, v1.EventNormal, v1.ActionDestroy, ev.ContainerID, owner, "")
		if err := r.processes.DelByPK(ctx, ev.ContainerID); err != nil {
			return err
		}
	default:
		// Every other raw docker action (create, start, stop, die,
		// restart, ...) is emitted verbatim as the event action per
		// spec.md §4.5's inbound ingester, with the container row
		// re-inspected and upserted.
		kind := v1.EventNormal
		if ev.Action == events.ActionDie {
			kind = v1.EventWarning
		}
		r.emit(ctx, kind, string(ev.Action), ev.ContainerID, owner, "")
		if err := r.upsertProcess(ctx, ev); err != nil {
			return err
		}
	}

	return r.recompute(ctx, ev.KindKey, v1.ObjKind(ev.Kind))
}

func (r *Reconciler) upsertProcess(ctx context.Context, ev dockerclient.ContainerEvent) error {
	info, err := r.docker.Inspect(ctx, ev.ContainerID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	now := time.Now()
	row := v1.Process{
		Key:       ev.ContainerID,
		Kind:      v1.ObjKind(ev.Kind),
		KindKey:   ev.KindKey,
		Name:      info.Name,
		NodeName:  ev.NodeName,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.processes.UpdatePK(ctx, ev.ContainerID, []string{"data", "updated_at"}, []any{data, now}); err == nil {
		return nil
	}

	columns := []string{"key", "kind", "kind_key", "name", "node_name", "data", "created_at", "updated_at"}
	values := []any{row.Key, row.Kind, row.KindKey, row.Name, row.NodeName, row.Data, row.CreatedAt, row.UpdatedAt}
	return r.processes.CreateFrom(ctx, columns, values, &row)
}

// recompute reads every live process for kindKey, tallies ProcessStatusCounts
// and pushes the aggregate through objstatus.SetActual. This is the only
// place actual status is derived: it is always recomputed from the full set
// of processes, never incrementally patched from a single event.
func (r *Reconciler) recompute(ctx context.Context, kindKey string, kind v1.ObjKind) error {
	rows, err := r.processes.ReadBy(ctx, v1.NewFilter().Eq("kind_key", kindKey))
	if err != nil {
		return err
	}

	counts := v1.ProcessStatusCounts{}
	for _, p := range rows {
		counts.Total++

		var inspect v1.ProcessInspectData
		if err := json.Unmarshal(p.Data, &inspect); err != nil {
			continue
		}

		switch {
		case inspect.State.Running:
			counts.Running++
		case inspect.State.ExitCode == 0:
			counts.Success++
		default:
			counts.Failed++
		}
	}

	actual := counts.Aggregate()
	_, _, err = r.status.SetActual(ctx, kindKey, actual, &v1.Actor{Key: kindKey, Kind: string(kind)})
	return err
}
