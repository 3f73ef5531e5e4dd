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

// Package reconciler drives a cargo/VM/job's containers towards its wanted
// state (outbound: pull, create, start, stop, remove) and folds the docker
// daemon's own event stream back into each object's observed aggregate
// status (inbound). The two halves share nothing but the docker client and
// the process repository; outbound never waits for inbound to confirm a
// transition, it only kicks it off.
package reconciler

import (
	"context"
	"fmt"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/objstatus"
)

// ProcessRepository is the subset of store.Repository[v1.Process] the
// reconciler needs.
type ProcessRepository interface {
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Process, error)
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Process) error
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.Process, error)
	DelByPK(ctx context.Context, pk any) error
}

// Notifier is implemented by internal/eventbus.Bus; kept as an interface,
// same shape as objstatus.Notifier, so the reconciler has no import-time
// dependency on eventbus.
type Notifier interface {
	Emit(ctx context.Context, p v1.EventPartial) (*v1.Event, error)
}

// Reconciler converges one object's containers to its wanted state and
// folds docker events back into its observed status.
type Reconciler struct {
	docker    *dockerclient.Client
	processes ProcessRepository
	status    *objstatus.Manager
	events    Notifier
	log       logging.Logger
}

// New builds a Reconciler. events may be nil, in which case convergence and
// ingestion still run but emit no events (used by tests).
func New(docker *dockerclient.Client, processes ProcessRepository, status *objstatus.Manager, events Notifier, log logging.Logger) *Reconciler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Reconciler{docker: docker, processes: processes, status: status, events: events, log: log}
}

// emit pushes a process-kind event: actor.kind=process, actor.key=the
// container ID the event is about. This is the raw-docker-observation
// channel spec.md §4.5's inbound ingester describes, distinct from the
// cargo/vm/job-level status-transition events objstatus.Manager emits.
func (r *Reconciler) emit(ctx context.Context, kind v1.EventKind, action, containerID string, related *v1.Actor, note string) {
	if r.events == nil {
		return
	}
	_, _ = r.events.Emit(ctx, v1.EventPartial{
		Kind:    kind,
		Action:  action,
		Actor:   &v1.Actor{Key: containerID, Kind: string(v1.KindProcess)},
		Related: related,
		Note:    note,
	})
}

// Target is everything Converge needs about the object being reconciled.
type Target struct {
	Key             string // e.g. "web.global" for a cargo, "migrate-2026-01" for a job run
	Kind            v1.ObjKind
	NodeName        string
	Spec            v1.ContainerSpec
	Replicas        int // 1 for a VM or job container, N for a cargo
	ImagePullPolicy v1.ImagePullPolicy
	Wanted          v1.ProcessState
}

// Converge drives t's containers towards t.Wanted. It is idempotent: calling
// it repeatedly with the same Target converges to the same end state without
// creating duplicate containers, because it first lists what's already
// running under t.Key.
func (r *Reconciler) Converge(ctx context.Context, t Target) error {
	switch t.Wanted {
	case v1.StateDeleting, v1.StateDelete:
		return r.teardown(ctx, t)
	case v1.StateStopped:
		return r.stop(ctx, t)
	default:
		return r.converge(ctx, t)
	}
}

func (r *Reconciler) converge(ctx context.Context, t Target) error {
	existing, err := r.docker.ListByKey(ctx, t.Key)
	if err != nil {
		return xerrors.Wrapf(err, "cannot list containers for %s", t.Key)
	}

	want := t.Replicas
	if want <= 0 {
		want = 1
	}

	owner := &v1.Actor{Key: t.Key, Kind: string(t.Kind)}

	for i := len(existing); i < want; i++ {
		name := fmt.Sprintf("%s-%d", sanitizeName(t.Key), i)

		// The container doesn't exist yet, so the progress/terminal image
		// events below are keyed by its would-be name rather than a
		// container ID — spec.md §4.5 step 2's "emitting Downloading
		// progress events and a terminal Download event (or Error)" around
		// ensuring the image is present, before `docker create` ever runs.
		r.emit(ctx, v1.EventNormal, v1.ActionDownloading, name, owner, t.Spec.Image)
		id, err := r.docker.Create(ctx, dockerclient.CreateOptions{
			Name:            name,
			Spec:            t.Spec,
			ImagePullPolicy: t.ImagePullPolicy,
			KindLabels: map[string]string{
				dockerclient.LabelKind:    string(t.Kind),
				dockerclient.LabelKindKey: t.Key,
				dockerclient.LabelNode:    t.NodeName,
			},
		})
		if err != nil {
			r.emit(ctx, v1.EventError, v1.ActionError, name, owner, err.Error())
			return xerrors.Wrapf(err, "cannot create replica %d for %s", i, t.Key)
		}
		r.emit(ctx, v1.EventNormal, v1.ActionDownload, id, owner, t.Spec.Image)

		if err := r.docker.Start(ctx, id); err != nil {
			r.emit(ctx, v1.EventError, v1.ActionError, id, owner, err.Error())
			return xerrors.Wrapf(err, "cannot start replica %d for %s", i, t.Key)
		}
		r.emit(ctx, v1.EventNormal, v1.ActionStart, id, owner, "")
		r.log.Debug("started replica", "key", t.Key, "container", id)
	}

	for i := want; i < len(existing); i++ {
		if err := r.docker.Remove(ctx, existing[i].ID); err != nil {
			return xerrors.Wrapf(err, "cannot remove excess replica for %s", t.Key)
		}
	}

	return nil
}

func (r *Reconciler) stop(ctx context.Context, t Target) error {
	existing, err := r.docker.ListByKey(ctx, t.Key)
	if err != nil {
		return xerrors.Wrapf(err, "cannot list containers for %s", t.Key)
	}
	for _, ctn := range existing {
		if err := r.docker.Stop(ctx, ctn.ID); err != nil {
			return xerrors.Wrapf(err, "cannot stop container for %s", t.Key)
		}
	}
	return nil
}

func (r *Reconciler) teardown(ctx context.Context, t Target) error {
	existing, err := r.docker.ListByKey(ctx, t.Key)
	if err != nil {
		return xerrors.Wrapf(err, "cannot list containers for %s", t.Key)
	}
	for _, ctn := range existing {
		if err := r.docker.Stop(ctx, ctn.ID); err != nil {
			return xerrors.Wrapf(err, "cannot stop container for %s", t.Key)
		}
		if err := r.docker.Remove(ctx, ctn.ID); err != nil {
			return xerrors.Wrapf(err, "cannot remove container for %s", t.Key)
		}
	}
	return nil
}

func sanitizeName(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
