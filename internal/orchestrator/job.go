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

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/reconciler"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// JobRepository is the subset of store.Repository[v1.Job] the Jobs
// orchestrator needs.
type JobRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Job) error
	ReadByPK(ctx context.Context, pk any) (*v1.Job, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Job, error)
	DelByPK(ctx context.Context, pk any) error
}

// CronScheduler is the subset of *cron.Cron the Jobs orchestrator uses to
// register and unregister a job's schedule.
type CronScheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Remove(id cron.EntryID)
}

// Jobs orchestrates finite, run-to-completion container sets, optionally
// triggered on a cron schedule. A job's key is its name: there is no
// separate namespace scoping for jobs.
type Jobs struct {
	repo   JobRepository
	specs  SpecRepository
	procs  ProcessRepository
	status StatusManager
	tasks  TaskScheduler
	conv   Converger
	cron   CronScheduler
	events Notifier
	node   string
	log    logging.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewJobs builds a Jobs orchestrator. cronSched may be nil if no job in the
// store ever declares a schedule (tests commonly pass nil).
func NewJobs(repo JobRepository, specs SpecRepository, procs ProcessRepository, status StatusManager, tasks TaskScheduler, conv Converger, cronSched CronScheduler, events Notifier, node string, log logging.Logger) *Jobs {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Jobs{
		repo: repo, specs: specs, procs: procs, status: status, tasks: tasks, conv: conv,
		cron: cronSched, events: events, node: node, log: log, entries: map[string]cron.EntryID{},
	}
}

// Create inserts a job's spec and status, and registers its cron schedule if
// one is declared.
func (j *Jobs) Create(ctx context.Context, p v1.JobSpecData) (*v1.Job, error) {
	if p.Name == "" {
		return nil, store.BadRequest("job", errors.New("name is required"))
	}
	if len(p.Containers) == 0 {
		return nil, store.BadRequest("job", errors.New("at least one container is required"))
	}
	key := p.Name

	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal job spec")
	}
	spec := v1.Spec{Key: uuid.NewString(), KindName: "Job", KindKey: key, Version: "1", Data: data, CreatedAt: time.Now()}
	specColumns := []string{"key", "kind_name", "kind_key", "version", "data", "created_at"}
	specValues := []any{spec.Key, spec.KindName, spec.KindKey, spec.Version, []byte(spec.Data), spec.CreatedAt}
	if err := j.specs.CreateFrom(ctx, specColumns, specValues, &spec); err != nil {
		return nil, errors.Wrapf(err, "cannot write spec for job %s", key)
	}

	if _, err := j.status.Create(ctx, key, v1.StateCreated); err != nil {
		return nil, errors.Wrapf(err, "cannot create status for job %s", key)
	}

	now := time.Now()
	row := v1.Job{Key: key, SpecKey: spec.Key, StatusKey: key, CreatedAt: now}
	columns := []string{"key", "spec_key", "status_key", "created_at"}
	values := []any{row.Key, row.SpecKey, row.StatusKey, row.CreatedAt}
	if err := j.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}

	if p.Schedule != "" {
		if err := j.registerSchedule(key, p.Schedule); err != nil {
			return nil, errors.Wrapf(err, "cannot register schedule for job %s", key)
		}
	}

	j.emit(ctx, v1.ActionCreate, key)
	return &row, nil
}

// registerSchedule installs a cron entry that starts key each time its
// schedule fires, using cron.ParseStandard syntax.
func (j *Jobs) registerSchedule(key, schedule string) error {
	if j.cron == nil {
		return errors.New("no cron scheduler configured")
	}
	id, err := j.cron.AddFunc(schedule, func() {
		if err := j.Start(context.Background(), key); err != nil {
			j.log.Debug("cannot start job on schedule", "job", key, "error", err)
		}
	})
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.entries[key] = id
	j.mu.Unlock()
	return nil
}

func (j *Jobs) unregisterSchedule(key string) {
	j.mu.Lock()
	id, ok := j.entries[key]
	delete(j.entries, key)
	j.mu.Unlock()
	if ok && j.cron != nil {
		j.cron.Remove(id)
	}
}

// Inspect joins a job with its spec, aggregate status and child processes.
func (j *Jobs) Inspect(ctx context.Context, name string) (*v1.JobInspect, error) {
	row, err := j.repo.ReadByPK(ctx, name)
	if err != nil {
		return nil, err
	}

	spec, err := j.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return nil, err
	}
	var data v1.JobSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal job spec")
	}

	status, err := j.status.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	procs, err := j.procs.ReadBy(ctx, v1.NewFilter().Eq("kind_key", name))
	if err != nil {
		return nil, err
	}

	return &v1.JobInspect{Job: *row, Spec: data, Status: *status, Processes: procs}, nil
}

// Start runs every container in the job's spec to completion. Each container
// gets its own converge sub-key, since a job's containers need not share an
// image or command the way a cargo's replicas do.
func (j *Jobs) Start(ctx context.Context, name string) error {
	row, err := j.repo.ReadByPK(ctx, name)
	if err != nil {
		return err
	}
	spec, err := j.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return err
	}
	var data v1.JobSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return errors.Wrap(err, "cannot unmarshal job spec")
	}

	if _, _, err := j.status.SetWanted(ctx, name, v1.StateRunning, &v1.Actor{Key: name, Kind: string(v1.KindJob)}); err != nil {
		return err
	}
	if _, _, err := j.status.SetActual(ctx, name, v1.StateStarting, &v1.Actor{Key: name, Kind: string(v1.KindJob)}); err != nil {
		return err
	}

	j.tasks.Add(name, func(taskCtx context.Context) error {
		for i, container := range data.Containers {
			sub := fmt.Sprintf("%s.%d", name, i)
			err := j.conv.Converge(taskCtx, reconciler.Target{
				Key: sub, Kind: v1.KindJob, NodeName: j.node,
				Spec: container, Replicas: 1, ImagePullPolicy: v1.PullIfNotPresent, Wanted: v1.StateRunning,
			})
			if err != nil {
				return errors.Wrapf(err, "cannot run container %d for job %s", i, name)
			}
		}
		_, _, err := j.status.SetActual(taskCtx, name, v1.StateFinish, &v1.Actor{Key: name, Kind: string(v1.KindJob)})
		return err
	}, j.onTaskError(name))

	return nil
}

// List returns jobs matching f.
func (j *Jobs) List(ctx context.Context, f *v1.GenericFilter) ([]v1.Job, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	return j.repo.ReadBy(ctx, f)
}

// Delete unregisters the job's cron entry, tears down its containers, and
// removes its store rows.
func (j *Jobs) Delete(ctx context.Context, name string) error {
	row, err := j.repo.ReadByPK(ctx, name)
	if err != nil {
		return err
	}
	spec, err := j.specs.ReadByPK(ctx, row.SpecKey)
	if err != nil {
		return err
	}
	var data v1.JobSpecData
	if err := json.Unmarshal(spec.Data, &data); err != nil {
		return errors.Wrap(err, "cannot unmarshal job spec")
	}

	j.unregisterSchedule(name)

	if _, _, err := j.status.SetWanted(ctx, name, v1.StateDelete, &v1.Actor{Key: name, Kind: string(v1.KindJob)}); err != nil {
		return err
	}

	j.tasks.Add(name, func(taskCtx context.Context) error {
		for i := range data.Containers {
			sub := fmt.Sprintf("%s.%d", name, i)
			if err := j.conv.Converge(taskCtx, reconciler.Target{Key: sub, Kind: v1.KindJob, NodeName: j.node, Wanted: v1.StateDelete}); err != nil {
				return err
			}
		}
		if err := j.status.Delete(taskCtx, name); err != nil {
			return err
		}
		return j.repo.DelByPK(taskCtx, name)
	}, j.onTaskError(name))

	return nil
}

func (j *Jobs) onTaskError(key string) func(string, error) {
	return func(_ string, err error) {
		j.log.Debug("job task failed", "key", key, "error", err)
		_, _, _ = j.status.SetActual(context.Background(), key, v1.StateFailed, &v1.Actor{Key: key, Kind: string(v1.KindJob)})
	}
}

func (j *Jobs) emit(ctx context.Context, action, key string) {
	if j.events == nil {
		return
	}
	_, _ = j.events.Emit(ctx, v1.EventPartial{Kind: v1.EventNormal, Action: action, Actor: &v1.Actor{Key: key, Kind: string(v1.KindJob)}})
}
