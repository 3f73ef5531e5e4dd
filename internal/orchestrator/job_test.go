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
	"testing"

	"github.com/robfig/cron/v3"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

type fakeJobRepo struct {
	rows map[string]v1.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{rows: map[string]v1.Job{}}
}

func (f *fakeJobRepo) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.Job) error {
	f.rows[row.Key] = *row
	return nil
}

func (f *fakeJobRepo) ReadByPK(_ context.Context, pk any) (*v1.Job, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("job", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeJobRepo) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.Job, error) {
	var out []v1.Job
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeJobRepo) DelByPK(_ context.Context, pk any) error {
	delete(f.rows, pk.(string))
	return nil
}

type fakeCronScheduler struct {
	next    cron.EntryID
	added   map[cron.EntryID]string
	removed []cron.EntryID
}

func newFakeCronScheduler() *fakeCronScheduler {
	return &fakeCronScheduler{added: map[cron.EntryID]string{}}
}

func (f *fakeCronScheduler) AddFunc(spec string, _ func()) (cron.EntryID, error) {
	f.next++
	f.added[f.next] = spec
	return f.next, nil
}

func (f *fakeCronScheduler) Remove(id cron.EntryID) {
	f.removed = append(f.removed, id)
	delete(f.added, id)
}

func newJobsForTest(cronSched CronScheduler) (*Jobs, *fakeJobRepo, *fakeTaskScheduler, *fakeConverger) {
	repo := newFakeJobRepo()
	status := newFakeStatusManager()
	tasks := &fakeTaskScheduler{}
	conv := &fakeConverger{}
	notifier := &fakeNotifier{}
	j := NewJobs(repo, &fakeSpecRepo{}, &fakeProcessRepo{}, status, tasks, conv, cronSched, notifier, "node-a", nil)
	return j, repo, tasks, conv
}

func TestJobsCreateRejectsEmptyName(t *testing.T) {
	j, _, _, _ := newJobsForTest(nil)
	_, err := j.Create(context.Background(), v1.JobSpecData{})
	if err == nil {
		t.Fatal("Create(...): want error for empty name")
	}
	if store.KindOf(err) != store.KindBadRequest {
		t.Errorf("Create(...): kind = %v, want BadRequest", store.KindOf(err))
	}
}

func TestJobsCreateRejectsNoContainers(t *testing.T) {
	j, _, _, _ := newJobsForTest(nil)
	_, err := j.Create(context.Background(), v1.JobSpecData{Name: "migrate"})
	if err == nil {
		t.Fatal("Create(...): want error for a job with no containers")
	}
}

func TestJobsCreateWithoutScheduleNeedsNoCron(t *testing.T) {
	j, repo, _, _ := newJobsForTest(nil)
	job, err := j.Create(context.Background(), v1.JobSpecData{Name: "migrate", Containers: []v1.ContainerSpec{{Image: "migrate:1"}}})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}
	if _, ok := repo.rows[job.Key]; !ok {
		t.Error("Create(...): job row not persisted")
	}
}

func TestJobsCreateRegistersCronSchedule(t *testing.T) {
	sched := newFakeCronScheduler()
	j, _, _, _ := newJobsForTest(sched)
	_, err := j.Create(context.Background(), v1.JobSpecData{
		Name: "nightly-backup", Schedule: "0 2 * * *",
		Containers: []v1.ContainerSpec{{Image: "backup:1"}},
	})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}
	if len(sched.added) != 1 {
		t.Fatalf("Create(...): registered %d cron entries, want 1", len(sched.added))
	}
}

func TestJobsStartConvergesOneTargetPerContainer(t *testing.T) {
	j, _, tasks, conv := newJobsForTest(nil)
	ctx := context.Background()
	_, err := j.Create(ctx, v1.JobSpecData{
		Name: "migrate",
		Containers: []v1.ContainerSpec{
			{Image: "step-one:1"},
			{Image: "step-two:1"},
		},
	})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}

	if err := j.Start(ctx, "migrate"); err != nil {
		t.Fatalf("Start(...): unexpected error: %v", err)
	}
	if len(tasks.ran) != 1 {
		t.Fatalf("Start(...): scheduled %d tasks, want 1", len(tasks.ran))
	}
	if len(conv.converged) != 2 {
		t.Fatalf("Start(...): converged %d targets, want 2 (one per container)", len(conv.converged))
	}
	if conv.converged[0].Key == conv.converged[1].Key {
		t.Error("Start(...): both containers converged under the same sub-key")
	}

	inspect, err := j.Inspect(ctx, "migrate")
	if err != nil {
		t.Fatalf("Inspect(...): unexpected error: %v", err)
	}
	if inspect.Status.Actual != v1.StateFinish {
		t.Errorf("Inspect(...): Status.Actual = %q, want finish after converge", inspect.Status.Actual)
	}
}

func TestJobsDeleteUnregistersCronAndRemovesRow(t *testing.T) {
	sched := newFakeCronScheduler()
	j, repo, _, _ := newJobsForTest(sched)
	ctx := context.Background()
	_, err := j.Create(ctx, v1.JobSpecData{
		Name: "nightly-backup", Schedule: "0 2 * * *",
		Containers: []v1.ContainerSpec{{Image: "backup:1"}},
	})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}

	if err := j.Delete(ctx, "nightly-backup"); err != nil {
		t.Fatalf("Delete(...): unexpected error: %v", err)
	}
	if len(sched.removed) != 1 {
		t.Fatalf("Delete(...): removed %d cron entries, want 1", len(sched.removed))
	}
	if _, ok := repo.rows["nightly-backup"]; ok {
		t.Error("Delete(...): job row still present after delete task ran")
	}
}
