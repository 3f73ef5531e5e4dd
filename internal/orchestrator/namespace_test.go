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

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/store"
)

type fakeNamespaceRepo struct {
	rows map[string]v1.Namespace
}

func newFakeNamespaceRepo() *fakeNamespaceRepo {
	return &fakeNamespaceRepo{rows: map[string]v1.Namespace{}}
}

func (f *fakeNamespaceRepo) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.Namespace) error {
	f.rows[row.Name] = *row
	return nil
}

func (f *fakeNamespaceRepo) ReadByPK(_ context.Context, pk any) (*v1.Namespace, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("namespace", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeNamespaceRepo) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.Namespace, error) {
	var out []v1.Namespace
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeNamespaceRepo) DelByPK(_ context.Context, pk any) error {
	if _, ok := f.rows[pk.(string)]; !ok {
		return store.NotFound("namespace", nil)
	}
	delete(f.rows, pk.(string))
	return nil
}

type fakeNamespaceNetwork struct {
	ensured map[string]bool
	removed map[string]bool
	info    dockerclient.BridgeNetworkInfo
}

func newFakeNamespaceNetwork() *fakeNamespaceNetwork {
	return &fakeNamespaceNetwork{ensured: map[string]bool{}, removed: map[string]bool{}}
}

func (f *fakeNamespaceNetwork) EnsureBridgeNetwork(_ context.Context, name string) (dockerclient.BridgeNetworkInfo, error) {
	f.ensured[name] = true
	return f.info, nil
}

func (f *fakeNamespaceNetwork) InspectNetwork(_ context.Context, _ string) (dockerclient.BridgeNetworkInfo, error) {
	return f.info, nil
}

func (f *fakeNamespaceNetwork) RemoveNetwork(_ context.Context, name string) error {
	f.removed[name] = true
	return nil
}

func TestNamespacesCreateRejectsEmptyName(t *testing.T) {
	n := NewNamespaces(newFakeNamespaceRepo(), nil, newFakeNamespaceNetwork(), nil, nil)
	_, err := n.Create(context.Background(), v1.NamespacePartial{})
	if err == nil {
		t.Fatal("Create(...): want error for empty name")
	}
	if store.KindOf(err) != store.KindBadRequest {
		t.Errorf("Create(...): kind = %v, want BadRequest", store.KindOf(err))
	}
}

func TestNamespacesCreateEnsuresNetworkThenPersists(t *testing.T) {
	repo := newFakeNamespaceRepo()
	network := newFakeNamespaceNetwork()
	notifier := &fakeNotifier{}
	n := NewNamespaces(repo, nil, network, notifier, nil)

	ns, err := n.Create(context.Background(), v1.NamespacePartial{Name: "system"})
	if err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}
	if ns.Name != "system" {
		t.Errorf("Create(...): Name = %q, want system", ns.Name)
	}
	if !network.ensured["system"] {
		t.Error("Create(...): bridge network was never ensured")
	}
	if len(notifier.events) != 1 {
		t.Fatalf("Create(...): emitted %d events, want 1", len(notifier.events))
	}
}

func TestNamespacesInspectJoinsCargoesAndNetwork(t *testing.T) {
	repo := newFakeNamespaceRepo()
	network := newFakeNamespaceNetwork()
	network.info = dockerclient.BridgeNetworkInfo{ID: "net-1", Gateway: "10.1.0.1", Subnet: "10.1.0.0/24"}
	cargoes := newFakeCargoRepoForNamespace()
	cargoes.rows["web"] = v1.Cargo{Name: "web", NamespaceName: "system"}
	n := NewNamespaces(repo, cargoes, network, nil, nil)
	ctx := context.Background()

	if _, err := n.Create(ctx, v1.NamespacePartial{Name: "system"}); err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}

	inspect, err := n.Inspect(ctx, "system")
	if err != nil {
		t.Fatalf("Inspect(...): unexpected error: %v", err)
	}
	if len(inspect.Cargoes) != 1 || inspect.Cargoes[0].Name != "web" {
		t.Errorf("Inspect(...): Cargoes = %+v, want one entry named web", inspect.Cargoes)
	}
	if inspect.Network.Gateway != "10.1.0.1" {
		t.Errorf("Inspect(...): Network.Gateway = %q, want 10.1.0.1", inspect.Network.Gateway)
	}
}

func TestNamespacesDeleteRemovesRowAndNetwork(t *testing.T) {
	repo := newFakeNamespaceRepo()
	network := newFakeNamespaceNetwork()
	notifier := &fakeNotifier{}
	n := NewNamespaces(repo, nil, network, notifier, nil)
	ctx := context.Background()

	if _, err := n.Create(ctx, v1.NamespacePartial{Name: "system"}); err != nil {
		t.Fatalf("Create(...): unexpected error: %v", err)
	}

	if err := n.Delete(ctx, "system"); err != nil {
		t.Fatalf("Delete(...): unexpected error: %v", err)
	}
	if !network.removed["system"] {
		t.Error("Delete(...): bridge network was never removed")
	}
	if _, err := n.Inspect(ctx, "system"); store.KindOf(err) != store.KindNotFound {
		t.Error("Delete(...): namespace row still present after delete")
	}
	if len(notifier.events) != 2 {
		t.Fatalf("Delete(...): total emitted events = %d, want 2 (create+destroy)", len(notifier.events))
	}
}

// fakeCargoRepoForNamespace is a map-backed CargoRepository fake, named for
// the Namespaces.Inspect test that introduced it but shared by cargo_test.go
// too, since both need the same full CRUD surface.
type fakeCargoRepoForNamespace struct {
	rows map[string]v1.Cargo
}

func newFakeCargoRepoForNamespace() *fakeCargoRepoForNamespace {
	return &fakeCargoRepoForNamespace{rows: map[string]v1.Cargo{}}
}

func (f *fakeCargoRepoForNamespace) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.Cargo) error {
	f.rows[row.Key] = *row
	return nil
}

func (f *fakeCargoRepoForNamespace) ReadByPK(_ context.Context, pk any) (*v1.Cargo, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("cargo", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeCargoRepoForNamespace) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.Cargo, error) {
	var out []v1.Cargo
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeCargoRepoForNamespace) UpdatePK(_ context.Context, pk any, columns []string, values []any) (*v1.Cargo, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("cargo", nil)
	}
	for i, c := range columns {
		if c == "spec_key" {
			row.SpecKey = values[i].(string)
		}
	}
	f.rows[pk.(string)] = row
	cp := row
	return &cp, nil
}

func (f *fakeCargoRepoForNamespace) DelByPK(_ context.Context, pk any) error {
	delete(f.rows, pk.(string))
	return nil
}
