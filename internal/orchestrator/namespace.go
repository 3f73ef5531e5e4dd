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

// Package orchestrator implements the per-kind object lifecycle (C6): create/
// update/delete/inspect for namespaces, cargoes, VMs, jobs, resources,
// resource kinds and secrets, plus kind-specific side effects (bridge
// networks, disk snapshots, cron rules). Every orchestrator is a small
// struct holding only the collaborators it needs: repository, objstatus
// manager, task manager, reconciler, docker client, event bus.
package orchestrator

import (
	"context"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// NamespaceRepository is the subset of store.Repository[v1.Namespace]
// Namespaces needs.
type NamespaceRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Namespace) error
	ReadByPK(ctx context.Context, pk any) (*v1.Namespace, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Namespace, error)
	DelByPK(ctx context.Context, pk any) error
}

// NamespaceNetwork is the docker-facing half of namespace lifecycle:
// internal/dockerclient.Client satisfies it directly.
type NamespaceNetwork interface {
	EnsureBridgeNetwork(ctx context.Context, name string) (dockerclient.BridgeNetworkInfo, error)
	InspectNetwork(ctx context.Context, name string) (dockerclient.BridgeNetworkInfo, error)
	RemoveNetwork(ctx context.Context, name string) error
}

// Namespaces orchestrates namespace create/inspect/delete. A namespace's
// bridge network is named after the namespace itself (see DESIGN.md).
type Namespaces struct {
	repo    NamespaceRepository
	cargoes CargoRepository
	network NamespaceNetwork
	events  Notifier
	log     logging.Logger
}

// NewNamespaces builds a Namespaces orchestrator.
func NewNamespaces(repo NamespaceRepository, cargoes CargoRepository, network NamespaceNetwork, events Notifier, log logging.Logger) *Namespaces {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Namespaces{repo: repo, cargoes: cargoes, network: network, events: events, log: log}
}

// Create inserts the namespace row and ensures its bridge network exists.
func (n *Namespaces) Create(ctx context.Context, p v1.NamespacePartial) (*v1.Namespace, error) {
	if p.Name == "" {
		return nil, store.BadRequest("namespace", errors.New("name is required"))
	}

	if _, err := n.network.EnsureBridgeNetwork(ctx, p.Name); err != nil {
		return nil, errors.Wrapf(err, "cannot create network for namespace %s", p.Name)
	}

	now := time.Now()
	row := v1.Namespace{Name: p.Name, Metadata: p.Metadata, CreatedAt: now}
	columns := []string{"name", "metadata", "created_at"}
	values := []any{row.Name, row.Metadata, row.CreatedAt}
	if err := n.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}

	n.emit(ctx, v1.ActionCreate, p.Name)
	return &row, nil
}

// Inspect joins a namespace with its cargo summaries and network IPAM.
func (n *Namespaces) Inspect(ctx context.Context, name string) (*v1.NamespaceInspect, error) {
	ns, err := n.repo.ReadByPK(ctx, name)
	if err != nil {
		return nil, err
	}

	cargoes, err := n.cargoes.ReadBy(ctx, v1.NewFilter().Eq("namespace_name", name))
	if err != nil {
		return nil, err
	}
	summaries := make([]v1.CargoSummary, len(cargoes))
	for i, c := range cargoes {
		summaries[i] = v1.CargoSummary{Name: c.Name, Namespace: c.NamespaceName}
	}

	info, err := n.network.InspectNetwork(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot inspect network for namespace %s", name)
	}

	return &v1.NamespaceInspect{
		Namespace: *ns,
		Cargoes:   summaries,
		Network:   v1.NetworkInfo{Name: name, Gateway: info.Gateway, Subnet: info.Subnet, ID: info.ID},
	}, nil
}

// List returns namespaces matching f.
func (n *Namespaces) List(ctx context.Context, f *v1.GenericFilter) ([]v1.Namespace, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	return n.repo.ReadBy(ctx, f)
}

// Delete removes the namespace row (cascading to its cargoes/VMs at the
// store level per the FK) and its bridge network. It does not stop or
// remove any containers in the namespace, and the API's namespace delete
// handler calls it directly without tearing them down first.
func (n *Namespaces) Delete(ctx context.Context, name string) error {
	if err := n.repo.DelByPK(ctx, name); err != nil {
		return err
	}
	if err := n.network.RemoveNetwork(ctx, name); err != nil {
		return errors.Wrapf(err, "cannot remove network for namespace %s", name)
	}
	n.emit(ctx, v1.ActionDestroy, name)
	return nil
}

func (n *Namespaces) emit(ctx context.Context, action, name string) {
	if n.events == nil {
		return
	}
	_, _ = n.events.Emit(ctx, v1.EventPartial{
		Kind:   v1.EventNormal,
		Action: action,
		Actor:  &v1.Actor{Key: name, Kind: "namespace"},
	})
}
