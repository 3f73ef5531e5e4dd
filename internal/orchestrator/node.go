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
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// NodeRepository is the subset of store.Repository[v1.Node] the Nodes
// orchestrator needs.
type NodeRepository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Node) error
	ReadByPK(ctx context.Context, pk any) (*v1.Node, error)
	ReadBy(ctx context.Context, f *v1.GenericFilter) ([]v1.Node, error)
	UpdatePK(ctx context.Context, pk any, columns []string, values []any) (*v1.Node, error)
}

// Nodes orchestrates daemon self-registration: a node registers itself at
// startup, creating its row if absent. Nodes are never deleted by the
// daemon itself; removing one from the cluster is an operator action
// outside this package's scope.
type Nodes struct {
	repo NodeRepository
	log  logging.Logger
}

// NewNodes builds a Nodes orchestrator.
func NewNodes(repo NodeRepository, log logging.Logger) *Nodes {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Nodes{repo: repo, log: log}
}

// Register creates the node's row if absent, or refreshes its
// endpoint/version/metadata if it has already registered from a previous
// run (the daemon's own address can change across restarts, e.g. a new
// advertised endpoint after a redeploy).
func (n *Nodes) Register(ctx context.Context, name, ipAddress, endpoint, version string, metadata v1.Metadata) (*v1.Node, error) {
	if name == "" {
		return nil, store.BadRequest("node", errors.New("name is required"))
	}

	if existing, err := n.repo.ReadByPK(ctx, name); err == nil {
		updated, err := n.repo.UpdatePK(ctx, name,
			[]string{"ip_address", "endpoint", "version", "metadata"},
			[]any{ipAddress, endpoint, version, metadata},
		)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot refresh registration for node %s", name)
		}
		n.log.Debug("node re-registered", "node", name)
		return updated, nil
	} else if store.KindOf(err) != store.KindNotFound {
		return nil, err
	}

	row := v1.Node{Name: name, IPAddress: ipAddress, Endpoint: endpoint, Version: version, Metadata: metadata, CreatedAt: time.Now()}
	columns := []string{"name", "ip_address", "endpoint", "version", "metadata", "created_at"}
	values := []any{row.Name, row.IPAddress, row.Endpoint, row.Version, row.Metadata, row.CreatedAt}
	if err := n.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		return nil, err
	}
	n.log.Info("node registered", "node", name)
	return &row, nil
}

// Inspect returns a node's row.
func (n *Nodes) Inspect(ctx context.Context, name string) (*v1.Node, error) {
	return n.repo.ReadByPK(ctx, name)
}

// List returns every registered node.
func (n *Nodes) List(ctx context.Context) ([]v1.Node, error) {
	return n.repo.ReadBy(ctx, v1.NewFilter())
}
