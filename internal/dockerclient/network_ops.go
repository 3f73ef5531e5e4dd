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

package dockerclient

import (
	"context"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// BridgeNetworkInfo is the subset of a bridge network's inspect data the
// namespace orchestrator needs to report on a namespace's IPAM.
type BridgeNetworkInfo struct {
	ID      string
	Gateway string
	Subnet  string
}

// EnsureBridgeNetwork creates a bridge network named name if it doesn't
// already exist, and returns its info either way. Network creation is
// idempotent: namespace create may run more than once against the same
// name (retries, daemon restart) without erroring.
func (c *Client) EnsureBridgeNetwork(ctx context.Context, name string) (BridgeNetworkInfo, error) {
	if info, err := c.InspectNetwork(ctx, name); err == nil {
		return info, nil
	}

	_, err := c.api.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		return BridgeNetworkInfo{}, errors.Wrapf(err, "cannot create network %s", name)
	}
	return c.InspectNetwork(ctx, name)
}

// InspectNetwork returns name's ID and IPAM config.
func (c *Client) InspectNetwork(ctx context.Context, name string) (BridgeNetworkInfo, error) {
	info, err := c.api.NetworkInspect(ctx, name, network.InspectOptions{})
	if err != nil {
		return BridgeNetworkInfo{}, errors.Wrapf(err, "cannot inspect network %s", name)
	}

	out := BridgeNetworkInfo{ID: info.ID}
	if len(info.IPAM.Config) > 0 {
		out.Gateway = info.IPAM.Config[0].Gateway
		out.Subnet = info.IPAM.Config[0].Subnet
	}
	return out, nil
}

// RemoveNetwork removes name. Removing an already-absent network is a
// no-op, matching the rest of Client's remove semantics.
func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	err := c.api.NetworkRemove(ctx, name)
	if errdefs.IsNotFound(err) {
		return nil
	}
	return errors.Wrapf(err, "cannot remove network %s", name)
}
