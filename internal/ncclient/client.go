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

// Package ncclient is a thin HTTP client against the daemon's own REST API,
// used by out-of-process controllers (ncproxy, ncdns) that have no direct
// store or docker access of their own: a controller is itself just another
// cargo, so it reaches the daemon the same way any other API client does.
package ncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/controller"
	"github.com/nanocl-dev/nanocl/internal/controller/dns"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// apiVersion is the daemon's compiled API version this client targets.
const apiVersion = "1"

// systemNamespace is the namespace that hosts the daemon's own system
// cargoes (ncproxy, ncdns); its bridge gateway is the address a Public rule
// should bind to, since the host itself has no other network identity a
// cargo can resolve to.
const systemNamespace = "system"

// Client satisfies proxy.GatewayResolver, proxy.HostGateway and
// dns.DaemonClient against the daemon's REST API, dialing a Unix socket for
// "unix://" daemon hosts the same way controller.HTTPRuleClient does for
// controller sockets.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New builds a Client against daemonHost, e.g.
// "unix:///run/nanocl/nanocl.sock" or "https://nanocld.example.com".
func New(daemonHost string) *Client {
	const prefix = "unix://"
	if !strings.HasPrefix(daemonHost, prefix) {
		return &Client{baseURL: strings.TrimRight(daemonHost, "/"), hc: &http.Client{
			Transport: &http.Transport{DialContext: (&net.Dialer{Timeout: 20 * time.Second}).DialContext},
		}}
	}
	sockPath := strings.TrimPrefix(daemonHost, prefix)
	return &Client{baseURL: "http://unix", hc: &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{Timeout: 20 * time.Second}).DialContext(ctx, "unix", sockPath)
			},
		},
	}}
}

// NamespaceGateway returns namespace's bridge network gateway. Implements
// proxy.GatewayResolver and dns.DaemonClient.
func (c *Client) NamespaceGateway(ctx context.Context, namespace string) (string, error) {
	var inspect v1.NamespaceInspect
	if err := c.getJSON(ctx, "/v"+apiVersion+"/namespaces/"+namespace+"/inspect", &inspect); err != nil {
		return "", err
	}
	return inspect.Network.Gateway, nil
}

// HostGateway returns the address a Public-tagged rule should bind to:
// the system namespace's own bridge gateway, reachable from every other
// namespace's cargoes. Implements proxy.HostGateway and dns.DaemonClient.
func (c *Client) HostGateway(ctx context.Context) (string, error) {
	return c.NamespaceGateway(ctx, systemNamespace)
}

// RestartCargo restarts every process backing namespace/name. Implements
// dns.DaemonClient.
func (c *Client) RestartCargo(ctx context.Context, namespace, name string) error {
	path := "/v" + apiVersion + "/processes/cargo/" + name + "/restart?namespace=" + namespace
	return c.post(ctx, path)
}

// SiblingRules lists every DnsRule resource on network other than
// excludeKey, decoding each one's opaque data. Implements dns.DaemonClient.
func (c *Client) SiblingRules(ctx context.Context, network, excludeKey string) ([]dns.NetworkMember, error) {
	values, err := store.QueryValues(v1.NewFilter().Eq("kind", v1.KindDNSRule))
	if err != nil {
		return nil, err
	}

	var rows []v1.Resource
	if err := c.getJSON(ctx, "/v"+apiVersion+"/resources?"+values.Encode(), &rows); err != nil {
		return nil, err
	}

	var members []dns.NetworkMember
	for _, row := range rows {
		if row.Key == excludeKey {
			continue
		}
		var inspect v1.ResourceInspect
		if err := c.getJSON(ctx, "/v"+apiVersion+"/resources/"+row.Key+"/inspect", &inspect); err != nil {
			return nil, err
		}
		var data dns.Data
		if err := json.Unmarshal(inspect.Data, &data); err != nil {
			continue
		}
		if data.Network != network {
			continue
		}
		members = append(members, dns.NetworkMember{Key: row.Key, Data: data})
	}
	return members, nil
}

// RegisterKind posts name's resource kind spec to the daemon's
// POST /v1/resource/kinds endpoint. Implements controller.KindRegistrar for
// an out-of-process controller, the HTTP-based counterpart to the
// in-process orchestrator.ResourceKinds.Create the daemon itself calls
// directly.
func (c *Client) RegisterKind(ctx context.Context, name, socketURL string) error {
	data, err := controller.KindSpecData(socketURL)
	if err != nil {
		return err
	}
	body, err := json.Marshal(struct {
		Name string          `json:"Name"`
		Data json.RawMessage `json:"Data"`
	}{Name: name, Data: data})
	if err != nil {
		return xerrors.Wrap(err, "cannot marshal resource kind registration")
	}
	return c.postJSON(ctx, "/v"+apiVersion+"/resource/kinds", body)
}

// PostMetric submits p to the daemon's POST /v1/metrics endpoint.
// Implements proxy.MetricPoster, used by AccessLogTailer to report
// ncproxy.io/http and ncproxy.io/stream samples from outside the daemon
// process.
func (c *Client) PostMetric(ctx context.Context, p v1.MetricPartial) error {
	body, err := json.Marshal(p)
	if err != nil {
		return xerrors.Wrap(err, "cannot marshal metric")
	}
	return c.postJSON(ctx, "/v"+apiVersion+"/metrics", body)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return xerrors.Wrap(err, "cannot build daemon request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "cannot reach daemon at %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return xerrors.Errorf("daemon request %s failed: %s", path, resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return xerrors.Wrap(err, "cannot build daemon request")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "cannot reach daemon at %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return xerrors.Errorf("daemon request %s failed: %s", path, resp.Status)
	}
	return xerrors.Wrap(json.NewDecoder(resp.Body).Decode(out), "cannot decode daemon response")
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return xerrors.Wrap(err, "cannot build daemon request")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "cannot reach daemon at %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return xerrors.Errorf("daemon request %s failed: %s", path, resp.Status)
	}
	return nil
}
