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

package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// HTTPRuleClient calls a controller's PUT/DELETE /v{version}/rules/{name}
// surface. It satisfies orchestrator.ControllerClient. A controllerURL of
// the form "unix:///run/nanocl/proxy.sock" dials the Unix socket at that
// path instead of a TCP address, matching the controller sockets at
// "/run/nanocl/proxy.sock" and "/run/nanocl/dns.sock"; any other scheme is
// dialed as a normal HTTP(S) URL.
type HTTPRuleClient struct {
	connectTimeout time.Duration
	secret         string
	node           string
}

// ClientOption configures an HTTPRuleClient.
type ClientOption func(*HTTPRuleClient)

// WithHandshakeToken signs every request with a short-lived Bearer token
// for node, verified server-side by WithSharedSecret(secret). Omit it to
// keep talking to a server that has no shared secret configured.
func WithHandshakeToken(secret, node string) ClientOption {
	return func(c *HTTPRuleClient) { c.secret, c.node = secret, node }
}

// NewHTTPRuleClient builds an HTTPRuleClient with a 20 s connect timeout
// for inter-node and controller calls.
func NewHTTPRuleClient(opts ...ClientOption) *HTTPRuleClient {
	c := &HTTPRuleClient{connectTimeout: 20 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ApplyRule issues PUT {controllerURL}/v1/rules/{name} with data as the
// request body.
func (c *HTTPRuleClient) ApplyRule(ctx context.Context, controllerURL, name string, data json.RawMessage) error {
	return c.do(ctx, http.MethodPut, controllerURL, name, data)
}

// RemoveRule issues DELETE {controllerURL}/v1/rules/{name}.
func (c *HTTPRuleClient) RemoveRule(ctx context.Context, controllerURL, name string) error {
	return c.do(ctx, http.MethodDelete, controllerURL, name, nil)
}

func (c *HTTPRuleClient) do(ctx context.Context, method, controllerURL, name string, data json.RawMessage) error {
	requestURL, hc := c.clientFor(controllerURL)

	var body *bytes.Reader
	if data != nil {
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(requestURL, "/")+"/v1/rules/"+name, body)
	if err != nil {
		return errors.Wrap(err, "cannot build controller request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		token, err := signToken(c.secret, c.node)
		if err != nil {
			return errors.Wrap(err, "cannot sign controller handshake token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "cannot reach controller at %s", controllerURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e struct {
			Msg string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Msg == "" {
			e.Msg = resp.Status
		}
		return errors.Errorf("controller rejected rule %s: %s", name, e.Msg)
	}
	return nil
}

// clientFor returns the URL to request against and an *http.Client dialed
// appropriately for it: a Unix socket transport for "unix://" URLs, the
// shared default otherwise.
func (c *HTTPRuleClient) clientFor(controllerURL string) (string, *http.Client) {
	const prefix = "unix://"
	if !strings.HasPrefix(controllerURL, prefix) {
		return controllerURL, &http.Client{Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: c.connectTimeout}).DialContext,
		}}
	}

	sockPath := strings.TrimPrefix(controllerURL, prefix)
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return (&net.Dialer{Timeout: c.connectTimeout}).DialContext(ctx, "unix", sockPath)
		},
	}
	return "http://unix", &http.Client{Transport: transport}
}
