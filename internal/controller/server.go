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

// Package controller implements the shared side of the tiny HTTP surface
// every rule controller (ncproxy, ncdns) exposes over its Unix domain
// socket: install/replace a rule with PUT, remove it with
// DELETE. internal/controller/proxy and internal/controller/dns plug their
// own RuleApplier into this shared server; HTTPRuleClient in client.go is
// the core's own caller of that same protocol.
package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// Version is the rule protocol version every controller socket and
// HTTPRuleClient call speaks, matching internal/api's own compiled
// version since both surfaces evolve together.
const Version = "1"

// RuleApplier installs, replaces or removes a named rule. ncproxy and ncdns
// each implement this against their own config-rendering logic.
type RuleApplier interface {
	Apply(ctx context.Context, name string, data json.RawMessage) error
	Remove(ctx context.Context, name string) error
}

// errMsg is the uniform error body shape used across the core API and the
// controller sockets.
type errMsg struct {
	Msg string `json:"msg"`
}

// NewRuleServer builds the chi router a controller listens on. version is
// the compiled protocol version accepted in the route prefix. opts can add
// a shared-secret handshake check via WithSharedSecret; without one, every
// request is accepted, matching the pre-auth behavior the Unix-socket-only
// deployment has always relied on.
func NewRuleServer(version string, applier RuleApplier, log logging.Logger, opts ...ServerOption) http.Handler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return requireToken(cfg.secret, next) })
	r.Put("/v"+version+"/rules/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		body, err := decodeBody(req)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if err := applier.Apply(req.Context(), name, body); err != nil {
			log.Debug("controller rejected rule", "name", name, "error", err)
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Delete("/v"+version+"/rules/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		if err := applier.Remove(req.Context(), name); err != nil {
			log.Debug("controller rejected rule removal", "name", name, "error", err)
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// serverConfig holds NewRuleServer's optional settings.
type serverConfig struct {
	secret string
}

// ServerOption configures NewRuleServer.
type ServerOption func(*serverConfig)

// WithSharedSecret requires every rule request to carry a valid Bearer
// handshake token signed with secret, rejecting anything else with 401.
func WithSharedSecret(secret string) ServerOption {
	return func(c *serverConfig) { c.secret = secret }
}

func decodeBody(req *http.Request) (json.RawMessage, error) {
	defer req.Body.Close()
	var raw json.RawMessage
	if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot decode rule body")
	}
	return raw, nil
}

func writeErr(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errMsg{Msg: err.Error()})
}
