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
	"context"
	"encoding/json"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// KindRegistrar is the daemon-side call a controller makes at boot to
// register the ResourceKind it owns: creating it if absent, updating it
// if already present. orchestrator.ResourceKinds already implements
// Create as create-or-update, so the in-process daemon can satisfy this
// directly; a standalone controller process instead calls it over the
// core's own REST API (POST /resource/kinds).
type KindRegistrar interface {
	RegisterKind(ctx context.Context, name, socketURL string) error
}

// Handshake registers kind against socketURL, the controller's own Unix
// socket address, so the core knows where to forward Resource
// create/update/delete calls for it.
func Handshake(ctx context.Context, registrar KindRegistrar, kind, socketURL string) error {
	if err := registrar.RegisterKind(ctx, kind, socketURL); err != nil {
		return errors.Wrapf(err, "cannot register controller kind %s", kind)
	}
	return nil
}

// KindSpecData builds the ResourceKindSpecData JSON a RegisterKind call
// sends as the kind's spec.
func KindSpecData(socketURL string) (json.RawMessage, error) {
	data := v1.ResourceKindSpecData{URL: socketURL}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal resource kind spec")
	}
	return raw, nil
}
