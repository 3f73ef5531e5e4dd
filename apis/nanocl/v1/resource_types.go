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

package v1

import (
	"encoding/json"
	"time"
)

// ResourceKindSpecData is the JSON payload of a ResourceKind's current spec.
// Url is the sole contract between the core and the controller that owns
// this kind: see DESIGN.md "Controller coupling".
type ResourceKindSpecData struct {
	Schema json.RawMessage `json:"Schema,omitempty"`
	URL    string          `json:"Url,omitempty"`
}

// ResourceKind declares the controller URL a Resource's data is delegated
// to. Name must match "<domain>/<name>".
type ResourceKind struct {
	Name      string    `json:"Name" db:"name"`
	SpecKey   string    `json:"SpecKey" db:"spec_key"`
	CreatedAt time.Time `json:"CreatedAt" db:"created_at"`
}

// ResourceKindInspect is a ResourceKind plus the list of its spec versions.
type ResourceKindInspect struct {
	ResourceKind
	Versions []Spec `json:"Versions"`
}

// ResourcePartial is the client-supplied payload to create/update a
// resource. Data is opaque to nanocld; it is handed verbatim to the
// controller registered on Kind.
type ResourcePartial struct {
	Name string          `json:"Name"`
	Kind string          `json:"Kind"`
	Data json.RawMessage `json:"Data"`
}

// Resource is opaque configuration whose semantics are delegated to a
// controller.
type Resource struct {
	Key       string    `json:"Key" db:"key"`
	Kind      string    `json:"Kind" db:"kind"`
	SpecKey   string    `json:"SpecKey" db:"spec_key"`
	CreatedAt time.Time `json:"CreatedAt" db:"created_at"`
}

// ResourceInspect joins a Resource with its current spec data.
type ResourceInspect struct {
	Resource
	Data json.RawMessage `json:"Data"`
}

// Well-known first-party resource kinds, auto-registered at controller boot
// per DESIGN.md "Controller coupling".
const (
	KindDNSRule   = "DnsRule"
	KindProxyRule = "ProxyRule"
)
