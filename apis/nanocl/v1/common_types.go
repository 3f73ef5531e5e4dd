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

// Metadata is a free-form, user-supplied annotation bag carried by most
// objects. It is opaque to nanocld.
type Metadata map[string]string

// ObjKind enumerates the process-owning object kinds.
type ObjKind string

// Supported object kinds.
const (
	KindCargo ObjKind = "cargo"
	KindVM    ObjKind = "vm"
	KindJob   ObjKind = "job"

	// KindProcess tags events emitted directly from a raw docker container
	// event (die, restart, ...), as opposed to one of the three owning
	// object kinds above, whose events describe an aggregate status
	// transition rather than a single container's runtime signal.
	KindProcess ObjKind = "process"
)

// ImagePullPolicy controls when the reconciler pulls a container's image
// before creating it.
type ImagePullPolicy string

// Supported pull policies.
const (
	PullAlways        ImagePullPolicy = "Always"
	PullIfNotPresent  ImagePullPolicy = "IfNotPresent"
	PullNever         ImagePullPolicy = "Never"
)

// Namespace owns a bridge network in the container runtime and the cargoes
// and VMs created within it.
type Namespace struct {
	Name      string    `json:"Name" db:"name"`
	CreatedAt time.Time `json:"CreatedAt" db:"created_at"`
	Metadata  Metadata  `json:"Metadata,omitempty" db:"metadata"`
}

// NamespacePartial is the client-supplied payload to create a namespace.
type NamespacePartial struct {
	Name     string   `json:"Name"`
	Metadata Metadata `json:"Metadata,omitempty"`
}

// NamespaceInspect is the namespace inspect response: the namespace plus its
// cargoes and network IPAM.
type NamespaceInspect struct {
	Namespace
	Cargoes []CargoSummary `json:"Cargoes"`
	Network NetworkInfo    `json:"Network"`
}

// NetworkInfo describes the bridge network backing a namespace.
type NetworkInfo struct {
	Name    string   `json:"Name"`
	Gateway string   `json:"Gateway"`
	Subnet  string   `json:"Subnet"`
	ID      string   `json:"Id"`
}

// CargoSummary is the short form of a cargo returned embedded in a namespace
// inspect response.
type CargoSummary struct {
	Name      string `json:"Name"`
	Namespace string `json:"Namespace"`
	Replicas  int    `json:"Replicas"`
}

// Spec is a generic, append-only, versioned configuration row. The owning
// object's current Spec is referenced by SpecKey on the owning row.
type Spec struct {
	Key      string          `json:"Key" db:"key"`
	KindName string          `json:"KindName" db:"kind_name"`
	KindKey  string          `json:"KindKey" db:"kind_key"`
	Version  string          `json:"Version" db:"version"`
	Data     json.RawMessage `json:"Data" db:"data"`
	Metadata Metadata        `json:"Metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"CreatedAt" db:"created_at"`
}

// Node is a daemon registration row. Name is its primary key (hostname).
type Node struct {
	Name       string    `json:"Name" db:"name"`
	IPAddress  string    `json:"IpAddress" db:"ip_address"`
	Endpoint   string    `json:"Endpoint" db:"endpoint"`
	Version    string    `json:"Version" db:"version"`
	CreatedAt  time.Time `json:"CreatedAt" db:"created_at"`
	Metadata   Metadata  `json:"Metadata,omitempty" db:"metadata"`
}
