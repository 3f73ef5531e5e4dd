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

// Secret is opaque key material or credentials. Immutable secrets reject
// patches.
type Secret struct {
	Key       string          `json:"Key" db:"key"`
	Kind      string          `json:"Kind" db:"kind"`
	Immutable bool            `json:"Immutable" db:"immutable"`
	Data      json.RawMessage `json:"Data" db:"data"`
	Metadata  Metadata        `json:"Metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"CreatedAt" db:"created_at"`
	UpdatedAt time.Time       `json:"UpdatedAt" db:"updated_at"`
}

// SecretPartial is the client-supplied payload to create a secret.
type SecretPartial struct {
	Key       string          `json:"Key"`
	Kind      string          `json:"Kind"`
	Immutable bool            `json:"Immutable,omitempty"`
	Data      json.RawMessage `json:"Data"`
	Metadata  Metadata        `json:"Metadata,omitempty"`
}

// SecretUpdate is the client-supplied payload to patch a mutable secret.
type SecretUpdate struct {
	Data     json.RawMessage `json:"Data,omitempty"`
	Metadata Metadata        `json:"Metadata,omitempty"`
}
