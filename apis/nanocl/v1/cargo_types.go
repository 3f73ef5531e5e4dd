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

import "time"

// ContainerSpec is the container template shared by cargo replicas, VM
// instances and job containers. It is a deliberately thin mirror of the
// fields the reconciler needs to call the container runtime; it is not a
// full docker API passthrough.
type ContainerSpec struct {
	Image      string            `json:"Image"`
	Cmd        []string          `json:"Cmd,omitempty"`
	Entrypoint []string          `json:"Entrypoint,omitempty"`
	Env        []string          `json:"Env,omitempty"`
	Labels     map[string]string `json:"Labels,omitempty"`
	Binds      []string          `json:"Binds,omitempty"`
	NetworkMode string           `json:"NetworkMode,omitempty"`
	Privileged bool              `json:"Privileged,omitempty"`
}

// CargoSpecData is the JSON payload stored in a Cargo's current Spec.Data.
type CargoSpecData struct {
	Name            string          `json:"Name"`
	Container       ContainerSpec   `json:"Container"`
	Replicas        int             `json:"Replicas"`
	ImagePullPolicy ImagePullPolicy `json:"ImagePullPolicy,omitempty"`
}

// Cargo is a replicated container group, key = "{name}.{namespace}".
type Cargo struct {
	Key           string    `json:"Key" db:"key"`
	Name          string    `json:"Name" db:"name"`
	NamespaceName string    `json:"NamespaceName" db:"namespace_name"`
	SpecKey       string    `json:"SpecKey" db:"spec_key"`
	StatusKey     string    `json:"StatusKey" db:"status_key"`
	CreatedAt     time.Time `json:"CreatedAt" db:"created_at"`
}

// CargoInspect joins a Cargo with its current spec and status for API
// responses.
type CargoInspect struct {
	Cargo
	Spec     CargoSpecData `json:"Spec"`
	Status   ObjPsStatus   `json:"Status"`
	Processes []Process    `json:"Processes"`
}
