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

// VMImageKind distinguishes a base disk image from a per-VM snapshot cloned
// from one.
type VMImageKind string

// Supported VM image kinds.
const (
	VMImageBase     VMImageKind = "Base"
	VMImageSnapshot VMImageKind = "Snapshot"
)

// VMSpecData is the JSON payload stored in a VM's current Spec.Data.
type VMSpecData struct {
	Name          string `json:"Name"`
	Image         string `json:"Image"`
	KVM           bool   `json:"Kvm,omitempty"`
	CPU           int    `json:"Cpu"`
	MemoryMB      int    `json:"Memory"`
	NetIface      string `json:"NetIface,omitempty"`
	LinkNetIface  string `json:"LinkNetIface,omitempty"`
	User          string `json:"User,omitempty"`
	Password      string `json:"Password,omitempty"`
	SSHKey        string `json:"SshKey,omitempty"`
	RuntimeNetwork string `json:"RuntimeNetwork,omitempty"`
}

// VM is a single QEMU-in-container workload, key = "{name}.{namespace}".
type VM struct {
	Key           string    `json:"Key" db:"key"`
	Name          string    `json:"Name" db:"name"`
	NamespaceName string    `json:"NamespaceName" db:"namespace_name"`
	SpecKey       string    `json:"SpecKey" db:"spec_key"`
	StatusKey     string    `json:"StatusKey" db:"status_key"`
	CreatedAt     time.Time `json:"CreatedAt" db:"created_at"`
}

// VMInspect joins a VM with its current spec, status and disk path.
type VMInspect struct {
	VM
	Spec      VMSpecData  `json:"Spec"`
	Status    ObjPsStatus `json:"Status"`
	DiskPath  string      `json:"DiskPath"`
	Processes []Process   `json:"Processes"`
}

// VMImage is a base or per-VM snapshot disk tracked under
// {state_dir}/vms/images.
type VMImage struct {
	Name      string      `json:"Name" db:"name"`
	Kind      VMImageKind `json:"Kind" db:"kind"`
	Path      string      `json:"Path" db:"path"`
	SizeBytes int64       `json:"SizeBytes" db:"size_bytes"`
	CreatedAt time.Time   `json:"CreatedAt" db:"created_at"`
}
