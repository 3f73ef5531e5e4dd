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

package store

// Column registries for every entity besides events (internal/eventbus owns
// EventColumns, since the event log is that package's table to manage).
// Each mirrors migrations/00001_init.sql's column set for its table.

// NamespaceColumns is the ColumnRegistry for the namespaces table.
var NamespaceColumns = ColumnRegistry{
	"name":       {Type: ColumnScalar, Table: "namespaces.name"},
	"metadata":   {Type: ColumnJSON, Table: "namespaces.metadata"},
	"created_at": {Type: ColumnScalar, Table: "namespaces.created_at"},
}

// NodeColumns is the ColumnRegistry for the nodes table.
var NodeColumns = ColumnRegistry{
	"name":       {Type: ColumnScalar, Table: "nodes.name"},
	"ip_address": {Type: ColumnScalar, Table: "nodes.ip_address"},
	"endpoint":   {Type: ColumnScalar, Table: "nodes.endpoint"},
	"version":    {Type: ColumnScalar, Table: "nodes.version"},
	"metadata":   {Type: ColumnJSON, Table: "nodes.metadata"},
	"created_at": {Type: ColumnScalar, Table: "nodes.created_at"},
}

// SpecColumns is the ColumnRegistry for the specs table.
var SpecColumns = ColumnRegistry{
	"key":        {Type: ColumnScalar, Table: "specs.key"},
	"kind_name":  {Type: ColumnScalar, Table: "specs.kind_name"},
	"kind_key":   {Type: ColumnScalar, Table: "specs.kind_key"},
	"version":    {Type: ColumnScalar, Table: "specs.version"},
	"data":       {Type: ColumnJSON, Table: "specs.data"},
	"metadata":   {Type: ColumnJSON, Table: "specs.metadata"},
	"created_at": {Type: ColumnScalar, Table: "specs.created_at"},
}

// ObjPsStatusColumns is the ColumnRegistry for the object_statuses table.
var ObjPsStatusColumns = ColumnRegistry{
	"key":         {Type: ColumnScalar, Table: "object_statuses.key"},
	"wanted":      {Type: ColumnScalar, Table: "object_statuses.wanted"},
	"prev_wanted": {Type: ColumnScalar, Table: "object_statuses.prev_wanted"},
	"actual":      {Type: ColumnScalar, Table: "object_statuses.actual"},
	"prev_actual": {Type: ColumnScalar, Table: "object_statuses.prev_actual"},
	"created_at":  {Type: ColumnScalar, Table: "object_statuses.created_at"},
	"updated_at":  {Type: ColumnScalar, Table: "object_statuses.updated_at"},
}

// CargoColumns is the ColumnRegistry for the cargoes table.
var CargoColumns = ColumnRegistry{
	"key":            {Type: ColumnScalar, Table: "cargoes.key"},
	"name":           {Type: ColumnScalar, Table: "cargoes.name"},
	"namespace_name": {Type: ColumnScalar, Table: "cargoes.namespace_name"},
	"spec_key":       {Type: ColumnScalar, Table: "cargoes.spec_key"},
	"status_key":     {Type: ColumnScalar, Table: "cargoes.status_key"},
	"created_at":     {Type: ColumnScalar, Table: "cargoes.created_at"},
}

// VMColumns is the ColumnRegistry for the vms table.
var VMColumns = ColumnRegistry{
	"key":            {Type: ColumnScalar, Table: "vms.key"},
	"name":           {Type: ColumnScalar, Table: "vms.name"},
	"namespace_name": {Type: ColumnScalar, Table: "vms.namespace_name"},
	"spec_key":       {Type: ColumnScalar, Table: "vms.spec_key"},
	"status_key":     {Type: ColumnScalar, Table: "vms.status_key"},
	"created_at":     {Type: ColumnScalar, Table: "vms.created_at"},
}

// VMImageColumns is the ColumnRegistry for the vm_images table.
var VMImageColumns = ColumnRegistry{
	"name":       {Type: ColumnScalar, Table: "vm_images.name"},
	"kind":       {Type: ColumnScalar, Table: "vm_images.kind"},
	"path":       {Type: ColumnScalar, Table: "vm_images.path"},
	"size_bytes": {Type: ColumnScalar, Table: "vm_images.size_bytes"},
	"created_at": {Type: ColumnScalar, Table: "vm_images.created_at"},
}

// JobColumns is the ColumnRegistry for the jobs table.
var JobColumns = ColumnRegistry{
	"key":        {Type: ColumnScalar, Table: "jobs.key"},
	"spec_key":   {Type: ColumnScalar, Table: "jobs.spec_key"},
	"status_key": {Type: ColumnScalar, Table: "jobs.status_key"},
	"created_at": {Type: ColumnScalar, Table: "jobs.created_at"},
}

// ProcessColumns is the ColumnRegistry for the processes table.
var ProcessColumns = ColumnRegistry{
	"key":        {Type: ColumnScalar, Table: "processes.key"},
	"kind":       {Type: ColumnScalar, Table: "processes.kind"},
	"kind_key":   {Type: ColumnScalar, Table: "processes.kind_key"},
	"name":       {Type: ColumnScalar, Table: "processes.name"},
	"node_name":  {Type: ColumnScalar, Table: "processes.node_name"},
	"data":       {Type: ColumnJSON, Table: "processes.data"},
	"created_at": {Type: ColumnScalar, Table: "processes.created_at"},
	"updated_at": {Type: ColumnScalar, Table: "processes.updated_at"},
}

// ResourceKindColumns is the ColumnRegistry for the resource_kinds table.
var ResourceKindColumns = ColumnRegistry{
	"name":       {Type: ColumnScalar, Table: "resource_kinds.name"},
	"spec_key":   {Type: ColumnScalar, Table: "resource_kinds.spec_key"},
	"created_at": {Type: ColumnScalar, Table: "resource_kinds.created_at"},
}

// ResourceColumns is the ColumnRegistry for the resources table.
var ResourceColumns = ColumnRegistry{
	"key":        {Type: ColumnScalar, Table: "resources.key"},
	"name":       {Type: ColumnScalar, Table: "resources.name"},
	"kind":       {Type: ColumnScalar, Table: "resources.kind"},
	"spec_key":   {Type: ColumnScalar, Table: "resources.spec_key"},
	"created_at": {Type: ColumnScalar, Table: "resources.created_at"},
}

// SecretColumns is the ColumnRegistry for the secrets table.
var SecretColumns = ColumnRegistry{
	"key":        {Type: ColumnScalar, Table: "secrets.key"},
	"kind":       {Type: ColumnScalar, Table: "secrets.kind"},
	"immutable":  {Type: ColumnScalar, Table: "secrets.immutable"},
	"data":       {Type: ColumnJSON, Table: "secrets.data"},
	"metadata":   {Type: ColumnJSON, Table: "secrets.metadata"},
	"created_at": {Type: ColumnScalar, Table: "secrets.created_at"},
	"updated_at": {Type: ColumnScalar, Table: "secrets.updated_at"},
}

// MetricColumns is the ColumnRegistry for the metrics table.
var MetricColumns = ColumnRegistry{
	"key":        {Type: ColumnScalar, Table: "metrics.key"},
	"kind":       {Type: ColumnScalar, Table: "metrics.kind"},
	"node_name":  {Type: ColumnScalar, Table: "metrics.node_name"},
	"note":       {Type: ColumnScalar, Table: "metrics.note"},
	"data":       {Type: ColumnJSON, Table: "metrics.data"},
	"created_at": {Type: ColumnScalar, Table: "metrics.created_at"},
}
