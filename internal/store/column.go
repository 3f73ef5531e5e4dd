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

// ColumnType distinguishes scalar columns from JSON columns, which accept a
// different subset of filter operators (Contains/HasKey vs comparisons).
type ColumnType int

// Supported column types.
const (
	ColumnScalar ColumnType = iota
	ColumnJSON
)

// ColumnDef is one entry of an entity's column registry: the filter-key
// name maps to its SQL type and its fully-qualified column expression.
type ColumnDef struct {
	Type  ColumnType
	Table string // fully-qualified column, e.g. "cargoes.name"
}

// ColumnRegistry maps a filter "where" key to its ColumnDef. Unknown keys
// are ignored by the filter compiler rather than treated as a syntax error.
type ColumnRegistry map[string]ColumnDef

// Lookup returns the ColumnDef for key and whether it is registered.
func (r ColumnRegistry) Lookup(key string) (ColumnDef, bool) {
	c, ok := r[key]
	return c, ok
}
