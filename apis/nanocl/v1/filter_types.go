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

// ClauseOp names a filter DSL operator. Over JSON columns only Contains and
// HasKey are meaningful; over scalar columns the rest apply.
type ClauseOp string

// Supported clause operators.
const (
	OpEq        ClauseOp = "eq"
	OpNe        ClauseOp = "ne"
	OpGt        ClauseOp = "gt"
	OpLt        ClauseOp = "lt"
	OpGe        ClauseOp = "ge"
	OpLe        ClauseOp = "le"
	OpLike      ClauseOp = "like"
	OpNotLike   ClauseOp = "not_like"
	OpIn        ClauseOp = "in"
	OpNotIn     ClauseOp = "not_in"
	OpIsNull    ClauseOp = "is_null"
	OpIsNotNull ClauseOp = "is_not_null"
	OpContains  ClauseOp = "contains"
	OpHasKey    ClauseOp = "has_key"
)

// Clause is one filter predicate against a single column.
type Clause struct {
	Op    ClauseOp `json:"op"`
	Value any      `json:"value,omitempty"`
}

// OrderDirection is the sort direction of an OrderBy entry.
type OrderDirection string

// Supported sort directions.
const (
	Asc  OrderDirection = "asc"
	Desc OrderDirection = "desc"
)

// OrderBy sorts a column in a direction.
type OrderBy struct {
	Column    string         `json:"column"`
	Direction OrderDirection `json:"direction"`
}

// GenericFilter is the column-agnostic filter DSL every list endpoint
// accepts as a single JSON "filter" query parameter.
type GenericFilter struct {
	Where  map[string]Clause `json:"where,omitempty"`
	Order  []OrderBy         `json:"order_by,omitempty"`
	Limit  int64             `json:"limit,omitempty"`
	Offset int64             `json:"offset,omitempty"`
}

// NewFilter returns an empty filter ready for chained Where/OrderBy calls.
func NewFilter() *GenericFilter {
	return &GenericFilter{Where: map[string]Clause{}}
}

// Eq adds an equality clause. Returns the receiver for chaining.
func (f *GenericFilter) Eq(column string, value any) *GenericFilter {
	return f.where(column, Clause{Op: OpEq, Value: value})
}

// Like adds a pattern-match clause.
func (f *GenericFilter) Like(column, pattern string) *GenericFilter {
	return f.where(column, Clause{Op: OpLike, Value: pattern})
}

// Contains adds a JSON containment clause.
func (f *GenericFilter) Contains(column string, value any) *GenericFilter {
	return f.where(column, Clause{Op: OpContains, Value: value})
}

func (f *GenericFilter) where(column string, c Clause) *GenericFilter {
	if f.Where == nil {
		f.Where = map[string]Clause{}
	}
	f.Where[column] = c
	return f
}

// WithOrder appends an order-by entry.
func (f *GenericFilter) WithOrder(column string, dir OrderDirection) *GenericFilter {
	f.Order = append(f.Order, OrderBy{Column: column, Direction: dir})
	return f
}

// WithLimit sets the page size.
func (f *GenericFilter) WithLimit(limit int64) *GenericFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the page offset.
func (f *GenericFilter) WithOffset(offset int64) *GenericFilter {
	f.Offset = offset
	return f
}
