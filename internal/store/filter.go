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

import (
	"encoding/json"
	"fmt"
	"strings"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"
)

// CompiledFilter is a ready-to-execute WHERE clause plus its positional
// arguments and its ORDER BY / LIMIT / OFFSET suffix.
type CompiledFilter struct {
	Where string // "" if no predicates, otherwise starts with "WHERE "
	Args  []any
	Tail  string // ORDER BY / LIMIT / OFFSET, may be ""
}

// Compile turns a GenericFilter into a CompiledFilter against registry.
// Unknown where-keys are silently dropped. JSON columns only honor
// Contains/HasKey/IsNull/IsNotNull; scalar columns honor every operator
// except Contains/HasKey. $N placeholders
// are pgx-style (used with pgxpool / sqlx "dollar" bindvars).
func Compile(f *v1.GenericFilter, registry ColumnRegistry) (CompiledFilter, error) {
	if f == nil {
		return CompiledFilter{}, nil
	}

	var preds []string
	var args []any

	for col, clause := range f.Where {
		def, ok := registry.Lookup(col)
		if !ok {
			continue // unknown keys are ignored, not a syntax error
		}

		pred, newArgs, err := compileClause(def, clause, len(args)+1)
		if err != nil {
			return CompiledFilter{}, err
		}
		if pred == "" {
			continue
		}

		preds = append(preds, pred)
		args = append(args, newArgs...)
	}

	var where string
	if len(preds) > 0 {
		where = "WHERE " + strings.Join(preds, " AND ")
	}

	var tail strings.Builder
	if len(f.Order) > 0 {
		parts := make([]string, 0, len(f.Order))
		for _, o := range f.Order {
			def, ok := registry.Lookup(o.Column)
			if !ok {
				continue
			}
			dir := "ASC"
			if o.Direction == v1.Desc {
				dir = "DESC"
			}
			parts = append(parts, fmt.Sprintf("%s %s", def.Table, dir))
		}
		if len(parts) > 0 {
			tail.WriteString("ORDER BY ")
			tail.WriteString(strings.Join(parts, ", "))
		}
	}
	if f.Limit > 0 {
		if tail.Len() > 0 {
			tail.WriteString(" ")
		}
		tail.WriteString(fmt.Sprintf("LIMIT %d", f.Limit))
	}
	if f.Offset > 0 {
		if tail.Len() > 0 {
			tail.WriteString(" ")
		}
		tail.WriteString(fmt.Sprintf("OFFSET %d", f.Offset))
	}

	return CompiledFilter{Where: where, Args: args, Tail: tail.String()}, nil
}

func compileClause(def ColumnDef, c v1.Clause, argStart int) (string, []any, error) {
	col := def.Table

	if def.Type == ColumnJSON {
		switch c.Op {
		case v1.OpContains:
			raw, err := json.Marshal(c.Value)
			if err != nil {
				return "", nil, xerrors.Wrapf(err, "cannot marshal containment value for %s", col)
			}
			return fmt.Sprintf("%s @> $%d", col, argStart), []any{raw}, nil
		case v1.OpHasKey:
			return fmt.Sprintf("%s ? $%d", col, argStart), []any{c.Value}, nil
		case v1.OpIsNull:
			return fmt.Sprintf("%s IS NULL", col), nil, nil
		case v1.OpIsNotNull:
			return fmt.Sprintf("%s IS NOT NULL", col), nil, nil
		default:
			return "", nil, nil // unsupported op over a JSON column: ignored
		}
	}

	switch c.Op {
	case v1.OpEq:
		return fmt.Sprintf("%s = $%d", col, argStart), []any{c.Value}, nil
	case v1.OpNe:
		return fmt.Sprintf("%s != $%d", col, argStart), []any{c.Value}, nil
	case v1.OpGt:
		return fmt.Sprintf("%s > $%d", col, argStart), []any{c.Value}, nil
	case v1.OpLt:
		return fmt.Sprintf("%s < $%d", col, argStart), []any{c.Value}, nil
	case v1.OpGe:
		return fmt.Sprintf("%s >= $%d", col, argStart), []any{c.Value}, nil
	case v1.OpLe:
		return fmt.Sprintf("%s <= $%d", col, argStart), []any{c.Value}, nil
	case v1.OpLike:
		return fmt.Sprintf("%s LIKE $%d", col, argStart), []any{c.Value}, nil
	case v1.OpNotLike:
		return fmt.Sprintf("%s NOT LIKE $%d", col, argStart), []any{c.Value}, nil
	case v1.OpIn:
		return fmt.Sprintf("%s = ANY($%d)", col, argStart), []any{c.Value}, nil
	case v1.OpNotIn:
		return fmt.Sprintf("%s != ALL($%d)", col, argStart), []any{c.Value}, nil
	case v1.OpIsNull:
		return fmt.Sprintf("%s IS NULL", col), nil, nil
	case v1.OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", col), nil, nil
	default:
		return "", nil, nil
	}
}
