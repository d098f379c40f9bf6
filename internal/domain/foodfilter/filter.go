// Package foodfilter models metadata filters as a small expression tree:
// field comparisons combined with $and / $or, serialized in the
// {"field": {"$op": value}} wire shape.
package foodfilter

import (
	"encoding/json"
	"fmt"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "$eq"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
)

// noFilterSentinel is the wire form of "no filtering requested".
const noFilterSentinel = "NO_FILTER"

// Expression is a node of the filter tree.
type Expression interface {
	isExpression()
	json.Marshaler
}

// Cmp compares one metadata field against a value. Value is a string or
// a number.
type Cmp struct {
	Field string
	Op    Op
	Value any
}

// And matches when every child matches.
type And []Expression

// Or matches when any child matches.
type Or []Expression

// noFilter is the empty filter.
type noFilter struct{}

func (Cmp) isExpression()      {}
func (And) isExpression()      {}
func (Or) isExpression()       {}
func (noFilter) isExpression() {}

// None returns the empty filter.
func None() Expression { return noFilter{} }

// IsNone reports whether e carries no conditions.
func IsNone(e Expression) bool {
	if e == nil {
		return true
	}
	_, ok := e.(noFilter)
	return ok
}

// Eq builds an equality comparison.
func Eq(field string, value any) Cmp { return Cmp{Field: field, Op: OpEq, Value: value} }

// Gte builds a greater-or-equal comparison.
func Gte(field string, value any) Cmp { return Cmp{Field: field, Op: OpGte, Value: value} }

// Lte builds a less-or-equal comparison.
func Lte(field string, value any) Cmp { return Cmp{Field: field, Op: OpLte, Value: value} }

// Combine folds conditions into one expression: zero conditions give the
// empty filter, a single condition stays bare, more are joined with $and.
func Combine(conds ...Expression) Expression {
	switch len(conds) {
	case 0:
		return None()
	case 1:
		return conds[0]
	default:
		return And(conds)
	}
}

// MarshalJSON renders {"field": {"$op": value}}.
func (c Cmp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]any{c.Field: {string(c.Op): c.Value}})
}

// MarshalJSON renders {"$and": [...]}.
func (a And) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Expression{"$and": a})
}

// MarshalJSON renders {"$or": [...]}.
func (o Or) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Expression{"$or": o})
}

// MarshalJSON renders the NO_FILTER sentinel string.
func (noFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(noFilterSentinel)
}

// Parse decodes a filter expression from its wire form. The sentinel
// string, JSON null, and an empty object all decode to the empty filter.
func Parse(raw []byte) (Expression, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return fromValue(probe)
}

func fromValue(v any) (Expression, error) {
	switch t := v.(type) {
	case nil:
		return None(), nil
	case string:
		if t == noFilterSentinel {
			return None(), nil
		}
		return nil, fmt.Errorf("parse filter: unexpected string %q", t)
	case map[string]any:
		if len(t) == 0 {
			return None(), nil
		}
		if len(t) != 1 {
			return nil, fmt.Errorf("parse filter: node must have exactly one key, got %d", len(t))
		}
		for key, val := range t {
			switch key {
			case "$and":
				return parseGroup(val, func(kids []Expression) Expression { return And(kids) })
			case "$or":
				return parseGroup(val, func(kids []Expression) Expression { return Or(kids) })
			default:
				return parseCmp(key, val)
			}
		}
	}
	return nil, fmt.Errorf("parse filter: unsupported node %T", v)
}

func parseGroup(val any, build func([]Expression) Expression) (Expression, error) {
	items, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("parse filter: group operand must be an array")
	}
	kids := make([]Expression, 0, len(items))
	for _, item := range items {
		kid, err := fromValue(item)
		if err != nil {
			return nil, err
		}
		kids = append(kids, kid)
	}
	return build(kids), nil
}

func parseCmp(field string, val any) (Expression, error) {
	ops, ok := val.(map[string]any)
	if !ok || len(ops) != 1 {
		return nil, fmt.Errorf("parse filter: field %q needs exactly one operator", field)
	}
	for op, operand := range ops {
		switch Op(op) {
		case OpEq, OpGt, OpGte, OpLt, OpLte:
			return Cmp{Field: field, Op: Op(op), Value: operand}, nil
		default:
			return nil, fmt.Errorf("parse filter: unknown operator %q", op)
		}
	}
	return nil, fmt.Errorf("parse filter: field %q has no operator", field)
}
