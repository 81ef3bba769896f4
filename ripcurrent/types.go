// Package ripcurrent re-expresses the dataflow composition language: typed
// building blocks joined with Pipe (sequence) and Plus (parallel), run over
// mmpq.Queue edges, with the same Describe/DescribeWithTypes introspection
// and scope/lifetime leak diagnostics as the original design.
//
// Go generics cannot express the original's variadic compile-time type-list
// arithmetic, so LHS/RHS are tracked as runtime reflect.Type sets and `|`/`+`
// legality is checked at composition time instead of at compile time.
package ripcurrent

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// TypeSet is an unordered collection of distinct reflect.Types describing
// the LHS or RHS of a block.
type TypeSet []reflect.Type

// TypeOf returns the reflect.Type token for T, for use building TypeSets.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeOfValue returns msg's runtime reflect.Type.
func typeOfValue(msg interface{}) reflect.Type {
	return reflect.TypeOf(msg)
}

// Types builds a TypeSet from individual type tokens, deduplicating.
func Types(ts ...reflect.Type) TypeSet {
	var out TypeSet
	for _, t := range ts {
		if !out.contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// None is the empty TypeSet, used for pure sources/sinks.
func None() TypeSet { return TypeSet{} }

func (s TypeSet) contains(t reflect.Type) bool {
	for _, e := range s {
		if e == t {
			return true
		}
	}
	return false
}

// equal reports whether s and other describe the same set of types,
// ignoring order.
func (s TypeSet) equal(other TypeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, t := range s {
		if !other.contains(t) {
			return false
		}
	}
	return true
}

// union returns the deduplicated union of s and other, s's members first in
// their original order.
func (s TypeSet) union(other TypeSet) TypeSet {
	out := append(TypeSet{}, s...)
	for _, t := range other {
		if !out.contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// describe renders the set as a sorted, comma-separated list of type names,
// matching the stable ordering DescribeWithTypes needs for idempotence.
func (s TypeSet) describe() string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.String()
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// String renders the set the same way describe does, so external packages
// (e.g. cluster's introspection plane) can render a TypeSet without reaching
// into unexported internals.
func (s TypeSet) String() string { return s.describe() }

// errUnhandledType is returned when a message's runtime type is not among a
// block's declared LHS (on direct invocation) or RHS (on emit/post/schedule).
func errUnhandledType(where string, t reflect.Type, allowed TypeSet) error {
	return fmt.Errorf("ripcurrent: %s: type %s is not in {%s}", where, t, allowed.describe())
}
