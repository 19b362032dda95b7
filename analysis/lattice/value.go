// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lattice lifts a client value type into a complete lattice by adding a Top and a Bottom element.
//
// Top is the least element (no information), Bottom is the greatest element (conflicting information). The
// solvers of this module join values going up in the lattice, and Top is the neutral element of every join.
package lattice

import (
	"fmt"

	"github.com/awslabs/ar-go-ide/internal/funcutil"
	"golang.org/x/exp/constraints"
)

type kind uint8

const (
	top kind = iota
	value
	bottom
)

// Value is an element of the lattice {Top} ∪ T ∪ {Bottom}. The zero Value is Top.
type Value[T comparable] struct {
	kind kind
	val  T
}

// Top returns the least element of the lattice
func Top[T comparable]() Value[T] {
	return Value[T]{kind: top}
}

// Bottom returns the greatest element of the lattice
func Bottom[T comparable]() Value[T] {
	return Value[T]{kind: bottom}
}

// Of wraps x into the lattice
func Of[T comparable](x T) Value[T] {
	return Value[T]{kind: value, val: x}
}

// IsTop returns true if v is Top
func (v Value[T]) IsTop() bool { return v.kind == top }

// IsBottom returns true if v is Bottom
func (v Value[T]) IsBottom() bool { return v.kind == bottom }

// Get returns the wrapped value and true if v is neither Top nor Bottom, otherwise the zero value of T and false.
func (v Value[T]) Get() (T, bool) {
	if v.kind != value {
		var zero T
		return zero, false
	}
	return v.val, true
}

// Option returns the wrapped value, or none if v is Top or Bottom
func (v Value[T]) Option() funcutil.Optional[T] {
	if v.kind != value {
		return funcutil.None[T]()
	}
	return funcutil.Some(v.val)
}

// MustGet returns the wrapped value, and panics if v is Top or Bottom
func (v Value[T]) MustGet() T {
	if v.kind != value {
		panic(fmt.Sprintf("lattice value %s does not wrap a value", v))
	}
	return v.val
}

// Equal returns true if v and w are the same element: Top and Bottom are only equal to themselves, and
// wrapped values are equal if the values they wrap are equal.
func (v Value[T]) Equal(w Value[T]) bool {
	if v.kind != w.kind {
		return false
	}
	return v.kind != value || v.val == w.val
}

func (v Value[T]) String() string {
	switch v.kind {
	case top:
		return "Top"
	case bottom:
		return "Bottom"
	default:
		return fmt.Sprintf("%v", v.val)
	}
}

// MarshalYAML writes Top and Bottom by name and other values as the wrapped value
func (v Value[T]) MarshalYAML() (any, error) {
	if v.kind != value {
		return v.String(), nil
	}
	return v.val, nil
}

// Join is the default join of the lattice: joining with Top or joining equal values is exact, joining two
// different values degrades to Bottom.
func Join[T comparable](a, b Value[T]) Value[T] {
	if a.IsTop() || a.Equal(b) {
		return b
	}
	if b.IsTop() {
		return a
	}
	return Bottom[T]()
}

// JoinWith joins a and b, delegating to join when both wrap a value.
func JoinWith[T comparable](a, b Value[T], join func(x, y T) Value[T]) Value[T] {
	if a.IsTop() || a.Equal(b) {
		return b
	}
	if b.IsTop() {
		return a
	}
	if a.IsBottom() || b.IsBottom() {
		return Bottom[T]()
	}
	return join(a.val, b.val)
}

// Less is the strict order of the lattice, with Top < x < Bottom for any wrapped x, and wrapped values ordered by
// their own order.
func Less[T constraints.Ordered](a, b Value[T]) bool {
	return LessFunc(a, b, func(x, y T) bool { return x < y })
}

// LessFunc is the strict order of the lattice, using less to order wrapped values.
func LessFunc[T comparable](a, b Value[T], less func(x, y T) bool) bool {
	if b.IsTop() {
		return false
	}
	if a.IsTop() {
		return true
	}
	if a.IsBottom() {
		return false
	}
	if b.IsBottom() {
		return true
	}
	return less(a.val, b.val)
}
