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

package ide

import (
	"fmt"
	"reflect"

	"github.com/awslabs/ar-go-ide/analysis/lattice"
)

// An EdgeFunction maps the value of a fact at the source of an edge of the exploded supergraph to the value at its
// target.
type EdgeFunction[L any] interface {
	ComputeTarget(source L) L
}

// A Composer is an edge function that knows how to compose itself with a second function. The result of
// Compose(second) must compute second.ComputeTarget(f.ComputeTarget(x)) for every x. Compose may return nil when
// it has no better composition than the default one.
type Composer[L any] interface {
	EdgeFunction[L]
	Compose(second EdgeFunction[L]) EdgeFunction[L]
}

// A Joiner is an edge function that knows how to join itself with another function. The result must be at least
// as high in the lattice as the join of the results of both functions. Join may return nil when it has no better
// join than the default one.
type Joiner[L any] interface {
	EdgeFunction[L]
	Join(other EdgeFunction[L]) EdgeFunction[L]
}

// An Equaler is an edge function with a structural equality. Edge functions that are not Equaler are compared
// with ==.
type Equaler[L any] interface {
	Equal(other EdgeFunction[L]) bool
}

// A ConstantFunction is an edge function that may map every input to the same value.
type ConstantFunction interface {
	IsConstant() bool
}

// An AlgebraError is raised (as a panic value) when two edge functions must be composed or joined, and neither
// their own implementation nor the default algebra can do it.
type AlgebraError struct {
	Op        string
	FuncType  reflect.Type
	ValueType reflect.Type
}

func (e *AlgebraError) Error() string {
	return fmt.Sprintf("missing %s for edge function type %v over values of type %v", e.Op, e.FuncType, e.ValueType)
}

func algebraError[L any](op string, f EdgeFunction[L]) *AlgebraError {
	return &AlgebraError{Op: op, FuncType: reflect.TypeOf(f), ValueType: reflect.TypeFor[L]()}
}

// Compose returns the function that applies first, then second.
//
// Compose panics with an *AlgebraError if first does not implement Composer (or its Compose returns nil) and the
// default composition does not apply.
func Compose[L any](first, second EdgeFunction[L]) EdgeFunction[L] {
	if first == nil || second == nil {
		panic("ide: compose of a nil edge function")
	}
	if c, ok := first.(Composer[L]); ok {
		if r := c.Compose(second); r != nil {
			return r
		}
	}
	if r := defaultCompose(first, second); r != nil {
		return r
	}
	panic(algebraError("compose", first))
}

// Join returns the join of a and b.
//
// Join panics with an *AlgebraError if a does not implement Joiner (or its Join returns nil) and the default join
// does not apply.
func Join[L any](a, b EdgeFunction[L]) EdgeFunction[L] {
	if a == nil || b == nil {
		panic("ide: join of a nil edge function")
	}
	if j, ok := a.(Joiner[L]); ok {
		if r := j.Join(b); r != nil {
			return r
		}
	}
	if Equal(a, b) {
		return a
	}
	if isIdentity(a) {
		// only the other operand can decide
		if j, ok := b.(Joiner[L]); ok {
			if r := j.Join(a); r != nil {
				return r
			}
		}
		panic(algebraError("join", b))
	}
	panic(algebraError("join", a))
}

// Equal returns true when a and b are the same function: a and b have the same dynamic type and are equal
// according to Equaler, or to == when they do not implement Equaler.
func Equal[L any](a, b EdgeFunction[L]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if e, ok := a.(Equaler[L]); ok {
		return e.Equal(b)
	}
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// IsConstant returns true when f implements ConstantFunction and is constant
func IsConstant[L any](f EdgeFunction[L]) bool {
	c, ok := f.(ConstantFunction)
	return ok && c.IsConstant()
}

func isIdentity[L any](f EdgeFunction[L]) bool {
	_, ok := f.(Identity[L])
	return ok
}

func defaultCompose[L any](first, second EdgeFunction[L]) EdgeFunction[L] {
	if isIdentity(first) {
		return second
	}
	if isIdentity(second) {
		return first
	}
	return nil
}

// DefaultComposeOrNil returns the composition of this with second when it does not depend on this: when second is
// the identity or is constant. Otherwise it returns nil. Implementations of Composer usually start with it.
func DefaultComposeOrNil[L any](this, second EdgeFunction[L]) EdgeFunction[L] {
	if isIdentity(second) {
		return this
	}
	if IsConstant(second) {
		return second
	}
	return nil
}

// DefaultJoinOrNil returns the join of this with other when other is AllBottom, AllTop or equal to this. The
// join with the identity is over-approximated by a JoinFunction of at most bound functions when bound is positive,
// and by AllBottom of lat otherwise. In all other cases it returns nil. Implementations of Joiner usually start
// with it.
func DefaultJoinOrNil[L any](lat lattice.JoinLattice[L], bound int, this, other EdgeFunction[L]) EdgeFunction[L] {
	switch o := other.(type) {
	case *AllBottom[L]:
		return o
	case *AllTop[L]:
		return this
	case Identity[L]:
		if lat != nil && !isIdentity(this) {
			if bound > 0 {
				return NewJoinFunction(lat, bound, this, other)
			}
			return &AllBottom[L]{Lattice: lat}
		}
	}
	if Equal(this, other) {
		return this
	}
	return nil
}
