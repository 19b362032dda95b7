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

package lattice

// A JoinLattice describes the value domain L of an IDE problem. Top must be the neutral element of Join.
type JoinLattice[L any] interface {
	Top() L
	Bottom() L
	Join(a, b L) L
	Equal(a, b L) bool
}

// Extended is the JoinLattice of Value[T] using the default Join.
type Extended[T comparable] struct{}

func (Extended[T]) Top() Value[T]    { return Top[T]() }
func (Extended[T]) Bottom() Value[T] { return Bottom[T]() }

func (Extended[T]) Join(a, b Value[T]) Value[T] { return Join(a, b) }

func (Extended[T]) Equal(a, b Value[T]) bool { return a.Equal(b) }

// ExtendedWith is the JoinLattice of Value[T] using a client-provided join of wrapped values
type ExtendedWith[T comparable] struct {
	// JoinValues joins two distinct wrapped values
	JoinValues func(x, y T) Value[T]
}

// NewExtendedWith returns the lattice of Value[T] that joins wrapped values with join
func NewExtendedWith[T comparable](join func(x, y T) Value[T]) *ExtendedWith[T] {
	return &ExtendedWith[T]{JoinValues: join}
}

func (e *ExtendedWith[T]) Top() Value[T]    { return Top[T]() }
func (e *ExtendedWith[T]) Bottom() Value[T] { return Bottom[T]() }

func (e *ExtendedWith[T]) Join(a, b Value[T]) Value[T] {
	if e.JoinValues == nil {
		return Join(a, b)
	}
	return JoinWith(a, b, e.JoinValues)
}

func (e *ExtendedWith[T]) Equal(a, b Value[T]) bool { return a.Equal(b) }

// Binary is the two-point lattice used by IFDS problems encoded as IDE problems: false is Top (the fact does not
// hold) and true is Bottom (the fact holds).
type Binary struct{}

func (Binary) Top() bool            { return false }
func (Binary) Bottom() bool         { return true }
func (Binary) Join(a, b bool) bool  { return a || b }
func (Binary) Equal(a, b bool) bool { return a == b }
