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
	"strings"

	"github.com/awslabs/ar-go-ide/analysis/lattice"
)

// Identity is the edge function that returns its input
type Identity[L any] struct{}

func (Identity[L]) ComputeTarget(source L) L { return source }

func (Identity[L]) Compose(second EdgeFunction[L]) EdgeFunction[L] { return second }

// Join returns the identity when other is the identity or AllTop, AllBottom when other is AllBottom, and nil
// otherwise: the other function decides.
func (id Identity[L]) Join(other EdgeFunction[L]) EdgeFunction[L] {
	switch other.(type) {
	case Identity[L], *AllTop[L]:
		return id
	case *AllBottom[L]:
		return other
	}
	return nil
}

func (Identity[L]) String() string { return "id" }

// AllTop maps every value to the top of the lattice
type AllTop[L any] struct {
	Lattice lattice.JoinLattice[L]
}

func (f *AllTop[L]) ComputeTarget(L) L { return f.Lattice.Top() }

func (f *AllTop[L]) Compose(second EdgeFunction[L]) EdgeFunction[L] {
	if isIdentity(second) {
		return f
	}
	return second
}

func (f *AllTop[L]) Join(other EdgeFunction[L]) EdgeFunction[L] { return other }

func (f *AllTop[L]) IsConstant() bool { return true }

func (f *AllTop[L]) Equal(other EdgeFunction[L]) bool {
	_, ok := other.(*AllTop[L])
	return ok
}

func (f *AllTop[L]) String() string { return "AllTop" }

// AllBottom maps every value to the bottom of the lattice
type AllBottom[L any] struct {
	Lattice lattice.JoinLattice[L]
}

func (f *AllBottom[L]) ComputeTarget(L) L { return f.Lattice.Bottom() }

func (f *AllBottom[L]) Compose(second EdgeFunction[L]) EdgeFunction[L] {
	if IsConstant(second) {
		return second
	}
	return f
}

func (f *AllBottom[L]) Join(EdgeFunction[L]) EdgeFunction[L] { return f }

func (f *AllBottom[L]) IsConstant() bool { return true }

func (f *AllBottom[L]) Equal(other EdgeFunction[L]) bool {
	_, ok := other.(*AllBottom[L])
	return ok
}

func (f *AllBottom[L]) String() string { return "AllBottom" }

// Constant maps every value to Value
type Constant[L any] struct {
	Value   L
	Lattice lattice.JoinLattice[L]
}

// NewConstant returns the constant function of value v, or AllTop or AllBottom when v is the top or the bottom of
// lat.
func NewConstant[L any](lat lattice.JoinLattice[L], v L) EdgeFunction[L] {
	switch {
	case lat.Equal(v, lat.Bottom()):
		return &AllBottom[L]{Lattice: lat}
	case lat.Equal(v, lat.Top()):
		return &AllTop[L]{Lattice: lat}
	default:
		return &Constant[L]{Value: v, Lattice: lat}
	}
}

func (c *Constant[L]) ComputeTarget(L) L { return c.Value }

func (c *Constant[L]) Compose(second EdgeFunction[L]) EdgeFunction[L] {
	if d := DefaultComposeOrNil[L](c, second); d != nil {
		return d
	}
	v := second.ComputeTarget(c.Value)
	if c.Lattice.Equal(v, c.Value) {
		return c
	}
	return NewConstant(c.Lattice, v)
}

func (c *Constant[L]) Join(other EdgeFunction[L]) EdgeFunction[L] {
	if d := DefaultJoinOrNil[L](c.Lattice, 0, c, other); d != nil {
		return d
	}
	if !IsConstant(other) {
		if j, ok := other.(Joiner[L]); ok {
			return j.Join(c)
		}
		return nil
	}
	ov := other.ComputeTarget(c.Lattice.Top())
	v := c.Lattice.Join(c.Value, ov)
	switch {
	case c.Lattice.Equal(v, c.Lattice.Bottom()):
		return &AllBottom[L]{Lattice: c.Lattice}
	case c.Lattice.Equal(v, ov):
		return other
	case c.Lattice.Equal(v, c.Value):
		return c
	}
	return &Constant[L]{Value: v, Lattice: c.Lattice}
}

func (c *Constant[L]) IsConstant() bool { return true }

func (c *Constant[L]) Equal(other EdgeFunction[L]) bool {
	o, ok := other.(*Constant[L])
	return ok && c.Lattice.Equal(c.Value, o.Value)
}

func (c *Constant[L]) String() string { return fmt.Sprintf("const(%v)", c.Value) }

// Composition applies First, then Second. It is the composition of last resort for edge functions that can only
// be composed by deferring the application of their operands.
//
// A Composition with a Lattice joins with other functions into a JoinFunction of at most JoinBound functions.
// Without one it has no join of its own.
type Composition[L any] struct {
	First     EdgeFunction[L]
	Second    EdgeFunction[L]
	Lattice   lattice.JoinLattice[L]
	JoinBound int
}

func (c *Composition[L]) ComputeTarget(source L) L {
	return c.Second.ComputeTarget(c.First.ComputeTarget(source))
}

func (c *Composition[L]) Compose(second EdgeFunction[L]) EdgeFunction[L] {
	if d := DefaultComposeOrNil[L](c, second); d != nil {
		return d
	}
	return Compose(c.First, Compose(c.Second, second))
}

func (c *Composition[L]) Join(other EdgeFunction[L]) EdgeFunction[L] {
	if c.Lattice == nil {
		return nil
	}
	if d := DefaultJoinOrNil[L](c.Lattice, c.JoinBound, c, other); d != nil {
		return d
	}
	return NewJoinFunction(c.Lattice, c.JoinBound, c, other)
}

func (c *Composition[L]) Equal(other EdgeFunction[L]) bool {
	o, ok := other.(*Composition[L])
	return ok && Equal(c.First, o.First) && Equal(c.Second, o.Second)
}

func (c *Composition[L]) String() string { return fmt.Sprintf("(%v ; %v)", c.First, c.Second) }

// A JoinFunction is the join of Seed with the results of every function of Funcs. It holds at most Bound
// pairwise distinct functions.
type JoinFunction[L any] struct {
	Seed    L
	Funcs   []EdgeFunction[L]
	Bound   int
	Lattice lattice.JoinLattice[L]
}

// NewJoinFunction returns the join of a and b. Operands that are JoinFunction are flattened, and the functions of
// both operands are deduplicated. The result is AllBottom of lat when the joined seed is the bottom, or when more
// than bound distinct functions remain.
func NewJoinFunction[L any](lat lattice.JoinLattice[L], bound int, a, b EdgeFunction[L]) EdgeFunction[L] {
	aFuncs, aSeed := joinOperand(lat, a)
	bFuncs, bSeed := joinOperand(lat, b)
	seed := lat.Join(aSeed, bSeed)
	if lat.Equal(seed, lat.Bottom()) {
		return &AllBottom[L]{Lattice: lat}
	}
	funcs := append([]EdgeFunction[L](nil), aFuncs...)
	for _, f := range bFuncs {
		if !containsFunc(funcs, f) {
			funcs = append(funcs, f)
		}
	}
	if len(funcs) > bound {
		return &AllBottom[L]{Lattice: lat}
	}
	return &JoinFunction[L]{Seed: seed, Funcs: funcs, Bound: bound, Lattice: lat}
}

func joinOperand[L any](lat lattice.JoinLattice[L], f EdgeFunction[L]) ([]EdgeFunction[L], L) {
	if j, ok := f.(*JoinFunction[L]); ok {
		return j.Funcs, j.Seed
	}
	return []EdgeFunction[L]{f}, lat.Top()
}

func containsFunc[L any](funcs []EdgeFunction[L], f EdgeFunction[L]) bool {
	for _, g := range funcs {
		if Equal(g, f) {
			return true
		}
	}
	return false
}

func (j *JoinFunction[L]) ComputeTarget(source L) L {
	v := j.Seed
	for _, f := range j.Funcs {
		v = j.Lattice.Join(v, f.ComputeTarget(source))
		if j.Lattice.Equal(v, j.Lattice.Bottom()) {
			return v
		}
	}
	return v
}

// Compose defers the application of second. The result joins like j does.
func (j *JoinFunction[L]) Compose(second EdgeFunction[L]) EdgeFunction[L] {
	if d := DefaultComposeOrNil[L](j, second); d != nil {
		return d
	}
	return &Composition[L]{First: j, Second: second, Lattice: j.Lattice, JoinBound: j.Bound}
}

func (j *JoinFunction[L]) Join(other EdgeFunction[L]) EdgeFunction[L] {
	if d := DefaultJoinOrNil[L](j.Lattice, j.Bound, j, other); d != nil {
		return d
	}
	return NewJoinFunction(j.Lattice, j.Bound, j, other)
}

// Equal returns true when other is a JoinFunction with an equal seed and the same set of functions
func (j *JoinFunction[L]) Equal(other EdgeFunction[L]) bool {
	o, ok := other.(*JoinFunction[L])
	if !ok || len(j.Funcs) != len(o.Funcs) || !j.Lattice.Equal(j.Seed, o.Seed) {
		return false
	}
	for _, f := range j.Funcs {
		if !containsFunc(o.Funcs, f) {
			return false
		}
	}
	return true
}

func (j *JoinFunction[L]) String() string {
	fs := make([]string, len(j.Funcs))
	for i, f := range j.Funcs {
		fs[i] = fmt.Sprint(f)
	}
	return fmt.Sprintf("join<%d>(%v; %s)", j.Bound, j.Seed, strings.Join(fs, ", "))
}
