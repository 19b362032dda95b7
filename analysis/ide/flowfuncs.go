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

import "iter"

// A FlowFunction maps a fact holding before an edge of the supergraph to the facts holding after it. The sequence
// returned by ComputeTargets must be finite, and may be iterated several times.
//
// Flow functions are shared: the cache returns the same FlowFunction value for the same key, and the stock flow
// functions of this package are pointers so that they can be compared with ==.
type FlowFunction[D comparable] interface {
	ComputeTargets(source D) iter.Seq[D]
}

func single[D comparable](d D) iter.Seq[D] {
	return func(yield func(D) bool) { yield(d) }
}

func empty[D comparable](func(D) bool) {}

// IdentityFlow propagates every fact unchanged
type IdentityFlow[D comparable] struct{}

func (*IdentityFlow[D]) ComputeTargets(source D) iter.Seq[D] { return single(source) }

// Gen generates Facts when applied to From, and propagates every fact unchanged.
type Gen[D comparable] struct {
	From  D
	Facts []D
}

func (g *Gen[D]) ComputeTargets(source D) iter.Seq[D] {
	if source != g.From {
		return single(source)
	}
	return func(yield func(D) bool) {
		if !yield(source) {
			return
		}
		for _, d := range g.Facts {
			if d != source && !yield(d) {
				return
			}
		}
	}
}

// GenIf generates Facts from every fact satisfying When, and propagates every fact unchanged.
type GenIf[D comparable] struct {
	Facts []D
	When  func(D) bool
}

func (g *GenIf[D]) ComputeTargets(source D) iter.Seq[D] {
	if !g.When(source) {
		return single(source)
	}
	return func(yield func(D) bool) {
		if !yield(source) {
			return
		}
		for _, d := range g.Facts {
			if d != source && !yield(d) {
				return
			}
		}
	}
}

// Kill kills Fact and propagates every other fact unchanged
type Kill[D comparable] struct {
	Fact D
}

func (k *Kill[D]) ComputeTargets(source D) iter.Seq[D] {
	if source == k.Fact {
		return empty[D]
	}
	return single(source)
}

// KillAll kills every fact
type KillAll[D comparable] struct{}

func (*KillAll[D]) ComputeTargets(D) iter.Seq[D] { return empty[D] }

// Lambda computes the targets with a function
type Lambda[D comparable] struct {
	F func(source D) []D
}

func (l *Lambda[D]) ComputeTargets(source D) iter.Seq[D] {
	return func(yield func(D) bool) {
		for _, d := range l.F(source) {
			if !yield(d) {
				return
			}
		}
	}
}

// Zeroed wraps a flow function so that the zero fact always flows to itself, in addition to the targets of Inner.
// The zero fact is never yielded twice for the same source.
type Zeroed[D comparable] struct {
	Inner FlowFunction[D]
	Zero  D
}

// NewZeroed returns inner wrapped to propagate zero, unless inner is already such a wrapper.
func NewZeroed[D comparable](inner FlowFunction[D], zero D) FlowFunction[D] {
	if z, ok := inner.(*Zeroed[D]); ok && z.Zero == zero {
		return z
	}
	return &Zeroed[D]{Inner: inner, Zero: zero}
}

func (z *Zeroed[D]) ComputeTargets(source D) iter.Seq[D] {
	if source != z.Zero {
		return z.Inner.ComputeTargets(source)
	}
	return func(yield func(D) bool) {
		for d := range z.Inner.ComputeTargets(source) {
			if d == z.Zero {
				continue
			}
			if !yield(d) {
				return
			}
		}
		yield(z.Zero)
	}
}

// Targets collects the targets of f for source, without duplicates, in the order of the sequence.
func Targets[D comparable](f FlowFunction[D], source D) []D {
	var res []D
	seen := map[D]bool{}
	for d := range f.ComputeTargets(source) {
		if !seen[d] {
			seen[d] = true
			res = append(res, d)
		}
	}
	return res
}
