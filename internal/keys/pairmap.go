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

package keys

import "iter"

// A Pair is an ordered pair of identities, used as key when the identities are not compressed.
type Pair[T comparable] struct {
	First  T
	Second T
}

// A PairMap is a map from ordered pairs of T to V. When T is Compressible, the pairs are stored as packed indices
// from a Compressor, otherwise as raw pairs.
type PairMap[T comparable, V any] struct {
	c      *Compressor[T]
	packed map[uint64]V
	raw    map[Pair[T]]V
}

// NewPairMap returns an empty map. c is the compressor used for pointer-like T. If c is nil and T is compressible,
// the map uses its own compressor.
func NewPairMap[T comparable, V any](c *Compressor[T]) *PairMap[T, V] {
	if !Compressible[T]() {
		return &PairMap[T, V]{raw: map[Pair[T]]V{}}
	}
	if c == nil {
		c = NewCompressor[T]()
	}
	return &PairMap[T, V]{c: c, packed: map[uint64]V{}}
}

// Packed returns true when m uses packed keys
func (m *PairMap[T, V]) Packed() bool {
	return m.packed != nil
}

// Get returns the value at (a, b) and whether it is present. Get never assigns indices.
func (m *PairMap[T, V]) Get(a, b T) (V, bool) {
	if m.packed == nil {
		v, ok := m.raw[Pair[T]{a, b}]
		return v, ok
	}
	var zero V
	i, ok := m.c.Lookup(a)
	if !ok {
		return zero, false
	}
	j, ok := m.c.Lookup(b)
	if !ok {
		return zero, false
	}
	v, ok := m.packed[Pack(i, j)]
	return v, ok
}

// Set sets the value at (a, b)
func (m *PairMap[T, V]) Set(a, b T, v V) {
	if m.packed == nil {
		m.raw[Pair[T]{a, b}] = v
		return
	}
	m.packed[Pack(m.c.GetOrInsert(a), m.c.GetOrInsert(b))] = v
}

// Delete removes the value at (a, b), if any
func (m *PairMap[T, V]) Delete(a, b T) {
	if m.packed == nil {
		delete(m.raw, Pair[T]{a, b})
		return
	}
	i, ok1 := m.c.Lookup(a)
	j, ok2 := m.c.Lookup(b)
	if ok1 && ok2 {
		delete(m.packed, Pack(i, j))
	}
}

// Len returns the number of entries in m
func (m *PairMap[T, V]) Len() int {
	if m.packed == nil {
		return len(m.raw)
	}
	return len(m.packed)
}

// All iterates over the entries of m, in no particular order
func (m *PairMap[T, V]) All() iter.Seq2[Pair[T], V] {
	return func(yield func(Pair[T], V) bool) {
		if m.packed == nil {
			for k, v := range m.raw {
				if !yield(k, v) {
					return
				}
			}
			return
		}
		for k, v := range m.packed {
			i, j := Unpack(k)
			if !yield(Pair[T]{m.c.At(i), m.c.At(j)}, v) {
				return
			}
		}
	}
}
