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

// Package keys builds compact map keys out of pairs of identities.
//
// Identities with pointer-like representations are compressed into dense 32-bit indices, assigned in first-seen
// order from 1, and two indices are packed into a single 64-bit key. Other identities are used directly as a pair.
package keys

import (
	"fmt"
	"reflect"
)

// A Compressor maps values of T to dense indices. The mapping is injective and stable for the lifetime of the
// Compressor: indices are assigned from 1 in first-seen order, and 0 is never assigned.
type Compressor[T comparable] struct {
	index  map[T]uint32
	values []T
}

// NewCompressor returns an empty compressor
func NewCompressor[T comparable]() *Compressor[T] {
	return &Compressor[T]{index: map[T]uint32{}}
}

// GetOrInsert returns the index of x, assigning a fresh one if x has not been seen before.
func (c *Compressor[T]) GetOrInsert(x T) uint32 {
	if i, ok := c.index[x]; ok {
		return i
	}
	if uint64(len(c.values)) >= 1<<32-1 {
		panic("keys: compressor is full")
	}
	c.values = append(c.values, x)
	i := uint32(len(c.values))
	c.index[x] = i
	return i
}

// Lookup returns the index of x and true if x has been seen, otherwise 0 and false.
func (c *Compressor[T]) Lookup(x T) (uint32, bool) {
	i, ok := c.index[x]
	return i, ok
}

// At returns the value with index i. It panics if i has not been assigned.
func (c *Compressor[T]) At(i uint32) T {
	if i == 0 || int(i) > len(c.values) {
		panic(fmt.Sprintf("keys: index %d is not assigned", i))
	}
	return c.values[i-1]
}

// Len returns the number of values seen by c
func (c *Compressor[T]) Len() int {
	return len(c.values)
}

// Pack packs two indices into one key: hi in the high 32 bits, lo in the low 32 bits.
func Pack(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// Unpack is the inverse of Pack
func Unpack(k uint64) (hi, lo uint32) {
	return uint32(k >> 32), uint32(k)
}

// Compressible returns true when values of T are pointer-like, in which case keys built from compressed indices are
// used instead of keys built from pairs of T.
func Compressible[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Interface:
		return true
	default:
		return false
	}
}

// Context holds the compression tables of one analysis run: one for program points and one for facts. Components
// that receive the same Context share the indices.
type Context[N comparable, D comparable] struct {
	Nodes *Compressor[N]
	Facts *Compressor[D]
}

// NewContext returns a context with empty tables
func NewContext[N comparable, D comparable]() *Context[N, D] {
	return &Context[N, D]{
		Nodes: NewCompressor[N](),
		Facts: NewCompressor[D](),
	}
}
