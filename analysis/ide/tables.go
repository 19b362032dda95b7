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

import "github.com/awslabs/ar-go-ide/internal/keys"

// a slot holds a cached function, or marks that the function for its key is being constructed
type slot[T any] struct {
	fn      T
	pending bool
}

type table[K any, V any] interface {
	get(k K) (V, bool)
	set(k K, v V)
	del(k K)
	each(f func(V))
	size() int
}

// pairTable is a table keyed by pairs, compressed when possible
type pairTable[T comparable, V any] struct {
	m *keys.PairMap[T, V]
}

func newPairTable[T comparable, V any](c *keys.Compressor[T]) pairTable[T, V] {
	return pairTable[T, V]{m: keys.NewPairMap[T, V](c)}
}

func (t pairTable[T, V]) get(k keys.Pair[T]) (V, bool) { return t.m.Get(k.First, k.Second) }
func (t pairTable[T, V]) set(k keys.Pair[T], v V)      { t.m.Set(k.First, k.Second, v) }
func (t pairTable[T, V]) del(k keys.Pair[T])           { t.m.Delete(k.First, k.Second) }
func (t pairTable[T, V]) size() int                    { return t.m.Len() }

func (t pairTable[T, V]) each(f func(V)) {
	for _, v := range t.m.All() {
		f(v)
	}
}

type mapTable[K comparable, V any] map[K]V

func (t mapTable[K, V]) get(k K) (V, bool) {
	v, ok := t[k]
	return v, ok
}
func (t mapTable[K, V]) set(k K, v V) { t[k] = v }
func (t mapTable[K, V]) del(k K)      { delete(t, k) }
func (t mapTable[K, V]) size() int    { return len(t) }

func (t mapTable[K, V]) each(f func(V)) {
	for _, v := range t {
		f(v)
	}
}

// edgeCache is a two-level table of edge functions: the outer key identifies the edge between program points,
// the inner key the pair of facts.
type edgeCache[K any, D comparable, L any] struct {
	outer table[K, *keys.PairMap[D, *slot[EdgeFunction[L]]]]
	facts *keys.Compressor[D]
}

func newEdgeCache[K any, D comparable, L any](outer table[K, *keys.PairMap[D, *slot[EdgeFunction[L]]]],
	facts *keys.Compressor[D]) edgeCache[K, D, L] {
	return edgeCache[K, D, L]{outer: outer, facts: facts}
}

// newPairEdgeCache returns an edge cache whose outer key is a pair of program points
func newPairEdgeCache[N comparable, D comparable, L any](ctx *keys.Context[N, D]) edgeCache[keys.Pair[N], D, L] {
	outer := newPairTable[N, *keys.PairMap[D, *slot[EdgeFunction[L]]]](ctx.Nodes)
	return newEdgeCache[keys.Pair[N], D, L](outer, ctx.Facts)
}

func newMapEdgeCache[K comparable, D comparable, L any](facts *keys.Compressor[D]) edgeCache[K, D, L] {
	return newEdgeCache[K, D, L](mapTable[K, *keys.PairMap[D, *slot[EdgeFunction[L]]]]{}, facts)
}

func (e edgeCache[K, D, L]) inner(k K) pairTable[D, *slot[EdgeFunction[L]]] {
	m, ok := e.outer.get(k)
	if !ok {
		m = keys.NewPairMap[D, *slot[EdgeFunction[L]]](e.facts)
		e.outer.set(k, m)
	}
	return pairTable[D, *slot[EdgeFunction[L]]]{m: m}
}

func (e edgeCache[K, D, L]) each(f func(*slot[EdgeFunction[L]])) {
	e.outer.each(func(m *keys.PairMap[D, *slot[EdgeFunction[L]]]) {
		for _, s := range m.All() {
			f(s)
		}
	})
}

func (e edgeCache[K, D, L]) size() int {
	n := 0
	e.outer.each(func(m *keys.PairMap[D, *slot[EdgeFunction[L]]]) { n += m.Len() })
	return n
}
