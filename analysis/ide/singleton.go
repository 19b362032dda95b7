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

import "fmt"

// A SingletonCache holds at most one representative of every structurally distinct value of E. Edge function
// types use it to share a single allocation among all equal functions: two interned pointers are equal iff the
// values they point to are equal.
//
// The cache is keyed by the values themselves, so every value of E is a valid entry.
type SingletonCache[E comparable] struct {
	entries map[E]*E
}

// NewSingletonCache returns an empty cache
func NewSingletonCache[E comparable]() *SingletonCache[E] {
	return &SingletonCache[E]{entries: map[E]*E{}}
}

// Lookup returns the representative equal to v, if there is one.
func (c *SingletonCache[E]) Lookup(v E) (*E, bool) {
	p, ok := c.entries[v]
	return p, ok
}

// Insert makes p the representative of *p. It panics if there already is a representative equal to *p.
func (c *SingletonCache[E]) Insert(p *E) {
	if p == nil {
		panic("ide: insert of a nil value in singleton cache")
	}
	if _, ok := c.entries[*p]; ok {
		panic(fmt.Sprintf("ide: singleton cache already holds a value equal to %v", *p))
	}
	c.entries[*p] = p
}

// Erase removes the representative equal to v. It panics if there is none.
func (c *SingletonCache[E]) Erase(v E) {
	if _, ok := c.entries[v]; !ok {
		panic(fmt.Sprintf("ide: singleton cache does not hold %v", v))
	}
	delete(c.entries, v)
}

// Len returns the number of representatives
func (c *SingletonCache[E]) Len() int {
	return len(c.entries)
}

// Intern returns the representative of v in c, allocating and inserting it if necessary. It is the allocator
// of client edge functions: the pointers it returns for equal values are equal.
func Intern[E comparable](c *SingletonCache[E], v E) *E {
	if p, ok := c.entries[v]; ok {
		return p
	}
	p := new(E)
	*p = v
	c.entries[v] = p
	return p
}
