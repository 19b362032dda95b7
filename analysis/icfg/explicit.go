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

package icfg

import (
	"fmt"
	"strings"

	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// Explicit is an ICFG over integer program points and procedures identified by name, built with a Builder.
type Explicit struct {
	cfg     *graph.Mutable
	labels  []string
	procOf  []string
	starts  map[string]int
	calls   map[string][]int
	callees map[int][]string
}

// A Builder builds an Explicit ICFG. The first node added to a procedure is its start point, nodes without
// successors are its exit points. Successors are returned in increasing order.
type Builder struct {
	labels  []string
	procOf  []string
	starts  map[string]int
	calls   map[string][]int
	callees map[int][]string
	edges   [][2]int
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{
		starts:  map[string]int{},
		calls:   map[string][]int{},
		callees: map[int][]string{},
	}
}

// Node adds a node labelled label to proc and returns it
func (b *Builder) Node(proc string, label string) int {
	n := len(b.labels)
	b.labels = append(b.labels, label)
	b.procOf = append(b.procOf, proc)
	if _, ok := b.starts[proc]; !ok {
		b.starts[proc] = n
	}
	return n
}

// Seq adds a sequence of nodes to proc, each one the successor of the previous one, and returns them.
func (b *Builder) Seq(proc string, labels ...string) []int {
	res := make([]int, len(labels))
	for i, l := range labels {
		res[i] = b.Node(proc, l)
		if i > 0 {
			b.Edge(res[i-1], res[i])
		}
	}
	return res
}

// Edge adds an intra-procedural edge. It panics if the nodes are in different procedures.
func (b *Builder) Edge(from, to int) {
	if b.procOf[from] != b.procOf[to] {
		panic(fmt.Sprintf("icfg: edge from %s to %s crosses procedures", b.labels[from], b.labels[to]))
	}
	b.edges = append(b.edges, [2]int{from, to})
}

// Call marks n as a call site of callees
func (b *Builder) Call(n int, callees ...string) {
	if _, ok := b.callees[n]; !ok {
		b.calls[b.procOf[n]] = append(b.calls[b.procOf[n]], n)
	}
	b.callees[n] = append(b.callees[n], callees...)
}

// Build returns the graph. It panics if a callee has no node.
func (b *Builder) Build() *Explicit {
	for n, callees := range b.callees {
		for _, f := range callees {
			if _, ok := b.starts[f]; !ok {
				panic(fmt.Sprintf("icfg: %s calls %s, which has no nodes", b.labels[n], f))
			}
		}
	}
	g := graph.New(len(b.labels))
	for _, e := range b.edges {
		g.Add(e[0], e[1])
	}
	return &Explicit{
		cfg:     g,
		labels:  b.labels,
		procOf:  b.procOf,
		starts:  b.starts,
		calls:   b.calls,
		callees: b.callees,
	}
}

func (e *Explicit) FunctionOf(n int) string { return e.procOf[n] }

func (e *Explicit) Succs(n int) []int {
	var res []int
	e.cfg.Visit(n, func(w int, _ int64) bool {
		res = append(res, w)
		return false
	})
	slices.Sort(res)
	return res
}

func (e *Explicit) IsCallSite(n int) bool {
	_, ok := e.callees[n]
	return ok
}

func (e *Explicit) Callees(callSite int) []string { return e.callees[callSite] }

func (e *Explicit) ReturnSites(callSite int) []int { return e.Succs(callSite) }

func (e *Explicit) CallsFromWithin(f string) []int { return e.calls[f] }

func (e *Explicit) StartPoints(f string) []int {
	if n, ok := e.starts[f]; ok {
		return []int{n}
	}
	return nil
}

func (e *Explicit) IsExit(n int) bool { return e.cfg.Degree(n) == 0 }

// Label returns the label of n
func (e *Explicit) Label(n int) string { return e.labels[n] }

// Find returns the node of proc labelled label, or -1
func (e *Explicit) Find(proc, label string) int {
	for n, l := range e.labels {
		if l == label && e.procOf[n] == proc {
			return n
		}
	}
	return -1
}

// Order returns the number of nodes
func (e *Explicit) Order() int { return e.cfg.Order() }

// Loops returns the sets of nodes that lie on an intra-procedural cycle, each set being a strongly connected
// component of the control-flow graph.
func (e *Explicit) Loops() [][]int {
	var res [][]int
	for _, c := range graph.StrongComponents(e.cfg) {
		if len(c) > 1 || e.cfg.Edge(c[0], c[0]) {
			res = append(res, c)
		}
	}
	return res
}

func (e *Explicit) String() string {
	var b strings.Builder
	for n, l := range e.labels {
		fmt.Fprintf(&b, "%d %s.%s ->", n, e.procOf[n], l)
		for _, s := range e.Succs(n) {
			fmt.Fprintf(&b, " %d", s)
		}
		if callees := e.callees[n]; len(callees) > 0 {
			fmt.Fprintf(&b, " calls %s", strings.Join(callees, ","))
		}
		b.WriteString("\n")
	}
	return b.String()
}
