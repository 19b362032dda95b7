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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/slices"
)

func expectPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s should panic", what)
		}
	}()
	f()
}

func TestExplicit(t *testing.T) {
	b := NewBuilder()
	m := b.Seq("main", "a", "call", "b", "c")
	ret := b.Node("main", "ret")
	b.Edge(m[0], m[2])
	b.Edge(m[3], ret)
	b.Call(m[1], "f", "g")
	f := b.Seq("f", "f0", "f1")
	g := b.Node("g", "g0")
	e := b.Build()

	if e.Order() != 8 {
		t.Errorf("expected 8 nodes, got %d", e.Order())
	}
	if diff := cmp.Diff([]int{m[1], m[2]}, e.Succs(m[0])); diff != "" {
		t.Errorf("successors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{f[0]}, e.StartPoints("f")); diff != "" {
		t.Errorf("start points mismatch (-want +got):\n%s", diff)
	}
	if e.StartPoints("h") != nil {
		t.Errorf("unknown procedures have no start point")
	}
	if !e.IsCallSite(m[1]) || e.IsCallSite(m[0]) {
		t.Errorf("only %d should be a call site", m[1])
	}
	if diff := cmp.Diff([]string{"f", "g"}, e.Callees(m[1])); diff != "" {
		t.Errorf("callees mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{m[2]}, e.ReturnSites(m[1])); diff != "" {
		t.Errorf("return sites mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{m[1]}, e.CallsFromWithin("main")); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	for _, n := range []int{ret, f[1], g} {
		if !e.IsExit(n) {
			t.Errorf("%s should be an exit", e.Label(n))
		}
	}
	if e.IsExit(f[0]) {
		t.Errorf("f0 is not an exit")
	}
	if e.FunctionOf(f[1]) != "f" || e.Find("f", "f1") != f[1] || e.Find("main", "f1") != -1 {
		t.Errorf("nodes should be found by procedure and label")
	}
	if e.Loops() != nil {
		t.Errorf("graph has no loop, got %v", e.Loops())
	}
	lines := strings.Split(strings.TrimSpace(e.String()), "\n")
	if len(lines) != 8 || lines[1] != "1 main.call -> 2 calls f,g" {
		t.Errorf("unexpected string:\n%s", e.String())
	}
}

func TestExplicitLoops(t *testing.T) {
	b := NewBuilder()
	m := b.Seq("main", "init", "head", "body", "exit")
	b.Edge(m[2], m[1])
	self := b.Node("main", "spin")
	b.Edge(m[0], self)
	b.Edge(self, self)
	e := b.Build()
	var got []string
	for _, loop := range e.Loops() {
		var labels []string
		for _, n := range loop {
			labels = append(labels, e.Label(n))
		}
		got = append(got, strings.Join(sorted(labels), ","))
	}
	if diff := cmp.Diff([]string{"body,head", "spin"}, sorted(got)); diff != "" {
		t.Errorf("loops mismatch (-want +got):\n%s", diff)
	}
}

func sorted(a []string) []string {
	res := slices.Clone(a)
	slices.Sort(res)
	return res
}

func TestBuilderMisuse(t *testing.T) {
	expectPanic(t, "edge across procedures", func() {
		b := NewBuilder()
		b.Edge(b.Node("f", "a"), b.Node("g", "b"))
	})
	expectPanic(t, "call to a procedure without nodes", func() {
		b := NewBuilder()
		b.Call(b.Node("f", "a"), "g")
		b.Build()
	})
}
