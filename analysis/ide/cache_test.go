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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-ide/analysis/config"
	"github.com/awslabs/ar-go-ide/analysis/lattice"
	"github.com/awslabs/ar-go-ide/internal/keys"
	"github.com/google/go-cmp/cmp"
)

type node struct {
	name string
}

func (n *node) String() string { return n.name }

// testProblem counts the calls to its factories and returns a fresh function on every call.
type testProblem struct {
	opts  config.SolverOptions
	calls map[FunctionKind]int
	err   error
	hook  func(curr, succ *node)
}

func newTestProblem(autoAddZero bool) *testProblem {
	opts := config.DefaultSolverOptions()
	opts.AutoAddZero = autoAddZero
	return &testProblem{opts: opts, calls: map[FunctionKind]int{}}
}

func (p *testProblem) ZeroValue() string { return "0" }

func (p *testProblem) SolverConfig() config.SolverOptions { return p.opts }

func (p *testProblem) NormalFlowFunction(curr, succ *node) (FlowFunction[string], error) {
	p.calls[NormalFlow]++
	if p.hook != nil {
		p.hook(curr, succ)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &Gen[string]{From: "x", Facts: []string{curr.name}}, nil
}

func (p *testProblem) CallFlowFunction(callSite *node, dest string) (FlowFunction[string], error) {
	p.calls[CallFlow]++
	return &Kill[string]{Fact: dest}, p.err
}

func (p *testProblem) ReturnFlowFunction(callSite *node, callee string, exit *node, retSite *node) (
	FlowFunction[string], error) {
	p.calls[ReturnFlow]++
	return &Kill[string]{Fact: callee}, p.err
}

func (p *testProblem) CallToReturnFlowFunction(callSite *node, retSite *node, callees []string) (
	FlowFunction[string], error) {
	p.calls[CallToReturnFlow]++
	return &Lambda[string]{F: func(d string) []string { return callees }}, p.err
}

func (p *testProblem) SummaryFlowFunction(callSite *node, dest string) (FlowFunction[string], error) {
	p.calls[SummaryFlow]++
	return nil, p.err
}

func (p *testProblem) NormalEdgeFunction(curr *node, currFact string, succ *node, succFact string) (
	EdgeFunction[V], error) {
	p.calls[NormalEdge]++
	return NewConstant[V](lat, lattice.Of(len(currFact))), p.err
}

func (p *testProblem) CallEdgeFunction(callSite *node, srcFact string, dest string, destFact string) (
	EdgeFunction[V], error) {
	p.calls[CallEdge]++
	return &Composition[V]{First: add(1), Second: add(len(destFact))}, p.err
}

func (p *testProblem) ReturnEdgeFunction(callSite *node, callee string, exit *node, exitFact string,
	retSite *node, retFact string) (EdgeFunction[V], error) {
	p.calls[ReturnEdge]++
	return add(2), p.err
}

func (p *testProblem) CallToReturnEdgeFunction(callSite *node, callFact string, retSite *node, retFact string,
	callees []string) (EdgeFunction[V], error) {
	p.calls[CallToReturnEdge]++
	return Identity[V]{}, p.err
}

func (p *testProblem) SummaryEdgeFunction(callSite *node, callFact string, retSite *node, retFact string) (
	EdgeFunction[V], error) {
	p.calls[SummaryEdge]++
	return nil, p.err
}

func newTestCache(p *testProblem) *FlowEdgeFunctionCache[*node, string, string, V] {
	return NewFlowEdgeFunctionCache[*node, string, string, V](p, keys.NewContext[*node, string](), config.Discard())
}

func TestNormalFlowFunctionIsMemoized(t *testing.T) {
	p := newTestProblem(false)
	c := newTestCache(p)
	n1, n2, n3 := &node{"n1"}, &node{"n2"}, &node{"n3"}
	f1, err := c.NormalFlowFunction(n1, n2)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := c.NormalFlowFunction(n1, n2)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Errorf("two queries of the same key should return the same function")
	}
	if p.calls[NormalFlow] != 1 {
		t.Errorf("factory called %d times, want 1", p.calls[NormalFlow])
	}
	f3, _ := c.NormalFlowFunction(n2, n3)
	if f3 == f1 || p.calls[NormalFlow] != 2 {
		t.Errorf("a different key should construct a different function")
	}
}

func TestAtMostOneConstructionPerKey(t *testing.T) {
	p := newTestProblem(true)
	c := newTestCache(p)
	cs, rs, exit := &node{"cs"}, &node{"rs"}, &node{"exit"}
	for i := 0; i < 10; i++ {
		mustGet(t, func() (any, error) { return c.NormalFlowFunction(cs, rs) })
		mustGet(t, func() (any, error) { return c.CallFlowFunction(cs, "g") })
		mustGet(t, func() (any, error) { return c.ReturnFlowFunction(cs, "g", exit, rs) })
		mustGet(t, func() (any, error) { return c.CallToReturnFlowFunction(cs, rs, []string{"g"}) })
		mustGet(t, func() (any, error) { return c.NormalEdgeFunction(cs, "a", rs, "b") })
		mustGet(t, func() (any, error) { return c.CallEdgeFunction(cs, "a", "g", "b") })
		mustGet(t, func() (any, error) { return c.ReturnEdgeFunction(cs, "g", exit, "a", rs, "b") })
		mustGet(t, func() (any, error) { return c.CallToReturnEdgeFunction(cs, "a", rs, "b", nil) })
		mustGet(t, func() (any, error) { return c.SummaryEdgeFunction(cs, "a", rs, "b") })
	}
	for _, k := range Kinds() {
		if k == SummaryFlow {
			continue
		}
		if p.calls[k] != 1 {
			t.Errorf("%s factory called %d times, want 1", k, p.calls[k])
		}
		s := c.Statistics()[k]
		if s.Constructions != 1 || s.Hits != 9 || s.Entries != 1 {
			t.Errorf("%s statistics: %+v", k, s)
		}
	}
}

func mustGet(t *testing.T, get func() (any, error)) {
	t.Helper()
	if _, err := get(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEdgeFunctionsAreKeyedByFacts(t *testing.T) {
	p := newTestProblem(false)
	c := newTestCache(p)
	a, b := &node{"a"}, &node{"b"}
	e1, _ := c.NormalEdgeFunction(a, "x", b, "y")
	e2, _ := c.NormalEdgeFunction(a, "xx", b, "y")
	e3, _ := c.NormalEdgeFunction(a, "x", b, "y")
	if Equal(e1, e2) {
		t.Errorf("different facts should give different functions")
	}
	if !Equal(e1, e3) || p.calls[NormalEdge] != 2 {
		t.Errorf("same facts should give the cached function")
	}
	count := map[FunctionKind]int{}
	c.ForEachCachedEdgeFunction(func(kind FunctionKind, ef EdgeFunction[V]) { count[kind]++ })
	if diff := cmp.Diff(map[FunctionKind]int{NormalEdge: 2}, count); diff != "" {
		t.Errorf("cached edge functions mismatch (-want +got):\n%s", diff)
	}
}

func TestCallToReturnIgnoresCallees(t *testing.T) {
	p := newTestProblem(false)
	c := newTestCache(p)
	cs, rs := &node{"cs"}, &node{"rs"}
	f1, _ := c.CallToReturnFlowFunction(cs, rs, []string{"f"})
	f2, _ := c.CallToReturnFlowFunction(cs, rs, []string{"f", "g"})
	if f1 != f2 || p.calls[CallToReturnFlow] != 1 {
		t.Errorf("call-to-return functions at the same site should be shared")
	}
	if got := Targets(f2, "x"); !cmp.Equal(got, []string{"f"}) {
		t.Errorf("the first query determines the function, got targets %v", got)
	}
}

func TestSummaryFlowFunctionIsNotCached(t *testing.T) {
	p := newTestProblem(false)
	c := newTestCache(p)
	cs := &node{"cs"}
	for i := 0; i < 3; i++ {
		f, err := c.SummaryFlowFunction(cs, "g")
		if f != nil || err != nil {
			t.Fatalf("unexpected summary %v, %v", f, err)
		}
	}
	if p.calls[SummaryFlow] != 3 || c.Statistics()[SummaryFlow].Constructions != 3 {
		t.Errorf("every summary query should reach the problem")
	}
}

func TestAutoAddZero(t *testing.T) {
	cs := &node{"cs"}
	rs := &node{"rs"}
	for _, autoAddZero := range []bool{false, true} {
		p := newTestProblem(autoAddZero)
		c := newTestCache(p)
		f, _ := c.CallFlowFunction(cs, "0")
		_, zeroed := f.(*Zeroed[string])
		if zeroed != autoAddZero {
			t.Errorf("auto-add-zero %v: flow function is %T", autoAddZero, f)
		}
		got := Targets(f, "0")
		if autoAddZero && !cmp.Equal(got, []string{"0"}) {
			t.Errorf("the zero fact should always flow to itself, got %v", got)
		}
		if !autoAddZero && len(got) != 0 {
			t.Errorf("without auto-add-zero the zero fact is killed, got %v", got)
		}
		n, _ := c.NormalFlowFunction(cs, rs)
		if got := Targets(n, "x"); !cmp.Equal(got, []string{"x", "cs"}) {
			t.Errorf("non-zero facts should only follow the problem, got %v", got)
		}
		s, _ := c.SummaryFlowFunction(cs, "g")
		if s != nil {
			t.Errorf("summary flow functions are never wrapped")
		}
	}
}

func TestClientErrorsPropagate(t *testing.T) {
	p := newTestProblem(true)
	c := newTestCache(p)
	errClient := errors.New("cannot build function")
	p.err = errClient
	a, b := &node{"a"}, &node{"b"}
	if _, err := c.NormalFlowFunction(a, b); err != errClient {
		t.Errorf("error should propagate unchanged, got %v", err)
	}
	if _, err := c.NormalEdgeFunction(a, "x", b, "y"); err != errClient {
		t.Errorf("error should propagate unchanged, got %v", err)
	}
	if _, err := c.SummaryFlowFunction(a, "f"); err != errClient {
		t.Errorf("error should propagate unchanged, got %v", err)
	}
	if s := c.Statistics()[NormalFlow]; s.Entries != 0 || s.Constructions != 0 {
		t.Errorf("a failed construction should not be published: %+v", s)
	}
	if s := c.Statistics()[SummaryFlow]; s.Constructions != 0 {
		t.Errorf("a failed summary query should not count as a construction: %+v", s)
	}
	p.err = nil
	if _, err := c.NormalFlowFunction(a, b); err != nil {
		t.Errorf("construction should be retried after a failure, got %v", err)
	}
	if p.calls[NormalFlow] != 2 {
		t.Errorf("factory called %d times, want 2", p.calls[NormalFlow])
	}
}

func TestReentrantQueries(t *testing.T) {
	p := newTestProblem(false)
	c := newTestCache(p)
	a, b, d := &node{"a"}, &node{"b"}, &node{"d"}
	// a construction may query other keys
	p.hook = func(curr, succ *node) {
		if curr == a {
			if _, err := c.NormalFlowFunction(b, d); err != nil {
				t.Errorf("nested query failed: %v", err)
			}
		}
	}
	if _, err := c.NormalFlowFunction(a, b); err != nil {
		t.Fatal(err)
	}
	if s := c.Statistics()[NormalFlow]; s.Entries != 2 || s.Constructions != 2 {
		t.Errorf("nested construction should be cached: %+v", s)
	}

	// querying the key under construction is a programming error
	p.hook = func(curr, succ *node) {
		if curr == d {
			c.NormalFlowFunction(d, a)
		}
	}
	func() {
		defer func() {
			r := recover()
			if r == nil || !strings.Contains(r.(string), "being constructed") {
				t.Errorf("expected a panic on re-entrant construction, got %v", r)
			}
		}()
		c.NormalFlowFunction(d, a)
	}()
	p.hook = nil
	if _, err := c.NormalFlowFunction(d, a); err != nil {
		t.Errorf("key should be constructible after the aborted construction: %v", err)
	}
}

func TestNilProgramPointsPanic(t *testing.T) {
	c := newTestCache(newTestProblem(false))
	n := &node{"n"}
	queries := map[string]func(){
		"normal":         func() { c.NormalFlowFunction(nil, n) },
		"call":           func() { c.CallFlowFunction(nil, "f") },
		"return":         func() { c.ReturnFlowFunction(n, "f", nil, n) },
		"call-to-return": func() { c.CallToReturnFlowFunction(n, nil, nil) },
		"summary":        func() { c.SummaryFlowFunction(nil, "f") },
		"normal edge":    func() { c.NormalEdgeFunction(n, "x", nil, "y") },
		"summary edge":   func() { c.SummaryEdgeFunction(nil, "x", n, "y") },
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("nil program point should panic")
				}
			}()
			q()
		})
	}
}

func TestStatisticsOutput(t *testing.T) {
	p := newTestProblem(false)
	var buf bytes.Buffer
	logger := config.NewLogGroupWithLevel(config.InfoLevel, &buf)
	logger.SetAllFlags(0)
	c := NewFlowEdgeFunctionCache[*node, string, string, V](p, nil, logger)
	a, b := &node{"a"}, &node{"b"}
	c.NormalFlowFunction(a, b)
	c.NormalFlowFunction(a, b)
	c.Print()
	if !strings.Contains(buf.String(), "[INFO]   normal flow            entries: 1, hits: 1, constructions: 1") {
		t.Errorf("unexpected statistics log:\n%s", buf.String())
	}
	var out bytes.Buffer
	if err := c.WriteStatistics(&out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(Kinds())+2 {
		t.Errorf("expected a header and one line per kind, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[2], "normal flow") || !strings.HasSuffix(lines[2], "1") {
		t.Errorf("unexpected line for normal flow: %q", lines[2])
	}
}
