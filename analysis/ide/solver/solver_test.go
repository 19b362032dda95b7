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

package solver

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/awslabs/ar-go-ide/analysis/config"
	"github.com/awslabs/ar-go-ide/analysis/icfg"
	"github.com/awslabs/ar-go-ide/analysis/ide"
	"github.com/awslabs/ar-go-ide/analysis/interactive"
	"github.com/awslabs/ar-go-ide/analysis/lattice"
	"github.com/google/go-cmp/cmp"
)

type V = lattice.Value[int]

const zero = "0"

var lat = lattice.Extended[int]{}

var errFail = errors.New("no flow function")

// addConst adds k to its input. Functions are interned in adds.
type addConst struct {
	k int
}

var adds = ide.NewSingletonCache[addConst]()

func add(k int) ide.EdgeFunction[V] {
	if k == 0 {
		return ide.Identity[V]{}
	}
	return ide.Intern(adds, addConst{k})
}

func (a *addConst) ComputeTarget(v V) V {
	if x, ok := v.Get(); ok {
		return lattice.Of(x + a.k)
	}
	return v
}

func (a *addConst) Compose(second ide.EdgeFunction[V]) ide.EdgeFunction[V] {
	if d := ide.DefaultComposeOrNil[V](a, second); d != nil {
		return d
	}
	if b, ok := second.(*addConst); ok {
		return add(a.k + b.k)
	}
	return nil
}

func (a *addConst) Join(other ide.EdgeFunction[V]) ide.EdgeFunction[V] {
	if d := ide.DefaultJoinOrNil[V](lat, 0, a, other); d != nil {
		return d
	}
	return &ide.AllBottom[V]{Lattice: lat}
}

func (a *addConst) String() string { return fmt.Sprintf("+%d", a.k) }

// stmt is a statement of the test language: lhs = k, lhs = rhs + k, a call, or a return of ret.
type stmt struct {
	lhs  string
	rhs  string
	k    int
	args map[string]string
	res  string
	ret  string
}

// lcp is a linear constant propagation over an explicit graph
type lcp struct {
	g      *icfg.Explicit
	stmts  map[int]stmt
	seeds  map[int]map[string]V
	opts   config.SolverOptions
	failAt int
	delay  time.Duration
}

func newLCP(g *icfg.Explicit, stmts map[int]stmt, entry int) *lcp {
	return &lcp{
		g:      g,
		stmts:  stmts,
		seeds:  map[int]map[string]V{entry: {zero: lattice.Top[int]()}},
		opts:   config.DefaultSolverOptions(),
		failAt: -1,
	}
}

func (p *lcp) ZeroValue() string                                                 { return zero }
func (p *lcp) SolverConfig() config.SolverOptions                                { return p.opts }
func (p *lcp) InitialSeeds() map[int]map[string]V                                { return p.seeds }
func (p *lcp) Lattice() lattice.JoinLattice[V]                                   { return lat }
func (p *lcp) SummaryFlowFunction(int, string) (ide.FlowFunction[string], error) { return nil, nil }

func (p *lcp) NormalFlowFunction(curr, succ int) (ide.FlowFunction[string], error) {
	if curr == p.failAt {
		return nil, errFail
	}
	time.Sleep(p.delay)
	st := p.stmts[curr]
	if st.lhs == "" {
		return &ide.IdentityFlow[string]{}, nil
	}
	return &ide.Lambda[string]{F: func(d string) []string {
		switch {
		case st.rhs == "" && d == zero:
			return []string{zero, st.lhs}
		case d == st.rhs && st.rhs == st.lhs:
			return []string{d}
		case d == st.rhs:
			return []string{d, st.lhs}
		case d == st.lhs:
			return nil
		default:
			return []string{d}
		}
	}}, nil
}

func (p *lcp) CallFlowFunction(callSite int, dest string) (ide.FlowFunction[string], error) {
	args := p.stmts[callSite].args
	return &ide.Lambda[string]{F: func(d string) []string {
		if d == zero {
			return []string{zero}
		}
		if formal, ok := args[d]; ok {
			return []string{formal}
		}
		return nil
	}}, nil
}

func (p *lcp) ReturnFlowFunction(callSite int, callee string, exit int, retSite int) (ide.FlowFunction[string], error) {
	ret, res := p.stmts[exit].ret, p.stmts[callSite].res
	return &ide.Lambda[string]{F: func(d string) []string {
		switch {
		case d == zero:
			return []string{zero}
		case d == ret && ret != "" && res != "":
			return []string{res}
		default:
			return nil
		}
	}}, nil
}

func (p *lcp) CallToReturnFlowFunction(callSite int, retSite int, callees []string) (ide.FlowFunction[string], error) {
	return &ide.Kill[string]{Fact: p.stmts[callSite].res}, nil
}

func (p *lcp) NormalEdgeFunction(curr int, currFact string, succ int, succFact string) (ide.EdgeFunction[V], error) {
	st := p.stmts[curr]
	if st.lhs != "" && succFact == st.lhs {
		if st.rhs == "" && currFact == zero {
			return ide.NewConstant[V](lat, lattice.Of(st.k)), nil
		}
		if st.rhs != "" && currFact == st.rhs {
			return add(st.k), nil
		}
	}
	return ide.Identity[V]{}, nil
}

func (p *lcp) CallEdgeFunction(int, string, string, string) (ide.EdgeFunction[V], error) {
	return ide.Identity[V]{}, nil
}

func (p *lcp) ReturnEdgeFunction(int, string, int, string, int, string) (ide.EdgeFunction[V], error) {
	return ide.Identity[V]{}, nil
}

func (p *lcp) CallToReturnEdgeFunction(int, string, int, string, []string) (ide.EdgeFunction[V], error) {
	return ide.Identity[V]{}, nil
}

func (p *lcp) SummaryEdgeFunction(int, string, int, string) (ide.EdgeFunction[V], error) {
	return nil, nil
}

// twoCalls builds
//
//	main: x = 3; y = x + 2; r = f(y); s = f(x); exit
//	f(p): q = p + 1; return q
func twoCalls() (*lcp, map[string]int) {
	b := icfg.NewBuilder()
	m := b.Seq("main", "x=3", "y=x+2", "r=f(y)", "s=f(x)", "exit")
	f := b.Seq("f", "entry", "q=p+1", "return q")
	b.Call(m[2], "f")
	b.Call(m[3], "f")
	g := b.Build()
	stmts := map[int]stmt{
		m[0]: {lhs: "x", k: 3},
		m[1]: {lhs: "y", rhs: "x", k: 2},
		m[2]: {args: map[string]string{"y": "p"}, res: "r"},
		m[3]: {args: map[string]string{"x": "p"}, res: "s"},
		f[1]: {lhs: "q", rhs: "p", k: 1},
		f[2]: {ret: "q"},
	}
	nodes := map[string]int{}
	for _, n := range append(m, f...) {
		nodes[g.FunctionOf(n)+"."+g.Label(n)] = n
	}
	return newLCP(g, stmts, m[0]), nodes
}

func show(values map[string]V) map[string]string {
	res := map[string]string{}
	for d, v := range values {
		res[d] = v.String()
	}
	return res
}

func TestLinearConstantPropagation(t *testing.T) {
	p, nodes := twoCalls()
	res, err := Solve[int, string, string, V](p, p.g, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasValues() {
		t.Fatalf("values should be computed")
	}
	tests := []struct {
		node string
		want map[string]string
	}{
		{"main.y=x+2", map[string]string{"x": "3"}},
		{"main.r=f(y)", map[string]string{"x": "3", "y": "5"}},
		{"main.s=f(x)", map[string]string{"x": "3", "y": "5", "r": "6"}},
		{"main.exit", map[string]string{"x": "3", "y": "5", "r": "6", "s": "4"}},
		{"f.q=p+1", map[string]string{"p": "Bottom"}},
		{"f.return q", map[string]string{"p": "Bottom", "q": "Bottom"}},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			got := show(res.ValuesAt(nodes[tt.node]))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if !res.Reached(nodes["main.exit"], zero) {
		t.Errorf("the zero fact should reach the exit of main")
	}
	if v := res.Value(nodes["main.x=3"], "x"); !v.IsTop() {
		t.Errorf("x should have no value before its definition, got %v", v)
	}
	if o := res.Lookup(nodes["main.x=3"], "x"); o.IsSome() {
		t.Errorf("x does not hold before its definition, got %v", o)
	}
	if r := res.Lookup(nodes["main.exit"], "r").Value(); !r.Equal(lattice.Of(6)) {
		t.Errorf("r should be 6 at the exit, got %v", r)
	}
}

func TestLoop(t *testing.T) {
	b := icfg.NewBuilder()
	m := b.Seq("main", "i=0", "head", "i=i+1")
	exit := b.Node("main", "exit")
	b.Edge(m[2], m[1])
	b.Edge(m[1], exit)
	g := b.Build()
	p := newLCP(g, map[int]stmt{
		m[0]: {lhs: "i", k: 0},
		m[2]: {lhs: "i", rhs: "i", k: 1},
	}, m[0])
	var buf bytes.Buffer
	res, err := Solve[int, string, string, V](p, g, config.NewLogGroupWithLevel(config.DebugLevel, &buf))
	if err != nil {
		t.Fatal(err)
	}
	if v := res.Value(exit, "i"); !v.IsBottom() {
		t.Errorf("i is not constant after the loop, got %v", v)
	}
	if !strings.Contains(buf.String(), "intra-procedural loops: 1 ") {
		t.Errorf("the loop of main should be logged, got:\n%s", buf.String())
	}
}

func TestFactsOnly(t *testing.T) {
	p, nodes := twoCalls()
	p.opts.ComputeValues = false
	res, err := Solve[int, string, string, V](p, p.g, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.HasValues() {
		t.Errorf("values should not be computed")
	}
	for _, d := range []string{"x", "y", "r", "s"} {
		if !res.Reached(nodes["main.exit"], d) {
			t.Errorf("%s should reach the exit of main", d)
		}
	}
	if res.Reached(nodes["main.exit"], "q") {
		t.Errorf("locals of f should not reach main")
	}
	if !res.Value(nodes["main.exit"], "r").IsTop() || res.Lookup(nodes["main.exit"], "r").IsSome() {
		t.Errorf("values are Top when not computed")
	}
}

func TestClientErrorAbortsSolve(t *testing.T) {
	p, nodes := twoCalls()
	p.failAt = nodes["main.y=x+2"]
	_, err := Solve[int, string, string, V](p, p.g, nil)
	if !errors.Is(err, errFail) {
		t.Errorf("Solve should return the error of the problem, got %v", err)
	}
}

func TestSolveTimeout(t *testing.T) {
	p, _ := twoCalls()
	p.delay = 2 * time.Millisecond
	p.opts.TimeoutMs = 1
	p.opts.CheckFrequencyMs = 1
	if _, err := Solve[int, string, string, V](p, p.g, nil); !errors.Is(err, ErrTimeout) {
		t.Errorf("slow solve should time out, got %v", err)
	}
}

func TestInteractiveSolve(t *testing.T) {
	p, nodes := twoCalls()
	s := New[int, string, string, V](p, p.g, nil)
	session := interactive.NewSession[*Results[int, string, V]](s, nil)
	res, err := interactive.SolveUntil(session, func() bool { return true }, 0)
	if err != nil || res.IsSome() {
		t.Fatalf("solve should be cancelled")
	}
	for session.Next() {
	}
	final, err := session.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if v := final.Value(nodes["main.exit"], "s"); !v.Equal(lattice.Of(4)) {
		t.Errorf("resumed solve should compute s = 4, got %v", v)
	}
}

func TestStatisticsAreLogged(t *testing.T) {
	p, _ := twoCalls()
	p.opts.RecordStatistics = true
	var buf bytes.Buffer
	logger := config.NewLogGroupWithLevel(config.InfoLevel, &buf)
	s := New[int, string, string, V](p, p.g, logger)
	session := interactive.NewSession[*Results[int, string, V]](s, logger)
	if _, _, err := session.Run(p.opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "flow-edge function cache statistics") {
		t.Errorf("statistics should be logged, got:\n%s", buf.String())
	}
	stats := s.Cache().Statistics()
	if stats[ide.NormalFlow].Constructions == 0 || stats[ide.CallFlow].Constructions != 2 {
		t.Errorf("unexpected cache statistics %+v", stats)
	}
	if stats[ide.NormalFlow].Hits == 0 {
		t.Errorf("normal flow functions should be reused across facts")
	}
}

func TestWriteReport(t *testing.T) {
	p, _ := twoCalls()
	s := New[int, string, string, V](p, p.g, nil)
	session := interactive.NewSession[*Results[int, string, V]](s, nil)
	if _, _, err := session.Run(p.opts); err != nil {
		t.Fatal(err)
	}
	cfg := config.NewDefault()
	if name, err := s.WriteReport(cfg); err != nil || name != "" {
		t.Errorf("no report should be written by default, got %q, %v", name, err)
	}
	cfg.ReportStatistics = true
	cfg.ReportsDir = t.TempDir()
	name, err := s.WriteReport(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "call-to-return edge") {
		t.Errorf("report should list the statistics of every kind, got:\n%s", b)
	}
}
