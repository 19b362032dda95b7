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

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// CallgraphMode selects the algorithm computing the call graph of an SSA ICFG
type CallgraphMode uint64

const (
	StaticCallgraph        CallgraphMode = iota // StaticCallgraph only has static calls (under-approximating, fast)
	ClassHierarchyAnalysis                      // ClassHierarchyAnalysis is a coarse over-approximation (fast)
	RapidTypeAnalysis                           // RapidTypeAnalysis starts from the main and init functions
	VariableTypeAnalysis                        // VariableTypeAnalysis refines the static call graph
)

// ComputeCallgraph computes the call graph of prog using the provided mode.
func (mode CallgraphMode) ComputeCallgraph(prog *ssa.Program) (*callgraph.Graph, error) {
	switch mode {
	case StaticCallgraph:
		return static.CallGraph(prog), nil
	case ClassHierarchyAnalysis:
		return cha.CallGraph(prog), nil
	case VariableTypeAnalysis:
		roots := make(map[*ssa.Function]bool)
		for _, m := range ssautil.MainPackages(prog.AllPackages()) {
			roots[m.Func("init")] = true
			roots[m.Func("main")] = true
		}
		return vta.CallGraph(roots, static.CallGraph(prog)), nil
	case RapidTypeAnalysis:
		var roots []*ssa.Function
		for _, m := range ssautil.MainPackages(prog.AllPackages()) {
			roots = append(roots, m.Func("init"), m.Func("main"))
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("rapid type analysis needs a main package")
		}
		return rta.Analyze(roots, true).CallGraph, nil
	default:
		return nil, fmt.Errorf("unsupported callgraph mode %d", mode)
	}
}

// SSA is the ICFG of a program in SSA form. Program points are instructions, procedures are functions. Only calls
// (not go or defer instructions) are call sites.
type SSA struct {
	prog  *ssa.Program
	cg    *callgraph.Graph
	index map[ssa.Instruction]int
}

// NewSSA returns the ICFG of prog with the calls of cg
func NewSSA(prog *ssa.Program, cg *callgraph.Graph) *SSA {
	return &SSA{prog: prog, cg: cg, index: map[ssa.Instruction]int{}}
}

// NewSSAWithMode returns the ICFG of prog with a call graph computed with mode
func NewSSAWithMode(prog *ssa.Program, mode CallgraphMode) (*SSA, error) {
	cg, err := mode.ComputeCallgraph(prog)
	if err != nil {
		return nil, fmt.Errorf("could not compute callgraph: %w", err)
	}
	return NewSSA(prog, cg), nil
}

// NewSSAStatic returns the ICFG of prog with its static call graph
func NewSSAStatic(prog *ssa.Program) *SSA {
	return NewSSA(prog, static.CallGraph(prog))
}

// Program returns the program of the graph
func (g *SSA) Program() *ssa.Program { return g.prog }

func (g *SSA) FunctionOf(n ssa.Instruction) *ssa.Function { return n.Parent() }

// position returns the index of n in its block
func (g *SSA) position(n ssa.Instruction) int {
	if i, ok := g.index[n]; ok {
		return i
	}
	for i, instr := range n.Block().Instrs {
		g.index[instr] = i
	}
	return g.index[n]
}

func (g *SSA) Succs(n ssa.Instruction) []ssa.Instruction {
	b := n.Block()
	if i := g.position(n); i+1 < len(b.Instrs) {
		return []ssa.Instruction{b.Instrs[i+1]}
	}
	var res []ssa.Instruction
	for _, s := range b.Succs {
		if len(s.Instrs) > 0 {
			res = append(res, s.Instrs[0])
		}
	}
	return res
}

func (g *SSA) IsCallSite(n ssa.Instruction) bool {
	_, ok := n.(*ssa.Call)
	return ok
}

func (g *SSA) Callees(callSite ssa.Instruction) []*ssa.Function {
	call, ok := callSite.(*ssa.Call)
	if !ok {
		return nil
	}
	node := g.cg.Nodes[call.Parent()]
	if node == nil {
		return nil
	}
	var res []*ssa.Function
	seen := map[*ssa.Function]bool{}
	for _, e := range node.Out {
		if e.Site != call || e.Callee == nil {
			continue
		}
		f := e.Callee.Func
		if f != nil && len(f.Blocks) > 0 && !seen[f] {
			seen[f] = true
			res = append(res, f)
		}
	}
	return res
}

func (g *SSA) ReturnSites(callSite ssa.Instruction) []ssa.Instruction { return g.Succs(callSite) }

func (g *SSA) CallsFromWithin(f *ssa.Function) []ssa.Instruction {
	var res []ssa.Instruction
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if _, ok := instr.(*ssa.Call); ok {
				res = append(res, instr)
			}
		}
	}
	return res
}

func (g *SSA) StartPoints(f *ssa.Function) []ssa.Instruction {
	if len(f.Blocks) == 0 || len(f.Blocks[0].Instrs) == 0 {
		return nil
	}
	return []ssa.Instruction{f.Blocks[0].Instrs[0]}
}

func (g *SSA) IsExit(n ssa.Instruction) bool {
	switch n.(type) {
	case *ssa.Return, *ssa.Panic:
		return true
	default:
		return false
	}
}
