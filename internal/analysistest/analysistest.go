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

// Package analysistest builds small programs in SSA form for tests, and extracts the flows they are annotated
// with.
package analysistest

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"regexp"
	"sort"
	"strings"
	"testing"

	"golang.org/x/exp/maps"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Program is a single-file main package in SSA form
type Program struct {
	Prog *ssa.Program
	Pkg  *ssa.Package
	Fset *token.FileSet
	File *ast.File
}

// BuildSSA parses src as the file main.go of package main, type-checks it and builds it in SSA form.
func BuildSSA(t *testing.T, src string) *Program {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("error parsing test program: %v", err)
	}
	pkg := types.NewPackage("main", "")
	conf := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{f}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("error building test program: %v", err)
	}
	return &Program{Prog: ssaPkg.Prog, Pkg: ssaPkg, Fset: fset, File: f}
}

// Func returns the function of the package named name, failing the test if there is none
func (p *Program) Func(t *testing.T, name string) *ssa.Function {
	t.Helper()
	f := p.Pkg.Func(name)
	if f == nil {
		t.Fatalf("no function %s in test program", name)
	}
	return f
}

// Match annotations of the form "@Source(id1, id2, id3)"
var SourceRegex = regexp.MustCompile(`//.*@Source\(((?:\s*\w\s*,?)+)\)`)
var SinkRegex = regexp.MustCompile(`//.*@Sink\(((?:\s*\w\s*,?)+)\)`)

type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn drops the column of pos
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: pos.Filename}
}

// InstrPos returns the position of instr, without column
func (p *Program) InstrPos(instr ssa.Instruction) LPos {
	return RemoveColumn(p.Fset.Position(instr.Pos()))
}

// ExpectedSourceToSink looks for comments @Source(id) and @Sink(id) to construct the expected flows from sources
// to sinks, in the form of a map from sink positions to all the source positions that reach that sink.
func (p *Program) ExpectedSourceToSink() map[LPos]map[LPos]bool {
	sourceIds := map[string]LPos{}
	source2sink := map[LPos]map[LPos]bool{}
	forEachAnnotation(p, SourceRegex, func(ident string, pos LPos) {
		sourceIds[ident] = pos
	})
	forEachAnnotation(p, SinkRegex, func(ident string, pos LPos) {
		sourcePos, ok := sourceIds[ident]
		if !ok {
			return
		}
		if _, ok := source2sink[pos]; !ok {
			source2sink[pos] = map[LPos]bool{}
		}
		source2sink[pos][sourcePos] = true
	})
	return source2sink
}

// SinkLines returns the positions of all the sink annotations
func (p *Program) SinkLines() []LPos {
	lines := map[LPos]bool{}
	forEachAnnotation(p, SinkRegex, func(_ string, pos LPos) { lines[pos] = true })
	res := maps.Keys(lines)
	sort.Slice(res, func(i, j int) bool { return res[i].Line < res[j].Line })
	return res
}

func forEachAnnotation(p *Program, re *regexp.Regexp, f func(ident string, pos LPos)) {
	for _, c := range p.File.Comments {
		for _, c1 := range c.List {
			a := re.FindStringSubmatch(c1.Text)
			if len(a) <= 1 {
				continue
			}
			pos := RemoveColumn(p.Fset.Position(c1.Pos()))
			for _, ident := range strings.Split(a[1], ",") {
				f(strings.TrimSpace(ident), pos)
			}
		}
	}
}
