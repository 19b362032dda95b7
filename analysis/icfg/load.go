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
	"go/token"
	"os"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode. We load all possible information.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram is a program loaded from source and built in SSA form
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages are the packages matched by the load patterns.
	Packages []*packages.Package
}

// LoadProgram loads the packages matching patterns on platform "platform" and builds the whole program with
// buildmode. A nil config loads with PkgLoadMode from the current directory. To understand how to specify the
// patterns, look at the documentation of packages.Load.
func LoadProgram(config *packages.Config, platform string, buildmode ssa.BuilderMode,
	patterns []string) (*LoadedProgram, error) {
	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}
	if platform != "" {
		config.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	initialPackages, err := packages.Load(config, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(initialPackages) == 0 {
		return nil, fmt.Errorf("no packages")
	}
	if packages.PrintErrors(initialPackages) > 0 {
		return nil, fmt.Errorf("errors found in loaded packages")
	}

	program, ssaPackages := ssautil.AllPackages(initialPackages, buildmode)
	for i, p := range ssaPackages {
		if p == nil {
			return nil, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
	}
	program.Build()
	return &LoadedProgram{Program: program, Packages: initialPackages}, nil
}

// ICFG returns the supergraph of the program with a call graph computed with mode
func (lp *LoadedProgram) ICFG(mode CallgraphMode) (*SSA, error) {
	return NewSSAWithMode(lp.Program, mode)
}

// MainFunctions returns the main functions of the main packages of the program
func (lp *LoadedProgram) MainFunctions() []*ssa.Function {
	var res []*ssa.Function
	for _, p := range ssautil.MainPackages(lp.Program.AllPackages()) {
		if f := p.Func("main"); f != nil {
			res = append(res, f)
		}
	}
	return res
}
