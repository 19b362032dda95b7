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

// Package icfg defines the inter-procedural control-flow graphs explored by the solvers, and provides two
// implementations: Explicit, a graph built by hand, and SSA, the graph of a program in SSA form together with a
// call graph.
package icfg

// An ICFG is an inter-procedural control-flow graph over program points N in procedures F.
//
// The successors of a call site are its return sites. Calls are not edges of the graph: the solver connects call
// sites to the start points of their callees, and exit points back to return sites.
type ICFG[N comparable, F comparable] interface {
	// FunctionOf returns the procedure containing n
	FunctionOf(n N) F

	// Succs returns the intra-procedural successors of n
	Succs(n N) []N

	// IsCallSite returns true if n calls other procedures
	IsCallSite(n N) bool

	// Callees returns the procedures called at callSite that have a body
	Callees(callSite N) []F

	// ReturnSites returns the program points where control returns after the call at callSite
	ReturnSites(callSite N) []N

	// CallsFromWithin returns the call sites in f
	CallsFromWithin(f F) []N

	// StartPoints returns the entry points of f
	StartPoints(f F) []N

	// IsExit returns true if n exits its procedure
	IsExit(n N) bool
}
