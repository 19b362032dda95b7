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

// Package ide contains the building blocks shared by IFDS and IDE solvers: the algebra of flow and edge
// functions, stock functions, the cache that memoizes the functions a problem constructs, and the singleton
// cache used to hash-cons edge functions.
//
// A problem is described by an implementation of Problem. The solver never calls the problem directly, it goes
// through a FlowEdgeFunctionCache which guarantees that every flow and edge function is constructed at most once
// per key:
//
//	cache := ide.NewFlowEdgeFunctionCache[N, D, F, L](problem, nil, logger)
//	ff, err := cache.NormalFlowFunction(curr, succ)
//	for d := range ff.ComputeTargets(fact) {
//		...
//	}
//
// Edge functions are composed and joined with Compose and Join. An edge function type that does not implement
// the algebra it is asked for causes a panic with an *AlgebraError, instead of silently over-approximating.
// Joins that must not lose precision at once can be bounded with JoinFunction, which falls back to AllBottom only
// when it would hold more than its bound of distinct functions.
//
// Client edge functions whose parameters are comparable should be allocated with Intern. Equal functions then
// share one pointer, and the default algebra compares them with ==:
//
//	var adds = ide.NewSingletonCache[addConst]()
//
//	func add(k int) ide.EdgeFunction[L] { return ide.Intern(adds, addConst{k}) }
//
// The stock functions of this package are not interned.
package ide
