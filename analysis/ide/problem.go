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

import "github.com/awslabs/ar-go-ide/analysis/config"

// FlowFunctions are the flow function factories of a problem. N is the type of program points, D the type of
// facts and F the type of procedures.
type FlowFunctions[N comparable, D comparable, F comparable] interface {
	// NormalFlowFunction returns the flow function of the intra-procedural edge from curr to succ
	NormalFlowFunction(curr, succ N) (FlowFunction[D], error)

	// CallFlowFunction returns the flow function mapping facts at callSite to facts at the start of dest
	CallFlowFunction(callSite N, dest F) (FlowFunction[D], error)

	// ReturnFlowFunction returns the flow function mapping facts at the exit of callee back to retSite
	ReturnFlowFunction(callSite N, callee F, exit N, retSite N) (FlowFunction[D], error)

	// CallToReturnFlowFunction returns the flow function of the edge going around the call at callSite
	CallToReturnFlowFunction(callSite N, retSite N, callees []F) (FlowFunction[D], error)

	// SummaryFlowFunction returns a flow function replacing the call to dest at callSite, or nil if the call
	// must be analyzed.
	SummaryFlowFunction(callSite N, dest F) (FlowFunction[D], error)
}

// EdgeFunctions are the edge function factories of a problem. Each factory is keyed by the edge of the supergraph
// of its flow function counterpart and the facts at both ends of the edge.
type EdgeFunctions[N comparable, D comparable, F comparable, L any] interface {
	NormalEdgeFunction(curr N, currFact D, succ N, succFact D) (EdgeFunction[L], error)
	CallEdgeFunction(callSite N, srcFact D, dest F, destFact D) (EdgeFunction[L], error)
	ReturnEdgeFunction(callSite N, callee F, exit N, exitFact D, retSite N, retFact D) (EdgeFunction[L], error)
	CallToReturnEdgeFunction(callSite N, callFact D, retSite N, retFact D, callees []F) (EdgeFunction[L], error)

	// SummaryEdgeFunction returns the edge function of a summarized call, or nil if there is none.
	SummaryEdgeFunction(callSite N, callFact D, retSite N, retFact D) (EdgeFunction[L], error)
}

// A Problem is an IDE problem: flow and edge function factories, a zero fact and solver options. The options are
// read once, when the cache is built.
type Problem[N comparable, D comparable, F comparable, L any] interface {
	FlowFunctions[N, D, F]
	EdgeFunctions[N, D, F, L]
	ZeroValue() D
	SolverConfig() config.SolverOptions
}
