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
	"fmt"
	"reflect"

	"github.com/awslabs/ar-go-ide/analysis/config"
	"github.com/awslabs/ar-go-ide/internal/keys"
)

// A FlowEdgeFunctionCache sits between a solver and a Problem and memoizes the flow and edge functions the
// problem constructs: each function is constructed at most once per key for the lifetime of the cache. Summary flow
// functions are not cached, the problem is expected to cache them itself if needed.
//
// The cache is not safe for concurrent use.
type FlowEdgeFunctionCache[N comparable, D comparable, F comparable, L any] struct {
	problem     Problem[N, D, F, L]
	autoAddZero bool
	zero        D
	ctx         *keys.Context[N, D]
	logger      *config.LogGroup

	normalFlow pairTable[N, *slot[FlowFunction[D]]]
	callFlow   mapTable[callKey[N, F], *slot[FlowFunction[D]]]
	returnFlow mapTable[returnKey[N, F], *slot[FlowFunction[D]]]
	ctrFlow    pairTable[N, *slot[FlowFunction[D]]]

	normalEdge  edgeCache[keys.Pair[N], D, L]
	callEdge    edgeCache[callKey[N, F], D, L]
	returnEdge  edgeCache[returnKey[N, F], D, L]
	ctrEdge     edgeCache[keys.Pair[N], D, L]
	summaryEdge edgeCache[keys.Pair[N], D, L]

	stats [numKinds]KindStatistics
}

type callKey[N comparable, F comparable] struct {
	callSite N
	dest     F
}

type returnKey[N comparable, F comparable] struct {
	callSite N
	callee   F
	exit     N
	retSite  N
}

// NewFlowEdgeFunctionCache returns an empty cache for problem. The solver options of the problem are read once,
// here. Program points and facts are compressed with the tables of ctx; a nil ctx gives the cache its own tables.
// A nil logger discards all messages.
func NewFlowEdgeFunctionCache[N comparable, D comparable, F comparable, L any](
	problem Problem[N, D, F, L], ctx *keys.Context[N, D], logger *config.LogGroup) *FlowEdgeFunctionCache[N, D, F, L] {
	if ctx == nil {
		ctx = keys.NewContext[N, D]()
	}
	if logger == nil {
		logger = config.Discard()
	}
	opts := problem.SolverConfig()
	c := &FlowEdgeFunctionCache[N, D, F, L]{
		problem:     problem,
		autoAddZero: opts.AutoAddZero,
		zero:        problem.ZeroValue(),
		ctx:         ctx,
		logger:      logger,
		normalFlow:  newPairTable[N, *slot[FlowFunction[D]]](ctx.Nodes),
		callFlow:    mapTable[callKey[N, F], *slot[FlowFunction[D]]]{},
		returnFlow:  mapTable[returnKey[N, F], *slot[FlowFunction[D]]]{},
		ctrFlow:     newPairTable[N, *slot[FlowFunction[D]]](ctx.Nodes),
		normalEdge:  newPairEdgeCache[N, D, L](ctx),
		callEdge:    newMapEdgeCache[callKey[N, F], D, L](ctx.Facts),
		returnEdge:  newMapEdgeCache[returnKey[N, F], D, L](ctx.Facts),
		ctrEdge:     newPairEdgeCache[N, D, L](ctx),
		summaryEdge: newPairEdgeCache[N, D, L](ctx),
	}
	logger.Debugf("function cache created (auto-add-zero: %v, compressed nodes: %v, compressed facts: %v)",
		c.autoAddZero, keys.Compressible[N](), keys.Compressible[D]())
	return c
}

// Problem returns the problem whose functions are cached
func (c *FlowEdgeFunctionCache[N, D, F, L]) Problem() Problem[N, D, F, L] {
	return c.problem
}

// ZeroValue returns the zero fact of the problem
func (c *FlowEdgeFunctionCache[N, D, F, L]) ZeroValue() D {
	return c.zero
}

// NormalFlowFunction returns the flow function of the intra-procedural edge from curr to succ
func (c *FlowEdgeFunctionCache[N, D, F, L]) NormalFlowFunction(curr, succ N) (FlowFunction[D], error) {
	assertNotNil("current node", curr)
	assertNotNil("successor node", succ)
	return getOrBuild[keys.Pair[N], FlowFunction[D]](&c.stats[NormalFlow], c.logger, NormalFlow, c.normalFlow,
		keys.Pair[N]{First: curr, Second: succ},
		func() (FlowFunction[D], error) {
			ff, err := c.problem.NormalFlowFunction(curr, succ)
			return c.checkFlow(NormalFlow, ff, err)
		})
}

// CallFlowFunction returns the flow function from callSite to the start of dest
func (c *FlowEdgeFunctionCache[N, D, F, L]) CallFlowFunction(callSite N, dest F) (FlowFunction[D], error) {
	assertNotNil("call site", callSite)
	assertNotNil("destination procedure", dest)
	return getOrBuild[callKey[N, F], FlowFunction[D]](&c.stats[CallFlow], c.logger, CallFlow, c.callFlow,
		callKey[N, F]{callSite, dest},
		func() (FlowFunction[D], error) {
			ff, err := c.problem.CallFlowFunction(callSite, dest)
			return c.checkFlow(CallFlow, ff, err)
		})
}

// ReturnFlowFunction returns the flow function from exit in callee to retSite
func (c *FlowEdgeFunctionCache[N, D, F, L]) ReturnFlowFunction(callSite N, callee F, exit N, retSite N) (
	FlowFunction[D], error) {
	assertNotNil("call site", callSite)
	assertNotNil("callee procedure", callee)
	assertNotNil("exit node", exit)
	assertNotNil("return site", retSite)
	return getOrBuild[returnKey[N, F], FlowFunction[D]](&c.stats[ReturnFlow], c.logger, ReturnFlow, c.returnFlow,
		returnKey[N, F]{callSite, callee, exit, retSite},
		func() (FlowFunction[D], error) {
			ff, err := c.problem.ReturnFlowFunction(callSite, callee, exit, retSite)
			return c.checkFlow(ReturnFlow, ff, err)
		})
}

// CallToReturnFlowFunction returns the flow function going around the call at callSite.
//
// The function is keyed by callSite and retSite only: the first query at a site determines the function returned
// for every later query at that site, whatever its callees.
func (c *FlowEdgeFunctionCache[N, D, F, L]) CallToReturnFlowFunction(callSite N, retSite N, callees []F) (
	FlowFunction[D], error) {
	assertNotNil("call site", callSite)
	assertNotNil("return site", retSite)
	for _, callee := range callees {
		assertNotNil("callee procedure", callee)
	}
	return getOrBuild[keys.Pair[N], FlowFunction[D]](&c.stats[CallToReturnFlow], c.logger, CallToReturnFlow, c.ctrFlow,
		keys.Pair[N]{First: callSite, Second: retSite},
		func() (FlowFunction[D], error) {
			ff, err := c.problem.CallToReturnFlowFunction(callSite, retSite, callees)
			return c.checkFlow(CallToReturnFlow, ff, err)
		})
}

// SummaryFlowFunction queries the problem for a summary of the call to dest at callSite. The result is not cached.
func (c *FlowEdgeFunctionCache[N, D, F, L]) SummaryFlowFunction(callSite N, dest F) (FlowFunction[D], error) {
	assertNotNil("call site", callSite)
	assertNotNil("destination procedure", dest)
	ff, err := c.problem.SummaryFlowFunction(callSite, dest)
	if err != nil {
		return nil, err
	}
	c.stats[SummaryFlow].Constructions++
	return ff, nil
}

// NormalEdgeFunction returns the edge function from (curr, currFact) to (succ, succFact)
func (c *FlowEdgeFunctionCache[N, D, F, L]) NormalEdgeFunction(curr N, currFact D, succ N, succFact D) (
	EdgeFunction[L], error) {
	assertNotNil("current node", curr)
	assertNotNil("successor node", succ)
	return getOrBuild[keys.Pair[D], EdgeFunction[L]](&c.stats[NormalEdge], c.logger, NormalEdge,
		c.normalEdge.inner(keys.Pair[N]{First: curr, Second: succ}),
		keys.Pair[D]{First: currFact, Second: succFact},
		func() (EdgeFunction[L], error) {
			ef, err := c.problem.NormalEdgeFunction(curr, currFact, succ, succFact)
			return checkEdge(NormalEdge, ef, err, false)
		})
}

// CallEdgeFunction returns the edge function from (callSite, srcFact) to (start of dest, destFact)
func (c *FlowEdgeFunctionCache[N, D, F, L]) CallEdgeFunction(callSite N, srcFact D, dest F, destFact D) (
	EdgeFunction[L], error) {
	assertNotNil("call site", callSite)
	assertNotNil("destination procedure", dest)
	return getOrBuild[keys.Pair[D], EdgeFunction[L]](&c.stats[CallEdge], c.logger, CallEdge,
		c.callEdge.inner(callKey[N, F]{callSite, dest}),
		keys.Pair[D]{First: srcFact, Second: destFact},
		func() (EdgeFunction[L], error) {
			ef, err := c.problem.CallEdgeFunction(callSite, srcFact, dest, destFact)
			return checkEdge(CallEdge, ef, err, false)
		})
}

// ReturnEdgeFunction returns the edge function from (exit, exitFact) to (retSite, retFact)
func (c *FlowEdgeFunctionCache[N, D, F, L]) ReturnEdgeFunction(callSite N, callee F, exit N, exitFact D,
	retSite N, retFact D) (EdgeFunction[L], error) {
	assertNotNil("call site", callSite)
	assertNotNil("callee procedure", callee)
	assertNotNil("exit node", exit)
	assertNotNil("return site", retSite)
	return getOrBuild[keys.Pair[D], EdgeFunction[L]](&c.stats[ReturnEdge], c.logger, ReturnEdge,
		c.returnEdge.inner(returnKey[N, F]{callSite, callee, exit, retSite}),
		keys.Pair[D]{First: exitFact, Second: retFact},
		func() (EdgeFunction[L], error) {
			ef, err := c.problem.ReturnEdgeFunction(callSite, callee, exit, exitFact, retSite, retFact)
			return checkEdge(ReturnEdge, ef, err, false)
		})
}

// CallToReturnEdgeFunction returns the edge function from (callSite, callFact) to (retSite, retFact). Like its
// flow function counterpart, it is keyed independently of the callees.
func (c *FlowEdgeFunctionCache[N, D, F, L]) CallToReturnEdgeFunction(callSite N, callFact D, retSite N, retFact D,
	callees []F) (EdgeFunction[L], error) {
	assertNotNil("call site", callSite)
	assertNotNil("return site", retSite)
	for _, callee := range callees {
		assertNotNil("callee procedure", callee)
	}
	return getOrBuild[keys.Pair[D], EdgeFunction[L]](&c.stats[CallToReturnEdge], c.logger, CallToReturnEdge,
		c.ctrEdge.inner(keys.Pair[N]{First: callSite, Second: retSite}),
		keys.Pair[D]{First: callFact, Second: retFact},
		func() (EdgeFunction[L], error) {
			ef, err := c.problem.CallToReturnEdgeFunction(callSite, callFact, retSite, retFact, callees)
			return checkEdge(CallToReturnEdge, ef, err, false)
		})
}

// SummaryEdgeFunction returns the edge function of a summarized call, or nil if the problem has none.
func (c *FlowEdgeFunctionCache[N, D, F, L]) SummaryEdgeFunction(callSite N, callFact D, retSite N, retFact D) (
	EdgeFunction[L], error) {
	assertNotNil("call site", callSite)
	assertNotNil("return site", retSite)
	return getOrBuild[keys.Pair[D], EdgeFunction[L]](&c.stats[SummaryEdge], c.logger, SummaryEdge,
		c.summaryEdge.inner(keys.Pair[N]{First: callSite, Second: retSite}),
		keys.Pair[D]{First: callFact, Second: retFact},
		func() (EdgeFunction[L], error) {
			ef, err := c.problem.SummaryEdgeFunction(callSite, callFact, retSite, retFact)
			return checkEdge(SummaryEdge, ef, err, true)
		})
}

// ForEachCachedEdgeFunction calls fn on every edge function in the cache, with the kind of the cache it is in.
// Functions under construction are skipped.
func (c *FlowEdgeFunctionCache[N, D, F, L]) ForEachCachedEdgeFunction(fn func(kind FunctionKind, ef EdgeFunction[L])) {
	visit := func(kind FunctionKind) func(*slot[EdgeFunction[L]]) {
		return func(s *slot[EdgeFunction[L]]) {
			if !s.pending && s.fn != nil {
				fn(kind, s.fn)
			}
		}
	}
	c.normalEdge.each(visit(NormalEdge))
	c.callEdge.each(visit(CallEdge))
	c.returnEdge.each(visit(ReturnEdge))
	c.ctrEdge.each(visit(CallToReturnEdge))
	c.summaryEdge.each(visit(SummaryEdge))
}

func (c *FlowEdgeFunctionCache[N, D, F, L]) checkFlow(kind FunctionKind, ff FlowFunction[D], err error) (
	FlowFunction[D], error) {
	if err != nil {
		return nil, err
	}
	if ff == nil {
		panic(fmt.Sprintf("ide: problem returned a nil %s function", kind))
	}
	if c.autoAddZero {
		return NewZeroed(ff, c.zero), nil
	}
	return ff, nil
}

func checkEdge[L any](kind FunctionKind, ef EdgeFunction[L], err error, nilable bool) (EdgeFunction[L], error) {
	if err != nil {
		return nil, err
	}
	if ef == nil && !nilable {
		panic(fmt.Sprintf("ide: problem returned a nil %s function", kind))
	}
	return ef, nil
}

// getOrBuild returns the function stored in t at k, or builds it. The slot of k is published before build runs
// and finalized after it succeeds. A failed or aborted build leaves no entry behind.
func getOrBuild[K any, T any](stats *KindStatistics, logger *config.LogGroup, kind FunctionKind,
	t table[K, *slot[T]], k K, build func() (T, error)) (T, error) {
	if s, ok := t.get(k); ok {
		if s.pending {
			panic(fmt.Sprintf("ide: %s function for %v queried while it is being constructed", kind, k))
		}
		stats.Hits++
		return s.fn, nil
	}
	s := &slot[T]{pending: true}
	t.set(k, s)
	done := false
	defer func() {
		if !done {
			t.del(k)
		}
	}()
	fn, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	s.fn = fn
	s.pending = false
	done = true
	stats.Constructions++
	if logger.LogsLevel(config.TraceLevel) {
		logger.Tracef("constructed %s function for %v", kind, k)
	}
	return fn, nil
}

func assertNotNil(what string, x any) {
	if isNil(x) {
		panic(fmt.Sprintf("ide: %s must not be nil", what))
	}
}

func isNil(x any) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Map, reflect.Func, reflect.Slice,
		reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
