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
	"github.com/awslabs/ar-go-ide/analysis/ide"
	"github.com/awslabs/ar-go-ide/analysis/lattice"
	"github.com/awslabs/ar-go-ide/internal/funcutil"
)

// jumpFunctions indexes the jump functions of the solver by their target
type jumpFunctions[N comparable, D comparable, L any] struct {
	byTarget map[nodeFact[N, D]]map[nodeFact[N, D]]ide.EdgeFunction[L]
	// facts lists the facts reaching every node, in the order they were reached
	facts map[N][]D
	n     int
}

func newJumpFunctions[N comparable, D comparable, L any]() *jumpFunctions[N, D, L] {
	return &jumpFunctions[N, D, L]{
		byTarget: map[nodeFact[N, D]]map[nodeFact[N, D]]ide.EdgeFunction[L]{},
		facts:    map[N][]D{},
	}
}

func (j *jumpFunctions[N, D, L]) get(sp N, d1 D, n N, d2 D, def ide.EdgeFunction[L]) ide.EdgeFunction[L] {
	if f, ok := j.byTarget[nodeFact[N, D]{n, d2}][nodeFact[N, D]{sp, d1}]; ok {
		return f
	}
	return def
}

func (j *jumpFunctions[N, D, L]) set(sp N, d1 D, n N, d2 D, f ide.EdgeFunction[L]) {
	target := nodeFact[N, D]{n, d2}
	m, ok := j.byTarget[target]
	if !ok {
		m = map[nodeFact[N, D]]ide.EdgeFunction[L]{}
		j.byTarget[target] = m
		j.facts[n] = append(j.facts[n], d2)
	}
	if _, ok := m[nodeFact[N, D]{sp, d1}]; !ok {
		j.n++
	}
	m[nodeFact[N, D]{sp, d1}] = f
}

// reaching returns the jump functions reaching (n, d), indexed by their source
func (j *jumpFunctions[N, D, L]) reaching(n N, d D) map[nodeFact[N, D]]ide.EdgeFunction[L] {
	return j.byTarget[nodeFact[N, D]{n, d}]
}

func (j *jumpFunctions[N, D, L]) size() int {
	return j.n
}

// Results holds the facts reached by a solve and, if they were computed, their values.
type Results[N comparable, D comparable, L any] struct {
	lat    lattice.JoinLattice[L]
	facts  map[N][]D
	values map[N]map[D]L
}

// HasValues returns true if the values of the facts were computed
func (r *Results[N, D, L]) HasValues() bool {
	return r.values != nil
}

// Reached returns true if d holds at n
func (r *Results[N, D, L]) Reached(n N, d D) bool {
	for _, d2 := range r.facts[n] {
		if d2 == d {
			return true
		}
	}
	return false
}

// FactsAt returns the facts holding at n, including the zero fact, in the order they were reached.
func (r *Results[N, D, L]) FactsAt(n N) []D {
	return r.facts[n]
}

// Value returns the value of d at n, or the top of the lattice if d does not hold at n or values were not
// computed.
func (r *Results[N, D, L]) Value(n N, d D) L {
	if v, ok := r.values[n][d]; ok {
		return v
	}
	return r.lat.Top()
}

// Lookup returns the value of d at n, or none if d does not hold at n or values were not computed
func (r *Results[N, D, L]) Lookup(n N, d D) funcutil.Optional[L] {
	if v, ok := r.values[n][d]; ok {
		return funcutil.Some(v)
	}
	return funcutil.None[L]()
}

// ValuesAt returns the values of the facts holding at n whose value is not the top of the lattice
func (r *Results[N, D, L]) ValuesAt(n N) map[D]L {
	res := map[D]L{}
	for d, v := range r.values[n] {
		if !r.lat.Equal(v, r.lat.Top()) {
			res[d] = v
		}
	}
	return res
}

// Nodes returns the number of program points reached by the solve
func (r *Results[N, D, L]) Nodes() int {
	return len(r.facts)
}

// computeValues computes the values at start points from the seeds through call sites, then the values at every
// node reached by a jump function.
func (s *Solver[N, D, F, L]) computeValues() (map[N]map[D]L, error) {
	atStart := map[nodeFact[N, D]]L{}
	var worklist []nodeFact[N, D]
	update := func(n N, d D, v L) {
		k := nodeFact[N, D]{n, d}
		old, ok := atStart[k]
		if !ok {
			old = s.lat.Top()
		}
		joined := s.lat.Join(old, v)
		if ok && s.lat.Equal(joined, old) {
			return
		}
		atStart[k] = joined
		worklist = append(worklist, k)
	}
	for n, facts := range s.seeds {
		if _, ok := facts[s.zero]; !ok {
			update(n, s.zero, s.lat.Top())
		}
		for d, v := range facts {
			update(n, d, v)
		}
	}

	// phase II (i): values at start points
	for len(worklist) > 0 {
		k := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		val := atStart[k]
		for _, c := range s.icfg.CallsFromWithin(s.icfg.FunctionOf(k.n)) {
			for _, d := range s.jumpFns.facts[c] {
				f, ok := s.jumpFns.reaching(c, d)[k]
				if !ok {
					continue
				}
				if err := s.propagateValueAtCall(c, d, f.ComputeTarget(val), update); err != nil {
					return nil, err
				}
			}
		}
	}

	// phase II (ii): values at all nodes
	values := map[N]map[D]L{}
	for target, fns := range s.jumpFns.byTarget {
		v := s.lat.Top()
		for src, f := range fns {
			if sv, ok := atStart[src]; ok {
				v = s.lat.Join(v, f.ComputeTarget(sv))
			}
		}
		if sv, ok := atStart[target]; ok {
			v = s.lat.Join(v, sv)
		}
		if values[target.n] == nil {
			values[target.n] = map[D]L{}
		}
		values[target.n][target.d] = v
	}
	return values, nil
}

func (s *Solver[N, D, F, L]) propagateValueAtCall(c N, d D, val L, update func(N, D, L)) error {
	for _, callee := range s.icfg.Callees(c) {
		ff, err := s.cache.CallFlowFunction(c, callee)
		if err != nil {
			return err
		}
		for d2 := range ff.ComputeTargets(d) {
			ef, err := s.cache.CallEdgeFunction(c, d, callee, d2)
			if err != nil {
				return err
			}
			for _, sp := range s.icfg.StartPoints(callee) {
				update(sp, d2, ef.ComputeTarget(val))
			}
		}
	}
	return nil
}
