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

// Package solver implements an IDE tabulation solver on top of the function cache of package ide.
//
// The solver computes jump functions (phase I) by propagating path edges over the exploded supergraph, then, when
// the problem asks for values, computes the value of every reached fact (phase II). It implements the stepped
// contract of package interactive: each call to DoNext processes one path edge, so a solve can be run in batches,
// cancelled or bounded by a timeout.
package solver

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-ide/analysis/config"
	"github.com/awslabs/ar-go-ide/analysis/icfg"
	"github.com/awslabs/ar-go-ide/analysis/ide"
	"github.com/awslabs/ar-go-ide/analysis/interactive"
	"github.com/awslabs/ar-go-ide/analysis/lattice"
	"github.com/awslabs/ar-go-ide/internal/keys"
)

// ErrTimeout is returned by Solve when the solve timed out
var ErrTimeout = errors.New("solver timed out")

// A Problem is an IDE problem with its initial seeds and value lattice
type Problem[N comparable, D comparable, F comparable, L any] interface {
	ide.Problem[N, D, F, L]

	// InitialSeeds maps the program points where the analysis starts to the facts holding there, with their
	// values. Seed program points are treated as start points of their procedure.
	InitialSeeds() map[N]map[D]L

	// Lattice returns the lattice of values
	Lattice() lattice.JoinLattice[L]
}

type nodeFact[N comparable, D comparable] struct {
	n N
	d D
}

// a pathEdge goes from (sp, d1) at the start of a procedure to (n, d2) in the same procedure
type pathEdge[N comparable, D comparable] struct {
	sp N
	d1 D
	n  N
	d2 D
}

// Solver is a stepped IDE solver. Use it through an interactive.Session, or call Solve.
type Solver[N comparable, D comparable, F comparable, L any] struct {
	problem Problem[N, D, F, L]
	icfg    icfg.ICFG[N, F]
	cache   *ide.FlowEdgeFunctionCache[N, D, F, L]
	lat     lattice.JoinLattice[L]
	opts    config.SolverOptions
	logger  *config.LogGroup
	zero    D
	allTop  ide.EdgeFunction[L]

	worklist []pathEdge[N, D]
	jumpFns  *jumpFunctions[N, D, L]

	// endSummaries maps (start point, fact) to the jump functions reaching the exits of the procedure
	endSummaries map[nodeFact[N, D]]map[nodeFact[N, D]]ide.EdgeFunction[L]

	// incoming maps (start point, fact) to the call sites and facts at call sites that reach it
	incoming map[nodeFact[N, D]]map[N]map[D]bool

	seeds      map[N]map[D]L
	processed  int
	propagated int
	err        error
}

// New returns a solver of problem over g. The program points and facts of the solver and of its function cache
// are compressed with the same tables. A nil logger discards all messages.
func New[N comparable, D comparable, F comparable, L any](problem Problem[N, D, F, L], g icfg.ICFG[N, F],
	logger *config.LogGroup) *Solver[N, D, F, L] {
	if logger == nil {
		logger = config.Discard()
	}
	lat := problem.Lattice()
	return &Solver[N, D, F, L]{
		problem:      problem,
		icfg:         g,
		cache:        ide.NewFlowEdgeFunctionCache[N, D, F, L](problem, keys.NewContext[N, D](), logger),
		lat:          lat,
		opts:         problem.SolverConfig(),
		logger:       logger,
		zero:         problem.ZeroValue(),
		allTop:       &ide.AllTop[L]{Lattice: lat},
		jumpFns:      newJumpFunctions[N, D, L](),
		endSummaries: map[nodeFact[N, D]]map[nodeFact[N, D]]ide.EdgeFunction[L]{},
		incoming:     map[nodeFact[N, D]]map[N]map[D]bool{},
	}
}

// Solve runs a solver of problem over g to completion, with the check frequency and timeout of the problem's
// solver options. It returns ErrTimeout if the solve timed out.
func Solve[N comparable, D comparable, F comparable, L any](problem Problem[N, D, F, L], g icfg.ICFG[N, F],
	logger *config.LogGroup) (*Results[N, D, L], error) {
	s := New(problem, g, logger)
	session := interactive.NewSession[*Results[N, D, L]](s, logger)
	res, timedOut, err := session.Run(s.opts)
	if err != nil {
		return nil, err
	}
	if timedOut {
		return nil, ErrTimeout
	}
	return res, nil
}

// Cache returns the function cache of the solver
func (s *Solver[N, D, F, L]) Cache() *ide.FlowEdgeFunctionCache[N, D, F, L] {
	return s.cache
}

// WriteReport writes the statistics of the function cache to a new file of the reports directory of cfg, if cfg
// asks for statistics reports. It returns the name of the file, or "" if no report was written.
func (s *Solver[N, D, F, L]) WriteReport(cfg *config.Config) (string, error) {
	if !cfg.ReportStatistics {
		return "", nil
	}
	f, err := cfg.ReportFile("ide-statistics")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := s.cache.WriteStatistics(f); err != nil {
		return "", fmt.Errorf("could not write statistics report: %w", err)
	}
	s.logger.Infof("statistics report written to %s", f.Name())
	return f.Name(), nil
}

// DoInitialize submits the initial seeds. It returns false if there are none.
func (s *Solver[N, D, F, L]) DoInitialize() bool {
	s.seeds = s.problem.InitialSeeds()
	for n, facts := range s.seeds {
		s.propagate(n, s.zero, n, s.zero, ide.Identity[L]{})
		for d := range facts {
			s.propagate(n, d, n, d, ide.Identity[L]{})
		}
	}
	s.logger.Debugf("solver initialized with %d seeds, %d path edges", len(s.seeds), len(s.worklist))
	if g, ok := s.icfg.(interface{ Loops() [][]N }); ok && s.logger.LogsLevel(config.DebugLevel) {
		loops := g.Loops()
		s.logger.Debugf("intra-procedural loops: %d %v", len(loops), loops)
	}
	return len(s.worklist) > 0
}

// DoNext processes one path edge. It returns false when no path edge remains, or when the problem failed to
// construct a function, in which case the error is returned by DoFinalize.
func (s *Solver[N, D, F, L]) DoNext() bool {
	if len(s.worklist) == 0 {
		return false
	}
	e := s.worklist[len(s.worklist)-1]
	s.worklist = s.worklist[:len(s.worklist)-1]
	s.processed++
	if err := s.process(e); err != nil {
		s.err = err
		s.worklist = nil
		return false
	}
	return len(s.worklist) > 0
}

// DoFinalize computes the values of all reached facts, if the problem's options ask for it, and returns the
// results. It returns the first error of the problem, if any.
func (s *Solver[N, D, F, L]) DoFinalize() (*Results[N, D, L], error) {
	if s.err != nil {
		return nil, s.err
	}
	s.logger.Debugf("phase I done: %d path edges processed, %d jump functions", s.processed, s.jumpFns.size())
	res := &Results[N, D, L]{lat: s.lat, facts: s.jumpFns.facts}
	if s.opts.ComputeValues {
		values, err := s.computeValues()
		if err != nil {
			return nil, err
		}
		res.values = values
		s.logger.Debugf("phase II done")
	}
	if s.opts.RecordStatistics {
		s.logger.Infof("solver processed %d path edges, propagated %d functions", s.processed, s.propagated)
		s.cache.Print()
	}
	return res, nil
}

func (s *Solver[N, D, F, L]) process(e pathEdge[N, D]) error {
	f := s.jumpFns.get(e.sp, e.d1, e.n, e.d2, s.allTop)
	if s.logger.LogsLevel(config.TraceLevel) {
		s.logger.Tracef("process path edge <%v, %v> -> <%v, %v> with %v", e.sp, e.d1, e.n, e.d2, f)
	}
	if s.icfg.IsCallSite(e.n) {
		return s.processCall(e, f)
	}
	if s.icfg.IsExit(e.n) {
		if err := s.processExit(e, f); err != nil {
			return err
		}
	}
	return s.processNormal(e, f)
}

func (s *Solver[N, D, F, L]) processNormal(e pathEdge[N, D], f ide.EdgeFunction[L]) error {
	for _, m := range s.icfg.Succs(e.n) {
		ff, err := s.cache.NormalFlowFunction(e.n, m)
		if err != nil {
			return err
		}
		for d3 := range ff.ComputeTargets(e.d2) {
			ef, err := s.cache.NormalEdgeFunction(e.n, e.d2, m, d3)
			if err != nil {
				return err
			}
			s.propagate(e.sp, e.d1, m, d3, ide.Compose(f, ef))
		}
	}
	return nil
}

func (s *Solver[N, D, F, L]) processCall(e pathEdge[N, D], f ide.EdgeFunction[L]) error {
	n, d2 := e.n, e.d2
	retSites := s.icfg.ReturnSites(n)
	callees := s.icfg.Callees(n)
	for _, callee := range callees {
		summary, err := s.cache.SummaryFlowFunction(n, callee)
		if err != nil {
			return err
		}
		if summary != nil {
			if err := s.applySummary(e, f, callee, summary, retSites); err != nil {
				return err
			}
			continue
		}
		ff, err := s.cache.CallFlowFunction(n, callee)
		if err != nil {
			return err
		}
		for d3 := range ff.ComputeTargets(d2) {
			for _, sp := range s.icfg.StartPoints(callee) {
				s.addIncoming(sp, d3, n, d2)
				s.propagate(sp, d3, sp, d3, ide.Identity[L]{})
				if err := s.applyEndSummaries(e, f, callee, sp, d3, retSites); err != nil {
					return err
				}
			}
		}
	}
	for _, retSite := range retSites {
		ff, err := s.cache.CallToReturnFlowFunction(n, retSite, callees)
		if err != nil {
			return err
		}
		for d3 := range ff.ComputeTargets(d2) {
			ef, err := s.cache.CallToReturnEdgeFunction(n, d2, retSite, d3, callees)
			if err != nil {
				return err
			}
			s.propagate(e.sp, e.d1, retSite, d3, ide.Compose(f, ef))
		}
	}
	return nil
}

func (s *Solver[N, D, F, L]) applySummary(e pathEdge[N, D], f ide.EdgeFunction[L], callee F,
	summary ide.FlowFunction[D], retSites []N) error {
	for _, retSite := range retSites {
		for d3 := range summary.ComputeTargets(e.d2) {
			ef, err := s.cache.SummaryEdgeFunction(e.n, e.d2, retSite, d3)
			if err != nil {
				return err
			}
			if ef == nil {
				ef = ide.Identity[L]{}
			}
			s.propagate(e.sp, e.d1, retSite, d3, ide.Compose(f, ef))
		}
	}
	return nil
}

// applyEndSummaries applies the summaries already computed for the callee entered with (sp, d3) to the call in e
func (s *Solver[N, D, F, L]) applyEndSummaries(e pathEdge[N, D], f ide.EdgeFunction[L], callee F, sp N, d3 D,
	retSites []N) error {
	for exit, summary := range s.endSummaries[nodeFact[N, D]{sp, d3}] {
		for _, retSite := range retSites {
			ff, err := s.cache.ReturnFlowFunction(e.n, callee, exit.n, retSite)
			if err != nil {
				return err
			}
			for d5 := range ff.ComputeTargets(exit.d) {
				callEF, err := s.cache.CallEdgeFunction(e.n, e.d2, callee, d3)
				if err != nil {
					return err
				}
				retEF, err := s.cache.ReturnEdgeFunction(e.n, callee, exit.n, exit.d, retSite, d5)
				if err != nil {
					return err
				}
				fPrime := ide.Compose(ide.Compose(callEF, summary), retEF)
				s.propagate(e.sp, e.d1, retSite, d5, ide.Compose(f, fPrime))
			}
		}
	}
	return nil
}

func (s *Solver[N, D, F, L]) processExit(e pathEdge[N, D], f ide.EdgeFunction[L]) error {
	start := nodeFact[N, D]{e.sp, e.d1}
	if s.endSummaries[start] == nil {
		s.endSummaries[start] = map[nodeFact[N, D]]ide.EdgeFunction[L]{}
	}
	s.endSummaries[start][nodeFact[N, D]{e.n, e.d2}] = f
	method := s.icfg.FunctionOf(e.n)
	for callSite, callFacts := range s.incoming[start] {
		for _, retSite := range s.icfg.ReturnSites(callSite) {
			ff, err := s.cache.ReturnFlowFunction(callSite, method, e.n, retSite)
			if err != nil {
				return err
			}
			targets := ide.Targets(ff, e.d2)
			for d4 := range callFacts {
				callEF, err := s.cache.CallEdgeFunction(callSite, d4, method, e.d1)
				if err != nil {
					return err
				}
				for _, d5 := range targets {
					retEF, err := s.cache.ReturnEdgeFunction(callSite, method, e.n, e.d2, retSite, d5)
					if err != nil {
						return err
					}
					fPrime := ide.Compose(ide.Compose(callEF, f), retEF)
					for caller, f3 := range s.jumpFns.reaching(callSite, d4) {
						if ide.Equal(f3, s.allTop) {
							continue
						}
						s.propagate(caller.n, caller.d, retSite, d5, ide.Compose(f3, fPrime))
					}
				}
			}
		}
	}
	return nil
}

func (s *Solver[N, D, F, L]) addIncoming(sp N, d3 D, callSite N, d2 D) {
	k := nodeFact[N, D]{sp, d3}
	if s.incoming[k] == nil {
		s.incoming[k] = map[N]map[D]bool{}
	}
	if s.incoming[k][callSite] == nil {
		s.incoming[k][callSite] = map[D]bool{}
	}
	s.incoming[k][callSite][d2] = true
}

// propagate joins f into the jump function from (sp, d1) to (n, d2), and schedules the path edge if the jump
// function changed.
func (s *Solver[N, D, F, L]) propagate(sp N, d1 D, n N, d2 D, f ide.EdgeFunction[L]) {
	s.propagated++
	old := s.jumpFns.get(sp, d1, n, d2, s.allTop)
	joined := ide.Join(old, f)
	if ide.Equal(joined, old) {
		return
	}
	s.jumpFns.set(sp, d1, n, d2, joined)
	s.worklist = append(s.worklist, pathEdge[N, D]{sp, d1, n, d2})
}

func (s *Solver[N, D, F, L]) String() string {
	return fmt.Sprintf("IDE solver (%d path edges pending, %d processed)", len(s.worklist), s.processed)
}
