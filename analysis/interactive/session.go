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

// Package interactive drives stepped fixed-point computations in batches, so that they can be cancelled between
// batches or bounded by a timeout.
//
// A computation implements Stepper and is wrapped in a Session, which enforces the lifecycle
// initialize -> next* -> finalize. SolveUntil and Session.SolveTimeout run a session to completion unless
// cancelled, checking for cancellation roughly every check interval: the size of the batches run between two
// checks adapts to the measured throughput of the computation.
package interactive

import (
	"fmt"
	"math"
	"time"

	"github.com/awslabs/ar-go-ide/analysis/config"
	"github.com/awslabs/ar-go-ide/internal/formatutil"
	"github.com/awslabs/ar-go-ide/internal/funcutil"
)

// A Stepper is a fixed-point computation that can be advanced one unit of work at a time.
type Stepper[R any] interface {
	// DoInitialize prepares the computation. It returns false if there is no work to do.
	DoInitialize() bool

	// DoNext performs one unit of work. It returns false when no work remains.
	DoNext() bool

	// DoFinalize computes the result. It is called once, after the last unit of work.
	DoFinalize() (R, error)
}

// State is the lifecycle state of a Session
type State int

const (
	Uninitialized State = iota
	Running
	Done
	Cancelled
	Finalized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	// unitsPerMs is the throughput assumed before the first batch has been measured
	unitsPerMs = 500
	// minElapsedMs bounds the measured duration of a batch from below
	minElapsedMs = 1e-3
	maxBatchSize = 1 << 30
)

// A Session drives a Stepper. Calling an operation in the wrong state is a programming error and panics.
type Session[R any] struct {
	stepper Stepper[R]
	state   State
	logger  *config.LogGroup
	now     func() time.Time
	stats   *statsRecorder
}

// NewSession returns an uninitialized session of s. A nil logger discards all messages.
func NewSession[R any](s Stepper[R], logger *config.LogGroup) *Session[R] {
	if logger == nil {
		logger = config.Discard()
	}
	return &Session[R]{
		stepper: s,
		state:   Uninitialized,
		logger:  logger,
		now:     time.Now,
		stats:   &statsRecorder{},
	}
}

// State returns the current state of the session
func (s *Session[R]) State() State {
	return s.state
}

func (s *Session[R]) expect(op string, states ...State) {
	for _, st := range states {
		if s.state == st {
			return
		}
	}
	panic(fmt.Sprintf("interactive: %s called on a %s session", op, s.state))
}

// Initialize initializes the computation. It returns false if the computation is already done.
func (s *Session[R]) Initialize() bool {
	s.expect("Initialize", Uninitialized)
	if s.stepper.DoInitialize() {
		s.state = Running
		return true
	}
	s.state = Done
	return false
}

// Next performs one unit of work. It returns false when no work remains. Next resumes a cancelled session.
func (s *Session[R]) Next() bool {
	if s.state == Done {
		return false
	}
	s.expect("Next", Running, Cancelled)
	s.state = Running
	if s.stepper.DoNext() {
		return true
	}
	s.state = Done
	return false
}

// NextN calls Next up to n times, stopping at the first call that returns false. It returns false iff Next
// returned false.
func (s *Session[R]) NextN(n int) bool {
	s.logger.Debugf("[nextN] next %d iterations", n)
	for i := 0; i < n; i++ {
		if !s.Next() {
			s.logger.Debugf("[nextN] done after %d iterations", i)
			s.stats.units += i
			return false
		}
	}
	s.stats.units += n
	s.logger.Debugf("[nextN] has next")
	return true
}

// Finalize returns the result of the computation. It can only be called once the computation is done.
func (s *Session[R]) Finalize() (R, error) {
	s.expect("Finalize", Done)
	s.state = Finalized
	return s.stepper.DoFinalize()
}

// A Cancellation is a cancellation predicate, called between batches, with or without the current time.
type Cancellation interface {
	func() bool | func(time.Time) bool
}

// SolveUntil initializes the session and runs it in batches until the computation is done or cancel returns true.
// cancel is checked after initialization and after every batch. The batches are sized so that cancel is checked
// about every frequency; a frequency <= 0 uses the default check frequency.
//
// On cancellation, SolveUntil returns None and the session is left in the Cancelled state without being finalized.
// Otherwise it returns Some of the result of Finalize, or the error of Finalize.
func SolveUntil[R any, P Cancellation](s *Session[R], cancel P, frequency time.Duration) (funcutil.Optional[R], error) {
	var pred func(time.Time) bool
	switch f := any(cancel).(type) {
	case func() bool:
		pred = func(time.Time) bool { return f() }
	case func(time.Time) bool:
		pred = f
	}
	return s.solveUntil(pred, frequency)
}

// SolveTimeout runs the session like SolveUntil, cancelling it once timeout has elapsed. It returns true when the
// computation timed out, in which case the result is the zero value of R.
func (s *Session[R]) SolveTimeout(timeout, frequency time.Duration) (R, bool, error) {
	start := s.now()
	res, err := s.solveUntil(func(ts time.Time) bool { return ts.Sub(start) >= timeout }, frequency)
	if err != nil || res.IsNone() {
		var zero R
		return zero, err == nil, err
	}
	return res.Value(), false, nil
}

// Run runs the session with the check frequency and timeout of opts. It returns true when the computation timed
// out.
func (s *Session[R]) Run(opts config.SolverOptions) (R, bool, error) {
	if timeout, ok := opts.Timeout(); ok {
		return s.SolveTimeout(timeout, opts.CheckFrequency())
	}
	res, err := s.solveUntil(func(time.Time) bool { return false }, opts.CheckFrequency())
	if err != nil {
		var zero R
		return zero, false, err
	}
	return res.Value(), false, nil
}

func (s *Session[R]) solveUntil(cancel func(time.Time) bool, frequency time.Duration) (funcutil.Optional[R], error) {
	if frequency <= 0 {
		frequency = config.DefaultCheckFrequencyMs * time.Millisecond
	}
	batch := initialBatchSize(frequency)
	if s.Initialize() {
		start := s.now()
		if cancel(start) {
			s.state = Cancelled
			return funcutil.None[R](), nil
		}
		for s.NextN(batch) {
			end := s.now()
			elapsed := end.Sub(start)
			start = end
			s.stats.record(batch, elapsed)
			if cancel(end) {
				s.state = Cancelled
				s.logger.Debugf("solve %s after %d batches", formatutil.Yellow("cancelled"), s.stats.batches())
				return funcutil.None[R](), nil
			}
			batch = nextBatchSize(batch, elapsed, frequency)
		}
	}
	if cancel(s.now()) {
		s.state = Cancelled
		return funcutil.None[R](), nil
	}
	res, err := s.Finalize()
	if err != nil {
		return funcutil.None[R](), err
	}
	return funcutil.Some(res), nil
}

func initialBatchSize(frequency time.Duration) int {
	return clampBatch(ms(frequency) * unitsPerMs)
}

// nextBatchSize returns the size of the batch following a batch of size old that took elapsed. The new size moves
// a third of the way from old towards the size that would take frequency at the measured throughput.
func nextBatchSize(old int, elapsed, frequency time.Duration) int {
	elapsedMs := math.Max(ms(elapsed), minElapsedMs)
	target := math.Round(float64(old) / elapsedMs * ms(frequency))
	return clampBatch((float64(old) + 2*target) / 3)
}

func clampBatch(x float64) int {
	switch {
	case math.IsNaN(x) || x < 1:
		return 1
	case x > maxBatchSize:
		return maxBatchSize
	default:
		return int(x)
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
