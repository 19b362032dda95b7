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

package interactive

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stats describes the batches run by a session
type Stats struct {
	// Batches is the number of complete batches measured by SolveUntil
	Batches int
	// Units is the number of units of work performed by NextN
	Units int
	// LastBatchSize is the size of the last measured batch
	LastBatchSize int
	// MeanIntervalMs and StdDevIntervalMs describe the time between two cancellation checks
	MeanIntervalMs   float64
	StdDevIntervalMs float64
}

type statsRecorder struct {
	units     int
	sizes     []int
	intervals []float64
}

func (r *statsRecorder) record(size int, elapsed time.Duration) {
	r.sizes = append(r.sizes, size)
	r.intervals = append(r.intervals, ms(elapsed))
}

func (r *statsRecorder) batches() int {
	return len(r.sizes)
}

// Stats returns statistics on the batches run so far
func (s *Session[R]) Stats() Stats {
	r := s.stats
	st := Stats{Batches: len(r.sizes), Units: r.units}
	if len(r.sizes) > 0 {
		st.LastBatchSize = r.sizes[len(r.sizes)-1]
	}
	if len(r.intervals) > 1 {
		st.MeanIntervalMs, st.StdDevIntervalMs = stat.MeanStdDev(r.intervals, nil)
	} else if len(r.intervals) == 1 {
		st.MeanIntervalMs = r.intervals[0]
	}
	return st
}

// Intervals returns the measured time between consecutive cancellation checks, in order
func (s *Session[R]) Intervals() []time.Duration {
	res := make([]time.Duration, len(s.stats.intervals))
	for i, x := range s.stats.intervals {
		res[i] = time.Duration(x * float64(time.Millisecond))
	}
	return res
}
