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
	"io"
	"strings"

	"github.com/awslabs/ar-go-ide/internal/formatutil"
)

// A FunctionKind identifies one of the sub-caches of a FlowEdgeFunctionCache
type FunctionKind int

const (
	NormalFlow FunctionKind = iota
	CallFlow
	ReturnFlow
	CallToReturnFlow
	SummaryFlow
	NormalEdge
	CallEdge
	ReturnEdge
	CallToReturnEdge
	SummaryEdge
	numKinds
)

var kindNames = [numKinds]string{
	"normal flow",
	"call flow",
	"return flow",
	"call-to-return flow",
	"summary flow",
	"normal edge",
	"call edge",
	"return edge",
	"call-to-return edge",
	"summary edge",
}

func (k FunctionKind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("FunctionKind(%d)", int(k))
	}
	return kindNames[k]
}

// IsEdge returns true for the kinds of edge functions
func (k FunctionKind) IsEdge() bool {
	return k >= NormalEdge && k < numKinds
}

// Kinds returns all function kinds, flow functions first
func Kinds() []FunctionKind {
	res := make([]FunctionKind, numKinds)
	for i := range res {
		res[i] = FunctionKind(i)
	}
	return res
}

// KindStatistics counts the activity of one sub-cache. Summary flow functions are not cached: each query is
// counted as a construction.
type KindStatistics struct {
	Entries       int
	Hits          int
	Constructions int
}

// Statistics returns the statistics of every sub-cache
func (c *FlowEdgeFunctionCache[N, D, F, L]) Statistics() map[FunctionKind]KindStatistics {
	res := make(map[FunctionKind]KindStatistics, numKinds)
	entries := [numKinds]int{
		NormalFlow:       c.normalFlow.size(),
		CallFlow:         c.callFlow.size(),
		ReturnFlow:       c.returnFlow.size(),
		CallToReturnFlow: c.ctrFlow.size(),
		NormalEdge:       c.normalEdge.size(),
		CallEdge:         c.callEdge.size(),
		ReturnEdge:       c.returnEdge.size(),
		CallToReturnEdge: c.ctrEdge.size(),
		SummaryEdge:      c.summaryEdge.size(),
	}
	for _, k := range Kinds() {
		s := c.stats[k]
		s.Entries = entries[k]
		res[k] = s
	}
	return res
}

// WriteStatistics writes a human-readable table of the statistics of the cache to w
func (c *FlowEdgeFunctionCache[N, D, F, L]) WriteStatistics(w io.Writer) error {
	stats := c.Statistics()
	var b strings.Builder
	b.WriteString(formatutil.Bold("Flow-edge function cache statistics") + "\n")
	b.WriteString(formatutil.Faint(fmt.Sprintf("%-22s %10s %10s %14s", "kind", "entries", "hits", "constructions")) + "\n")
	for _, k := range Kinds() {
		s := stats[k]
		fmt.Fprintf(&b, "%-22s %10d %10d %14d\n", k, s.Entries, s.Hits, s.Constructions)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Print logs the statistics of the cache at the info level
func (c *FlowEdgeFunctionCache[N, D, F, L]) Print() {
	stats := c.Statistics()
	c.logger.Infof("flow-edge function cache statistics:")
	for _, k := range Kinds() {
		s := stats[k]
		c.logger.Infof("  %-22s entries: %d, hits: %d, constructions: %d", k, s.Entries, s.Hits, s.Constructions)
	}
}
