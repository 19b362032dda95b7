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

package formatutil

import (
	"testing"
)

func TestColor(t *testing.T) {
	defer func(e bool) { Enabled = e }(Enabled)
	tests := []struct {
		enabled bool
		want    string
	}{
		{false, "n=3"},
		{true, "\033[1mn=3\033[0m"},
	}
	for _, tt := range tests {
		Enabled = tt.enabled
		if got := Bold("n=", 3); got != tt.want {
			t.Errorf("Bold with colours enabled=%v: got %q, want %q", tt.enabled, got, tt.want)
		}
	}
}
