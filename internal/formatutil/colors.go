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

// Package formatutil colours text written to a terminal.
package formatutil

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Enabled reports whether the colour functions emit escape sequences. It is set when standard output is a
// terminal.
var Enabled = term.IsTerminal(int(os.Stdout.Fd()))

var (
	Bold   = Color("\033[1m%s\033[0m")
	Faint  = Color("\033[2m%s\033[0m")
	Yellow = Color("\033[1;33m%s\033[0m")
)

// Color returns a function formatting its arguments like fmt.Sprint inside colorString, when colours are enabled.
func Color(colorString string) func(...any) string {
	return func(args ...any) string {
		if Enabled {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}
