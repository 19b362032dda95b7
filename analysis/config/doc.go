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

/*
Package config provides the configuration of the IDE engine and its leveled loggers.

Use [Load](filename) to load a configuration from a specific filename, or [LoadFromBytes] when the
configuration is already in memory.

A config file is in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. For example, a valid config file is as follows:

	options:
	  log-level: 4
	solver:
	  auto-add-zero: true
	  compute-values: true
	  record-statistics: true
	  check-frequency-ms: 500

# Solver options

The [SolverOptions] are read once by the flow/edge function cache when it is created, and by the
interactive driver when a solve is started with a timeout. Changing them afterwards has no effect on
running analyses.
*/
package config
