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

package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains the options of the engine and of the solvers it drives.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	// Solver contains the options read by the flow/edge function cache and the solvers
	Solver SolverOptions `yaml:"solver"`

	sourceFile string
}

// Options are the general options of the tool.
type Options struct {
	// ReportsDir is the directory where statistics reports will be stored. If the yaml config file this config
	// struct has been loaded does not specify a ReportsDir but sets ReportStatistics to true, then ReportsDir will
	// be created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportStatistics specifies whether the cache statistics should be written in a file in the reports directory
	// once a solve is finalized
	ReportStatistics bool `yaml:"report-statistics"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// SolverOptions is the solver configuration of an analysis problem.
type SolverOptions struct {
	// AutoAddZero makes the flow/edge function cache wrap every normal, call, return and call-to-return flow
	// function such that the zero fact is always propagated
	AutoAddZero bool `yaml:"auto-add-zero"`

	// ComputeValues specifies whether the solver runs the value computation phase after the jump functions have
	// reached a fixed point. IFDS-style problems can set it to false.
	ComputeValues bool `yaml:"compute-values"`

	// RecordStatistics makes the solver log the flow/edge function cache statistics when it is finalized
	RecordStatistics bool `yaml:"record-statistics"`

	// CheckFrequencyMs is the target interval between two cancellation checks of an interactive solve.
	// If it is <= 0, DefaultCheckFrequencyMs is used.
	CheckFrequencyMs int `yaml:"check-frequency-ms"`

	// TimeoutMs is the timeout of an interactive solve. If it is <= 0, there is no timeout.
	TimeoutMs int `yaml:"timeout-ms"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			ReportsDir:       "",
			ReportStatistics: false,
			LogLevel:         int(InfoLevel),
			SilenceWarn:      false,
		},
		Solver: DefaultSolverOptions(),
	}
}

// DefaultSolverOptions returns the solver options used when none are specified: the zero fact is added
// automatically and values are computed.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		AutoAddZero:      true,
		ComputeValues:    true,
		RecordStatistics: false,
		CheckFrequencyMs: DefaultCheckFrequencyMs,
		TimeoutMs:        DefaultTimeoutMs,
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := LoadFromBytes(b)
	if err != nil {
		return nil, err
	}
	cfg.sourceFile = filename

	if cfg.ReportStatistics {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFromBytes reads a configuration from the yaml content b. Relative paths in the configuration are
// resolved with respect to the current directory.
func LoadFromBytes(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.Solver.CheckFrequencyMs <= 0 {
		cfg.Solver.CheckFrequencyMs = DefaultCheckFrequencyMs
	}
	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// SourceFile returns the file the config was loaded from, or "" if it was not loaded from a file
func (c Config) SourceFile() string {
	return c.sourceFile
}

// ReportFile creates a new file whose name starts with prefix in the reports directory
func (c Config) ReportFile(prefix string) (*os.File, error) {
	if c.ReportsDir == "" {
		return nil, fmt.Errorf("no reports directory is set")
	}
	f, err := os.CreateTemp(c.ReportsDir, prefix+"-*.txt")
	if err != nil {
		return nil, fmt.Errorf("could not create report file: %w", err)
	}
	return f, nil
}

// CheckFrequency returns the interval between two cancellation checks of an interactive solve
func (s SolverOptions) CheckFrequency() time.Duration {
	if s.CheckFrequencyMs <= 0 {
		return DefaultCheckFrequencyMs * time.Millisecond
	}
	return time.Duration(s.CheckFrequencyMs) * time.Millisecond
}

// Timeout returns the timeout of an interactive solve, and false if no timeout is set.
func (s SolverOptions) Timeout() (time.Duration, bool) {
	if s.TimeoutMs <= 0 {
		return 0, false
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond, true
}
