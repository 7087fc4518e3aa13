/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package opts

import (
	"github.com/cloudwego/kernelize/ssa"
)

// AnyFunction matches every function in a skip-pass directive.
const AnyFunction = "*"

type Options struct {
	AllowOverwrite     bool
	MemoryStrategy     MemoryStrategy
	SvmMode            SvmMode
	MaxDims            int
	RestrictSequential bool
	RestrictCoalesced  bool
	LocalSize          int
	CoarseningFactor   int
	WorkGroups         int
	Schedules          []Schedule
	SkipPasses         map[string]map[string]bool
	Callees            func(name string) (*ssa.Function, bool)
}

// ScheduleOf returns the schedule of dimension dim. Dimensions without an
// explicit schedule reuse the last one given.
func (self *Options) ScheduleOf(dim int) Schedule {
	if n := len(self.Schedules); n == 0 {
		return Direct
	} else if dim < n {
		return self.Schedules[dim]
	} else {
		return self.Schedules[n-1]
	}
}

// SkipPass records a directive to skip pass on function fn.
func (self *Options) SkipPass(fn string, pass string) {
	if self.SkipPasses == nil {
		self.SkipPasses = make(map[string]map[string]bool)
	}
	if self.SkipPasses[fn] == nil {
		self.SkipPasses[fn] = make(map[string]bool)
	}
	self.SkipPasses[fn][pass] = true
}

// Skips reports whether pass must not run on function fn.
func (self *Options) Skips(fn string, pass string) bool {
	return self.SkipPasses[fn][pass] || self.SkipPasses[AnyFunction][pass]
}

func GetDefaultOptions() Options {
	return Options{
		AllowOverwrite:     AllowOverwrite,
		MemoryStrategy:     DefaultMemoryStrategy,
		SvmMode:            DefaultSvmMode,
		MaxDims:            MaxDims,
		RestrictSequential: RestrictSequential,
		RestrictCoalesced:  RestrictCoalesced,
		LocalSize:          LocalSize,
		CoarseningFactor:   _DefaultCoarseningFactor,
		WorkGroups:         _DefaultWorkGroups,
		Schedules:          []Schedule{DefaultSchedule},
	}
}
