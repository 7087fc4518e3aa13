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

package kernelize

import (
	"github.com/cloudwego/kernelize/internal/opts"
	"github.com/cloudwego/kernelize/internal/utils"
	"github.com/cloudwego/kernelize/ssa"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

type (
	MemoryStrategy = opts.MemoryStrategy
	SvmMode        = opts.SvmMode
	Schedule       = opts.Schedule
)

const (
	CopyBuffers        = opts.CopyBuffers
	FineGrainedBuffers = opts.FineGrainedBuffers
)

const (
	EliminateCopiesOutOfLoops = opts.EliminateCopiesOutOfLoops
	EliminateNoAddedCopies    = opts.EliminateNoAddedCopies
	DoNotEliminate            = opts.DoNotEliminate
)

const (
	Direct                        = opts.Direct
	Cooperative                   = opts.Cooperative
	SubgroupCooperative           = opts.SubgroupCooperative
	CoarseGlobalRotation          = opts.CoarseGlobalRotation
	CoarseSequential              = opts.CoarseSequential
	FixedWorkGroupsSequential     = opts.FixedWorkGroupsSequential
	FixedWorkGroupsGlobalRotation = opts.FixedWorkGroupsGlobalRotation
)

// WithAllowOverwrite lets the optimizer refresh a device buffer in place
// from another device buffer, instead of transferring the host array again.
//
// This value can also be configured with the `KERNELIZE_ALLOW_OVERWRITE`
// environment variable.
func WithAllowOverwrite(v bool) Option {
	return func(o *opts.Options) { o.AllowOverwrite = v }
}

// WithMemoryStrategy selects how host arrays reach the device.
//
// The default value of this option is "copy-buffers".
func WithMemoryStrategy(v MemoryStrategy) Option {
	if v > FineGrainedBuffers {
		panic(utils.EOption("device-memory-strategy", v, "unknown strategy"))
	} else {
		return func(o *opts.Options) { o.MemoryStrategy = v }
	}
}

// WithSvmEliminationMode controls which transfers may be replaced by
// sharing the host array with the device. It only has effect with the
// FineGrainedBuffers strategy.
//
// The default value of this option is "eliminate-no-added-copies".
func WithSvmEliminationMode(v SvmMode) Option {
	if v > DoNotEliminate {
		panic(utils.EOption("svm-elimination-mode", v, "unknown mode"))
	} else {
		return func(o *opts.Options) { o.SvmMode = v }
	}
}

// WithMaxWorkItemDimensions limits how many nested loops can be turned
// into a single kernel.
//
// The default value of this option is "3".
func WithMaxWorkItemDimensions(n int) Option {
	if n < 1 {
		panic(utils.EOption("max-work-item-dimensions", n, "must be at least 1"))
	} else {
		return func(o *opts.Options) { o.MaxDims = n }
	}
}

// WithSvmRestrictSequential keeps arrays accessed at positions not derived
// from the iteration variables in private buffers.
func WithSvmRestrictSequential(v bool) Option {
	return func(o *opts.Options) { o.RestrictSequential = v }
}

// WithSvmRestrictCoalesced keeps arrays whose first index is not the
// innermost iteration variable in private buffers.
func WithSvmRestrictCoalesced(v bool) Option {
	return func(o *opts.Options) { o.RestrictCoalesced = v }
}

// WithLocalSize sets the number of work items per work group.
//
// The default value of this option is "64".
func WithLocalSize(n int) Option {
	if n < 1 {
		panic(utils.EOption("local-size", n, "must be at least 1"))
	} else {
		return func(o *opts.Options) { o.LocalSize = n }
	}
}

// WithSchedule sets the schedule of each kernel dimension, outermost
// first. Dimensions beyond the given ones reuse the last schedule.
func WithSchedule(s ...Schedule) Option {
	if len(s) == 0 {
		panic(utils.EOption("schedule", s, "at least one schedule is required"))
	}
	for _, v := range s {
		if v > FixedWorkGroupsGlobalRotation {
			panic(utils.EOption("schedule", v, "unknown schedule"))
		}
	}
	return func(o *opts.Options) { o.Schedules = append([]Schedule(nil), s...) }
}

// WithCoarseningFactor sets the number of iterations run by every work
// item under the coarse schedules.
//
// The default value of this option is "4".
func WithCoarseningFactor(n int) Option {
	if n < 1 {
		panic(utils.EOption("coarsening-factor", n, "must be at least 1"))
	} else {
		return func(o *opts.Options) { o.CoarseningFactor = n }
	}
}

// WithWorkGroups sets the number of work groups launched under the fixed
// work group schedules.
//
// The default value of this option is "64".
func WithWorkGroups(n int) Option {
	if n < 1 {
		panic(utils.EOption("work-groups", n, "must be at least 1"))
	} else {
		return func(o *opts.Options) { o.WorkGroups = n }
	}
}

// WithSkipPass disables the optimization pass named pass on function fn.
// Use "*" as the function name to disable it everywhere.
func WithSkipPass(fn string, pass string) Option {
	if fn == "" || pass == "" {
		panic(utils.EOption("skip-pass", fn+":"+pass, "function and pass names are required"))
	} else {
		return func(o *opts.Options) { o.SkipPass(fn, pass) }
	}
}

// WithCallees resolves the user functions called from loop bodies, so that
// loops calling pure user functions can be offloaded as well.
func WithCallees(lookup func(name string) (*ssa.Function, bool)) Option {
	return func(o *opts.Options) { o.Callees = lookup }
}

// SetMaxWorkItemDimensions sets the default maximum number of kernel
// dimensions from now on.
//
// This value can also be configured with the `KERNELIZE_MAX_WORK_ITEM_DIMENSIONS`
// environment variable.
//
// Returns the old opts.MaxDims value.
func SetMaxWorkItemDimensions(n int) int {
	if n < 1 {
		panic(utils.EOption("max-work-item-dimensions", n, "must be at least 1"))
	}
	n, opts.MaxDims = opts.MaxDims, n
	return n
}

// SetLocalSize sets the default work group size from now on.
//
// This value can also be configured with the `KERNELIZE_LOCAL_SIZE`
// environment variable.
//
// Returns the old opts.LocalSize value.
func SetLocalSize(n int) int {
	if n < 1 {
		panic(utils.EOption("local-size", n, "must be at least 1"))
	}
	n, opts.LocalSize = opts.LocalSize, n
	return n
}

// SetDefaultSchedule sets the default schedule from now on.
//
// This value can also be configured with the `KERNELIZE_SCHEDULE`
// environment variable.
//
// Returns the old opts.DefaultSchedule value.
func SetDefaultSchedule(s Schedule) Schedule {
	s, opts.DefaultSchedule = opts.DefaultSchedule, s
	return s
}

// SetDefaultMemoryStrategy sets the default device memory strategy from now on.
//
// This value can also be configured with the `KERNELIZE_DEVICE_MEMORY_STRATEGY`
// environment variable.
//
// Returns the old opts.DefaultMemoryStrategy value.
func SetDefaultMemoryStrategy(v MemoryStrategy) MemoryStrategy {
	v, opts.DefaultMemoryStrategy = opts.DefaultMemoryStrategy, v
	return v
}

// SetDefaultSvmEliminationMode sets the default svm elimination mode from now on.
//
// This value can also be configured with the `KERNELIZE_SVM_ELIMINATION_MODE`
// environment variable.
//
// Returns the old opts.DefaultSvmMode value.
func SetDefaultSvmEliminationMode(v SvmMode) SvmMode {
	v, opts.DefaultSvmMode = opts.DefaultSvmMode, v
	return v
}

// SetAllowOverwrite sets the default of WithAllowOverwrite from now on.
//
// Returns the old opts.AllowOverwrite value.
func SetAllowOverwrite(v bool) bool {
	v, opts.AllowOverwrite = opts.AllowOverwrite, v
	return v
}
