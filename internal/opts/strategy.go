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
	"fmt"

	"github.com/cloudwego/kernelize/internal/utils"
)

// MemoryStrategy selects how host arrays reach the device.
type MemoryStrategy uint8

const (
	// CopyBuffers copies every imported array into a private device buffer.
	CopyBuffers MemoryStrategy = iota

	// FineGrainedBuffers lets kernels access host arrays in place (SVM),
	// whenever the access pattern allows it.
	FineGrainedBuffers
)

var memoryStrategyNames = [...]string{
	CopyBuffers:        "copy-buffers",
	FineGrainedBuffers: "fine-grained-buffers",
}

func (self MemoryStrategy) String() string {
	if int(self) < len(memoryStrategyNames) {
		return memoryStrategyNames[self]
	} else {
		return fmt.Sprintf("MemoryStrategy(%d)", self)
	}
}

func ParseMemoryStrategy(s string) (MemoryStrategy, error) {
	for i, v := range memoryStrategyNames {
		if v == s {
			return MemoryStrategy(i), nil
		}
	}
	return 0, utils.EOption("device-memory-strategy", s, "unknown device memory strategy")
}

// SvmMode controls how aggressively copies are replaced by shared buffers.
type SvmMode uint8

const (
	EliminateCopiesOutOfLoops SvmMode = iota
	EliminateNoAddedCopies
	DoNotEliminate
)

var svmModeNames = [...]string{
	EliminateCopiesOutOfLoops: "eliminate-copies-out-of-loops",
	EliminateNoAddedCopies:    "eliminate-no-added-copies",
	DoNotEliminate:            "do-not-eliminate",
}

func (self SvmMode) String() string {
	if int(self) < len(svmModeNames) {
		return svmModeNames[self]
	} else {
		return fmt.Sprintf("SvmMode(%d)", self)
	}
}

func ParseSvmMode(s string) (SvmMode, error) {
	for i, v := range svmModeNames {
		if v == s {
			return SvmMode(i), nil
		}
	}
	return 0, utils.EOption("svm-elimination-mode", s, "unknown svm elimination mode")
}

// Schedule maps the iterations of one loop dimension onto work items.
type Schedule uint8

const (
	// Direct runs one iteration per work item.
	Direct Schedule = iota

	// Cooperative lets a whole work group reduce its iterations together,
	// through a local reduction buffer.
	Cooperative

	// SubgroupCooperative is Cooperative within hardware subgroups.
	SubgroupCooperative

	// CoarseGlobalRotation runs a fixed number of iterations per work
	// item, strided by the global size.
	CoarseGlobalRotation

	// CoarseSequential runs a fixed number of consecutive iterations per
	// work item.
	CoarseSequential

	// FixedWorkGroupsSequential launches a fixed number of work groups,
	// each work item walks a consecutive range of iterations.
	FixedWorkGroupsSequential

	// FixedWorkGroupsGlobalRotation launches a fixed number of work groups,
	// each work item strides over the iterations by the global size.
	FixedWorkGroupsGlobalRotation
)

var scheduleNames = [...]string{
	Direct:                        "direct",
	Cooperative:                   "cooperative",
	SubgroupCooperative:           "subgroup-cooperative",
	CoarseGlobalRotation:          "coarse-global-rotation",
	CoarseSequential:              "coarse-sequential",
	FixedWorkGroupsSequential:     "fixed-work-groups-sequential",
	FixedWorkGroupsGlobalRotation: "fixed-work-groups-global-rotation",
}

func (self Schedule) String() string {
	if int(self) < len(scheduleNames) {
		return scheduleNames[self]
	} else {
		return fmt.Sprintf("Schedule(%d)", self)
	}
}

// IsCooperative reports whether the work items of a group share one
// reduction buffer.
func (self Schedule) IsCooperative() bool {
	return self == Cooperative || self == SubgroupCooperative
}

// IsCoarse reports whether every work item runs several iterations.
func (self Schedule) IsCoarse() bool {
	return self == CoarseGlobalRotation || self == CoarseSequential
}

// IsFixed reports whether the number of work groups is fixed.
func (self Schedule) IsFixed() bool {
	return self == FixedWorkGroupsSequential || self == FixedWorkGroupsGlobalRotation
}

func ParseSchedule(s string) (Schedule, error) {
	for i, v := range scheduleNames {
		if v == s {
			return Schedule(i), nil
		}
	}
	return 0, utils.EOption("schedule", s, "unknown schedule")
}
