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
	"github.com/xyproto/env/v2"
)

const (
	_DefaultMaxDims          = 3  // three-dimensional NDRange at most
	_DefaultLocalSize        = 64 // work items per group
	_DefaultCoarseningFactor = 4  // iterations per work item for coarse schedules
	_DefaultWorkGroups       = 64 // work groups for fixed schedules
)

var (
	AllowOverwrite        = env.Bool("KERNELIZE_ALLOW_OVERWRITE")
	RestrictSequential    = env.Bool("KERNELIZE_SVM_RESTRICT_SEQUENTIAL")
	RestrictCoalesced     = env.Bool("KERNELIZE_SVM_RESTRICT_COALESCED")
	MaxDims               = intOrDefault("KERNELIZE_MAX_WORK_ITEM_DIMENSIONS", _DefaultMaxDims, 1)
	LocalSize             = intOrDefault("KERNELIZE_LOCAL_SIZE", _DefaultLocalSize, 1)
	DefaultMemoryStrategy = parseOrDefault("KERNELIZE_DEVICE_MEMORY_STRATEGY", CopyBuffers, ParseMemoryStrategy)
	DefaultSvmMode        = parseOrDefault("KERNELIZE_SVM_ELIMINATION_MODE", EliminateNoAddedCopies, ParseSvmMode)
	DefaultSchedule       = parseOrDefault("KERNELIZE_SCHEDULE", Direct, ParseSchedule)
)

func intOrDefault(key string, def int, min int) int {
	if ret := env.Int(key, def); ret < min {
		panic("kernelize: value too small for " + key)
	} else {
		return ret
	}
}

func parseOrDefault[T any](key string, def T, parse func(string) (T, error)) T {
	if val := env.Str(key); val == "" {
		return def
	} else if ret, err := parse(val); err != nil {
		panic("kernelize: invalid value for " + key + ": " + err.Error())
	} else {
		return ret
	}
}
