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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/kernelize/internal/lowering"
	"github.com/cloudwego/kernelize/internal/traffic"
)

// A Stats records statistics about the offload compiler since the process started.
type Stats struct {
	Kernels   int
	Transfers TransferStats
}

// A TransferStats records what the transfer optimizer did.
type TransferStats struct {
	Removed int
	Hoisted int
}

// GetStats returns statistics of the offload compiler.
func GetStats() Stats {
	return Stats{
		Kernels: int(atomic.LoadUint64(&lowering.KernelCount)),
		Transfers: TransferStats{
			Removed: int(atomic.LoadUint64(&traffic.RemovedCount)),
			Hoisted: int(atomic.LoadUint64(&traffic.HoistedCount)),
		},
	}
}
