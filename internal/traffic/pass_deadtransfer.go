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

package traffic

import (
    `sync/atomic`

    `github.com/cloudwego/kernelize/internal/region`
    `github.com/cloudwego/kernelize/ssa`
)

// DeadTransferElim removes transfers, allocations, reductions and pure
// values that nothing reads.
type DeadTransferElim struct{}

func (DeadTransferElim) Apply(c *Context, fn *ssa.Function) bool {
    done := true
    used := make(map[ssa.Var]int)

    /* Phase 1: Count all the usages */
    for _, bb := range fn.Blocks() {
        for _, ins := range bb.Ins {
            for _, v := range ssa.Inputs(ins) {
                used[v]++
            }
        }
    }

    /* Phase 2: Remove every instruction without effects whose results are unused */
    for _, bb := range fn.Blocks() {
        ins := bb.Ins
        bb.Ins = bb.Ins[:0]

        /* keep instructions that are still needed */
        for _, v := range ins {
            if !removable(v, used) {
                bb.Ins = append(bb.Ins, v)
                continue
            }

            /* forget the definitions */
            for _, d := range ssa.Outputs(v) {
                delete(fn.Types, d)
            }

            /* transfers are counted separately */
            switch v.(type) {
                case *ssa.CopyToDevice, *ssa.CompleteReduction, *ssa.OverwriteOnDevice: {
                    atomic.AddUint64(&RemovedCount, 1)
                }
            }
            c.Span.V("traffic").Printw("removed dead instruction", "ins", v.String())
            done = false
        }
    }
    return !done
}

func removable(ins ssa.Instr, used map[ssa.Var]int) bool {
    switch p := ins.(type) {
        case *ssa.Call: {
            if !region.PureBuiltins[p.Name] || len(p.Outputs) == 0 {
                return false
            }
        }
        case *ssa.SetRange: {
            if p.Output == "" || used[p.Buffer] > 1 {
                return false
            }
        }
        case *ssa.CopyToDevice, *ssa.AllocateOnDevice, *ssa.CompleteReduction, *ssa.OverwriteOnDevice: break
        case *ssa.Phi, *ssa.Const, *ssa.Assign, *ssa.MatrixGet, *ssa.MatrixSet: break
        default: return false
    }

    /* every result must be unused */
    for _, v := range ssa.Outputs(ins) {
        if used[v] != 0 {
            return false
        }
    }
    return true
}
