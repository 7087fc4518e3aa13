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

    `github.com/cloudwego/kernelize/ssa`
)

var _FillValues = map[string]float64 {
    "zeros" : 0,
    "ones"  : 1,
}

// FillElim replaces the transfer of a constant-filled matrix with a device
// allocation filled in place.
type FillElim struct{}

func (FillElim) Apply(c *Context, fn *ssa.Function) bool {
    ud := fn.UseDef()
    for _, l := range fn.Locations() {
        p, ok := fn.At(l).(*ssa.CopyToDevice)
        if !ok {
            continue
        }

        /* the source must be created by a fill builtin */
        def, ok := ud.Def(p.Input)
        if !ok {
            continue
        }
        call, ok := fn.At(def).(*ssa.Call)
        if !ok || len(call.Outputs) != 1 {
            continue
        }
        val, ok := _FillValues[call.Name]
        if !ok {
            continue
        }
        vt, ok := fn.TypeOf(p.Input)
        if !ok || vt.Kind != ssa.Matrix {
            continue
        }

        /* allocate with the same shape, then fill every element */
        buf := fn.NewVar("alloc", ssa.BufferOf(vt.Elem))
        begin := fn.NewVar("begin", ssa.ScalarOf(ssa.Int32))
        end := fn.NewVar("count", ssa.ScalarOf(ssa.Int32))
        fill := fn.NewVar("fill", ssa.ScalarOf(vt.Elem))
        fn.Replace(l,
            &ssa.AllocateOnDevice { Output: buf, Input: p.Input },
            &ssa.Const { Output: begin, Value: 0 },
            &ssa.Call { Name: "numel", Inputs: []ssa.Var { p.Input }, Outputs: []ssa.Var { end } },
            &ssa.Const { Output: fill, Value: val },
            &ssa.SetRange { Buffer: buf, Begin: begin, End: end, Value: fill, Output: p.Output },
        )

        /* done */
        atomic.AddUint64(&RemovedCount, 1)
        c.Span.Printw("replaced fill transfer", "buf", p.Output, "host", p.Input, "fill", call.Name)
        return true
    }
    return false
}
