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

    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/internal/oracle`
    `github.com/cloudwego/kernelize/ssa`
)

// TransferHoist moves read-only transfers of loop-invariant values in front
// of the outermost loop that leaves the value untouched.
type TransferHoist struct{}

func (TransferHoist) Apply(c *Context, fn *ssa.Function) bool {
    o := oracle.New(fn)
    h := loops.Build(fn)

    /* find a transfer inside some loop */
    for _, l := range fn.Locations() {
        p, ok := fn.At(l).(*ssa.CopyToDevice)
        if !ok || !readOnly(o, p.Output) {
            continue
        }

        /* candidate loops are checked from the outside in, the first one wins */
        for _, lp := range enclosing(h, l.Block) {
            if !definedOutside(o, h, p.Input, lp) || mutatedIn(o, p.Input, h.Body(lp)) {
                continue
            }

            /* move the transfer right in front of the loop */
            fn.Remove(l)
            fn.Insert(lp.Header, p)
            atomic.AddUint64(&HoistedCount, 1)
            c.Span.Printw("hoisted transfer", "buf", p.Output, "host", p.Input, "loop", lp.Block)
            return true
        }
    }
    return false
}
