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

    `github.com/cloudwego/kernelize/internal/oracle`
    `github.com/cloudwego/kernelize/ssa`
)

type _Transfer struct {
    buf ssa.Var
    at  ssa.Location
}

// TransferElim removes transfers of a host value that is already present
// on the device, either because it was transferred earlier in the same
// block, or because it was just read back from a device buffer.
type TransferElim struct{}

func (self TransferElim) Apply(c *Context, fn *ssa.Function) bool {
    o := oracle.New(fn)

    /* scan every block linearly */
    for _, bb := range fn.Blocks() {
        m := make(map[ssa.Var]_Transfer)
        for i, ins := range bb.Ins {
            loc := ssa.Location { Block: bb.Id, Index: i }

            /* the host value is already on the device */
            if p, ok := ins.(*ssa.CopyToDevice); ok {
                if t, ok := m[p.Input]; !ok {
                    m[p.Input] = _Transfer { buf: p.Output, at: loc }
                } else if self.merge(c, o, fn, p, t, loc) {
                    return true
                }
                continue
            }

            /* forget every transfer this instruction invalidates */
            for v, t := range m {
                if oracle.Mutates(ins, v) || oracle.Mutates(ins, t.buf) {
                    delete(m, v)
                }
            }

            /* a matrix read back from the device is still there */
            if p, ok := ins.(*ssa.CompleteReduction); ok && p.Kind == ssa.ReductionMatrixSet {
                m[p.Output] = _Transfer { buf: p.Buffer, at: loc }
            }
        }
    }
    return false
}

func (self TransferElim) merge(c *Context, o *oracle.Oracle, fn *ssa.Function, p *ssa.CopyToDevice, t _Transfer, loc ssa.Location) bool {
    tr := c.Span.V("traffic")

    /* the retained buffer must be available everywhere the copy is used */
    if !o.CoversAll(t.at, o.UD.Uses(p.Output)) {
        tr.Printw("transfer not covered", "buf", p.Output, "by", t.buf)
        return false
    }

    /* both names may share the buffer if neither writes it while the other is still read */
    if o.IsDeadAfter(t.buf, loc) || (!o.IsMutatedAfter(p.Output, loc) && !o.IsMutatedAfter(t.buf, loc)) {
        fn.Remove(loc)
        fn.RenameVar(p.Output, t.buf)
        delete(fn.Types, p.Output)
        atomic.AddUint64(&RemovedCount, 1)
        c.Span.Printw("removed transfer", "buf", p.Output, "host", p.Input, "reuse", t.buf)
        return true
    }

    /* otherwise refresh a private copy on the device, if allowed to */
    if c.Options.AllowOverwrite {
        fn.Replace(loc, &ssa.OverwriteOnDevice { Output: p.Output, Source: t.buf })
        atomic.AddUint64(&RemovedCount, 1)
        c.Span.Printw("replaced transfer with device copy", "buf", p.Output, "host", p.Input, "source", t.buf)
        return true
    }

    /* still needed */
    tr.Printw("transfer kept, buffer is live and mutated", "buf", p.Output, "host", p.Input, "other", t.buf)
    return false
}
