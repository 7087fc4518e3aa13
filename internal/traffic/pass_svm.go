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
    `github.com/cloudwego/kernelize/internal/opts`
    `github.com/cloudwego/kernelize/internal/oracle`
    `github.com/cloudwego/kernelize/ssa`
)

// svmAllows reports whether a transfer in block id may be replaced by
// sharing the host array with the device.
func svmAllows(c *Context, h *loops.Hierarchy, id int) bool {
    switch {
        case c.Options.MemoryStrategy != opts.FineGrainedBuffers : return false
        case c.Options.SvmMode == opts.DoNotEliminate            : return false
        case c.Options.SvmMode == opts.EliminateNoAddedCopies    : return !inLoop(h, id)
        default                                                  : return true
    }
}

func hostMatrix(fn *ssa.Function, v ssa.Var) bool {
    vt, ok := fn.TypeOf(v)
    return ok && vt.Kind == ssa.Matrix
}

// SvmCopyElim binds host arrays that kernels only read directly to the
// kernels, instead of transferring them.
type SvmCopyElim struct{}

func (SvmCopyElim) Apply(c *Context, fn *ssa.Function) bool {
    o := oracle.New(fn)
    h := loops.Build(fn)

    /* find a read-only transfer of an array nobody writes meanwhile */
    for _, l := range fn.Locations() {
        p, ok := fn.At(l).(*ssa.CopyToDevice)
        if !ok || !svmAllows(c, h, l.Block) || !hostMatrix(fn, p.Input) {
            continue
        }
        if !readOnly(o, p.Output) || o.IsMutatedAfter(p.Input, l) {
            continue
        }

        /* share the host array */
        fn.Remove(l)
        fn.RenameVar(p.Output, p.Input)
        delete(fn.Types, p.Output)
        atomic.AddUint64(&RemovedCount, 1)
        c.Span.Printw("shared read-only array", "buf", p.Output, "host", p.Input)
        return true
    }
    return false
}

// SvmChainElim binds a host array directly to a chain of kernels writing
// it in place, when the array is only read back afterwards by a matrix-set
// reduction, and never used again.
type SvmChainElim struct{}

type _Chain struct {
    bufs []ssa.Var
    last *ssa.InvokeKernel
    out  int
}

func (self SvmChainElim) Apply(c *Context, fn *ssa.Function) bool {
    o := oracle.New(fn)
    h := loops.Build(fn)

    /* find a transfer that is written by kernels */
    for _, l := range fn.Locations() {
        p, ok := fn.At(l).(*ssa.CopyToDevice)
        if !ok || !svmAllows(c, h, l.Block) || !hostMatrix(fn, p.Input) {
            continue
        }

        /* follow the kernels overwriting the buffer */
        ch := self.follow(o, p.Output)
        if ch.last == nil {
            continue
        }

        /* the reduction reading back the array */
        cr, at, ok := self.reduction(o, p.Input)
        if !ok {
            continue
        }

        /* the chain must end exactly where the reduction reads */
        end := ch.bufs[len(ch.bufs) - 1]
        if end != cr.Buffer {
            c.Span.V("traffic").Printw("chain does not end at the reduction", "buf", p.Output, "end", end, "reduced", cr.Buffer)
            continue
        }

        /* the host array is not needed after the transfer */
        if !self.consumed(o, p.Input, l, cr) {
            continue
        }

        /* write the host array in place */
        self.rewrite(fn, p, l.Block, ch, cr, at)
        atomic.AddUint64(&RemovedCount, 2)
        c.Span.Printw("shared written array", "buf", p.Output, "host", p.Input, "kernels", len(ch.bufs) - 1)
        return true
    }
    return false
}

func (self SvmChainElim) follow(o *oracle.Oracle, b ssa.Var) (ret _Chain) {
    ret.bufs = []ssa.Var { b }
    for {
        next := false
        for _, u := range o.UD.Uses(b) {
            if p, ok := o.Fn.At(u).(*ssa.InvokeKernel); ok {
                for i, a := range p.Arguments {
                    if v, ok := p.OutputOf(i); ok && a == b && !next {
                        b, next = v, true
                        ret.last, ret.out = p, i
                    }
                }
            }
        }
        if !next {
            return
        }
        ret.bufs = append(ret.bufs, b)
    }
}

func (self SvmChainElim) reduction(o *oracle.Oracle, x ssa.Var) (*ssa.CompleteReduction, int, bool) {
    for _, u := range o.UD.Uses(x) {
        if p, ok := o.Fn.At(u).(*ssa.CompleteReduction); ok && p.Kind == ssa.ReductionMatrixSet && p.Initial == x {
            return p, u.Block, true
        }
    }
    return nil, 0, false
}

func (self SvmChainElim) consumed(o *oracle.Oracle, x ssa.Var, at ssa.Location, cr *ssa.CompleteReduction) bool {
    for _, a := range o.Aliases(x) {
        for _, u := range o.UD.Uses(a) {
            if ins := o.Fn.At(u); u != at && ins != ssa.Instr(cr) && !shapeOnly(ins) && o.Reaches(at, u) {
                return false
            }
        }
    }
    return true
}

// shapeOnly reports whether ins only reads the shape of its input, which
// in-place writes never change.
func shapeOnly(ins ssa.Instr) bool {
    p, ok := ins.(*ssa.Call)
    return ok && _ShapeQueries[p.Name]
}

func (self SvmChainElim) rewrite(fn *ssa.Function, p *ssa.CopyToDevice, cp int, ch _Chain, cr *ssa.CompleteReduction, at int) {
    vt := fn.Types[p.Input]
    end := ch.bufs[len(ch.bufs) - 1]

    /* the last kernel produces the reduced array itself */
    for i, s := range ch.last.OutputSources {
        if s == ch.out {
            ch.last.Outputs[i] = cr.Output
        }
    }
    remove(fn, at, func(ins ssa.Instr) bool { return ins == ssa.Instr(cr) })
    fn.RenameVar(end, cr.Output)
    delete(fn.Types, end)

    /* the intermediate buffers are host memory now */
    for _, v := range ch.bufs[1:len(ch.bufs) - 1] {
        fn.Types[v] = vt
    }

    /* no more transfer */
    remove(fn, cp, func(ins ssa.Instr) bool { return ins == ssa.Instr(p) })
    fn.RenameVar(p.Output, p.Input)
    delete(fn.Types, p.Output)
}
