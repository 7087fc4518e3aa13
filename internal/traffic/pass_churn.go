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
    `github.com/samber/lo`
    `golang.org/x/exp/slices`
)

// LoopChurnElim turns a matrix that is transferred to the device at the
// start of every iteration and read back at the end of it into a device
// buffer carried by the loop, transferred once before the loop and read
// back once after it.
type LoopChurnElim struct{}

type _Churn struct {
    lp   *loops.Loop
    lv   loops.LoopVariable
    cp   *ssa.CopyToDevice
    cr   *ssa.CompleteReduction
    tail int
}

func (self LoopChurnElim) Apply(c *Context, fn *ssa.Function) bool {
    o := oracle.New(fn)
    h := loops.Build(fn)

    /* check every carried value of every loop */
    for _, lp := range h.Order {
        if vars, ok := h.Analyze(lp); ok {
            for _, lv := range vars {
                if ch, ok := self.match(o, h, lp, lv); ok {
                    self.collapse(fn, ch)
                    atomic.AddUint64(&HoistedCount, 1)
                    c.Span.Printw("collapsed loop transfers", "loop", lp.Block, "var", lv.String())
                    return true
                }
            }
        }
    }
    return false
}

func (self LoopChurnElim) match(o *oracle.Oracle, h *loops.Hierarchy, lp *loops.Loop, lv loops.LoopVariable) (*_Churn, bool) {
    fn := h.Fn
    body := lo.SliceToMap(h.Body(lp), func(b int) (int, bool) { return b, true })
    ret := &_Churn { lp: lp, lv: lv, tail: h.Tail(lp) }

    /* the carried value is read back from the device at the end of the iteration */
    d, ok := o.UD.Def(lv.LoopEnd)
    if !ok {
        return nil, false
    }
    if ret.cr, ok = fn.At(d).(*ssa.CompleteReduction); !ok || ret.cr.Kind != ssa.ReductionMatrixSet {
        return nil, false
    }

    /* and transferred to the device at the start of it */
    for _, ins := range fn.Block(lp.Block).Ins {
        if p, ok := ins.(*ssa.CopyToDevice); ok && p.Input == lv.LoopStart {
            ret.cp = p
            break
        }
    }
    if ret.cp == nil {
        return nil, false
    }

    /* the carried value is not used for anything else */
    for _, u := range o.UD.Uses(lv.LoopStart) {
        if ins := fn.At(u); ins != ret.cp && ins != ret.cr {
            return nil, false
        }
    }
    for _, u := range o.UD.Uses(lv.LoopEnd) {
        if p, ok := fn.At(u).(*ssa.Phi); !ok || (p.Output != lv.LoopStart && p.Output != lv.AfterLoop) {
            return nil, false
        }
    }

    /* the buffer read back is the one transferred, and stays inside the loop */
    alias := o.Aliases(ret.cp.Output)
    if !lo.Contains(alias, ret.cr.Buffer) || len(o.UD.Uses(ret.cr.Buffer)) != 1 {
        return nil, false
    }

    /* it must be available at the back edge */
    if b, ok := o.UD.Def(ret.cr.Buffer); !ok || !lo.Contains(loops.Spine(fn, lp.Block), b.Block) {
        return nil, false
    }
    for _, a := range alias {
        for _, u := range o.UD.Uses(a) {
            if !body[u.Block] {
                return nil, false
            }
            if _, ok := fn.At(u).(*ssa.Phi); ok {
                return nil, false
            }
        }
    }
    return ret, true
}

func (self LoopChurnElim) collapse(fn *ssa.Function, ch *_Churn) {
    head := ch.lp.Header.Block
    bt := fn.Types[ch.cp.Output]

    /* one transfer before the loop */
    b0 := fn.NewVar("buf", bt)
    fn.Insert(ch.lp.Header, &ssa.CopyToDevice { Output: b0, Input: ch.lv.BeforeLoop })

    /* the buffer is carried around the back edge instead of the matrix */
    bs := fn.NewVar("buf_start", bt)
    remove(fn, ch.lp.Block, func(ins ssa.Instr) bool {
        p, ok := ins.(*ssa.Phi)
        return ins == ch.cp || (ok && p.Output == ch.lv.LoopStart)
    })
    lb := fn.Block(ch.lp.Block)
    lb.Ins = slices.Insert(lb.Ins, 0, ssa.Instr(&ssa.Phi { Output: bs, Inputs: []ssa.Var { b0, ch.cr.Buffer }, Sources: []int { head, ch.tail } }))
    fn.RenameVar(ch.cp.Output, bs)

    /* no more read back inside the loop */
    if l, ok := fn.UseDef().Def(ch.lv.LoopEnd); ok {
        fn.Remove(l)
    }

    /* one read back after the loop */
    if ch.lv.HasAfterLoop() {
        eb := fn.Block(ch.lp.For.EndBlockId)
        ba := fn.NewVar("buf_after", bt)
        remove(fn, eb.Id, func(ins ssa.Instr) bool {
            p, ok := ins.(*ssa.Phi)
            return ok && p.Output == ch.lv.AfterLoop
        })
        eb.Ins = slices.Insert(eb.Ins, 0, ssa.Instr(&ssa.Phi { Output: ba, Inputs: []ssa.Var { b0, ch.cr.Buffer }, Sources: []int { head, ch.tail } }))
        eb.Ins = slices.Insert(eb.Ins, len(eb.Phis()), ssa.Instr(&ssa.CompleteReduction {
            Output  : ch.lv.AfterLoop,
            Kind    : ssa.ReductionMatrixSet,
            Op      : ssa.OpNone,
            Buffer  : ba,
            Elem    : ch.cr.Elem,
            Initial : ch.lv.BeforeLoop,
        }))
    }

    /* forget the names that no longer exist */
    delete(fn.Types, ch.cp.Output)
    delete(fn.Types, ch.lv.LoopStart)
    delete(fn.Types, ch.lv.LoopEnd)
}

// remove deletes every instruction of a block matching pred.
func remove(fn *ssa.Function, id int, pred func(ssa.Instr) bool) {
    bb := fn.Block(id)
    bb.Ins = lo.Reject(bb.Ins, func(ins ssa.Instr, _ int) bool { return pred(ins) })
}
