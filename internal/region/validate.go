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

package region

import (
    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/internal/reduction`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/samber/lo`
)

// validate checks a candidate nest and classifies its carried values. It
// returns the reason of the rejection, or an empty string.
func (self *_Selector) validate(nest []*loops.Loop) ([]*reduction.Reduction, string) {
    fn := self.h.Fn
    ud := self.h.UD
    inner := nest[len(nest) - 1]
    body := lo.SliceToMap(self.h.Body(nest[0]), func(b int) (int, bool) { return b, true })

    /* every level is directly nested in the previous one */
    for i := 1; i < len(nest); i++ {
        if nest[i].Parent != nest[i - 1] || len(nest[i - 1].Children) != 1 {
            return nil, "not a perfect nest"
        }
    }

    /* loop bounds are computed outside of the nest */
    for _, lp := range nest {
        for _, v := range []ssa.Var { lp.For.Start, lp.For.Step, lp.For.End } {
            if d, ok := ud.Def(v); ok && body[d.Block] {
                return nil, "loop bounds depend on the nest"
            }
        }
    }

    /* outer levels only compute pure values before entering the next level */
    for i, lp := range nest[:len(nest) - 1] {
        if why := self.outerLevel(lp, nest[i + 1]); why != "" {
            return nil, why
        }
    }

    /* the innermost body must be offload-safe */
    for _, b := range self.h.Body(inner) {
        for _, ins := range fn.Block(b).Ins {
            if !self.wl.allowed(ins) {
                return nil, "instruction not allowed in kernel: " + ins.String()
            }
        }
    }

    /* every carried value must be a reduction */
    nt := reduction.NewNest(self.h, nest)
    if len(nt.Iters) != len(nest) {
        return nil, "missing induction variable"
    }
    rs, why := self.reductions(nt)
    if why != "" {
        return nil, why
    }

    /* in-place writes are only allowed as reductions */
    ends := lo.SliceToMap(rs, func(r *reduction.Reduction) (ssa.Var, bool) { return r.End(), true })
    for _, b := range self.h.Body(inner) {
        for _, ins := range fn.Block(b).Ins {
            if p, ok := ins.(*ssa.MatrixSet); ok && !ends[p.Output] {
                return nil, "matrix write outside of a reduction"
            }
        }
    }

    /* the array being written may not be read through its initial name */
    for _, r := range rs {
        head, _ := ud.Def(r.Vars[0].LoopStart)
        if r.Kind == ssa.ReductionMatrixSet && lo.ContainsBy(ud.Uses(r.Initial()), func(l ssa.Location) bool { return body[l.Block] && l != head }) {
            return nil, "written array is also read inside the nest"
        }
    }
    return rs, ""
}

func (self *_Selector) outerLevel(lp *loops.Loop, next *loops.Loop) string {
    fn := self.h.Fn
    spine := loops.Spine(fn, lp.Block)
    after := false

    /* the next level must execute unconditionally */
    if !lo.Contains(spine, next.Header.Block) {
        return "inner loop is conditional"
    }

    /* everything else on the spine is either pure, or an after-loop Phi */
    for _, b := range spine {
        for i, ins := range fn.Block(b).Ins {
            if (ssa.Location { Block: b, Index: i }) == next.Header {
                after = true
                continue
            }
            if _, ok := ins.(*ssa.Phi); ok && after && b == next.For.EndBlockId {
                continue
            }
            if after {
                return "instruction after the inner loop: " + ins.String()
            }
            if !self.wl.pure(ins) {
                return "instruction not allowed in kernel: " + ins.String()
            }
        }
    }
    return ""
}

func (self *_Selector) reductions(nt *reduction.Nest) ([]*reduction.Reduction, string) {
    var ret []*reduction.Reduction
    levels := make([][]loops.LoopVariable, len(nt.Loops))

    /* canonical loop variables of every level */
    for i, lp := range nt.Loops {
        lv, ok := self.h.Analyze(lp)
        if !ok {
            return nil, "unrecognized loop variables"
        }
        levels[i] = lv
    }

    /* follow every innermost value outwards */
    used := make([]int, len(nt.Loops))
    for _, lv := range levels[len(levels) - 1] {
        chain := []loops.LoopVariable { lv }
        for k := len(levels) - 2; k >= 0; k-- {
            p, ok := lo.Find(levels[k], func(v loops.LoopVariable) bool { return v.LoopEnd == chain[0].AfterLoop })
            if !ok {
                return nil, "carried value does not chain across levels"
            }
            chain = append([]loops.LoopVariable { p }, chain...)
            used[k]++
        }

        /* classify */
        r, ok := reduction.Classify(nt, chain)
        if !ok {
            return nil, "carried value is not a reduction: " + lv.String()
        }
        ret = append(ret, r)
    }

    /* outer levels may not carry anything else */
    for k := 0; k < len(levels) - 1; k++ {
        if used[k] != len(levels[k]) {
            return nil, "outer loop carries a value not reduced by the inner loop"
        }
    }

    /* nothing to compute */
    if len(ret) == 0 {
        return nil, "no reduction"
    }
    return ret, ""
}
