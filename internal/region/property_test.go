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
    `context`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/require`
)

type _RandomNest struct {
    f     *gofakeit.Faker
    depth int
    set   bool
}

// randomFunction builds one or two random loop nests. Some of them are
// offloadable reductions, others are broken in one of the ways the selector
// must notice.
func randomFunction(f *gofakeit.Faker) *ssa.Function {
    var rets []ssa.Var
    b := ssa.NewBuilder("random")
    b.Declare("A", ssa.MatrixOf(ssa.Float64, 3))
    b.Const("one", ssa.Int32, 1)
    b.Const("n", ssa.Int32, float64(f.IntRange(2, 64)))

    /* one or two sibling nests */
    for k := f.IntRange(1, 2); k > 0; k-- {
        rn := &_RandomNest { f: f, depth: f.IntRange(1, 3), set: f.Bool() }
        rets = append(rets, rn.build(b))
    }
    b.Return(rets...)
    return b.Fn
}

func (self *_RandomNest) build(b *ssa.Builder) ssa.Var {
    var init ssa.Var
    var vt ssa.VarType

    /* the initial value */
    if self.set {
        vt = ssa.MatrixOf(ssa.Float64, self.depth)
        init = b.Fn.NewVar("A0", vt)
        b.Emit(&ssa.Call { Name: "zeros", Inputs: []ssa.Var { "n" }, Outputs: []ssa.Var { init } })
    } else {
        vt = ssa.ScalarOf(ssa.Float64)
        init = b.Fn.NewVar("zero", vt)
        b.Emit(&ssa.Const { Output: init })
    }

    /* randomly drop the after-loop Phi of the outermost level */
    out := self.level(b, 0, nil, init, vt)
    if self.f.Number(0, 9) == 0 {
        bb := b.Fn.Block(b.Current())
        bb.Ins = bb.Ins[1:]
        return init
    }
    return out
}

func (self *_RandomNest) level(b *ssa.Builder, d int, iters []ssa.Var, init ssa.Var, vt ssa.VarType) ssa.Var {
    return b.Loop("one", "one", "n", []ssa.Carried {{ Name: "acc", Init: init, Type: vt }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        iters = append(iters, i)
        if d + 1 < self.depth {
            return []ssa.Var { self.level(b, d + 1, iters, s[0], vt) }
        } else {
            return []ssa.Var { self.body(b, iters, s[0], vt) }
        }
    })[0]
}

func (self *_RandomNest) body(b *ssa.Builder, iters []ssa.Var, start ssa.Var, vt ssa.VarType) ssa.Var {
    f := self.f
    idx := append([]ssa.Var(nil), iters...)

    /* sometimes index with something that is not an induction variable */
    if f.Number(0, 5) == 0 {
        idx[f.IntRange(0, len(idx) - 1)] = "one"
    }

    /* load an element */
    x := b.Fn.NewVar("x", ssa.ScalarOf(ssa.Float64))
    b.Emit(&ssa.MatrixGet { Output: x, Matrix: "A", Indices: idx })

    /* sometimes do something with a side effect */
    if f.Number(0, 5) == 0 {
        b.Emit(&ssa.Generic { Op: "disp", Inputs: []ssa.Var { x } })
    }

    /* sometimes read the carried value outside of its definition */
    if f.Number(0, 5) == 0 {
        b.Emit(&ssa.Call { Name: "numel", Inputs: []ssa.Var { start }, Outputs: []ssa.Var { b.Fn.NewVar("peek", ssa.ScalarOf(ssa.Int32)) } })
    }

    /* the accumulation itself */
    end := b.Fn.NewVar("acc_next", vt)
    if self.set {
        b.Emit(&ssa.MatrixSet { Output: end, Matrix: start, Indices: idx, Value: x })
    } else {
        b.Emit(&ssa.Call { Name: f.RandomString([]string { "plus", "times", "max", "minus" }), Inputs: []ssa.Var { start, x }, Outputs: []ssa.Var { end } })
    }
    return end
}

func TestSelect_RandomNests(t *testing.T) {
    f := gofakeit.New(20260101)
    for round := 0; round < 200; round++ {
        fn := randomFunction(f)
        dims := f.IntRange(1, 3)
        rs := Select(context.Background(), fn, Config { MaxDims: dims })
        h := loops.Build(fn)
        ud := fn.UseDef()

        /* at most one region per random nest */
        require.LessOrEqual(t, len(rs), 2, spew.Sdump(rs))
        for i, r := range rs {
            require.LessOrEqual(t, r.Dims(), dims)
            require.NotEmpty(t, r.Reductions)

            /* non-overlap */
            for _, o := range rs[i + 1:] {
                a, b := h.Loops[r.Blocks[0]], h.Loops[o.Blocks[0]]
                require.False(t, a.Contains(b) || b.Contains(a), "%s overlaps %s\n%s", r, o, fn)
            }

            /* never any side effect in the kernel */
            for _, blk := range h.Body(h.Loops[r.Blocks[0]]) {
                for _, ins := range fn.Block(blk).Ins {
                    _, bad := ins.(*ssa.Generic)
                    require.False(t, bad, "%s selected with %s\n%s", r, ins, fn)
                }
            }

            /* carried values are only used in their window */
            for _, red := range r.Reductions {
                n := len(red.Vars)
                for k, lv := range red.Vars {
                    head, _ := ud.Def(lv.LoopStart)
                    tail, _ := ud.Def(lv.AfterLoop)
                    for _, u := range ud.Uses(lv.LoopEnd) {
                        require.Contains(t, []ssa.Location { head, tail }, u, "%s\n%s", red, fn)
                    }
                    if k == n - 1 {
                        def, _ := ud.Def(lv.LoopEnd)
                        require.Equal(t, []ssa.Location { def }, ud.Uses(lv.LoopStart), "%s\n%s", red, fn)
                    }
                }
            }
        }
    }
}
