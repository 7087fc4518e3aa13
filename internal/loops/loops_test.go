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

package loops

import (
    `testing`

    `github.com/cloudwego/kernelize/ssa`
    `github.com/stretchr/testify/require`
)

func buildMatrixFill() (*ssa.Builder, []ssa.Var) {
    var iters []ssa.Var
    b := ssa.NewBuilder("fill")
    a0 := b.Declare("A0", ssa.MatrixOf(ssa.Float32, 2))
    v := b.Declare("v", ssa.ScalarOf(ssa.Float32))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Const("n", ssa.Int32, 16)
    mt := ssa.MatrixOf(ssa.Float32, 2)
    out := b.Loop(one, one, n, []ssa.Carried {{ Name: "A", Init: a0, Type: mt }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        iters = append(iters, i)
        return b.Loop(one, one, n, []ssa.Carried {{ Name: "B", Init: s[0], Type: mt }}, func(b *ssa.Builder, j ssa.Var, t []ssa.Var) []ssa.Var {
            iters = append(iters, j)
            return []ssa.Var { b.Set("A_next", t[0], v, i, j) }
        })
    })
    b.Return(out[0])
    return b, iters
}

func TestHierarchy_Nesting(t *testing.T) {
    b, iters := buildMatrixFill()
    h := Build(b.Fn)
    require.Len(t, h.Order, 2)

    /* outer loop first */
    outer, inner := h.Order[0], h.Order[1]
    require.Equal(t, 1, outer.Block)
    require.Equal(t, 3, inner.Block)
    require.Equal(t, ssa.Location { Block: 0, Index: 2 }, outer.Header)
    require.Same(t, outer, inner.Parent)
    require.Equal(t, []*Loop { inner }, outer.Children)
    require.Equal(t, 1, inner.Depth)
    require.True(t, outer.Contains(inner))
    require.False(t, inner.Contains(outer))
    require.True(t, inner.Innermost())
    require.Equal(t, []*Loop { outer }, h.Roots())

    /* body, tail and spine */
    require.Equal(t, []int { 1, 3, 4 }, h.Body(outer))
    require.Equal(t, 4, h.Tail(outer))
    require.Equal(t, []int { 1, 4 }, Spine(b.Fn, 1))

    /* induction variables */
    i, ok := h.Iter(outer)
    require.True(t, ok)
    require.Equal(t, iters[0], i)
    j, ok := h.Iter(inner)
    require.True(t, ok)
    require.Equal(t, iters[1], j)
}

func TestHierarchy_Analyze(t *testing.T) {
    b, _ := buildMatrixFill()
    h := Build(b.Fn)
    outer, inner := h.Order[0], h.Order[1]

    /* the inner loop carries the outer loop-start value */
    ov, ok := h.Analyze(outer)
    require.True(t, ok)
    require.Len(t, ov, 1)
    iv, ok := h.Analyze(inner)
    require.True(t, ok)
    require.Len(t, iv, 1)
    require.Equal(t, ssa.Var("A0"), ov[0].BeforeLoop)
    require.Equal(t, ov[0].LoopStart, iv[0].BeforeLoop)
    require.Equal(t, ov[0].LoopEnd, iv[0].AfterLoop)
    require.Equal(t, ssa.Var("A_next"), iv[0].LoopEnd)
    require.True(t, ov[0].HasAfterLoop())
}

func TestHierarchy_AnalyzeRejectsForeignPhi(t *testing.T) {
    b := ssa.NewBuilder("odd")
    x := b.Declare("x", ssa.ScalarOf(ssa.Int32))
    one := b.Const("one", ssa.Int32, 1)
    b.Loop(one, one, x, nil, func(b *ssa.Builder, i ssa.Var, _ []ssa.Var) []ssa.Var {
        return nil
    })

    /* a header Phi with three inputs is not a canonical loop variable */
    h := Build(b.Fn)
    lp := h.Order[0]
    bb := b.Fn.Block(lp.Block)
    bb.Ins = append([]ssa.Instr { &ssa.Phi { Output: "p", Inputs: []ssa.Var { x, x, x }, Sources: []int { 0, 1, 1 } } }, bb.Ins...)
    _, ok := Build(b.Fn).Analyze(lp)
    require.False(t, ok)

    /* back edge value defined before the loop */
    bb.Ins[0] = &ssa.Phi { Output: "p", Inputs: []ssa.Var { x, one }, Sources: []int { 0, 1 } }
    h = Build(b.Fn)
    _, ok = h.Analyze(h.Order[0])
    require.False(t, ok)
}

func TestHierarchy_UnusedAfterLoop(t *testing.T) {
    b := ssa.NewBuilder("sum")
    a := b.Declare("A", ssa.MatrixOf(ssa.Float64, 1))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Call("n", ssa.ScalarOf(ssa.Int32), "numel", a)
    zero := b.Const("zero", ssa.Float64, 0)
    b.Loop(one, one, n, []ssa.Carried {{ Name: "acc", Init: zero, Type: ssa.ScalarOf(ssa.Float64) }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        x := b.Get("x", a, i)
        return []ssa.Var { b.Call("acc_next", ssa.ScalarOf(ssa.Float64), "plus", s[0], x) }
    })

    /* drop the after-loop Phi */
    b.Fn.Block(2).Ins = nil
    h := Build(b.Fn)
    lv, ok := h.Analyze(h.Order[0])
    require.True(t, ok)
    require.Len(t, lv, 1)
    require.False(t, lv[0].HasAfterLoop())
}
