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

    `github.com/cloudwego/kernelize/internal/fixtures`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/stretchr/testify/require`
)

func TestSelect_Sum(t *testing.T) {
    rs := Select(context.Background(), fixtures.Sum("plus"), Config { MaxDims: 3 })
    require.Len(t, rs, 1)
    require.Equal(t, []int { 1 }, rs[0].Blocks)
    require.Len(t, rs[0].Reductions, 1)
    require.Equal(t, ssa.ReductionAssociative, rs[0].Reductions[0].Kind)
}

func TestSelect_Fill2D(t *testing.T) {
    rs := Select(context.Background(), fixtures.Fill2D(), Config { MaxDims: 2 })
    require.Len(t, rs, 1)
    require.Equal(t, []int { 1, 3 }, rs[0].Blocks)
    require.Equal(t, 2, rs[0].Dims())
    require.Equal(t, ssa.ReductionMatrixSet, rs[0].Reductions[0].Kind)

    /* a single dimension cannot cover a two-dimensional write */
    rs = Select(context.Background(), fixtures.Fill2D(), Config { MaxDims: 1 })
    require.Empty(t, rs)
}

func TestSelect_WhitelistRejection(t *testing.T) {
    require.Empty(t, Select(context.Background(), fixtures.Sequential(), Config { MaxDims: 3 }))
}

func TestSelect_SiblingLoops(t *testing.T) {
    b := ssa.NewBuilder("siblings")
    a := b.Declare("A", ssa.MatrixOf(ssa.Float64, 1))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Call("n", ssa.ScalarOf(ssa.Int32), "numel", a)
    zero := b.Const("zero", ssa.Float64, 0)
    sum := func(op string) ssa.Var {
        return b.Loop(one, one, n, []ssa.Carried {{ Name: "acc", Init: zero, Type: ssa.ScalarOf(ssa.Float64) }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
            x := b.Get(ssa.Var("x_" + op), a, i)
            return []ssa.Var { b.Call(ssa.Var("acc_" + op), ssa.ScalarOf(ssa.Float64), op, s[0], x) }
        })[0]
    }
    b.Return(sum("plus"), sum("max"))

    /* both loops are selected, in program order */
    rs := Select(context.Background(), b.Fn, Config { MaxDims: 3 })
    require.Len(t, rs, 2)
    require.Equal(t, []int { 1 }, rs[0].Blocks)
    require.Equal(t, []int { 3 }, rs[1].Blocks)
    require.Equal(t, ssa.OpMax, rs[1].Reductions[0].Op)
}

func buildCallSum(callee string) *ssa.Function {
    b := ssa.NewBuilder("callsum")
    a := b.Declare("A", ssa.MatrixOf(ssa.Float64, 1))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Call("n", ssa.ScalarOf(ssa.Int32), "numel", a)
    zero := b.Const("zero", ssa.Float64, 0)
    out := b.Loop(one, one, n, []ssa.Carried {{ Name: "acc", Init: zero, Type: ssa.ScalarOf(ssa.Float64) }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        x := b.Get("x", a, i)
        y := b.Call("y", ssa.ScalarOf(ssa.Float64), callee, x)
        return []ssa.Var { b.Call("acc_next", ssa.ScalarOf(ssa.Float64), "plus", s[0], y) }
    })
    b.Return(out[0])
    return b.Fn
}

func buildCallee(name string, calls string, op string) *ssa.Function {
    b := ssa.NewBuilder(name)
    x := b.Declare("x", ssa.ScalarOf(ssa.Float64))
    if op != "" {
        b.Emit(&ssa.Generic { Op: op, Inputs: []ssa.Var { x } })
    }
    y := b.Call("y", ssa.ScalarOf(ssa.Float64), calls, x, x)
    b.Return(y)
    return b.Fn
}

func TestSelect_UserCallees(t *testing.T) {
    lib := map[string]*ssa.Function {
        "square" : buildCallee("square", "times", ""),
        "twice"  : buildCallee("twice", "square", ""),
        "loop"   : buildCallee("loop", "loop2", ""),
        "loop2"  : buildCallee("loop2", "loop", ""),
        "print"  : buildCallee("print", "plus", "disp"),
    }
    lookup := func(name string) (*ssa.Function, bool) {
        fn, ok := lib[name]
        return fn, ok
    }

    /* pure callees, checked transitively */
    require.Len(t, Select(context.Background(), buildCallSum("square"), Config { MaxDims: 1, Callees: lookup }), 1)
    require.Len(t, Select(context.Background(), buildCallSum("twice"), Config { MaxDims: 1, Callees: lookup }), 1)

    /* recursion, side effects, unknown functions, or no lookup at all */
    require.Empty(t, Select(context.Background(), buildCallSum("loop"), Config { MaxDims: 1, Callees: lookup }))
    require.Empty(t, Select(context.Background(), buildCallSum("print"), Config { MaxDims: 1, Callees: lookup }))
    require.Empty(t, Select(context.Background(), buildCallSum("missing"), Config { MaxDims: 1, Callees: lookup }))
    require.Empty(t, Select(context.Background(), buildCallSum("square"), Config { MaxDims: 1 }))
}

func TestSelect_BoundsInsideNest(t *testing.T) {
    b := ssa.NewBuilder("triangle")
    a0 := b.Declare("A0", ssa.MatrixOf(ssa.Float32, 2))
    v := b.Declare("v", ssa.ScalarOf(ssa.Float32))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Const("n", ssa.Int32, 8)
    mt := ssa.MatrixOf(ssa.Float32, 2)
    out := b.Loop(one, one, n, []ssa.Carried {{ Name: "A", Init: a0, Type: mt }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        return b.Loop(one, one, i, []ssa.Carried {{ Name: "B", Init: s[0], Type: mt }}, func(b *ssa.Builder, j ssa.Var, t []ssa.Var) []ssa.Var {
            return []ssa.Var { b.Set("A_next", t[0], v, i, j) }
        })
    })
    b.Return(out[0])

    /* the inner bound depends on the outer induction variable */
    require.Empty(t, Select(context.Background(), b.Fn, Config { MaxDims: 2 }))
}
