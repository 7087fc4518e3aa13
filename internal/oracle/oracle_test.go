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

package oracle

import (
    `testing`

    `github.com/cloudwego/kernelize/ssa`
    `github.com/stretchr/testify/require`
    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

// #0: loop(#1 { branch(#3, #4) -> #5 }) -> #2
func buildLoopWithBranch() (*ssa.Builder, ssa.Var) {
    var iter ssa.Var
    b := ssa.NewBuilder("f")
    x := b.Declare("x", ssa.MatrixOf(ssa.Float32, 1))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Const("n", ssa.Int32, 8)
    b.CopyToDevice("b0", x)
    b.Loop(one, one, n, nil, func(b *ssa.Builder, i ssa.Var, _ []ssa.Var) []ssa.Var {
        iter = i
        c := b.Call("c", ssa.ScalarOf(ssa.Bool), "lt", i, n)
        b.If(c, nil, func(b *ssa.Builder) []ssa.Var {
            b.Call("t", ssa.ScalarOf(ssa.Int32), "plus", i, one)
            return nil
        }, func(b *ssa.Builder) []ssa.Var {
            b.Emit(&ssa.InvokeKernel { Kernel: "k", Arguments: []ssa.Var { "b0" }, Outputs: []ssa.Var { "b1" }, OutputSources: []int { 0 } })
            b.Declare("b1", ssa.BufferOf(ssa.Float32))
            return nil
        })
        return nil
    })
    b.Emit(&ssa.Generic { Op: "use", Inputs: []ssa.Var { "b0" } })
    return b, iter
}

func TestOracle_DominatorTree(t *testing.T) {
    b, _ := buildLoopWithBranch()
    fn := b.Fn
    cfg := BuildCFG(fn)
    dt := BuildDominatorTree(cfg)

    /* cross-check with the iterative algorithm */
    ref := flow.Dominators(simple.Node(0), cfg.Graph)
    for _, bb := range fn.Blocks() {
        if bb.Id == 0 {
            continue
        }
        require.Equal(t, ref.DominatorOf(int64(bb.Id)).ID(), int64(dt.DominatedBy[bb.Id]), "idom of #%d", bb.Id)
    }

    require.Equal(t, []int { 1, 2 }, dt.DominatorOf[0])

    /* the loop body does not dominate the end of the loop */
    require.True(t, dt.Dominates(0, 2))
    require.True(t, dt.Dominates(1, 5))
    require.False(t, dt.Dominates(1, 2))
    require.False(t, dt.Dominates(3, 5))
}

func TestOracle_Covers(t *testing.T) {
    b, _ := buildLoopWithBranch()
    o := New(b.Fn)
    require.True(t, o.Covers(ssa.Location { Block: 0, Index: 1 }, ssa.Location { Block: 0, Index: 2 }))
    require.False(t, o.Covers(ssa.Location { Block: 0, Index: 2 }, ssa.Location { Block: 0, Index: 2 }))
    require.True(t, o.Covers(ssa.Location { Block: 0, Index: 0 }, ssa.Location { Block: 4, Index: 0 }))
    require.False(t, o.Covers(ssa.Location { Block: 1, Index: 0 }, ssa.Location { Block: 2, Index: 0 }))
    require.False(t, o.Covers(ssa.Location { Block: 3, Index: 0 }, ssa.Location { Block: 5, Index: 0 }))
}

func TestOracle_Liveness(t *testing.T) {
    b, iter := buildLoopWithBranch()
    o := New(b.Fn)

    /* b0 is read after the loop */
    require.False(t, o.IsDeadAfter("b0", ssa.Location { Block: 0, Index: 3 }))
    require.True(t, o.IsDeadAfter("b0", ssa.Location { Block: 2, Index: 0 }))

    /* the loop back edge makes later iterations reach earlier points */
    require.False(t, o.IsDeadAfter(iter, ssa.Location { Block: 5, Index: 0 }))
    require.True(t, o.IsDeadAfter(iter, ssa.Location { Block: 2, Index: 0 }))
    require.True(t, o.IsMutated("b0"))
    require.True(t, o.IsMutatedIn("b0", []int { 4 }))
    require.False(t, o.IsMutatedIn("b0", []int { 3 }))
    require.True(t, o.IsMutatedAfter("b0", ssa.Location { Block: 0, Index: 0 }))
    require.False(t, o.IsMutatedAfter("b0", ssa.Location { Block: 2, Index: 0 }))
    require.ElementsMatch(t, []ssa.Var { "b0", "b1" }, o.Aliases("b0"))
}

func TestOracle_SameShape(t *testing.T) {
    b := ssa.NewBuilder("f")
    a0 := b.Declare("A0", ssa.MatrixOf(ssa.Float64, 1))
    v := b.Declare("v", ssa.ScalarOf(ssa.Float64))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Call("n", ssa.ScalarOf(ssa.Int32), "numel", a0)
    out := b.Loop(one, one, n, []ssa.Carried {{ Name: "A", Init: a0, Type: ssa.MatrixOf(ssa.Float64, 1) }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        return []ssa.Var { b.Set("A_next", s[0], v, i) }
    })
    b.Return(out[0])
    o := New(b.Fn)
    require.True(t, o.SameShape(out[0], a0))
    require.True(t, o.SameShape("A_next", a0))
    require.False(t, o.SameShape(n, a0))
}
