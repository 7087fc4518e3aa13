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

package reduction

import (
    `testing`

    `github.com/cloudwego/kernelize/internal/fixtures`
    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/stretchr/testify/require`
)

func classifyAll(t *testing.T, fn *ssa.Function) (*Reduction, bool) {
    h := loops.Build(fn)
    nest := NewNest(h, h.Order)
    vars := make([]loops.LoopVariable, 0, len(h.Order))
    for _, lp := range h.Order {
        lv, ok := h.Analyze(lp)
        require.True(t, ok)
        require.Len(t, lv, 1)
        vars = append(vars, lv[0])
    }
    return Classify(nest, vars)
}

func TestClassify_ValidatorOrder(t *testing.T) {
    require.Equal(t, "Associative Reduction", Validators[0].Name)
    require.Equal(t, "Matrix Set Reduction", Validators[1].Name)
}

func TestClassify_Associative(t *testing.T) {
    for _, op := range []string { "plus", "times", "min", "max" } {
        r, ok := classifyAll(t, fixtures.Sum(op))
        require.True(t, ok, op)
        require.Equal(t, ssa.ReductionAssociative, r.Kind)
        require.Equal(t, op, r.Op.Function())
        require.Equal(t, ssa.Float64, r.Elem)
        require.Equal(t, ssa.Var("zero"), r.Initial())
        require.True(t, r.Names[r.Output()])
        require.Equal(t, ssa.Var("acc_next"), r.End())
    }
}

func TestClassify_NonAssociativeOperator(t *testing.T) {
    _, ok := classifyAll(t, fixtures.Sum("minus"))
    require.False(t, ok)
}

func TestClassify_MatrixSet(t *testing.T) {
    r, ok := classifyAll(t, fixtures.Fill2D())
    require.True(t, ok)
    require.Equal(t, ssa.ReductionMatrixSet, r.Kind)
    require.Equal(t, ssa.OpNone, r.Op)
    require.Equal(t, ssa.Float32, r.Elem)
    require.Equal(t, ssa.Var("A0"), r.Initial())
    require.Len(t, r.Vars, 2)
}

func TestClassify_MatrixSetPartialIndex(t *testing.T) {
    fn := fixtures.Fill2D()
    fn.Walk(func(_ ssa.Location, ins ssa.Instr) bool {
        if p, ok := ins.(*ssa.MatrixSet); ok {
            p.Indices[1] = p.Indices[0]
        }
        return true
    })
    _, ok := classifyAll(t, fn)
    require.False(t, ok)
}

func TestClassify_UseOutsideWindow(t *testing.T) {
    fn := fixtures.Sum("plus")
    h := loops.Build(fn)
    lv, _ := h.Analyze(h.Order[0])

    /* read the carried value once more inside the body */
    bb := fn.Block(h.Order[0].Block)
    bb.Ins = append(bb.Ins, &ssa.Generic { Op: "peek", Inputs: []ssa.Var { lv[0].LoopStart } })
    _, ok := classifyAll(t, fn)
    require.False(t, ok)
}

func TestClassify_MissingAfterLoop(t *testing.T) {
    fn := fixtures.Sum("plus")
    h := loops.Build(fn)
    end := fn.Block(h.Order[0].For.EndBlockId)
    end.Ins = end.Ins[1:]
    _, ok := classifyAll(t, fn)
    require.False(t, ok)
}

func TestClassify_LevelsMustChain(t *testing.T) {
    fn := fixtures.Fill2D()
    h := loops.Build(fn)
    outer, _ := h.Analyze(h.Order[0])
    inner, _ := h.Analyze(h.Order[1])
    inner[0].BeforeLoop = "A0"
    _, ok := Classify(NewNest(h, h.Order), []loops.LoopVariable { outer[0], inner[0] })
    require.False(t, ok)
}
