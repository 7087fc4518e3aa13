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

// Package fixtures builds the small functions shared by the tests of the
// compiler passes.
package fixtures

import (
    `github.com/cloudwego/kernelize/ssa`
)

// Sum builds
//
//     acc = 0
//     for i = 1:numel(A)
//         acc = op(acc, A(i))
//     end
//     return acc
//
func Sum(op string) *ssa.Function {
    b := ssa.NewBuilder("sum")
    a := b.Declare("A", ssa.MatrixOf(ssa.Float64, 1))
    one := b.Const("one", ssa.Int32, 1)
    n := b.Call("n", ssa.ScalarOf(ssa.Int32), "numel", a)
    zero := b.Const("zero", ssa.Float64, 0)
    out := b.Loop(one, one, n, []ssa.Carried {{ Name: "acc", Init: zero, Type: ssa.ScalarOf(ssa.Float64) }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        x := b.Get("x", a, i)
        return []ssa.Var { b.Call("acc_next", ssa.ScalarOf(ssa.Float64), op, s[0], x) }
    })
    b.Return(out[0])
    return b.Fn
}

// Fill2D builds
//
//     for i = 1:size(A0, 1)
//         for j = 1:size(A0, 2)
//             A(i, j) = B(i, j) * 2
//         end
//     end
//     return A
//
func Fill2D() *ssa.Function {
    b := ssa.NewBuilder("fill")
    mt := ssa.MatrixOf(ssa.Float32, 2)
    a0 := b.Declare("A0", mt)
    src := b.Declare("B", mt)
    one := b.Const("one", ssa.Int32, 1)
    two := b.Const("two", ssa.Int32, 2)
    rows := b.Call("rows", ssa.ScalarOf(ssa.Int32), "size", a0, one)
    cols := b.Call("cols", ssa.ScalarOf(ssa.Int32), "size", a0, two)
    out := b.Loop(one, one, rows, []ssa.Carried {{ Name: "A", Init: a0, Type: mt }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        return b.Loop(one, one, cols, []ssa.Carried {{ Name: "A_inner", Init: s[0], Type: mt }}, func(b *ssa.Builder, j ssa.Var, t []ssa.Var) []ssa.Var {
            x := b.Get("x", src, i, j)
            y := b.Call("y", ssa.ScalarOf(ssa.Float32), "times", x, two)
            return []ssa.Var { b.Set("A_next", t[0], y, i, j) }
        })
    })
    b.Return(out[0])
    return b.Fn
}

// Sequential builds a loop with a side-effecting call in its body.
//
//     acc = 0
//     for i = 1:n
//         disp(i)
//         acc = acc + i
//     end
//     return acc
//
func Sequential() *ssa.Function {
    b := ssa.NewBuilder("sequential")
    n := b.Declare("n", ssa.ScalarOf(ssa.Int32))
    one := b.Const("one", ssa.Int32, 1)
    zero := b.Const("zero", ssa.Int32, 0)
    out := b.Loop(one, one, n, []ssa.Carried {{ Name: "acc", Init: zero, Type: ssa.ScalarOf(ssa.Int32) }}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
        b.Emit(&ssa.Call { Name: "disp", Inputs: []ssa.Var { i } })
        return []ssa.Var { b.Call("acc_next", ssa.ScalarOf(ssa.Int32), "plus", s[0], i) }
    })
    b.Return(out[0])
    return b.Fn
}
