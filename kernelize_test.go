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

package kernelize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/kernelize/internal/fixtures"
	"github.com/cloudwego/kernelize/ssa"
)

func instrs[T ssa.Instr](fn *ssa.Function) []T {
	var ret []T
	fn.Walk(func(_ ssa.Location, ins ssa.Instr) bool {
		if p, ok := ins.(T); ok {
			ret = append(ret, p)
		}
		return true
	})
	return ret
}

// fill builds
//
//	for i = 1:numel(A0)
//	    A(i) = i * i
//	end
//	return numel(A)
func fill() *ssa.Function {
	b := ssa.NewBuilder("fill")
	vt := ssa.MatrixOf(ssa.Float64, 1)
	a0 := b.Declare("A0", vt)
	one := b.Const("one", ssa.Int32, 1)
	n := b.Call("n", ssa.ScalarOf(ssa.Int32), "numel", a0)
	out := b.Loop(one, one, n, []ssa.Carried{{Name: "A", Init: a0, Type: vt}}, func(b *ssa.Builder, i ssa.Var, s []ssa.Var) []ssa.Var {
		x := b.Call("x", ssa.ScalarOf(ssa.Float64), "times", i, i)
		return []ssa.Var{b.Set("A_next", s[0], x, i)}
	})
	b.Return(b.Call("count", ssa.ScalarOf(ssa.Int32), "numel", out[0]))
	return b.Fn
}

func TestOffload_Sum(t *testing.T) {
	fn := fixtures.Sum("plus")
	res, err := Offload(context.Background(), fn, WithMemoryStrategy(CopyBuffers), WithSchedule(Direct))
	require.NoError(t, err)
	require.Len(t, res.Regions, 1)
	require.Len(t, res.Kernels, 1)
	require.Equal(t, "sum_kernel0", res.Kernels[0].Name)
	require.Empty(t, instrs[*ssa.ForLoop](fn))
	require.Len(t, instrs[*ssa.InvokeKernel](fn), 1)
	require.Len(t, instrs[*ssa.CopyToDevice](fn), 1)

	/* the sum is read back and returned */
	cr := instrs[*ssa.CompleteReduction](fn)
	require.Len(t, cr, 1)
	require.Equal(t, ssa.OpAdd, cr[0].Op)
	ret := instrs[*ssa.Return](fn)
	require.Len(t, ret, 1)
	require.Equal(t, []ssa.Var{cr[0].Output}, ret[0].Values)
}

func TestOffload_FineGrained(t *testing.T) {
	fn := fixtures.Sum("plus")
	_, err := Offload(context.Background(), fn,
		WithMemoryStrategy(FineGrainedBuffers),
		WithSvmRestrictSequential(false),
		WithSvmRestrictCoalesced(false),
	)
	require.NoError(t, err)
	require.Empty(t, instrs[*ssa.CopyToDevice](fn))
	require.Equal(t, []ssa.Var{"A"}, instrs[*ssa.InvokeKernel](fn)[0].Arguments[2:3])
}

func TestOffload_ShapeQueryRoundTrip(t *testing.T) {
	fn := fill()
	res, err := Offload(context.Background(), fn, WithMemoryStrategy(CopyBuffers))
	require.NoError(t, err)
	require.Len(t, res.Kernels, 1)
	require.Len(t, instrs[*ssa.InvokeKernel](fn), 1)

	/* nothing reads the array back anymore */
	require.Empty(t, instrs[*ssa.CompleteReduction](fn))
	for _, p := range instrs[*ssa.Call](fn) {
		if p.Name == "numel" {
			require.Equal(t, ssa.Var("A0"), p.Inputs[0])
		}
	}
}

func TestOffload_Sequential(t *testing.T) {
	fn := fixtures.Sequential()
	want := fn.String()
	res, err := Offload(context.Background(), fn)
	require.NoError(t, err)
	require.Empty(t, res.Regions)
	require.Empty(t, res.Kernels)
	require.Equal(t, want, fn.String())
}

func TestOffload_MaxDims(t *testing.T) {
	res, err := Offload(context.Background(), fixtures.Fill2D(), WithMaxWorkItemDimensions(1))
	require.NoError(t, err)
	require.Empty(t, res.Kernels)

	/* both loops become one kernel */
	fn := fixtures.Fill2D()
	res, err = Offload(context.Background(), fn, WithMaxWorkItemDimensions(2), WithMemoryStrategy(CopyBuffers))
	require.NoError(t, err)
	require.Len(t, res.Kernels, 1)
	require.Len(t, res.Kernels[0].Dims, 2)
	require.Empty(t, instrs[*ssa.ForLoop](fn))
}

func TestOptions_Invalid(t *testing.T) {
	require.PanicsWithValue(t, OptionError{Option: "local-size", Value: 0, Reason: "must be at least 1"}, func() { WithLocalSize(0) })
	require.Panics(t, func() { WithMaxWorkItemDimensions(0) })
	require.Panics(t, func() { WithSchedule() })
	require.Panics(t, func() { WithSchedule(Schedule(42)) })
	require.Panics(t, func() { WithSkipPass("", "FillElim") })
	require.Panics(t, func() { WithMemoryStrategy(MemoryStrategy(7)) })
}

func TestOptions_Defaults(t *testing.T) {
	old := SetLocalSize(128)
	defer SetLocalSize(old)
	require.Equal(t, 128, options(nil).LocalSize)
	require.Equal(t, 32, options([]Option{WithLocalSize(32)}).LocalSize)
	require.True(t, options([]Option{WithSkipPass("*", "FillElim")}).Skips("f", "FillElim"))
}
