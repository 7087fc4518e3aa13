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

package ssa

import (
    `testing`

    `github.com/google/go-cmp/cmp`
    `github.com/stretchr/testify/require`
)

func buildSum() (*Builder, Var) {
    b := NewBuilder("sum")
    a := b.Declare("A", MatrixOf(Float64, 1))
    one := b.Const("one", Int32, 1)
    n := b.Call("n", ScalarOf(Int32), "numel", a)
    zero := b.Const("zero", Float64, 0)
    out := b.Loop(one, one, n, []Carried {{ Name: "acc", Init: zero, Type: ScalarOf(Float64) }}, func(b *Builder, iter Var, starts []Var) []Var {
        x := b.Get("x", a, iter)
        return []Var { b.Call("acc_next", ScalarOf(Float64), "plus", starts[0], x) }
    })
    b.Return(out[0])
    return b, out[0]
}

func TestFunction_Locations(t *testing.T) {
    b, _ := buildSum()
    fn := b.Fn
    locs := fn.Locations()

    /* entry block, then the loop body, then the end block */
    var order []int
    for _, l := range locs {
        if len(order) == 0 || order[len(order) - 1] != l.Block {
            order = append(order, l.Block)
        }
    }
    require.Equal(t, []int { 0, 1, 2 }, order)
    require.Len(t, locs, len(fn.Entry().Ins) + len(fn.Block(1).Ins) + len(fn.Block(2).Ins))

    /* the loop is the last instruction of the entry block */
    c, ok := fn.Entry().Control()
    require.True(t, ok)
    require.Equal(t, []int { 1 }, c.OwnedBlocks())
    require.Equal(t, 2, c.EndBlock())
    require.Equal(t, 1, fn.Tail(1))
    require.Equal(t, []int { 0, 1, 2 }, fn.Chain(0))
}

func TestFunction_NestedLocations(t *testing.T) {
    b := NewBuilder("nested")
    one := b.Const("one", Int32, 1)
    n := b.Const("n", Int32, 4)
    b.Loop(one, one, n, nil, func(b *Builder, i Var, _ []Var) []Var {
        b.Loop(one, one, n, nil, func(b *Builder, j Var, _ []Var) []Var {
            b.Call("p", ScalarOf(Int32), "plus", i, j)
            return nil
        })
        b.Call("q", ScalarOf(Int32), "plus", i, i)
        return nil
    })
    b.Return()

    /* #0 -> outer body #1 -> inner body #3 -> inner end #4 -> outer end #2 */
    var order []int
    for _, l := range b.Fn.Locations() {
        if len(order) == 0 || order[len(order) - 1] != l.Block {
            order = append(order, l.Block)
        }
    }
    require.Equal(t, []int { 0, 1, 3, 4, 2 }, order)
    require.Equal(t, 4, b.Fn.Tail(1))
    require.ElementsMatch(t, []int { 1, 3, 4 }, b.Fn.Chain(1))
}

func TestFunction_UseDef(t *testing.T) {
    b, out := buildSum()
    ud := b.Fn.UseDef()

    /* the after-loop Phi lives in the end block */
    l, ok := ud.Def(out)
    require.True(t, ok)
    require.Equal(t, 2, l.Block)
    require.IsType(t, &Phi{}, b.Fn.At(l))

    /* parameters have no definition */
    _, ok = ud.Def("A")
    require.False(t, ok)
    require.Len(t, ud.Uses("A"), 2)
}

func TestFunction_RenameAndClone(t *testing.T) {
    b, out := buildSum()
    cc := b.Fn.Clone()
    require.Equal(t, b.Fn.String(), cc.String())

    /* renaming the clone leaves the original untouched */
    require.Equal(t, 1, cc.RenameVar(out, "B"))
    require.NotEqual(t, b.Fn.String(), cc.String())
    ret := b.Fn.Block(2).Ins[len(b.Fn.Block(2).Ins) - 1].(*Return)
    require.Equal(t, []Var { out }, ret.Values)
}

func TestFunction_Codec(t *testing.T) {
    b, _ := buildSum()
    buf, err := MarshalFunction(b.Fn)
    require.NoError(t, err)
    fn, err := UnmarshalFunction(buf)
    require.NoError(t, err)
    if diff := cmp.Diff(b.Fn.String(), fn.String()); diff != "" {
        t.Fatalf("function changed after decoding (-want +got):\n%s", diff)
    }
}

func TestFunction_CodecErrors(t *testing.T) {
    _, err := UnmarshalFunction([]byte(`{"name":"f","blocks":[{"id":0,"ins":[{"op":"bogus"}]}]}`))
    require.Error(t, err)
    require.Contains(t, err.Error(), `unknown instruction "bogus"`)
    _, err = UnmarshalFunction([]byte(`{"name":"f","types":{"x":{"kind":"tensor","elem":"int32"}}}`))
    require.Error(t, err)

    /* output sources must name arguments */
    _, err = UnmarshalFunction([]byte(`{"name":"f","blocks":[{"id":0,"ins":[{"op":"invoke","name":"k","inputs":["b"],"outputs":["o"],"output_sources":[3]}]}]}`))
    require.Error(t, err)
    require.Contains(t, err.Error(), "output source 3 out of range")
    _, err = UnmarshalFunction([]byte(`{"name":"f","blocks":[{"id":0,"ins":[{"op":"invoke","name":"k","inputs":["b"],"outputs":["o","p"],"output_sources":[0,0]}]}]}`))
    require.Error(t, err)
    require.Contains(t, err.Error(), "duplicate output source 0")

    /* blocks must exist and be unique */
    _, err = UnmarshalFunction([]byte(`{"name":"f","blocks":[{"id":0,"ins":[{"op":"for","start":"a","step":"a","end":"a","blocks":[1],"end_block":2}]},{"id":1,"ins":[]}]}`))
    require.Error(t, err)
    require.Contains(t, err.Error(), "unknown block #2")
    _, err = UnmarshalFunction([]byte(`{"name":"f","blocks":[{"id":0,"ins":[]},{"id":1,"ins":[]},{"id":1,"ins":[]}]}`))
    require.Error(t, err)
    require.Contains(t, err.Error(), "duplicate block id 1")
}
