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

// Carried declares a loop-carried value for Builder.Loop.
type Carried struct {
    Name string
    Init Var
    Type VarType
}

// Builder constructs structured functions block by block.
type Builder struct {
    Fn  *Function
    cur int
}

func NewBuilder(name string) *Builder {
    return &Builder { Fn: NewFunction(name) }
}

// Current returns the id of the block instructions are appended to.
func (self *Builder) Current() int {
    return self.cur
}

func (self *Builder) SetCurrent(id int) {
    self.cur = id
}

// Declare records the type of v and returns it.
func (self *Builder) Declare(v Var, vt VarType) Var {
    self.Fn.Types[v] = vt
    return v
}

func (self *Builder) Emit(ins ...Instr) *Builder {
    bb := self.Fn.Block(self.cur)
    bb.Ins = append(bb.Ins, ins...)
    return self
}

func (self *Builder) Const(out Var, elem ElemType, value float64) Var {
    self.Emit(&Const { Output: self.Declare(out, ScalarOf(elem)), Value: value })
    return out
}

func (self *Builder) Call(out Var, vt VarType, fn string, in ...Var) Var {
    self.Emit(&Call { Name: fn, Inputs: in, Outputs: []Var { self.Declare(out, vt) } })
    return out
}

func (self *Builder) Get(out Var, matrix Var, idx ...Var) Var {
    mt := self.Fn.Types[matrix]
    self.Emit(&MatrixGet { Output: self.Declare(out, ScalarOf(mt.Elem)), Matrix: matrix, Indices: idx })
    return out
}

func (self *Builder) Set(out Var, matrix Var, value Var, idx ...Var) Var {
    mt := self.Fn.Types[matrix]
    self.Emit(&MatrixSet { Output: self.Declare(out, mt), Matrix: matrix, Indices: idx, Value: value })
    return out
}

func (self *Builder) CopyToDevice(out Var, in Var) Var {
    vt := self.Fn.Types[in]
    self.Emit(&CopyToDevice { Output: self.Declare(out, BufferOf(vt.Elem)), Input: in })
    return out
}

func (self *Builder) Return(v ...Var) {
    self.Emit(&Return { Values: v })
}

// Loop emits a for loop over start:step:end. The body callback receives the
// induction variable and the loop-start value of every carried variable,
// and returns the matching loop-end values. Loop returns the after-loop
// values of the carried variables, and leaves the builder in the end block.
func (self *Builder) Loop(start Var, step Var, end Var, carried []Carried, body func(b *Builder, iter Var, starts []Var) []Var) []Var {
    outer := self.cur
    lb := self.Fn.AddBlock()
    eb := self.Fn.AddBlock()

    /* terminate the current block with the loop */
    self.Emit(&ForLoop {
        Start      : start,
        Step       : step,
        End        : end,
        LoopBlock  : lb.Id,
        EndBlockId : eb.Id,
    })

    /* header Phi nodes, the back edge is patched once the body is built */
    self.cur = lb.Id
    phis := make([]*Phi, len(carried))
    starts := make([]Var, len(carried))
    for i, c := range carried {
        starts[i] = self.Fn.NewVar(c.Name + "_start", c.Type)
        phis[i] = &Phi { Output: starts[i], Inputs: []Var { c.Init, "" }, Sources: []int { outer, -1 } }
        self.Emit(phis[i])
    }

    /* induction variable */
    iter := self.Fn.NewVar("iter", ScalarOf(Int32))
    self.Emit(&Iter { Output: iter })

    /* build the body */
    ends := body(self, iter, starts)
    tail := self.cur

    /* patch the back edges */
    for i, p := range phis {
        p.Inputs[1] = ends[i]
        p.Sources[1] = tail
    }

    /* after-loop Phi nodes */
    self.cur = eb.Id
    after := make([]Var, len(carried))
    for i, c := range carried {
        after[i] = self.Fn.NewVar(c.Name + "_after", c.Type)
        self.Emit(&Phi { Output: after[i], Inputs: []Var { c.Init, ends[i] }, Sources: []int { outer, tail } })
    }
    return after
}

// If emits a branch. Both arms return one value per merged variable, and
// the merged values are returned from the end block.
func (self *Builder) If(cond Var, types []VarType, then func(b *Builder) []Var, otherwise func(b *Builder) []Var) []Var {
    tb := self.Fn.AddBlock()
    fb := self.Fn.AddBlock()
    eb := self.Fn.AddBlock()

    /* terminate the current block with the branch */
    self.Emit(&Branch {
        Cond       : cond,
        TrueBlock  : tb.Id,
        FalseBlock : fb.Id,
        EndBlockId : eb.Id,
    })

    /* build both arms */
    self.cur = tb.Id
    tv := then(self)
    tt := self.cur
    self.cur = fb.Id
    fv := otherwise(self)
    ft := self.cur

    /* merge in the end block */
    self.cur = eb.Id
    ret := make([]Var, len(types))
    for i, vt := range types {
        ret[i] = self.Fn.NewVar("merge", vt)
        self.Emit(&Phi { Output: ret[i], Inputs: []Var { tv[i], fv[i] }, Sources: []int { tt, ft } })
    }
    return ret
}
