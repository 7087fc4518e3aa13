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

// Package reduction recognizes loop-carried accumulations that can be
// evaluated by a parallel kernel.
package reduction

import (
    `fmt`
    `strings`

    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/ssa`
)

// Nest is a perfectly nested list of loops, outermost first.
type Nest struct {
    Fn    *ssa.Function
    UD    *ssa.UseDef
    Loops []*loops.Loop
    Iters []ssa.Var
}

// NewNest collects the induction variables of a list of loops.
func NewNest(h *loops.Hierarchy, lps []*loops.Loop) *Nest {
    ret := &Nest {
        Fn    : h.Fn,
        UD    : h.UD,
        Loops : lps,
        Iters : make([]ssa.Var, 0, len(lps)),
    }
    for _, lp := range lps {
        if v, ok := h.Iter(lp); ok {
            ret.Iters = append(ret.Iters, v)
        }
    }
    return ret
}

// Reduction is a classified loop-carried value, with one LoopVariable per
// nesting level, outermost first.
type Reduction struct {
    Vars  []loops.LoopVariable
    Kind  ssa.ReductionKind
    Op    ssa.ReductionOp
    Elem  ssa.ElemType
    Names map[ssa.Var]bool
}

// Output is the host-visible name of the final value.
func (self *Reduction) Output() ssa.Var {
    return self.Vars[0].AfterLoop
}

// Initial is the value the reduction starts from.
func (self *Reduction) Initial() ssa.Var {
    return self.Vars[0].BeforeLoop
}

// Start is the value read by the innermost loop body.
func (self *Reduction) Start() ssa.Var {
    return self.Vars[len(self.Vars) - 1].LoopStart
}

// End is the value written by the innermost loop body.
func (self *Reduction) End() ssa.Var {
    return self.Vars[len(self.Vars) - 1].LoopEnd
}

func (self *Reduction) String() string {
    buf := make([]string, len(self.Vars))
    for i, v := range self.Vars {
        buf[i] = v.String()
    }
    if self.Op == ssa.OpNone {
        return fmt.Sprintf("%s %s [%s]", self.Kind, self.Elem, strings.Join(buf, "; "))
    } else {
        return fmt.Sprintf("%s(%s) %s [%s]", self.Kind, self.Op, self.Elem, strings.Join(buf, "; "))
    }
}

func newReduction(nest *Nest, vars []loops.LoopVariable, kind ssa.ReductionKind, op ssa.ReductionOp) *Reduction {
    vt, _ := nest.Fn.TypeOf(vars[0].BeforeLoop)
    ret := &Reduction {
        Vars  : vars,
        Kind  : kind,
        Op    : op,
        Elem  : vt.Elem,
        Names : make(map[ssa.Var]bool, len(vars) * 4),
    }
    for _, v := range vars {
        ret.Names[v.BeforeLoop] = true
        ret.Names[v.LoopStart] = true
        ret.Names[v.LoopEnd] = true
        ret.Names[v.AfterLoop] = true
    }
    return ret
}
