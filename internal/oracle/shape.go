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
    `github.com/cloudwego/kernelize/ssa`
)

type _ShapeClasses struct {
    parent map[ssa.Var]ssa.Var
}

func (self *_ShapeClasses) find(v ssa.Var) ssa.Var {
    for {
        p, ok := self.parent[v]
        if !ok || p == v {
            return v
        }
        if pp, ok := self.parent[p]; ok {
            self.parent[v] = pp
        }
        v = p
    }
}

func (self *_ShapeClasses) union(a ssa.Var, b ssa.Var) bool {
    if ra, rb := self.find(a), self.find(b); ra == rb {
        return false
    } else if ra < rb {
        self.parent[rb] = ra
        return true
    } else {
        self.parent[ra] = rb
        return true
    }
}

func (self *Oracle) shapes() *_ShapeClasses {
    if self.shape != nil {
        return self.shape
    }

    /* Phase 1: instructions that preserve the shape of one operand */
    sc := &_ShapeClasses { parent: make(map[ssa.Var]ssa.Var) }
    self.Fn.Walk(func(_ ssa.Location, ins ssa.Instr) bool {
        switch p := ins.(type) {
            case *ssa.MatrixSet         : sc.union(p.Output, p.Matrix)
            case *ssa.Assign            : sc.union(p.Output, p.Input)
            case *ssa.OverwriteOnDevice : sc.union(p.Output, p.Source)
            case *ssa.CopyToDevice      : sc.union(p.Output, p.Input)
            case *ssa.SetRange          : if p.Output != "" { sc.union(p.Output, p.Buffer) }
            case *ssa.CompleteReduction : if p.Kind == ssa.ReductionMatrixSet { sc.union(p.Output, p.Initial) }
            case *ssa.AllocateOnDevice  : if vt, _ := self.Fn.TypeOf(p.Input); vt.Kind == ssa.Matrix { sc.union(p.Output, p.Input) }
            case *ssa.InvokeKernel: {
                for i, o := range p.Outputs {
                    sc.union(o, p.Arguments[p.OutputSources[i]])
                }
            }
        }
        return true
    })

    /* Phase 2: Phi nodes whose inputs all agree, until nothing changes. Inputs
     * derived from the Phi itself agree by induction. */
    for done := false; !done; {
        done = true
        self.Fn.Walk(func(_ ssa.Location, ins ssa.Instr) bool {
            if p, ok := ins.(*ssa.Phi); ok && len(p.Inputs) != 0 {
                same := true
                for _, v := range p.Inputs[1:] {
                    if r := sc.find(v); r != sc.find(p.Inputs[0]) && r != sc.find(p.Output) {
                        same = false
                        break
                    }
                }
                if same && sc.union(p.Output, p.Inputs[0]) {
                    done = false
                }
            }
            return true
        })
    }

    /* memoize for the lifetime of the oracle */
    self.shape = sc
    return sc
}

// SameShape reports whether a and b are proven to always have the same
// shape, so that size-only queries on either give the same answer.
func (self *Oracle) SameShape(a ssa.Var, b ssa.Var) bool {
    return a == b || self.shapes().find(a) == self.shapes().find(b)
}
