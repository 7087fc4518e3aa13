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
    `fmt`

    `github.com/cloudwego/kernelize/ssa`
    `github.com/samber/lo`
)

// LoopVariable is one loop-carried value in canonical form:
//
//     LoopStart = phi(BeforeLoop, LoopEnd)    ; loop header
//     LoopEnd   = ...                         ; exactly one definition in the body
//     AfterLoop = phi(BeforeLoop, LoopEnd)    ; end block, absent when unused
//
type LoopVariable struct {
    BeforeLoop ssa.Var
    LoopStart  ssa.Var
    LoopEnd    ssa.Var
    AfterLoop  ssa.Var
}

func (self LoopVariable) String() string {
    if self.AfterLoop == "" {
        return fmt.Sprintf("%s -> %s .. %s", self.BeforeLoop, self.LoopStart, self.LoopEnd)
    } else {
        return fmt.Sprintf("%s -> %s .. %s -> %s", self.BeforeLoop, self.LoopStart, self.LoopEnd, self.AfterLoop)
    }
}

// HasAfterLoop reports whether the value escapes the loop.
func (self LoopVariable) HasAfterLoop() bool {
    return self.AfterLoop != ""
}

// Analyze extracts the loop-carried variables of a loop. It fails when a
// header Phi is not of the canonical two-input shape, or when the value
// carried around the back edge is not defined inside the loop body.
func (self *Hierarchy) Analyze(lp *Loop) ([]LoopVariable, bool) {
    var ret []LoopVariable
    outer := lp.Header.Block
    tail := self.Tail(lp)
    body := lo.SliceToMap(self.Body(lp), func(b int) (int, bool) { return b, true })

    /* header Phi nodes, one per carried value */
    for _, p := range self.Fn.Block(lp.Block).Phis() {
        before, ok1 := p.SourceOf(outer)
        end, ok2 := p.SourceOf(tail)

        /* must merge exactly the entry and the back edge */
        if len(p.Inputs) != 2 || !ok1 || !ok2 {
            return nil, false
        }

        /* the back edge value must come from this iteration */
        if d, ok := self.UD.Def(end); !ok || !body[d.Block] {
            return nil, false
        }

        /* add the loop variable */
        ret = append(ret, LoopVariable {
            BeforeLoop : before,
            LoopStart  : p.Output,
            LoopEnd    : end,
        })
    }

    /* match the after-loop Phi nodes by their inputs */
    for _, p := range self.Fn.Block(lp.For.EndBlockId).Phis() {
        before, ok1 := p.SourceOf(outer)
        end, ok2 := p.SourceOf(tail)
        if len(p.Inputs) != 2 || !ok1 || !ok2 {
            continue
        }
        for i := range ret {
            if ret[i].BeforeLoop == before && ret[i].LoopEnd == end && ret[i].AfterLoop == "" {
                ret[i].AfterLoop = p.Output
                break
            }
        }
    }
    return ret, true
}
