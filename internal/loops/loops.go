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

// Package loops recovers the for-loop nesting of a structured function and
// the canonical loop-carried variables of every loop.
package loops

import (
    `fmt`

    `github.com/cloudwego/kernelize/ssa`
)

type Loop struct {
    Block    int
    Header   ssa.Location
    For      *ssa.ForLoop
    Parent   *Loop
    Children []*Loop
    Depth    int
}

func (self *Loop) String() string {
    return fmt.Sprintf("loop #%d (depth %d)", self.Block, self.Depth)
}

// Contains reports whether other is self or nested somewhere inside self.
func (self *Loop) Contains(other *Loop) bool {
    for p := other; p != nil; p = p.Parent {
        if p == self {
            return true
        }
    }
    return false
}

// Hierarchy is the loop nesting forest of a function, keyed by loop block.
type Hierarchy struct {
    Fn    *ssa.Function
    UD    *ssa.UseDef
    Loops map[int]*Loop
    Order []*Loop
}

func Build(fn *ssa.Function) *Hierarchy {
    h := &Hierarchy {
        Fn    : fn,
        UD    : fn.UseDef(),
        Loops : make(map[int]*Loop),
    }
    h.walk(0, nil, make(map[int]bool))
    return h
}

func (self *Hierarchy) walk(id int, parent *Loop, seen map[int]bool) {
    for !seen[id] {
        bb := self.Fn.Block(id)
        seen[id] = true

        /* removed block */
        if bb == nil {
            return
        }

        /* only the terminating instruction may own blocks */
        ctl, ok := bb.Control()
        if !ok {
            return
        }

        /* a new loop encloses everything in its body */
        if p, ok := ctl.(*ssa.ForLoop); ok {
            lp := &Loop {
                Block  : p.LoopBlock,
                Header : ssa.Location { Block: id, Index: len(bb.Ins) - 1 },
                For    : p,
                Parent : parent,
            }
            if parent != nil {
                lp.Depth = parent.Depth + 1
                parent.Children = append(parent.Children, lp)
            }
            self.Loops[lp.Block] = lp
            self.Order = append(self.Order, lp)
            self.walk(p.LoopBlock, lp, seen)
        } else {
            for _, o := range ctl.OwnedBlocks() {
                self.walk(o, parent, seen)
            }
        }

        /* continue with the end block */
        id = ctl.EndBlock()
    }
}

// Roots returns the outermost loops in program order.
func (self *Hierarchy) Roots() (r []*Loop) {
    for _, lp := range self.Order {
        if lp.Parent == nil {
            r = append(r, lp)
        }
    }
    return
}

// Body returns every block executed as part of one iteration of the loop.
func (self *Hierarchy) Body(lp *Loop) []int {
    return self.Fn.Chain(lp.Block)
}

// Tail returns the block that jumps back to the loop header.
func (self *Hierarchy) Tail(lp *Loop) int {
    return self.Fn.Tail(lp.Block)
}

// Spine returns the blocks of the chain starting at id that execute
// unconditionally, skipping the bodies of nested control instructions.
func Spine(fn *ssa.Function, id int) (r []int) {
    seen := make(map[int]bool)
    for !seen[id] {
        bb := fn.Block(id)
        seen[id] = true
        if bb == nil {
            return
        }
        r = append(r, id)
        if ctl, ok := bb.Control(); ok {
            id = ctl.EndBlock()
        }
    }
    return
}

// Iter returns the induction variable of the loop.
func (self *Hierarchy) Iter(lp *Loop) (ssa.Var, bool) {
    for _, ins := range self.Fn.Block(lp.Block).Ins {
        if p, ok := ins.(*ssa.Iter); ok {
            return p.Output, true
        }
    }
    return "", false
}

// Innermost reports whether the loop contains no other loop.
func (self *Loop) Innermost() bool {
    return len(self.Children) == 0
}
