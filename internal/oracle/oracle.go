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

// Package oracle answers dominance, liveness and shape questions about a
// function body. An Oracle is a snapshot: it is built for one pass
// invocation and must be discarded as soon as the function is modified.
package oracle

import (
    `github.com/cloudwego/kernelize/ssa`
    `github.com/oleiade/lane`
)

type _LiveKey struct {
    v ssa.Var
    p ssa.Location
}

type Oracle struct {
    Fn     *ssa.Function
    CFG    *CFG
    Dom    DominatorTree
    UD     *ssa.UseDef
    shape  *_ShapeClasses
    dead   map[_LiveKey]bool
    alias  map[ssa.Var][]ssa.Var
}

func New(fn *ssa.Function) *Oracle {
    cfg := BuildCFG(fn)
    return &Oracle {
        Fn    : fn,
        CFG   : cfg,
        Dom   : BuildDominatorTree(cfg),
        UD    : fn.UseDef(),
        dead  : make(map[_LiveKey]bool),
        alias : make(map[ssa.Var][]ssa.Var),
    }
}

// Covers reports whether every execution reaching b has already executed a.
func (self *Oracle) Covers(a ssa.Location, b ssa.Location) bool {
    if a.Block == b.Block {
        return a.Index < b.Index
    } else {
        return self.Dom.Dominates(a.Block, b.Block)
    }
}

// CoversAll reports whether a covers every location in uses.
func (self *Oracle) CoversAll(a ssa.Location, uses []ssa.Location) bool {
    for _, u := range uses {
        if !self.Covers(a, u) {
            return false
        }
    }
    return true
}

// Reaches reports whether execution can arrive at b after having executed a.
func (self *Oracle) Reaches(a ssa.Location, b ssa.Location) bool {
    if a.Block == b.Block && a.Index < b.Index {
        return true
    } else {
        return self.CFG.Reachable(a.Block, b.Block)
    }
}

// Aliases returns v together with every name that refers to the same
// storage: kernel outputs overwriting it, SetRange results and Phi nodes
// merging it.
func (self *Oracle) Aliases(v ssa.Var) []ssa.Var {
    if r, ok := self.alias[v]; ok {
        return r
    }

    /* breadth-first closure over the aliasing instructions */
    q := lane.NewQueue()
    seen := map[ssa.Var]bool { v: true }
    ret := []ssa.Var { v }

    /* chase every use of every alias */
    for q.Enqueue(v); !q.Empty(); {
        x := q.Dequeue().(ssa.Var)
        for _, u := range self.UD.Uses(x) {
            for _, y := range aliasesAt(self.Fn.At(u), x) {
                if !seen[y] {
                    seen[y] = true
                    ret = append(ret, y)
                    q.Enqueue(y)
                }
            }
        }
    }

    /* memoize for the lifetime of the oracle */
    self.alias[v] = ret
    return ret
}

func aliasesAt(ins ssa.Instr, v ssa.Var) []ssa.Var {
    switch p := ins.(type) {
        case *ssa.Phi: {
            return []ssa.Var { p.Output }
        }
        case *ssa.SetRange: {
            if p.Buffer == v && p.Output != "" {
                return []ssa.Var { p.Output }
            }
        }
        case *ssa.InvokeKernel: {
            var r []ssa.Var
            for i, a := range p.Arguments {
                if a == v {
                    if o, ok := p.OutputOf(i); ok {
                        r = append(r, o)
                    }
                }
            }
            return r
        }
    }
    return nil
}

// IsDeadAfter reports whether no instruction reachable from p reads v or
// any of its aliases. Answers are memoized per (variable, location) for the
// lifetime of the oracle.
func (self *Oracle) IsDeadAfter(v ssa.Var, p ssa.Location) bool {
    key := _LiveKey { v, p }
    if r, ok := self.dead[key]; ok {
        return r
    }

    /* scan every use of every alias */
    ret := true
    for _, a := range self.Aliases(v) {
        for _, u := range self.UD.Uses(a) {
            if self.Reaches(p, u) {
                ret = false
                break
            }
        }
        if !ret {
            break
        }
    }

    /* memoize the result */
    self.dead[key] = ret
    return ret
}

// Mutates reports whether ins writes the storage of v in place.
func Mutates(ins ssa.Instr, v ssa.Var) bool {
    switch p := ins.(type) {
        case *ssa.SetRange: {
            return p.Buffer == v
        }
        case *ssa.InvokeKernel: {
            for i, a := range p.Arguments {
                if a == v && p.Overwrites(i) {
                    return true
                }
            }
        }
    }
    return false
}

// IsMutatedIn reports whether v is written in place inside any of blocks.
func (self *Oracle) IsMutatedIn(v ssa.Var, blocks []int) bool {
    in := make(map[int]bool, len(blocks))
    for _, b := range blocks {
        in[b] = true
    }
    for _, u := range self.UD.Uses(v) {
        if in[u.Block] && Mutates(self.Fn.At(u), v) {
            return true
        }
    }
    return false
}

// IsMutatedAfter reports whether v or one of its aliases may be written in
// place by an instruction reachable from p.
func (self *Oracle) IsMutatedAfter(v ssa.Var, p ssa.Location) bool {
    for _, a := range self.Aliases(v) {
        for _, u := range self.UD.Uses(a) {
            if self.Reaches(p, u) && Mutates(self.Fn.At(u), a) {
                return true
            }
        }
    }
    return false
}

// IsMutated reports whether v is ever written in place.
func (self *Oracle) IsMutated(v ssa.Var) bool {
    for _, u := range self.UD.Uses(v) {
        if Mutates(self.Fn.At(u), v) {
            return true
        }
    }
    return false
}
