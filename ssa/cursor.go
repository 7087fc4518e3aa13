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
    `fmt`

    `github.com/oleiade/lane`
)

// Location is a program point: the Index-th instruction of a block.
type Location struct {
    Block int
    Index int
}

func (self Location) String() string {
    return fmt.Sprintf("#%d[%d]", self.Block, self.Index)
}

// Next returns the location right after this one in the same block.
func (self Location) Next() Location {
    return Location { self.Block, self.Index + 1 }
}

// Locations flattens the function into program order. Nested blocks are
// visited right after their owning instruction, followed by the end block.
func (self *Function) Locations() []Location {
    return self.locationsFrom(0)
}

func (self *Function) locationsFrom(id int) []Location {
    var ret []Location
    st := lane.NewStack()
    vis := make(map[int]bool)

    /* start from the head of the chain */
    st.Push(Location { id, 0 })
    vis[id] = true

    /* explicit cursor stack, the top is always the next point to visit */
    for !st.Empty() {
        c := st.Pop().(Location)
        bb := self.Block(c.Block)

        /* end of block, resume the enclosing cursor */
        if bb == nil || c.Index >= len(bb.Ins) {
            continue
        }

        /* emit the current location and schedule the rest of the block */
        ret = append(ret, c)
        st.Push(c.Next())

        /* control instructions: owned blocks first, then the end block */
        if ctl, ok := bb.Ins[c.Index].(ControlInstr); ok {
            own := ctl.OwnedBlocks()
            if end := ctl.EndBlock(); !vis[end] {
                vis[end] = true
                st.Push(Location { end, 0 })
            }
            for i := len(own) - 1; i >= 0; i-- {
                if !vis[own[i]] {
                    vis[own[i]] = true
                    st.Push(Location { own[i], 0 })
                }
            }
        }
    }
    return ret
}

// Walk calls fn for every instruction in program order, until fn returns
// false. The walk works on a snapshot of the locations, so fn must not
// insert or remove instructions.
func (self *Function) Walk(fn func(Location, Instr) bool) {
    for _, l := range self.Locations() {
        if !fn(l, self.At(l)) {
            return
        }
    }
}

// UseDef indexes definitions and uses of every variable. It is a snapshot
// and must be rebuilt after the function is modified.
type UseDef struct {
    Order map[Location]int
    defs  map[Var]Location
    uses  map[Var][]Location
}

func (self *Function) UseDef() *UseDef {
    ud := &UseDef {
        Order : make(map[Location]int),
        defs  : make(map[Var]Location),
        uses  : make(map[Var][]Location),
    }
    for i, l := range self.Locations() {
        ins := self.At(l)
        ud.Order[l] = i
        for _, d := range Outputs(ins) {
            ud.defs[d] = l
        }
        for _, u := range Inputs(ins) {
            if n := len(ud.uses[u]); n == 0 || ud.uses[u][n - 1] != l {
                ud.uses[u] = append(ud.uses[u], l)
            }
        }
    }
    return ud
}

// Def returns the defining location of v. Function parameters have none.
func (self *UseDef) Def(v Var) (Location, bool) {
    l, ok := self.defs[v]
    return l, ok
}

// Uses returns every location reading v, in program order.
func (self *UseDef) Uses(v Var) []Location {
    return self.uses[v]
}

// Before reports whether a comes before b in program order.
func (self *UseDef) Before(a Location, b Location) bool {
    return self.Order[a] < self.Order[b]
}
