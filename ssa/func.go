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
    `sort`
    `strings`

    `golang.org/x/exp/slices`
)

type Block struct {
    Id  int
    Ins []Instr
}

// Control returns the block-owning instruction terminating the block.
func (self *Block) Control() (ControlInstr, bool) {
    if n := len(self.Ins); n == 0 {
        return nil, false
    } else {
        c, ok := self.Ins[n - 1].(ControlInstr)
        return c, ok
    }
}

// Phis returns the leading Phi instructions of the block.
func (self *Block) Phis() (r []*Phi) {
    for _, ins := range self.Ins {
        if p, ok := ins.(*Phi); ok {
            r = append(r, p)
        } else {
            break
        }
    }
    return
}

// Function is a structured SSA function body. Block 0 is the entry block,
// every other block is reached through exactly one owning instruction.
type Function struct {
    Name   string
    Types  map[Var]VarType
    blocks []*Block
    serial int
}

func NewFunction(name string) *Function {
    fn := &Function {
        Name  : name,
        Types : make(map[Var]VarType),
    }
    fn.AddBlock()
    return fn
}

func (self *Function) Entry() *Block {
    return self.blocks[0]
}

func (self *Function) Block(id int) *Block {
    if id < 0 || id >= len(self.blocks) {
        return nil
    } else {
        return self.blocks[id]
    }
}

// Blocks returns all the live blocks, ordered by id.
func (self *Function) Blocks() []*Block {
    ret := make([]*Block, 0, len(self.blocks))
    for _, bb := range self.blocks {
        if bb != nil {
            ret = append(ret, bb)
        }
    }
    return ret
}

func (self *Function) AddBlock() *Block {
    bb := &Block { Id: len(self.blocks) }
    self.blocks = append(self.blocks, bb)
    return bb
}

func (self *Function) RemoveBlock(id int) {
    if id > 0 && id < len(self.blocks) {
        self.blocks[id] = nil
    }
}

// NewVar creates a fresh variable named after hint.
func (self *Function) NewVar(hint string, vt VarType) Var {
    for {
        self.serial++
        v := Var(fmt.Sprintf("%s_%d", hint, self.serial))
        if _, ok := self.Types[v]; !ok {
            self.Types[v] = vt
            return v
        }
    }
}

func (self *Function) TypeOf(v Var) (VarType, bool) {
    vt, ok := self.Types[v]
    return vt, ok
}

// At returns the instruction at l, or nil if l is out of range.
func (self *Function) At(l Location) Instr {
    if bb := self.Block(l.Block); bb == nil || l.Index < 0 || l.Index >= len(bb.Ins) {
        return nil
    } else {
        return bb.Ins[l.Index]
    }
}

// Insert places ins before the instruction at l.
func (self *Function) Insert(l Location, ins ...Instr) {
    bb := self.blocks[l.Block]
    bb.Ins = slices.Insert(bb.Ins, l.Index, ins...)
}

// Remove deletes the instruction at l.
func (self *Function) Remove(l Location) {
    bb := self.blocks[l.Block]
    bb.Ins = slices.Delete(bb.Ins, l.Index, l.Index + 1)
}

// Replace substitutes the instruction at l with ins.
func (self *Function) Replace(l Location, ins ...Instr) {
    bb := self.blocks[l.Block]
    bb.Ins = slices.Insert(slices.Delete(bb.Ins, l.Index, l.Index + 1), l.Index, ins...)
}

// RenameVar redirects every use of from to to, returning the number of
// operands rewritten. Definitions are left untouched.
func (self *Function) RenameVar(from Var, to Var) (n int) {
    for _, bb := range self.blocks {
        if bb != nil {
            for _, ins := range bb.Ins {
                for _, u := range ins.Usages() {
                    if *u == from {
                        *u = to
                        n++
                    }
                }
            }
        }
    }
    return
}

// RenameBlockRefs rewrites Phi source references from one block to another,
// used after the contents of a block have been merged into another one.
func (self *Function) RenameBlockRefs(from int, to int) {
    for _, bb := range self.blocks {
        if bb != nil {
            for _, ins := range bb.Ins {
                if p, ok := ins.(*Phi); ok {
                    for i, s := range p.Sources {
                        if s == from {
                            p.Sources[i] = to
                        }
                    }
                }
            }
        }
    }
}

// Tail returns the last block of the chain starting at id, that is the
// block where control ends up after every control instruction starting
// from id has reconverged.
func (self *Function) Tail(id int) int {
    seen := make(map[int]bool)
    for !seen[id] {
        seen[id] = true
        if bb := self.Block(id); bb == nil {
            return id
        } else if c, ok := bb.Control(); !ok {
            return id
        } else {
            id = c.EndBlock()
        }
    }
    return id
}

// Chain returns the blocks of the chain starting at id, including every
// block nested in it, in program order.
func (self *Function) Chain(id int) (ret []int) {
    var walk func(int)
    seen := make(map[int]bool)

    /* owned blocks first, then the end block */
    walk = func(b int) {
        if bb := self.Block(b); bb != nil && !seen[b] {
            seen[b] = true
            ret = append(ret, b)
            if c, ok := bb.Control(); ok {
                for _, o := range c.OwnedBlocks() {
                    walk(o)
                }
                walk(c.EndBlock())
            }
        }
    }

    /* walk from the head */
    walk(id)
    return
}

// Clone makes a deep copy of the function.
func (self *Function) Clone() *Function {
    ret := &Function {
        Name   : self.Name,
        Types  : make(map[Var]VarType, len(self.Types)),
        blocks : make([]*Block, len(self.blocks)),
        serial : self.serial,
    }
    for k, v := range self.Types {
        ret.Types[k] = v
    }
    for i, bb := range self.blocks {
        if bb != nil {
            nb := &Block { Id: bb.Id, Ins: make([]Instr, len(bb.Ins)) }
            for j, ins := range bb.Ins {
                nb.Ins[j] = CloneInstr(ins)
            }
            ret.blocks[i] = nb
        }
    }
    return ret
}

func (self *Function) String() string {
    buf := []string { fmt.Sprintf("function %s {", self.Name) }
    for _, bb := range self.Blocks() {
        buf = append(buf, fmt.Sprintf("  #%d:", bb.Id))
        for _, ins := range bb.Ins {
            buf = append(buf, "    " + ins.String())
        }
    }

    /* dump the types sorted by name */
    names := make([]string, 0, len(self.Types))
    for v := range self.Types {
        names = append(names, string(v))
    }
    sort.Strings(names)
    for _, v := range names {
        buf = append(buf, fmt.Sprintf("  ; %s: %s", Var(v), self.Types[Var(v)]))
    }
    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}
