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
    `strings`
)

// Instr is a single instruction of a function body. The set of instructions
// is closed: every concrete type lives in this file.
type Instr interface {
    fmt.Stringer
    Usages() []*Var
    Definitions() []*Var
    instr()
}

func (*ForLoop)           instr() {}
func (*Branch)            instr() {}
func (*Phi)               instr() {}
func (*Iter)              instr() {}
func (*Const)             instr() {}
func (*Assign)            instr() {}
func (*MatrixGet)         instr() {}
func (*MatrixSet)         instr() {}
func (*Call)              instr() {}
func (*CopyToDevice)      instr() {}
func (*AllocateOnDevice)  instr() {}
func (*SetRange)          instr() {}
func (*InvokeKernel)      instr() {}
func (*CompleteReduction) instr() {}
func (*OverwriteOnDevice) instr() {}
func (*Return)            instr() {}
func (*Generic)           instr() {}

// ControlInstr is an instruction that owns nested blocks. Control always
// reconverges at the end block once the owned blocks are done.
type ControlInstr interface {
    Instr
    OwnedBlocks() []int
    EndBlock() int
}

func (self *ForLoop) OwnedBlocks() []int { return []int { self.LoopBlock } }
func (self *ForLoop) EndBlock()    int   { return self.EndBlockId }
func (self *Branch)  OwnedBlocks() []int { return []int { self.TrueBlock, self.FalseBlock } }
func (self *Branch)  EndBlock()    int   { return self.EndBlockId }

// Inputs returns the variables read by the instruction, without the empty
// placeholders of absent optional operands.
func Inputs(ins Instr) []Var {
    return derefs(ins.Usages())
}

// Outputs returns the variables defined by the instruction.
func Outputs(ins Instr) []Var {
    return derefs(ins.Definitions())
}

// OwnedBlocks returns the block ids owned by the instruction, if any.
func OwnedBlocks(ins Instr) []int {
    if c, ok := ins.(ControlInstr); ok {
        return c.OwnedBlocks()
    } else {
        return nil
    }
}

// EndBlock returns the block where control reconverges after ins.
func EndBlock(ins Instr) (int, bool) {
    if c, ok := ins.(ControlInstr); ok {
        return c.EndBlock(), true
    } else {
        return 0, false
    }
}

func derefs(refs []*Var) []Var {
    ret := make([]Var, 0, len(refs))
    for _, r := range refs {
        if *r != "" {
            ret = append(ret, *r)
        }
    }
    return ret
}

func refs(v []Var) []*Var {
    r := make([]*Var, len(v))
    for i := range v { r[i] = &v[i] }
    return r
}

func optref(v *Var) []*Var {
    if *v == "" {
        return nil
    } else {
        return []*Var { v }
    }
}

func joinvars(v []Var) string {
    buf := make([]string, len(v))
    for i, x := range v { buf[i] = x.String() }
    return strings.Join(buf, ", ")
}

// ForLoop iterates its loop block over Start:Step:End (inclusive).
type ForLoop struct {
    Start      Var
    Step       Var
    End        Var
    LoopBlock  int
    EndBlockId int
}

func (self *ForLoop) String() string {
    return fmt.Sprintf("for %s:%s:%s, #%d, #%d", self.Start, self.Step, self.End, self.LoopBlock, self.EndBlockId)
}

func (self *ForLoop) Usages() []*Var {
    return []*Var { &self.Start, &self.Step, &self.End }
}

func (self *ForLoop) Definitions() []*Var {
    return nil
}

type Branch struct {
    Cond       Var
    TrueBlock  int
    FalseBlock int
    EndBlockId int
}

func (self *Branch) String() string {
    return fmt.Sprintf("branch %s, #%d, #%d, #%d", self.Cond, self.TrueBlock, self.FalseBlock, self.EndBlockId)
}

func (self *Branch) Usages() []*Var {
    return []*Var { &self.Cond }
}

func (self *Branch) Definitions() []*Var {
    return nil
}

// Phi selects Inputs[i] when control arrives from block Sources[i].
type Phi struct {
    Output  Var
    Inputs  []Var
    Sources []int
}

func (self *Phi) String() string {
    buf := make([]string, len(self.Inputs))
    for i, v := range self.Inputs {
        buf[i] = fmt.Sprintf("%s: #%d", v, self.Sources[i])
    }
    return fmt.Sprintf("%s = phi [%s]", self.Output, strings.Join(buf, ", "))
}

func (self *Phi) Usages() []*Var {
    return refs(self.Inputs)
}

func (self *Phi) Definitions() []*Var {
    return []*Var { &self.Output }
}

// SourceOf returns the input flowing in from block id.
func (self *Phi) SourceOf(id int) (Var, bool) {
    for i, b := range self.Sources {
        if b == id {
            return self.Inputs[i], true
        }
    }
    return "", false
}

// Iter yields the induction value of the innermost enclosing loop.
type Iter struct {
    Output Var
}

func (self *Iter) String() string {
    return fmt.Sprintf("%s = iter", self.Output)
}

func (self *Iter) Usages() []*Var {
    return nil
}

func (self *Iter) Definitions() []*Var {
    return []*Var { &self.Output }
}

type Const struct {
    Output Var
    Value  float64
}

func (self *Const) String() string {
    return fmt.Sprintf("%s = %g", self.Output, self.Value)
}

func (self *Const) Usages() []*Var {
    return nil
}

func (self *Const) Definitions() []*Var {
    return []*Var { &self.Output }
}

type Assign struct {
    Output Var
    Input  Var
}

func (self *Assign) String() string {
    return fmt.Sprintf("%s = %s", self.Output, self.Input)
}

func (self *Assign) Usages() []*Var {
    return []*Var { &self.Input }
}

func (self *Assign) Definitions() []*Var {
    return []*Var { &self.Output }
}

// MatrixGet reads a single element, indices are 1-based.
type MatrixGet struct {
    Output  Var
    Matrix  Var
    Indices []Var
}

func (self *MatrixGet) String() string {
    return fmt.Sprintf("%s = get %s(%s)", self.Output, self.Matrix, joinvars(self.Indices))
}

func (self *MatrixGet) Usages() []*Var {
    return append([]*Var { &self.Matrix }, refs(self.Indices)...)
}

func (self *MatrixGet) Definitions() []*Var {
    return []*Var { &self.Output }
}

// MatrixSet produces a copy of Matrix with one element replaced.
type MatrixSet struct {
    Output  Var
    Matrix  Var
    Indices []Var
    Value   Var
}

func (self *MatrixSet) String() string {
    return fmt.Sprintf("%s = set %s(%s), %s", self.Output, self.Matrix, joinvars(self.Indices), self.Value)
}

func (self *MatrixSet) Usages() []*Var {
    r := []*Var { &self.Matrix }
    r = append(r, refs(self.Indices)...)
    return append(r, &self.Value)
}

func (self *MatrixSet) Definitions() []*Var {
    return []*Var { &self.Output }
}

// Call invokes a builtin or a user-defined function by name.
type Call struct {
    Name    string
    Inputs  []Var
    Outputs []Var
}

func (self *Call) String() string {
    if len(self.Outputs) == 0 {
        return fmt.Sprintf("call %s(%s)", self.Name, joinvars(self.Inputs))
    } else {
        return fmt.Sprintf("%s = call %s(%s)", joinvars(self.Outputs), self.Name, joinvars(self.Inputs))
    }
}

func (self *Call) Usages() []*Var {
    return refs(self.Inputs)
}

func (self *Call) Definitions() []*Var {
    return refs(self.Outputs)
}

// CopyToDevice allocates a device buffer holding the contents of Input.
type CopyToDevice struct {
    Output Var
    Input  Var
}

func (self *CopyToDevice) String() string {
    return fmt.Sprintf("%s = copy_to_device %s", self.Output, self.Input)
}

func (self *CopyToDevice) Usages() []*Var {
    return []*Var { &self.Input }
}

func (self *CopyToDevice) Definitions() []*Var {
    return []*Var { &self.Output }
}

// AllocateOnDevice allocates an uninitialized device buffer. Input is either
// a matrix whose shape is replicated, or a scalar element count.
type AllocateOnDevice struct {
    Output Var
    Input  Var
}

func (self *AllocateOnDevice) String() string {
    return fmt.Sprintf("%s = allocate_on_device %s", self.Output, self.Input)
}

func (self *AllocateOnDevice) Usages() []*Var {
    return []*Var { &self.Input }
}

func (self *AllocateOnDevice) Definitions() []*Var {
    return []*Var { &self.Output }
}

// SetRange fills Buffer[Begin:End] with Value. When Output is present it
// names the buffer after the write.
type SetRange struct {
    Buffer Var
    Begin  Var
    End    Var
    Value  Var
    Output Var
}

func (self *SetRange) String() string {
    if self.Output == "" {
        return fmt.Sprintf("set_range %s[%s:%s], %s", self.Buffer, self.Begin, self.End, self.Value)
    } else {
        return fmt.Sprintf("%s = set_range %s[%s:%s], %s", self.Output, self.Buffer, self.Begin, self.End, self.Value)
    }
}

func (self *SetRange) Usages() []*Var {
    return []*Var { &self.Buffer, &self.Begin, &self.End, &self.Value }
}

func (self *SetRange) Definitions() []*Var {
    return optref(&self.Output)
}

// InvokeKernel runs a device kernel. Outputs[i] names the memory of
// Arguments[OutputSources[i]] after the kernel has overwritten it.
type InvokeKernel struct {
    Kernel        string
    GlobalSizes   []Var
    LocalSizes    []Var
    Arguments     []Var
    Outputs       []Var
    OutputSources []int
}

func (self *InvokeKernel) String() string {
    buf := make([]string, len(self.Outputs))
    for i, v := range self.Outputs {
        buf[i] = fmt.Sprintf("%d->%s", self.OutputSources[i], v)
    }
    return fmt.Sprintf(
        "invoke %s[%s][%s](%s) {%s}",
        self.Kernel,
        joinvars(self.GlobalSizes),
        joinvars(self.LocalSizes),
        joinvars(self.Arguments),
        strings.Join(buf, ", "),
    )
}

func (self *InvokeKernel) Usages() []*Var {
    r := refs(self.GlobalSizes)
    r = append(r, refs(self.LocalSizes)...)
    return append(r, refs(self.Arguments)...)
}

func (self *InvokeKernel) Definitions() []*Var {
    return refs(self.Outputs)
}

// Overwrites reports whether argument i is written by the kernel.
func (self *InvokeKernel) Overwrites(i int) bool {
    for _, s := range self.OutputSources {
        if s == i {
            return true
        }
    }
    return false
}

// OutputOf returns the output overwriting argument i.
func (self *InvokeKernel) OutputOf(i int) (Var, bool) {
    for j, s := range self.OutputSources {
        if s == i {
            return self.Outputs[j], true
        }
    }
    return "", false
}

// CompleteReduction materializes a device reduction buffer into the
// host-visible Output. GroupCount is absent for matrix-set reductions.
type CompleteReduction struct {
    Output     Var
    Kind       ReductionKind
    Op         ReductionOp
    Buffer     Var
    Elem       ElemType
    GroupCount Var
    Initial    Var
}

func (self *CompleteReduction) String() string {
    if self.GroupCount == "" {
        return fmt.Sprintf("%s = complete_reduction %s.%s %s, %s, %s", self.Output, self.Kind, self.Op, self.Elem, self.Buffer, self.Initial)
    } else {
        return fmt.Sprintf("%s = complete_reduction %s.%s %s, %s[%s], %s", self.Output, self.Kind, self.Op, self.Elem, self.Buffer, self.GroupCount, self.Initial)
    }
}

func (self *CompleteReduction) Usages() []*Var {
    return append(append([]*Var { &self.Buffer }, optref(&self.GroupCount)...), &self.Initial)
}

func (self *CompleteReduction) Definitions() []*Var {
    return []*Var { &self.Output }
}

// OverwriteOnDevice refreshes a private device buffer in place from the
// contents of another device buffer, with no host round trip.
type OverwriteOnDevice struct {
    Output Var
    Source Var
}

func (self *OverwriteOnDevice) String() string {
    return fmt.Sprintf("%s = overwrite_on_device %s", self.Output, self.Source)
}

func (self *OverwriteOnDevice) Usages() []*Var {
    return []*Var { &self.Source }
}

func (self *OverwriteOnDevice) Definitions() []*Var {
    return []*Var { &self.Output }
}

type Return struct {
    Values []Var
}

func (self *Return) String() string {
    return fmt.Sprintf("return %s", joinvars(self.Values))
}

func (self *Return) Usages() []*Var {
    return refs(self.Values)
}

func (self *Return) Definitions() []*Var {
    return nil
}

// Generic stands for every instruction this package does not model. It is
// always assumed to have side effects.
type Generic struct {
    Op      string
    Inputs  []Var
    Outputs []Var
}

func (self *Generic) String() string {
    if len(self.Outputs) == 0 {
        return fmt.Sprintf("%s %s", self.Op, joinvars(self.Inputs))
    } else {
        return fmt.Sprintf("%s = %s %s", joinvars(self.Outputs), self.Op, joinvars(self.Inputs))
    }
}

func (self *Generic) Usages() []*Var {
    return refs(self.Inputs)
}

func (self *Generic) Definitions() []*Var {
    return refs(self.Outputs)
}
