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

package lowering

import (
    `fmt`
    `strings`

    `github.com/cloudwego/kernelize/internal/opts`
    `github.com/cloudwego/kernelize/internal/region`
    `github.com/cloudwego/kernelize/ssa`
)

type ArgumentRole uint8

const (
    ImportedData ArgumentRole = iota
    ImportedNumel
    ImportedDim
    ImportedValue
    GlobalPerItemBuffer
    GlobalPerGroupBuffer
    LocalReductionBuffer
    NumTasks
)

var _RoleNames = [...]string {
    ImportedData         : "ImportedData",
    ImportedNumel        : "ImportedNumel",
    ImportedDim          : "ImportedDim",
    ImportedValue        : "ImportedValue",
    GlobalPerItemBuffer  : "GlobalPerItemBuffer",
    GlobalPerGroupBuffer : "GlobalPerGroupBuffer",
    LocalReductionBuffer : "LocalReductionBuffer",
    NumTasks             : "NumTasks",
}

func (self ArgumentRole) String() string {
    if int(self) < len(_RoleNames) {
        return _RoleNames[self]
    } else {
        return fmt.Sprintf("ArgumentRole(%d)", self)
    }
}

// KernelArgument is one parameter of a kernel. Variable is the host value
// it is derived from, Binding the value actually passed to the invocation.
type KernelArgument struct {
    Role      ArgumentRole
    Dim       int
    Variable  ssa.Var
    Reduction ssa.Var
    ReadOnly  bool
    Elem      ssa.ElemType
    Binding   ssa.Var
}

func (self *KernelArgument) String() string {
    buf := []string { self.Role.String() }
    if self.Role == ImportedDim || self.Role == NumTasks {
        buf[0] = fmt.Sprintf("%s(%d)", self.Role, self.Dim)
    }
    buf = append(buf, self.Variable.String())
    if self.Reduction != "" {
        buf = append(buf, "reduces " + self.Reduction.String())
    }
    if self.ReadOnly {
        buf = append(buf, "readonly")
    }
    return strings.Join(buf, " ")
}

// Dim is one dimension of the kernel index space, along with the host
// values computed for it.
type Dim struct {
    Iter     ssa.Var
    Start    ssa.Var
    Step     ssa.Var
    End      ssa.Var
    Schedule opts.Schedule
    NumIter  ssa.Var
    Local    ssa.Var
    Global   ssa.Var
}

// Kernel records everything the back end needs to emit a kernel: the
// arguments in invocation order, the index space and the loop body.
type Kernel struct {
    Name      string
    Region    *region.Region
    Arguments []*KernelArgument
    Dims      []Dim
    Body      []ssa.Instr
    Types     map[ssa.Var]ssa.VarType
}

func (self *Kernel) String() string {
    buf := []string { fmt.Sprintf("kernel %s {", self.Name) }
    for i, d := range self.Dims {
        buf = append(buf, fmt.Sprintf("  dim %d: %s = %s:%s:%s (%s)", i, d.Iter, d.Start, d.Step, d.End, d.Schedule))
    }
    for _, a := range self.Arguments {
        buf = append(buf, "  arg " + a.String())
    }
    for _, ins := range self.Body {
        buf = append(buf, "    " + ins.String())
    }
    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}

// Argument returns the argument bound for reduction output v, if any.
func (self *Kernel) Argument(v ssa.Var) (*KernelArgument, bool) {
    for _, a := range self.Arguments {
        if a.Reduction == v && a.Role != LocalReductionBuffer {
            return a, true
        }
    }
    return nil, false
}
