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

func clonevars(v []Var) []Var {
    if v == nil {
        return nil
    } else {
        return append([]Var(nil), v...)
    }
}

func cloneints(v []int) []int {
    if v == nil {
        return nil
    } else {
        return append([]int(nil), v...)
    }
}

// CloneInstr makes a deep copy of an instruction.
func CloneInstr(ins Instr) Instr {
    switch p := ins.(type) {
        case *ForLoop           : v := *p; return &v
        case *Branch            : v := *p; return &v
        case *Iter              : v := *p; return &v
        case *Const             : v := *p; return &v
        case *Assign            : v := *p; return &v
        case *CopyToDevice      : v := *p; return &v
        case *AllocateOnDevice  : v := *p; return &v
        case *SetRange          : v := *p; return &v
        case *CompleteReduction : v := *p; return &v
        case *OverwriteOnDevice : v := *p; return &v
        case *Phi               : return &Phi { Output: p.Output, Inputs: clonevars(p.Inputs), Sources: cloneints(p.Sources) }
        case *MatrixGet         : return &MatrixGet { Output: p.Output, Matrix: p.Matrix, Indices: clonevars(p.Indices) }
        case *MatrixSet         : return &MatrixSet { Output: p.Output, Matrix: p.Matrix, Indices: clonevars(p.Indices), Value: p.Value }
        case *Call              : return &Call { Name: p.Name, Inputs: clonevars(p.Inputs), Outputs: clonevars(p.Outputs) }
        case *Return            : return &Return { Values: clonevars(p.Values) }
        case *Generic           : return &Generic { Op: p.Op, Inputs: clonevars(p.Inputs), Outputs: clonevars(p.Outputs) }
        case *InvokeKernel: {
            return &InvokeKernel {
                Kernel        : p.Kernel,
                GlobalSizes   : clonevars(p.GlobalSizes),
                LocalSizes    : clonevars(p.LocalSizes),
                Arguments     : clonevars(p.Arguments),
                Outputs       : clonevars(p.Outputs),
                OutputSources : cloneints(p.OutputSources),
            }
        }
        default: {
            panic("unreachable")
        }
    }
}
