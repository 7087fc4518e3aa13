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
    `encoding/json`
    `sort`

    `github.com/pkg/errors`
)

type _JsonType struct {
    Kind  string `json:"kind"`
    Elem  string `json:"elem"`
    Ndims int    `json:"ndims,omitempty"`
}

type _JsonInstr struct {
    Op         string   `json:"op"`
    Name       string   `json:"name,omitempty"`
    Output     Var      `json:"output,omitempty"`
    Outputs    []Var    `json:"outputs,omitempty"`
    Input      Var      `json:"input,omitempty"`
    Inputs     []Var    `json:"inputs,omitempty"`
    Sources    []int    `json:"sources,omitempty"`
    Start      Var      `json:"start,omitempty"`
    Step       Var      `json:"step,omitempty"`
    End        Var      `json:"end,omitempty"`
    Cond       Var      `json:"cond,omitempty"`
    Blocks     []int    `json:"blocks,omitempty"`
    EndBlock   int      `json:"end_block,omitempty"`
    Value      float64  `json:"value,omitempty"`
    Matrix     Var      `json:"matrix,omitempty"`
    Indices    []Var    `json:"indices,omitempty"`
    Fill       Var      `json:"fill,omitempty"`
    Buffer     Var      `json:"buffer,omitempty"`
    Begin      Var      `json:"begin,omitempty"`
    Global     []Var    `json:"global,omitempty"`
    Local      []Var    `json:"local,omitempty"`
    OutSources []int    `json:"output_sources,omitempty"`
    Kind       string   `json:"kind,omitempty"`
    RedOp      string   `json:"reduction_op,omitempty"`
    Elem       string   `json:"elem,omitempty"`
    Groups     Var      `json:"group_count,omitempty"`
    Initial    Var      `json:"initial,omitempty"`
    Source     Var      `json:"source,omitempty"`
}

type _JsonBlock struct {
    Id  int          `json:"id"`
    Ins []_JsonInstr `json:"ins"`
}

type _JsonFunction struct {
    Name   string               `json:"name"`
    Types  map[Var]_JsonType    `json:"types"`
    Blocks []_JsonBlock         `json:"blocks"`
}

var _TypeKinds = map[string]TypeKind {
    "scalar" : Scalar,
    "matrix" : Matrix,
    "buffer" : Buffer,
}

var _ReductionKinds = map[string]ReductionKind {
    ReductionAssociative.String() : ReductionAssociative,
    ReductionMatrixSet.String()   : ReductionMatrixSet,
}

// MarshalFunction encodes a function body as JSON.
func MarshalFunction(fn *Function) ([]byte, error) {
    jf := _JsonFunction {
        Name  : fn.Name,
        Types : make(map[Var]_JsonType, len(fn.Types)),
    }

    /* variable types */
    for v, vt := range fn.Types {
        jf.Types[v] = _JsonType { Kind: vt.Kind.String(), Elem: vt.Elem.String(), Ndims: vt.Ndims }
    }

    /* blocks and instructions */
    for _, bb := range fn.Blocks() {
        jb := _JsonBlock { Id: bb.Id, Ins: make([]_JsonInstr, 0, len(bb.Ins)) }
        for _, ins := range bb.Ins {
            jb.Ins = append(jb.Ins, encodeInstr(ins))
        }
        jf.Blocks = append(jf.Blocks, jb)
    }
    return json.MarshalIndent(jf, "", "  ")
}

// UnmarshalFunction decodes a function body encoded by MarshalFunction.
func UnmarshalFunction(buf []byte) (*Function, error) {
    var jf _JsonFunction
    if err := json.Unmarshal(buf, &jf); err != nil {
        return nil, errors.Wrap(err, "decode function")
    }

    /* variable types */
    fn := NewFunction(jf.Name)
    for v, jt := range jf.Types {
        kind, ok := _TypeKinds[jt.Kind]
        if !ok {
            return nil, errors.Errorf("variable %s: invalid type kind %q", v, jt.Kind)
        }
        elem, ok := ParseElemType(jt.Elem)
        if !ok {
            return nil, errors.Errorf("variable %s: invalid element type %q", v, jt.Elem)
        }
        fn.Types[v] = VarType { Kind: kind, Elem: elem, Ndims: jt.Ndims }
    }

    /* blocks may come in any order and with gaps */
    sort.Slice(jf.Blocks, func(i int, j int) bool {
        return jf.Blocks[i].Id < jf.Blocks[j].Id
    })
    for i, jb := range jf.Blocks {
        if jb.Id < 0 {
            return nil, errors.Errorf("invalid block id %d", jb.Id)
        } else if i != 0 && jf.Blocks[i - 1].Id == jb.Id {
            return nil, errors.Errorf("duplicate block id %d", jb.Id)
        }
        for len(fn.blocks) <= jb.Id {
            fn.blocks = append(fn.blocks, nil)
        }
        bb := &Block { Id: jb.Id }
        for k, ji := range jb.Ins {
            ins, err := decodeInstr(ji)
            if err != nil {
                return nil, errors.Wrapf(err, "block #%d, instruction %d", jb.Id, k)
            }
            bb.Ins = append(bb.Ins, ins)
        }
        fn.blocks[jb.Id] = bb
    }

    /* the entry block always exists */
    if fn.blocks[0] == nil {
        fn.blocks[0] = &Block { Id: 0 }
    }

    /* control instructions must name existing blocks */
    for _, bb := range fn.Blocks() {
        for _, ins := range bb.Ins {
            refs := OwnedBlocks(ins)
            if e, ok := EndBlock(ins); ok {
                refs = append(refs, e)
            }
            for _, id := range refs {
                if fn.Block(id) == nil {
                    return nil, errors.Errorf("block #%d: %s refers to unknown block #%d", bb.Id, ins, id)
                }
            }
        }
    }
    return fn, nil
}

func encodeInstr(ins Instr) _JsonInstr {
    switch p := ins.(type) {
        case *ForLoop           : return _JsonInstr { Op: "for", Start: p.Start, Step: p.Step, End: p.End, Blocks: []int { p.LoopBlock }, EndBlock: p.EndBlockId }
        case *Branch            : return _JsonInstr { Op: "branch", Cond: p.Cond, Blocks: []int { p.TrueBlock, p.FalseBlock }, EndBlock: p.EndBlockId }
        case *Phi               : return _JsonInstr { Op: "phi", Output: p.Output, Inputs: p.Inputs, Sources: p.Sources }
        case *Iter              : return _JsonInstr { Op: "iter", Output: p.Output }
        case *Const             : return _JsonInstr { Op: "const", Output: p.Output, Value: p.Value }
        case *Assign            : return _JsonInstr { Op: "assign", Output: p.Output, Input: p.Input }
        case *MatrixGet         : return _JsonInstr { Op: "get", Output: p.Output, Matrix: p.Matrix, Indices: p.Indices }
        case *MatrixSet         : return _JsonInstr { Op: "set", Output: p.Output, Matrix: p.Matrix, Indices: p.Indices, Fill: p.Value }
        case *Call              : return _JsonInstr { Op: "call", Name: p.Name, Inputs: p.Inputs, Outputs: p.Outputs }
        case *CopyToDevice      : return _JsonInstr { Op: "copy_to_device", Output: p.Output, Input: p.Input }
        case *AllocateOnDevice  : return _JsonInstr { Op: "allocate_on_device", Output: p.Output, Input: p.Input }
        case *SetRange          : return _JsonInstr { Op: "set_range", Output: p.Output, Buffer: p.Buffer, Begin: p.Begin, End: p.End, Fill: p.Value }
        case *OverwriteOnDevice : return _JsonInstr { Op: "overwrite_on_device", Output: p.Output, Source: p.Source }
        case *Return            : return _JsonInstr { Op: "return", Inputs: p.Values }
        case *Generic           : return _JsonInstr { Op: "generic", Name: p.Op, Inputs: p.Inputs, Outputs: p.Outputs }
        case *InvokeKernel: {
            return _JsonInstr {
                Op         : "invoke",
                Name       : p.Kernel,
                Global     : p.GlobalSizes,
                Local      : p.LocalSizes,
                Inputs     : p.Arguments,
                Outputs    : p.Outputs,
                OutSources : p.OutputSources,
            }
        }
        case *CompleteReduction: {
            return _JsonInstr {
                Op      : "complete_reduction",
                Output  : p.Output,
                Kind    : p.Kind.String(),
                RedOp   : p.Op.Function(),
                Buffer  : p.Buffer,
                Elem    : p.Elem.String(),
                Groups  : p.GroupCount,
                Initial : p.Initial,
            }
        }
        default: {
            panic("unreachable")
        }
    }
}

func blockat(ji _JsonInstr, i int) (int, error) {
    if i >= len(ji.Blocks) {
        return 0, errors.Errorf("%s: missing owned block %d", ji.Op, i)
    } else {
        return ji.Blocks[i], nil
    }
}

func decodeInstr(ji _JsonInstr) (Instr, error) {
    switch ji.Op {
        case "phi": {
            if len(ji.Inputs) != len(ji.Sources) {
                return nil, errors.Errorf("phi %s: %d inputs but %d sources", ji.Output, len(ji.Inputs), len(ji.Sources))
            }
            return &Phi { Output: ji.Output, Inputs: ji.Inputs, Sources: ji.Sources }, nil
        }
        case "for": {
            lb, err := blockat(ji, 0)
            if err != nil {
                return nil, err
            }
            return &ForLoop { Start: ji.Start, Step: ji.Step, End: ji.End, LoopBlock: lb, EndBlockId: ji.EndBlock }, nil
        }
        case "branch": {
            if len(ji.Blocks) != 2 {
                return nil, errors.Errorf("branch: expected 2 owned blocks, got %d", len(ji.Blocks))
            }
            return &Branch { Cond: ji.Cond, TrueBlock: ji.Blocks[0], FalseBlock: ji.Blocks[1], EndBlockId: ji.EndBlock }, nil
        }
        case "complete_reduction": {
            kind, ok := _ReductionKinds[ji.Kind]
            if !ok {
                return nil, errors.Errorf("complete_reduction: invalid kind %q", ji.Kind)
            }
            elem, ok := ParseElemType(ji.Elem)
            if !ok {
                return nil, errors.Errorf("complete_reduction: invalid element type %q", ji.Elem)
            }
            return &CompleteReduction {
                Output     : ji.Output,
                Kind       : kind,
                Op         : ReductionOpOf(ji.RedOp),
                Buffer     : ji.Buffer,
                Elem       : elem,
                GroupCount : ji.Groups,
                Initial    : ji.Initial,
            }, nil
        }
        case "invoke": {
            if len(ji.Outputs) != len(ji.OutSources) {
                return nil, errors.Errorf("invoke %s: %d outputs but %d output sources", ji.Name, len(ji.Outputs), len(ji.OutSources))
            }
            seen := make(map[int]bool, len(ji.OutSources))
            for _, s := range ji.OutSources {
                if s < 0 || s >= len(ji.Inputs) {
                    return nil, errors.Errorf("invoke %s: output source %d out of range [0, %d)", ji.Name, s, len(ji.Inputs))
                } else if seen[s] {
                    return nil, errors.Errorf("invoke %s: duplicate output source %d", ji.Name, s)
                }
                seen[s] = true
            }
            return &InvokeKernel {
                Kernel        : ji.Name,
                GlobalSizes   : ji.Global,
                LocalSizes    : ji.Local,
                Arguments     : ji.Inputs,
                Outputs       : ji.Outputs,
                OutputSources : ji.OutSources,
            }, nil
        }
        case "iter"                : return &Iter { Output: ji.Output }, nil
        case "const"               : return &Const { Output: ji.Output, Value: ji.Value }, nil
        case "assign"              : return &Assign { Output: ji.Output, Input: ji.Input }, nil
        case "get"                 : return &MatrixGet { Output: ji.Output, Matrix: ji.Matrix, Indices: ji.Indices }, nil
        case "set"                 : return &MatrixSet { Output: ji.Output, Matrix: ji.Matrix, Indices: ji.Indices, Value: ji.Fill }, nil
        case "call"                : return &Call { Name: ji.Name, Inputs: ji.Inputs, Outputs: ji.Outputs }, nil
        case "copy_to_device"      : return &CopyToDevice { Output: ji.Output, Input: ji.Input }, nil
        case "allocate_on_device"  : return &AllocateOnDevice { Output: ji.Output, Input: ji.Input }, nil
        case "set_range"           : return &SetRange { Output: ji.Output, Buffer: ji.Buffer, Begin: ji.Begin, End: ji.End, Value: ji.Fill }, nil
        case "overwrite_on_device" : return &OverwriteOnDevice { Output: ji.Output, Source: ji.Source }, nil
        case "return"              : return &Return { Values: ji.Inputs }, nil
        case "generic"             : return &Generic { Op: ji.Name, Inputs: ji.Inputs, Outputs: ji.Outputs }, nil
        default                    : return nil, errors.Errorf("unknown instruction %q", ji.Op)
    }
}
