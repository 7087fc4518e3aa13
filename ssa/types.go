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
)

// Var is the name of an SSA variable. Every variable has exactly one
// defining instruction within a Function.
type Var string

func (self Var) String() string {
    return "$" + string(self)
}

type ElemType uint8

const (
    Bool ElemType = iota
    Int32
    Int64
    Float32
    Float64
)

var _ElemNames = [...]string {
    Bool    : "bool",
    Int32   : "int32",
    Int64   : "int64",
    Float32 : "float",
    Float64 : "double",
}

func (self ElemType) String() string {
    if int(self) < len(_ElemNames) {
        return _ElemNames[self]
    } else {
        return fmt.Sprintf("ElemType(%d)", self)
    }
}

func ParseElemType(s string) (ElemType, bool) {
    for i, v := range _ElemNames {
        if v == s {
            return ElemType(i), true
        }
    }
    return 0, false
}

type TypeKind uint8

const (
    Scalar TypeKind = iota
    Matrix
    Buffer
)

func (self TypeKind) String() string {
    switch self {
        case Scalar : return "scalar"
        case Matrix : return "matrix"
        case Buffer : return "buffer"
        default     : return fmt.Sprintf("TypeKind(%d)", self)
    }
}

// VarType describes a variable. Buffer is the device-residency tag: a
// buffer-typed variable names a device allocation, everything else is
// host-visible.
type VarType struct {
    Kind  TypeKind
    Elem  ElemType
    Ndims int
}

func ScalarOf(elem ElemType) VarType {
    return VarType { Kind: Scalar, Elem: elem }
}

func MatrixOf(elem ElemType, ndims int) VarType {
    return VarType { Kind: Matrix, Elem: elem, Ndims: ndims }
}

func BufferOf(elem ElemType) VarType {
    return VarType { Kind: Buffer, Elem: elem }
}

func (self VarType) IsDevice() bool {
    return self.Kind == Buffer
}

func (self VarType) String() string {
    switch self.Kind {
        case Scalar : return self.Elem.String()
        case Matrix : return fmt.Sprintf("matrix<%s,%d>", self.Elem, self.Ndims)
        case Buffer : return fmt.Sprintf("buffer<%s>", self.Elem)
        default     : return self.Kind.String()
    }
}

// ReductionKind enumerates the accumulation shapes a loop-carried value may
// take in order to be computed by a device kernel.
type ReductionKind uint8

const (
    ReductionAssociative ReductionKind = iota
    ReductionMatrixSet
)

func (self ReductionKind) String() string {
    switch self {
        case ReductionAssociative : return "associative"
        case ReductionMatrixSet   : return "matrix_set"
        default                   : return fmt.Sprintf("ReductionKind(%d)", self)
    }
}

// ReductionOp is the combining operator of an associative reduction.
type ReductionOp uint8

const (
    OpNone ReductionOp = iota
    OpAdd
    OpMul
    OpMin
    OpMax
)

var _OpFunctions = [...]string {
    OpNone : "",
    OpAdd  : "plus",
    OpMul  : "times",
    OpMin  : "min",
    OpMax  : "max",
}

// Function returns the builtin function implementing the operator.
func (self ReductionOp) Function() string {
    if int(self) < len(_OpFunctions) {
        return _OpFunctions[self]
    } else {
        return ""
    }
}

func (self ReductionOp) String() string {
    if self == OpNone {
        return "none"
    } else {
        return self.Function()
    }
}

// ReductionOpOf maps a builtin function name to its reduction operator.
func ReductionOpOf(name string) ReductionOp {
    for i, v := range _OpFunctions {
        if i != int(OpNone) && v == name {
            return ReductionOp(i)
        }
    }
    return OpNone
}
