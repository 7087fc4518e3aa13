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

package reduction

import (
    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/samber/lo`
)

// Validator accepts or rejects one carried value of a nest. A validator
// only looks at the instructions defining and consuming the carried value.
type Validator func(nest *Nest, vars []loops.LoopVariable) (*Reduction, bool)

type ValidatorDescriptor struct {
    Name     string
    Validate Validator
}

// Validators are tried in order, the first one to accept wins.
var Validators = [...]ValidatorDescriptor {
    { Name: "Associative Reduction" , Validate: validateAssociative },
    { Name: "Matrix Set Reduction"  , Validate: validateMatrixSet },
}

// Classify turns the carried value of a nest, given as one LoopVariable per
// level, into a Reduction. A rejection is not an error: it only means that
// the nest must stay sequential.
func Classify(nest *Nest, vars []loops.LoopVariable) (*Reduction, bool) {
    if !windowed(nest, vars) {
        return nil, false
    }
    for _, v := range Validators {
        if r, ok := v.Validate(nest, vars); ok {
            return r, true
        }
    }
    return nil, false
}

func windowed(nest *Nest, vars []loops.LoopVariable) bool {
    n := len(vars)
    ud := nest.UD

    /* one variable per level, and every level must escape the loop */
    if n == 0 || n != len(nest.Loops) {
        return false
    }
    for _, v := range vars {
        if !v.HasAfterLoop() {
            return false
        }
    }

    /* the levels must chain into each other */
    for i := 1; i < n; i++ {
        if vars[i - 1].LoopStart != vars[i].BeforeLoop || vars[i].AfterLoop != vars[i - 1].LoopEnd {
            return false
        }
    }

    /* loop-start and loop-end values are used only in the recognized window */
    for i, v := range vars {
        head, _ := ud.Def(v.LoopStart)
        tail, _ := ud.Def(v.AfterLoop)

        /* the loop-end value only feeds the two Phi nodes of its level */
        if !usedOnlyAt(ud, v.LoopEnd, head, tail) {
            return false
        }

        /* the loop-start value feeds either the next level, or the single definition site */
        if i != n - 1 {
            nh, _ := ud.Def(vars[i + 1].LoopStart)
            nt, _ := ud.Def(vars[i + 1].AfterLoop)
            if !usedOnlyAt(ud, v.LoopStart, nh, nt) {
                return false
            }
        } else if d, ok := ud.Def(v.LoopEnd); !ok || len(ud.Uses(v.LoopStart)) == 0 || !usedOnlyAt(ud, v.LoopStart, d) {
            return false
        }
    }
    return true
}

func usedOnlyAt(ud *ssa.UseDef, v ssa.Var, at ...ssa.Location) bool {
    for _, u := range ud.Uses(v) {
        if !lo.Contains(at, u) {
            return false
        }
    }
    return true
}

func definition(nest *Nest, v ssa.Var) ssa.Instr {
    if l, ok := nest.UD.Def(v); !ok {
        return nil
    } else {
        return nest.Fn.At(l)
    }
}

func validateAssociative(nest *Nest, vars []loops.LoopVariable) (*Reduction, bool) {
    lv := vars[len(vars) - 1]
    vt, _ := nest.Fn.TypeOf(lv.BeforeLoop)

    /* only scalar accumulators */
    if vt.Kind != ssa.Scalar {
        return nil, false
    }

    /* loopEnd = op(loopStart, x) or op(x, loopStart) */
    p, ok := definition(nest, lv.LoopEnd).(*ssa.Call)
    if !ok || len(p.Inputs) != 2 || len(p.Outputs) != 1 {
        return nil, false
    }

    /* the operator must be commutative and associative */
    op := ssa.ReductionOpOf(p.Name)
    if op == ssa.OpNone {
        return nil, false
    }

    /* exactly one side is the carried value */
    if (p.Inputs[0] == lv.LoopStart) == (p.Inputs[1] == lv.LoopStart) {
        return nil, false
    }
    return newReduction(nest, vars, ssa.ReductionAssociative, op), true
}

func validateMatrixSet(nest *Nest, vars []loops.LoopVariable) (*Reduction, bool) {
    lv := vars[len(vars) - 1]
    vt, _ := nest.Fn.TypeOf(lv.BeforeLoop)

    /* only matrices can be written slice by slice */
    if vt.Kind != ssa.Matrix {
        return nil, false
    }

    /* loopEnd = set(loopStart, indices..., value) */
    p, ok := definition(nest, lv.LoopEnd).(*ssa.MatrixSet)
    if !ok || p.Matrix != lv.LoopStart || p.Value == lv.LoopStart {
        return nil, false
    }

    /* the indices are the iteration variables of every level, each exactly once */
    if len(p.Indices) != len(nest.Iters) || len(lo.Uniq(p.Indices)) != len(p.Indices) {
        return nil, false
    }
    for _, idx := range p.Indices {
        if !lo.Contains(nest.Iters, idx) {
            return nil, false
        }
    }
    return newReduction(nest, vars, ssa.ReductionMatrixSet, ssa.OpNone), true
}
