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
    `github.com/cloudwego/kernelize/internal/opts`
    `github.com/cloudwego/kernelize/ssa`
)

// Predictor guesses how a kernel body accesses the arrays it imports, in
// order to decide whether they can be shared with the host in place.
type Predictor struct {
    Sequential map[ssa.Var]bool
    Coalesced  map[ssa.Var]bool
}

// Predict scans the kernel body. Arrays indexed by anything not derived
// from an iteration variable are blacklisted as non-sequential, arrays whose
// first index is not the innermost iteration variable as non-coalesced.
// Names in alias are reported under the array they stand for.
func Predict(body []ssa.Instr, iters []ssa.Var, alias map[ssa.Var]ssa.Var) *Predictor {
    ret := &Predictor {
        Sequential : make(map[ssa.Var]bool),
        Coalesced  : make(map[ssa.Var]bool),
    }

    /* values derived from the iteration variables */
    derived := make(map[ssa.Var]bool, len(iters))
    for _, v := range iters {
        derived[v] = true
    }

    /* the body is in program order, so a single pass reaches every definition
     * except loop-carried ones, which are not indices anyway */
    for _, ins := range body {
        switch ins.(type) {
            case *ssa.Call, *ssa.Assign, *ssa.Phi: {
                for _, v := range ssa.Inputs(ins) {
                    if derived[v] {
                        for _, d := range ssa.Outputs(ins) {
                            derived[d] = true
                        }
                        break
                    }
                }
            }
        }
    }

    /* classify every array access */
    for _, ins := range body {
        switch p := ins.(type) {
            case *ssa.MatrixGet : ret.access(p.Matrix, p.Indices, derived, iters, alias)
            case *ssa.MatrixSet : ret.access(p.Matrix, p.Indices, derived, iters, alias)
        }
    }
    return ret
}

func (self *Predictor) access(m ssa.Var, idx []ssa.Var, derived map[ssa.Var]bool, iters []ssa.Var, alias map[ssa.Var]ssa.Var) {
    if a, ok := alias[m]; ok {
        m = a
    }

    /* every index must follow the iteration space */
    for _, v := range idx {
        if !derived[v] {
            self.Sequential[m] = true
        }
    }

    /* neighbouring work items must touch neighbouring elements */
    if len(idx) == 0 || len(iters) == 0 || idx[0] != iters[len(iters) - 1] {
        self.Coalesced[m] = true
    }
}

// Safe reports whether m may be accessed in place by the kernel under the
// given restrictions.
func (self *Predictor) Safe(m ssa.Var, o *opts.Options) bool {
    if o.RestrictSequential && self.Sequential[m] {
        return false
    } else if o.RestrictCoalesced && self.Coalesced[m] {
        return false
    } else {
        return true
    }
}
