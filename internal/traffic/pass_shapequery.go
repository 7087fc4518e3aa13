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

package traffic

import (
    `github.com/cloudwego/kernelize/internal/oracle`
    `github.com/cloudwego/kernelize/ssa`
)

var _ShapeQueries = map[string]bool {
    "size"   : true,
    "numel"  : true,
    "length" : true,
    "ndims"  : true,
}

// ShapeQuery redirects size-only queries on the result of a matrix-set
// reduction to its initial value, which has the same shape.
type ShapeQuery struct{}

func (ShapeQuery) Apply(c *Context, fn *ssa.Function) bool {
    ret := false
    o := oracle.New(fn)

    /* find every query on a reduction result */
    fn.Walk(func(l ssa.Location, ins ssa.Instr) bool {
        p, ok := ins.(*ssa.Call)
        if !ok || !_ShapeQueries[p.Name] || len(p.Inputs) == 0 {
            return true
        }

        /* the queried matrix must come out of a matrix-set reduction */
        d, ok := o.UD.Def(p.Inputs[0])
        if !ok {
            return true
        }
        cr, ok := fn.At(d).(*ssa.CompleteReduction)
        if !ok || cr.Kind != ssa.ReductionMatrixSet || !o.SameShape(cr.Output, cr.Initial) {
            return true
        }

        /* query the initial value instead */
        p.Inputs[0] = cr.Initial
        c.Span.V("traffic").Printw("redirected shape query", "query", p.Name, "from", cr.Output, "to", cr.Initial)
        ret = true
        return true
    })
    return ret
}
