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
    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/internal/oracle`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/samber/lo`
    `golang.org/x/exp/slices`
)

// readOnly reports whether b is only ever passed to kernels that do not
// write it.
func readOnly(o *oracle.Oracle, b ssa.Var) bool {
    uses := o.UD.Uses(b)
    for _, u := range uses {
        if p, ok := o.Fn.At(u).(*ssa.InvokeKernel); !ok || oracle.Mutates(p, b) {
            return false
        }
    }
    return len(uses) != 0
}

// enclosing returns the loops whose body contains block id, outermost first.
func enclosing(h *loops.Hierarchy, id int) []*loops.Loop {
    ret := lo.Filter(h.Order, func(lp *loops.Loop, _ int) bool { return lo.Contains(h.Body(lp), id) })
    slices.SortFunc(ret, func(a *loops.Loop, b *loops.Loop) bool { return a.Depth < b.Depth })
    return ret
}

// definedOutside reports whether v is available before entering lp.
func definedOutside(o *oracle.Oracle, h *loops.Hierarchy, v ssa.Var, lp *loops.Loop) bool {
    if d, ok := o.UD.Def(v); !ok {
        return true
    } else {
        return !lo.Contains(h.Body(lp), d.Block) && o.Covers(d, lp.Header)
    }
}

// mutatedIn reports whether v or any name sharing its storage is written
// inside blocks.
func mutatedIn(o *oracle.Oracle, v ssa.Var, blocks []int) bool {
    return lo.ContainsBy(o.Aliases(v), func(a ssa.Var) bool { return o.IsMutatedIn(a, blocks) })
}

// inLoop reports whether block id is part of any loop body.
func inLoop(h *loops.Hierarchy, id int) bool {
    return len(enclosing(h, id)) != 0
}
