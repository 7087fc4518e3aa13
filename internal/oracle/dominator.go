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

package oracle

import (
    `sort`

    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

// DominatorTree maps every reachable block to its immediate dominator.
type DominatorTree struct {
    Root        int
    DominatedBy map[int]int
    DominatorOf map[int][]int
}

// BuildDominatorTree computes the dominators of the CFG with the semi-NCA
// Lengauer-Tarjan algorithm. Self edges never affect dominance, so the
// graph without them is enough.
func BuildDominatorTree(cfg *CFG) DominatorTree {
    ret := DominatorTree {
        Root        : cfg.Root,
        DominatedBy : make(map[int]int),
        DominatorOf : make(map[int][]int),
    }

    /* immediate dominators of the reachable blocks */
    dt := flow.DominatorsSLT(simple.Node(cfg.Root), cfg.Graph)
    for it := cfg.Graph.Nodes(); it.Next(); {
        id := it.Node().ID()
        if d := dt.DominatorOf(id); d != nil && id != int64(cfg.Root) {
            ret.DominatedBy[int(id)] = int(d.ID())
            ret.DominatorOf[int(d.ID())] = append(ret.DominatorOf[int(d.ID())], int(id))
        }
    }

    /* node iteration order is unspecified */
    for _, v := range ret.DominatorOf {
        sort.Ints(v)
    }
    return ret
}

// Dominates reports whether block a dominates block b. Every block
// dominates itself.
func (self DominatorTree) Dominates(a int, b int) bool {
    for {
        if a == b {
            return true
        } else if b == self.Root {
            return false
        } else if d, ok := self.DominatedBy[b]; !ok {
            return false
        } else {
            b = d
        }
    }
}
