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

    `github.com/cloudwego/kernelize/ssa`
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/traverse`
)

// CFG is the control-flow graph derived from the structured blocks. Self
// edges are kept aside since simple graphs cannot hold them.
type CFG struct {
    Graph *simple.DirectedGraph
    Root  int
    self  map[int]bool
    reach map[int]map[int]bool
}

func BuildCFG(fn *ssa.Function) *CFG {
    cfg := &CFG {
        Graph : simple.NewDirectedGraph(),
        self  : make(map[int]bool),
        reach : make(map[int]map[int]bool),
    }

    /* every live block is a node */
    for _, bb := range fn.Blocks() {
        cfg.Graph.AddNode(simple.Node(bb.Id))
    }

    /* edges out of every control instruction */
    for _, bb := range fn.Blocks() {
        if c, ok := bb.Control(); ok {
            switch p := c.(type) {
                case *ssa.ForLoop: {
                    tail := fn.Tail(p.LoopBlock)
                    cfg.edge(bb.Id, p.LoopBlock)
                    cfg.edge(bb.Id, p.EndBlockId)
                    cfg.edge(tail, p.LoopBlock)
                    cfg.edge(tail, p.EndBlockId)
                }
                case *ssa.Branch: {
                    cfg.edge(bb.Id, p.TrueBlock)
                    cfg.edge(bb.Id, p.FalseBlock)
                    cfg.edge(fn.Tail(p.TrueBlock), p.EndBlockId)
                    cfg.edge(fn.Tail(p.FalseBlock), p.EndBlockId)
                }
            }
        }
    }
    return cfg
}

func (self *CFG) edge(from int, to int) {
    if from == to {
        self.self[from] = true
    } else if self.Graph.Node(int64(from)) != nil && self.Graph.Node(int64(to)) != nil {
        self.Graph.SetEdge(self.Graph.NewEdge(simple.Node(from), simple.Node(to)))
    }
}

// Successors returns the successors of a block, ordered by id.
func (self *CFG) Successors(id int) []int {
    var ret []int
    if self.self[id] {
        ret = append(ret, id)
    }
    for it := self.Graph.From(int64(id)); it.Next(); {
        ret = append(ret, int(it.Node().ID()))
    }
    sort.Ints(ret)
    return ret
}

// Reachable reports whether control can flow from the end of block from to
// the start of block to, following at least one edge.
func (self *CFG) Reachable(from int, to int) bool {
    if m, ok := self.reach[from]; ok {
        return m[to]
    }

    /* depth-first walk from every successor */
    m := make(map[int]bool)
    dfs := traverse.DepthFirst {
        Visit: func(n graph.Node) { m[int(n.ID())] = true },
    }
    for _, s := range self.Successors(from) {
        if !m[s] {
            dfs.Walk(self.Graph, simple.Node(s), nil)
        }
    }

    /* memoize for the lifetime of the oracle */
    self.reach[from] = m
    return m[to]
}
