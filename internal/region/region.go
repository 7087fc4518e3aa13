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

// Package region selects the loop nests that are offloaded to the device.
package region

import (
    `context`
    `fmt`
    `strings`

    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/internal/reduction`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/nikandfor/tlog`
    `github.com/samber/lo`
)

// Region is a selected loop nest: one loop block per kernel dimension,
// outermost first, together with the reductions it computes.
type Region struct {
    Blocks     []int
    Reductions []*reduction.Reduction
}

func (self *Region) Dims() int {
    return len(self.Blocks)
}

func (self *Region) String() string {
    return fmt.Sprintf("region %s (%d reductions)", nestKey(self.Blocks), len(self.Reductions))
}

type Config struct {
    MaxDims int
    Callees CalleeLookup
}

type _Selector struct {
    cfg     Config
    wl      *_Whitelist
    h       *loops.Hierarchy
    visited map[string]bool
    nests   [][]*loops.Loop
}

func nestKey(blocks []int) string {
    return "[" + strings.Join(lo.Map(blocks, func(b int, _ int) string { return fmt.Sprintf("#%d", b) }), ", ") + "]"
}

func blocksOf(nest []*loops.Loop) []int {
    return lo.Map(nest, func(lp *loops.Loop, _ int) int { return lp.Block })
}

// Select explores every loop nest of the function, and greedily picks a
// non-overlapping set of offloadable nests. Loops that cannot be proven
// offloadable are simply not selected.
func Select(ctx context.Context, fn *ssa.Function, cfg Config) []*Region {
    tr, _ := tlog.SpawnFromContextAndWrap(ctx, "select regions", "func", fn.Name)
    defer tr.Finish()

    /* explore from every loop, in program order */
    sel := &_Selector {
        cfg     : cfg,
        wl      : newWhitelist(cfg.Callees),
        h       : loops.Build(fn),
        visited : make(map[string]bool),
    }
    for _, lp := range sel.h.Order {
        sel.explore([]*loops.Loop { lp })
    }

    /* greedy selection in discovery order */
    var ret []*Region
    var heads []*loops.Loop
    for _, nest := range sel.nests {
        key := nestKey(blocksOf(nest))

        /* never overlap with an accepted region */
        if lo.ContainsBy(heads, func(h *loops.Loop) bool { return h.Contains(nest[0]) || nest[0].Contains(h) }) {
            tr.V("region").Printw("overlapping nest", "nest", key)
            continue
        }

        /* validate and classify */
        rs, why := sel.validate(nest)
        if why != "" {
            tr.V("region").Printw("rejected nest", "nest", key, "reason", why)
            continue
        }

        /* accepted */
        tr.Printw("accepted nest", "nest", key, "reductions", len(rs))
        heads = append(heads, nest[0])
        ret = append(ret, &Region { Blocks: blocksOf(nest), Reductions: rs })
    }
    return ret
}

// explore records nests depth-first: ancestors first, then the nest
// extended outwards and inwards, then the nest itself.
func (self *_Selector) explore(nest []*loops.Loop) {
    key := nestKey(blocksOf(nest))
    if self.visited[key] {
        return
    }

    /* memoize, and prune nests with too many dimensions */
    self.visited[key] = true
    if len(nest) > self.cfg.MaxDims {
        return
    }

    /* outer loops take precedence */
    head, tail := nest[0], nest[len(nest) - 1]
    if head.Parent != nil {
        self.explore([]*loops.Loop { head.Parent })
        self.explore(append([]*loops.Loop { head.Parent }, nest...))
    }

    /* extend with every direct child */
    for _, c := range tail.Children {
        self.explore(append(append(make([]*loops.Loop, 0, len(nest) + 1), nest...), c))
    }

    /* the nest itself comes after all its extensions */
    self.nests = append(self.nests, nest)
}
