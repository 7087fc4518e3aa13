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

// Package traffic removes redundant host to device transfers from functions
// that invoke kernels.
package traffic

import (
    `context`

    `github.com/cloudwego/kernelize/internal/opts`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/nikandfor/tlog`
)

var (
    RemovedCount uint64 = 0
    HoistedCount uint64 = 0
)

// Context is shared by every pass working on the same function.
type Context struct {
    Options *opts.Options
    Span    tlog.Span
}

// Pass performs at most a bounded amount of rewriting on fn, and reports
// whether anything changed. A pass is applied repeatedly until it stops
// reporting progress.
type Pass interface {
    Apply(*Context, *ssa.Function) bool
}

type PassDescriptor struct {
    Pass Pass
    Name string
    Desc string
}

var Passes = [...]PassDescriptor {
    { Name: "TransferElim"     , Desc: "Redundant Transfer Elimination"  , Pass: new(TransferElim) },
    { Name: "FillElim"         , Desc: "Constant Fill Elimination"       , Pass: new(FillElim) },
    { Name: "TransferHoist"    , Desc: "Loop Invariant Transfer Hoisting", Pass: new(TransferHoist) },
    { Name: "LoopChurnElim"    , Desc: "Loop Buffer Churn Elimination"   , Pass: new(LoopChurnElim) },
    { Name: "ShapeQuery"       , Desc: "Shape Query Redirection"         , Pass: new(ShapeQuery) },
    { Name: "SvmCopyElim"      , Desc: "Shared Memory Copy Elimination"  , Pass: new(SvmCopyElim) },
    { Name: "SvmChainElim"     , Desc: "Shared Memory Chain Elimination" , Pass: new(SvmChainElim) },
    { Name: "DeadTransferElim" , Desc: "Dead Transfer Elimination"       , Pass: new(DeadTransferElim) },
}

// Optimize runs every pass to its own fixed point, and repeats the whole
// group until none of them makes progress.
func Optimize(ctx context.Context, fn *ssa.Function, o *opts.Options) {
    tr, _ := tlog.SpawnFromContextAndWrap(ctx, "optimize transfers", "func", fn.Name)
    defer tr.Finish()

    /* passes skipped for this function */
    c := &Context { Options: o, Span: tr }
    skip := make([]bool, len(Passes))
    for i, p := range Passes {
        if skip[i] = o.Skips(fn.Name, p.Name); skip[i] {
            tr.Printw("skipping pass", "pass", p.Name)
        }
    }

    /* run until quiet */
    for round, changed := 0, true; changed; round++ {
        changed = false
        for i, p := range Passes {
            if !skip[i] {
                for n := 0; p.Pass.Apply(c, fn); n++ {
                    tr.V("traffic").Printw("pass made progress", "round", round, "pass", p.Name, "n", n)
                    changed = true
                }
            }
        }
    }

    /* dump the result if asked to */
    if tr.If("dump_traffic") {
        tr.Printw("optimized", "func", fn.String())
    }
}
