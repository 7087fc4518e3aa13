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

// Package lowering replaces selected loop nests with kernel invocations and
// the host to device buffer traffic they need.
package lowering

import (
    `context`
    `fmt`
    `sync/atomic`

    `github.com/cloudwego/kernelize/internal/loops`
    `github.com/cloudwego/kernelize/internal/opts`
    `github.com/cloudwego/kernelize/internal/reduction`
    `github.com/cloudwego/kernelize/internal/region`
    `github.com/cloudwego/kernelize/internal/utils`
    `github.com/cloudwego/kernelize/ssa`
    `github.com/nikandfor/tlog`
    `github.com/samber/lo`
)

var (
    KernelCount uint64 = 0
)

type _Lowering struct {
    fn    *ssa.Function
    h     *loops.Hierarchy
    o     *opts.Options
    r     *region.Region
    k     *Kernel
    lps   []*loops.Loop
    nest  map[int]bool
    body  []ssa.Instr
    host  []ssa.Instr
    total ssa.Var
    group ssa.Var
}

// Lower replaces the loop nest of r with the instructions invoking a new
// kernel, and returns the kernel. Any disagreement between r and the
// function is reported as an InvariantError, in which case the function
// must be discarded.
func Lower(ctx context.Context, fn *ssa.Function, r *region.Region, o *opts.Options, serial int) (*Kernel, error) {
    tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower region", "func", fn.Name, "region", r.String())
    defer tr.Finish()

    /* locate the nest */
    self := &_Lowering { fn: fn, o: o, r: r, h: loops.Build(fn) }
    if err := self.locate(); err != nil {
        return nil, err
    }

    /* the kernel being built */
    self.k = &Kernel {
        Name   : fmt.Sprintf("%s_kernel%d", fn.Name, serial),
        Region : r,
        Types  : make(map[ssa.Var]ssa.VarType),
    }

    /* Phase 1: index space */
    if err := self.dims(); err != nil {
        return nil, err
    }
    self.sizes(tr)

    /* Phase 2: arguments */
    self.arguments()
    if err := self.bind(); err != nil {
        return nil, err
    }

    /* Phase 3: invocation and reductions */
    if err := self.invoke(); err != nil {
        return nil, err
    }

    /* Phase 4: replace the nest */
    self.rewrite()
    atomic.AddUint64(&KernelCount, 1)
    tr.Printw("lowered", "kernel", self.k.Name, "args", len(self.k.Arguments), "dims", len(self.k.Dims))
    return self.k, nil
}

func (self *_Lowering) invariant(format string, args ...interface{}) error {
    return utils.EInvariant(self.fn.Name, format, args...)
}

func (self *_Lowering) locate() error {
    for i, b := range self.r.Blocks {
        if lp, ok := self.h.Loops[b]; !ok {
            return self.invariant("no loop at block #%d", b)
        } else if i != 0 && lp.Parent != self.lps[i - 1] {
            return self.invariant("loop #%d is not nested in loop #%d", b, self.r.Blocks[i - 1])
        } else {
            self.lps = append(self.lps, lp)
        }
    }

    /* blocks and instructions of the nest, in program order */
    if len(self.lps) == 0 {
        return self.invariant("empty region")
    }
    self.nest = make(map[int]bool)
    for _, b := range self.h.Body(self.lps[0]) {
        self.nest[b] = true
        self.body = append(self.body, self.fn.Block(b).Ins...)
    }
    return self.check()
}

// check makes sure the reductions describe the values carried by the outer loop.
func (self *_Lowering) check() error {
    outer := self.lps[0]
    outs := make(map[ssa.Var]bool)

    /* every reduction starts at the outer header and ends after the loop */
    for _, r := range self.r.Reductions {
        if l, ok := self.h.UD.Def(r.Vars[0].LoopStart); !ok || l.Block != outer.Block {
            return self.invariant("reduction %s does not start at loop #%d", r, outer.Block)
        } else if l, ok = self.h.UD.Def(r.Output()); !ok || l.Block != outer.For.EndBlockId {
            return self.invariant("reduction %s is not defined after loop #%d", r, outer.Block)
        } else {
            outs[r.Output()] = true
        }
    }

    /* and nothing else leaves the loop */
    for _, p := range self.fn.Block(outer.For.EndBlockId).Phis() {
        if !outs[p.Output] {
            return self.invariant("value %s is carried by loop #%d but not reduced", p.Output, outer.Block)
        }
    }
    return nil
}

func (self *_Lowering) emit(ins ssa.Instr) {
    self.host = append(self.host, ins)
}

func (self *_Lowering) konst(hint string, value int) ssa.Var {
    ret := self.fn.NewVar(hint, ssa.ScalarOf(ssa.Int32))
    self.emit(&ssa.Const { Output: ret, Value: float64(value) })
    return ret
}

func (self *_Lowering) call(hint string, name string, in ...ssa.Var) ssa.Var {
    ret := self.fn.NewVar(hint, ssa.ScalarOf(ssa.Int32))
    self.emit(&ssa.Call { Name: name, Inputs: in, Outputs: []ssa.Var { ret } })
    return ret
}

func (self *_Lowering) dims() error {
    for i, lp := range self.lps {
        iter, ok := self.h.Iter(lp)
        if !ok {
            return self.invariant("loop #%d has no induction variable", lp.Block)
        }
        self.k.Dims = append(self.k.Dims, Dim {
            Iter     : iter,
            Start    : lp.For.Start,
            Step     : lp.For.Step,
            End      : lp.For.End,
            Schedule : self.o.ScheduleOf(i),
        })
    }
    return nil
}

func (self *_Lowering) sizes(tr tlog.Span) {
    n := len(self.k.Dims)
    one := self.konst("one", 1)

    /* cooperative schedules only make sense for a single dimension */
    for i := range self.k.Dims {
        if d := &self.k.Dims[i]; d.Schedule.IsCooperative() && n != 1 {
            tr.Printw("cooperative schedule needs exactly one dimension, using direct", "dim", i, "schedule", d.Schedule)
            d.Schedule = opts.Direct
        }
    }

    /* iteration count, group size and global size of every dimension */
    for i := range self.k.Dims {
        d := &self.k.Dims[i]
        local := 1
        if i == n - 1 {
            local = self.o.LocalSize
        }

        /* numIter = floor((end - start) / step) + 1 */
        span := self.call("span", "minus", d.End, d.Start)
        quot := self.call("quot", "rdivide", span, d.Step)
        d.NumIter = self.call("num_iter", "plus", self.call("floor", "floor", quot), one)
        d.Local = self.konst("local", local)

        /* work items needed by the schedule, rounded up to whole groups */
        switch {
            case d.Schedule.IsFixed(): {
                d.Global = self.konst("global", self.o.WorkGroups * local)
            }
            case d.Schedule.IsCoarse(): {
                tasks := self.call("tasks", "ceil", self.call("quot", "rdivide", d.NumIter, self.konst("factor", self.o.CoarseningFactor)))
                d.Global = self.roundUp(tasks, d.Local)
            }
            default: {
                d.Global = self.roundUp(d.NumIter, d.Local)
            }
        }
    }

    /* total number of work items, and number of groups for cooperative schedules */
    self.total = self.k.Dims[0].Global
    for _, d := range self.k.Dims[1:] {
        self.total = self.call("total", "times", self.total, d.Global)
    }
    if self.k.Dims[0].Schedule.IsCooperative() {
        self.group = self.call("groups", "rdivide", self.total, self.k.Dims[0].Local)
    }
}

func (self *_Lowering) roundUp(v ssa.Var, unit ssa.Var) ssa.Var {
    groups := self.call("groups", "ceil", self.call("quot", "rdivide", v, unit))
    return self.call("global", "times", groups, unit)
}

func (self *_Lowering) defined() map[ssa.Var]bool {
    ret := make(map[ssa.Var]bool)
    for _, ins := range self.body {
        for _, v := range ssa.Outputs(ins) {
            ret[v] = true
        }
    }
    return ret
}

// initialOnly reports whether v only enters the nest as the initial value of r.
func (self *_Lowering) initialOnly(v ssa.Var, r *reduction.Reduction) bool {
    head, _ := self.h.UD.Def(r.Vars[0].LoopStart)
    for _, u := range self.h.UD.Uses(v) {
        if self.nest[u.Block] && u != head {
            return false
        }
    }
    return true
}

func (self *_Lowering) arguments() {
    var free []ssa.Var
    seen := self.defined()
    initials := make(map[ssa.Var]*reduction.Reduction)
    dims := make(map[[2]interface{}]bool)

    /* reduction initial values are handled by the reduction arguments */
    for _, r := range self.r.Reductions {
        if self.initialOnly(r.Initial(), r) {
            initials[r.Initial()] = r
        }
    }

    /* loop bounds first, then the free variables of the body */
    for _, d := range self.k.Dims {
        free = append(free, d.Start, d.Step, d.End)
    }
    for _, ins := range self.body {
        free = append(free, ssa.Inputs(ins)...)
    }

    /* imported values */
    for _, v := range free {
        if seen[v] {
            continue
        }
        seen[v] = true
        if _, ok := initials[v]; ok {
            continue
        }
        vt, _ := self.fn.TypeOf(v)
        if vt.Kind == ssa.Matrix {
            self.add(&KernelArgument { Role: ImportedData, Variable: v, ReadOnly: true, Elem: vt.Elem })
        } else {
            self.add(&KernelArgument { Role: ImportedValue, Variable: v, ReadOnly: true, Elem: vt.Elem })
        }
    }

    /* size queries on imported arrays */
    for _, ins := range self.body {
        if p, ok := ins.(*ssa.Call); ok && len(p.Inputs) != 0 && self.imported(p.Inputs[0]) {
            switch {
                case p.Name == "numel" && len(p.Inputs) == 1 && !dims[[2]interface{} { p.Inputs[0], -1 }]: {
                    dims[[2]interface{} { p.Inputs[0], -1 }] = true
                    self.add(&KernelArgument { Role: ImportedNumel, Variable: p.Inputs[0], ReadOnly: true, Elem: ssa.Int32 })
                }
                case p.Name == "size" && len(p.Inputs) == 2: {
                    if c, ok := self.constant(p.Inputs[1]); ok && !dims[[2]interface{} { p.Inputs[0], c }] {
                        dims[[2]interface{} { p.Inputs[0], c }] = true
                        self.add(&KernelArgument { Role: ImportedDim, Dim: c, Variable: p.Inputs[0], ReadOnly: true, Elem: ssa.Int32 })
                    }
                }
            }
        }
    }

    /* iteration counts */
    for i, d := range self.k.Dims {
        self.add(&KernelArgument { Role: NumTasks, Dim: i, Variable: d.NumIter, ReadOnly: true, Elem: ssa.Int32 })
    }

    /* reduction targets */
    for _, r := range self.r.Reductions {
        switch {
            case r.Kind == ssa.ReductionMatrixSet: {
                if initials[r.Initial()] == r {
                    self.add(&KernelArgument { Role: ImportedData, Variable: r.Initial(), Reduction: r.Output(), Elem: r.Elem })
                }
            }
            case self.k.Dims[0].Schedule.IsCooperative(): {
                self.add(&KernelArgument { Role: LocalReductionBuffer, Variable: r.Output(), Reduction: r.Output(), Elem: r.Elem })
                self.add(&KernelArgument { Role: GlobalPerGroupBuffer, Variable: r.Output(), Reduction: r.Output(), Elem: r.Elem })
            }
            default: {
                self.add(&KernelArgument { Role: GlobalPerItemBuffer, Variable: r.Output(), Reduction: r.Output(), Elem: r.Elem })
            }
        }
    }
}

func (self *_Lowering) add(arg *KernelArgument) {
    self.k.Arguments = append(self.k.Arguments, arg)
}

func (self *_Lowering) imported(v ssa.Var) bool {
    return lo.ContainsBy(self.k.Arguments, func(a *KernelArgument) bool { return a.Role == ImportedData && a.Variable == v })
}

func (self *_Lowering) constant(v ssa.Var) (int, bool) {
    if l, ok := self.h.UD.Def(v); !ok {
        return 0, false
    } else if p, ok := self.fn.At(l).(*ssa.Const); !ok {
        return 0, false
    } else {
        return int(p.Value), true
    }
}

// private reports whether the array behind a is only used by the nest, so
// that the kernel may access it in place.
func (self *_Lowering) private(a *KernelArgument) bool {
    if a.ReadOnly {
        return true
    }

    /* the after-loop Phi node is removed along with the loop */
    after, _ := self.h.UD.Def(a.Reduction)
    for _, u := range self.h.UD.Uses(a.Variable) {
        if !self.nest[u.Block] && u != after {
            return false
        }
    }
    return true
}

func (self *_Lowering) predictor() *Predictor {
    alias := make(map[ssa.Var]ssa.Var)
    for _, r := range self.r.Reductions {
        for v := range r.Names {
            alias[v] = r.Initial()
        }
    }
    return Predict(self.body, lo.Map(self.k.Dims, func(d Dim, _ int) ssa.Var { return d.Iter }), alias)
}

func (self *_Lowering) bind() error {
    pred := self.predictor()
    shared := self.o.MemoryStrategy == opts.FineGrainedBuffers

    /* compute or transfer every argument */
    for _, a := range self.k.Arguments {
        switch a.Role {
            case ImportedData: {
                if shared && pred.Safe(a.Variable, self.o) && self.private(a) {
                    a.Binding = a.Variable
                } else {
                    a.Binding = self.fn.NewVar("buf", ssa.BufferOf(a.Elem))
                    self.emit(&ssa.CopyToDevice { Output: a.Binding, Input: a.Variable })
                }
            }
            case ImportedNumel: {
                a.Binding = self.call("numel", "numel", a.Variable)
            }
            case ImportedDim: {
                a.Binding = self.call("dim", "size", a.Variable, self.konst("axis", a.Dim))
            }
            case ImportedValue, NumTasks: {
                a.Binding = a.Variable
            }
            case GlobalPerItemBuffer: {
                a.Binding = self.fn.NewVar("partial", ssa.BufferOf(a.Elem))
                self.emit(&ssa.AllocateOnDevice { Output: a.Binding, Input: self.total })
            }
            case GlobalPerGroupBuffer: {
                a.Binding = self.fn.NewVar("partial", ssa.BufferOf(a.Elem))
                self.emit(&ssa.AllocateOnDevice { Output: a.Binding, Input: self.group })
            }
            case LocalReductionBuffer: {
                a.Binding = self.k.Dims[0].Local
            }
            default: {
                return self.invariant("unknown argument role %s", a.Role)
            }
        }
    }
    return nil
}

func (self *_Lowering) invoke() error {
    p := &ssa.InvokeKernel { Kernel: self.k.Name }
    done := make(map[ssa.Var]bool)

    /* index space */
    for _, d := range self.k.Dims {
        p.GlobalSizes = append(p.GlobalSizes, d.Global)
        p.LocalSizes = append(p.LocalSizes, d.Local)
    }

    /* arguments, and the buffers the kernel writes */
    for i, a := range self.k.Arguments {
        p.Arguments = append(p.Arguments, a.Binding)
        if a.ReadOnly || a.Role == LocalReductionBuffer {
            continue
        }

        /* a shared host array is the final value itself */
        if a.Binding == a.Variable {
            p.Outputs = append(p.Outputs, a.Reduction)
            done[a.Reduction] = true
        } else {
            p.Outputs = append(p.Outputs, self.fn.NewVar("result", ssa.BufferOf(a.Elem)))
        }
        p.OutputSources = append(p.OutputSources, i)
    }

    /* materialize every reduction */
    self.emit(p)
    for _, r := range self.r.Reductions {
        if done[r.Output()] {
            continue
        }

        /* selection and lowering must agree on the reduction arguments */
        a, ok := self.k.Argument(r.Output())
        if !ok {
            return self.invariant("reduction %s has no matching kernel argument", r.Output())
        }

        /* the buffer written by the kernel */
        buf, _ := p.OutputOf(lo.IndexOf(self.k.Arguments, a))
        cr := &ssa.CompleteReduction {
            Output  : r.Output(),
            Kind    : r.Kind,
            Op      : r.Op,
            Buffer  : buf,
            Elem    : r.Elem,
            Initial : r.Initial(),
        }

        /* group count for associative reductions */
        switch a.Role {
            case GlobalPerItemBuffer  : cr.GroupCount = self.total
            case GlobalPerGroupBuffer : cr.GroupCount = self.group
        }
        self.emit(cr)
    }
    return nil
}

func (self *_Lowering) rewrite() {
    outer := self.lps[0]
    head := outer.Header
    end := outer.For.EndBlockId
    outs := lo.SliceToMap(self.r.Reductions, func(r *reduction.Reduction) (ssa.Var, bool) { return r.Output(), true })

    /* keep a copy of the kernel body for the back end */
    for _, ins := range self.body {
        self.k.Body = append(self.k.Body, ssa.CloneInstr(ins))
        for _, v := range ssa.Outputs(ins) {
            self.k.Types[v] = self.fn.Types[v]
        }
    }
    for _, a := range self.k.Arguments {
        self.k.Types[a.Variable] = self.fn.Types[a.Variable]
    }

    /* the after-loop Phi nodes are redefined by the reductions */
    eb := self.fn.Block(end)
    eb.Ins = lo.Filter(eb.Ins, func(ins ssa.Instr, _ int) bool {
        p, ok := ins.(*ssa.Phi)
        return !ok || !outs[p.Output]
    })

    /* replace the loop, and merge the end block into the enclosing block */
    self.fn.Replace(head, self.host...)
    bb := self.fn.Block(head.Block)
    bb.Ins = append(bb.Ins, eb.Ins...)
    self.fn.RenameBlockRefs(end, head.Block)

    /* drop the nest and everything it defined */
    for b := range self.nest {
        self.fn.RemoveBlock(b)
    }
    self.fn.RemoveBlock(end)
    for v := range self.defined() {
        if !outs[v] {
            delete(self.fn.Types, v)
        }
    }
}
