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

package region

import (
    `github.com/cloudwego/kernelize/ssa`
    `github.com/oleiade/lane`
)

// CalleeLookup resolves a user-defined function called from a loop body.
type CalleeLookup func(name string) (*ssa.Function, bool)

// PureBuiltins are the builtin functions a kernel body may call.
var PureBuiltins = map[string]bool {
    "plus"    : true,
    "minus"   : true,
    "times"   : true,
    "rdivide" : true,
    "mod"     : true,
    "floor"   : true,
    "ceil"    : true,
    "abs"     : true,
    "sqrt"    : true,
    "exp"     : true,
    "log"     : true,
    "sin"     : true,
    "cos"     : true,
    "min"     : true,
    "max"     : true,
    "lt"      : true,
    "le"      : true,
    "gt"      : true,
    "ge"      : true,
    "eq"      : true,
    "ne"      : true,
    "and"     : true,
    "or"      : true,
    "not"     : true,
    "numel"   : true,
    "size"    : true,
    "length"  : true,
    "ndims"   : true,
}

type _Whitelist struct {
    callees CalleeLookup
    checked map[string]bool
}

func newWhitelist(callees CalleeLookup) *_Whitelist {
    return &_Whitelist {
        callees : callees,
        checked : make(map[string]bool),
    }
}

// allowed reports whether ins may appear in a kernel body.
func (self *_Whitelist) allowed(ins ssa.Instr) bool {
    switch p := ins.(type) {
        case *ssa.Phi       : return true
        case *ssa.Iter      : return true
        case *ssa.Const     : return true
        case *ssa.Assign    : return true
        case *ssa.MatrixGet : return true
        case *ssa.MatrixSet : return true
        case *ssa.ForLoop   : return true
        case *ssa.Branch    : return true
        case *ssa.Call      : return self.call(p.Name)
        default             : return false
    }
}

// pure reports whether ins may be evaluated redundantly by every work item.
func (self *_Whitelist) pure(ins ssa.Instr) bool {
    switch p := ins.(type) {
        case *ssa.Phi       : return true
        case *ssa.Iter      : return true
        case *ssa.Const     : return true
        case *ssa.Assign    : return true
        case *ssa.MatrixGet : return true
        case *ssa.Call      : return self.call(p.Name)
        default             : return false
    }
}

func (self *_Whitelist) call(name string) bool {
    if PureBuiltins[name] {
        return true
    } else if ok, hit := self.checked[name]; hit {
        return ok
    } else {
        ok = self.callee(name)
        self.checked[name] = ok
        return ok
    }
}

type _Frame struct {
    name string
    exit bool
}

// callee checks a user function and every function it calls transitively.
// Recursive call chains are rejected.
func (self *_Whitelist) callee(name string) bool {
    if self.callees == nil {
        return false
    }

    /* depth-first over the call graph, path holds the current call chain */
    st := lane.NewStack()
    path := make(map[string]bool)
    done := make(map[string]bool)
    st.Push(_Frame { name: name })

    /* every reachable callee must obey the whitelist */
    for !st.Empty() {
        f := st.Pop().(_Frame)

        /* leaving a callee */
        if f.exit {
            path[f.name] = false
            done[f.name] = true
            continue
        }

        /* already checked through another call site */
        if done[f.name] {
            continue
        }

        /* resolve the callee */
        fn, ok := self.callees(f.name)
        if !ok {
            return false
        }

        /* scan the body, collecting the calls */
        var calls []string
        ret := true
        fn.Walk(func(_ ssa.Location, ins ssa.Instr) bool {
            switch p := ins.(type) {
                case *ssa.Return    : break
                case *ssa.MatrixSet : ret = false
                case *ssa.Call      : if !PureBuiltins[p.Name] { calls = append(calls, p.Name) }
                default             : ret = self.allowed(ins)
            }
            return ret
        })

        /* reject the whole call chain */
        if !ret {
            return false
        }

        /* descend into the callees */
        path[f.name] = true
        st.Push(_Frame { name: f.name, exit: true })
        for _, c := range calls {
            if path[c] {
                return false
            } else if !done[c] {
                st.Push(_Frame { name: c })
            }
        }
    }
    return true
}
