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

package utils

import (
    `fmt`
)

// InvariantError occures when lowering finds a selected region that does not
// look the way the selector described it.
type InvariantError struct {
    Func   string
    Reason string
}

func (self InvariantError) Error() string {
    return fmt.Sprintf("InvariantError(%s): %s", self.Func, self.Reason)
}

// OptionError occures when an option is given an invalid value.
type OptionError struct {
    Option string
    Value  interface{}
    Reason string
}

func (self OptionError) Error() string {
    return fmt.Sprintf("OptionError(%s=%v): %s", self.Option, self.Value, self.Reason)
}

func EInvariant(fn string, format string, args ...interface{}) InvariantError {
    return InvariantError {
        Func   : fn,
        Reason : fmt.Sprintf(format, args...),
    }
}

func EOption(name string, value interface{}, reason string) OptionError {
    return OptionError {
        Option : name,
        Value  : value,
        Reason : reason,
    }
}
