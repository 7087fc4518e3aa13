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

package kernelize

import (
    `github.com/cloudwego/kernelize/internal/utils`
)

// InvariantError occures when a selected loop nest does not match what the
// compiler expected while lowering it. The function being compiled is left
// in an undefined state and must be discarded.
type InvariantError = utils.InvariantError

// OptionError occures when an Option is given an invalid value. Option
// setters panic with it.
type OptionError = utils.OptionError
