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

// Package kernelize finds loop nests that can run as data-parallel device
// kernels, replaces them with kernel invocations, and removes the
// host/device transfers that are not needed.
package kernelize

import (
	"context"

	"github.com/nikandfor/tlog"
	"github.com/pkg/errors"

	"github.com/cloudwego/kernelize/internal/lowering"
	"github.com/cloudwego/kernelize/internal/opts"
	"github.com/cloudwego/kernelize/internal/region"
	"github.com/cloudwego/kernelize/internal/traffic"
	"github.com/cloudwego/kernelize/ssa"
)

type (
	Kernel         = lowering.Kernel
	KernelArgument = lowering.KernelArgument
	Region         = region.Region
)

// Result lists the regions selected in a function, and the kernel each
// of them was lowered to, in the same order.
type Result struct {
	Regions []*Region
	Kernels []*Kernel
}

func options(o []Option) *opts.Options {
	ret := opts.GetDefaultOptions()
	for _, fn := range o {
		fn(&ret)
	}
	return &ret
}

// Offload selects the offloadable loop nests of fn, rewrites each of them
// into a kernel invocation, then optimizes the transfers of the result.
// fn is modified in place.
//
// Loops that cannot be proven offloadable are left alone. A non-nil error
// means a selected nest could not be lowered, and fn must be discarded.
func Offload(ctx context.Context, fn *ssa.Function, o ...Option) (*Result, error) {
	cfg := options(o)
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "offload", "func", fn.Name)
	defer tr.Finish()

	/* select the regions first, lowering changes the loops */
	ret := new(Result)
	ret.Regions = region.Select(ctx, fn, region.Config{MaxDims: cfg.MaxDims, Callees: cfg.Callees})

	/* lower every region */
	for i, r := range ret.Regions {
		k, err := lowering.Lower(ctx, fn, r, cfg, i)
		if err != nil {
			return nil, errors.Wrapf(err, "lower %s of %s", r, fn.Name)
		}
		ret.Kernels = append(ret.Kernels, k)
	}

	/* remove what transfers we can */
	traffic.Optimize(ctx, fn, cfg)
	tr.Printw("offloaded", "kernels", len(ret.Kernels))
	return ret, nil
}

// Optimize runs only the transfer optimizer on fn, which may already
// contain kernel invocations. fn is modified in place.
func Optimize(ctx context.Context, fn *ssa.Function, o ...Option) {
	traffic.Optimize(ctx, fn, options(o))
}
