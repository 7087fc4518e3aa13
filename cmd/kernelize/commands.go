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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/nikandfor/tlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/kernelize"
	"github.com/cloudwego/kernelize/debug"
	"github.com/cloudwego/kernelize/internal/opts"
	"github.com/cloudwego/kernelize/ssa"
)

type _Flags struct {
	allowOverwrite     bool
	memoryStrategy     string
	svmMode            string
	maxDims            int
	restrictSequential bool
	restrictCoalesced  bool
	localSize          int
	schedules          []string
	coarseningFactor   int
	workGroups         int
	skipPasses         []string
	verbosity          string
	dump               bool
	json               bool
}

func newRootCommand() *cobra.Command {
	f := new(_Flags)
	root := &cobra.Command{
		Use:           "kernelize",
		Short:         "Offload data-parallel loop nests of a function to device kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if f.verbosity != "" {
				tlog.SetVerbosity(f.verbosity)
			}
		},
	}

	/* configuration surface */
	pf := root.PersistentFlags()
	pf.BoolVar(&f.allowOverwrite, "allow-overwrite", false, "refresh device buffers in place from other device buffers")
	pf.StringVar(&f.memoryStrategy, "memory-strategy", "", "device memory strategy (copy-buffers, fine-grained-buffers)")
	pf.StringVar(&f.svmMode, "svm-elimination-mode", "", "which transfers may be replaced by shared host arrays")
	pf.IntVar(&f.maxDims, "max-work-item-dimensions", 0, "maximum number of loops turned into one kernel")
	pf.BoolVar(&f.restrictSequential, "svm-restrict-sequential", false, "keep arrays with irregular accesses in private buffers")
	pf.BoolVar(&f.restrictCoalesced, "svm-restrict-coalesced", false, "keep arrays with uncoalesced accesses in private buffers")
	pf.IntVar(&f.localSize, "local-size", 0, "work items per work group")
	pf.StringSliceVar(&f.schedules, "schedule", nil, "schedule of each kernel dimension, outermost first")
	pf.IntVar(&f.coarseningFactor, "coarsening-factor", 0, "iterations per work item for coarse schedules")
	pf.IntVar(&f.workGroups, "work-groups", 0, "work groups for fixed schedules")
	pf.StringArrayVar(&f.skipPasses, "skip-pass", nil, "skip an optimization pass, as function:pass ('*' matches every function)")
	pf.StringVarP(&f.verbosity, "verbosity", "v", "", "log topics to print (region, traffic, dump_traffic)")
	pf.BoolVar(&f.dump, "dump", false, "dump the emitted kernels to stderr")
	pf.BoolVar(&f.json, "json", false, "print the resulting function as JSON")

	root.AddCommand(
		&cobra.Command{
			Use:   "offload <fn.json>",
			Short: "Select, lower and optimize the loop nests of a function",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd, f, args[0], true) },
		},
		&cobra.Command{
			Use:   "optimize <fn.json>",
			Short: "Only optimize the transfers of a function",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd, f, args[0], false) },
		},
	)
	return root
}

func run(cmd *cobra.Command, f *_Flags, file string, offload bool) error {
	o, err := f.options(cmd)
	if err != nil {
		return err
	}
	fn, err := load(file)
	if err != nil {
		return err
	}

	/* compile */
	var res *kernelize.Result
	ctx := context.Background()
	if !offload {
		kernelize.Optimize(ctx, fn, o...)
	} else if res, err = kernelize.Offload(ctx, fn, o...); err != nil {
		return err
	}

	/* results */
	if f.dump && res != nil {
		spew.Fdump(os.Stderr, res.Kernels)
	}
	if err = emit(cmd.OutOrStdout(), f, fn, res); err != nil {
		return err
	}
	st := debug.GetStats()
	tlog.Printw("done", "func", fn.Name, "kernels", st.Kernels, "removed", st.Transfers.Removed, "hoisted", st.Transfers.Hoisted)
	return nil
}

func load(file string) (*ssa.Function, error) {
	var err error
	var buf []byte

	/* "-" reads the standard input */
	if file == "-" {
		buf, err = io.ReadAll(os.Stdin)
	} else {
		buf, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", file)
	}
	return ssa.UnmarshalFunction(buf)
}

func emit(w io.Writer, f *_Flags, fn *ssa.Function, res *kernelize.Result) error {
	if f.json {
		buf, err := ssa.MarshalFunction(fn)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(buf))
		return err
	}
	fmt.Fprintln(w, fn.String())
	if res != nil {
		for _, k := range res.Kernels {
			fmt.Fprintln(w)
			fmt.Fprintln(w, k.String())
		}
	}
	return nil
}

// options only overrides the defaults with the flags given explicitly.
func (self *_Flags) options(cmd *cobra.Command) (ret []kernelize.Option, err error) {
	defer func() {
		if v := recover(); v != nil {
			if e, ok := v.(kernelize.OptionError); ok {
				err = e
			} else {
				panic(v)
			}
		}
	}()

	fs := cmd.Flags()
	if fs.Changed("allow-overwrite") {
		ret = append(ret, kernelize.WithAllowOverwrite(self.allowOverwrite))
	}
	if fs.Changed("memory-strategy") {
		v, err := opts.ParseMemoryStrategy(self.memoryStrategy)
		if err != nil {
			return nil, err
		}
		ret = append(ret, kernelize.WithMemoryStrategy(v))
	}
	if fs.Changed("svm-elimination-mode") {
		v, err := opts.ParseSvmMode(self.svmMode)
		if err != nil {
			return nil, err
		}
		ret = append(ret, kernelize.WithSvmEliminationMode(v))
	}
	if fs.Changed("max-work-item-dimensions") {
		ret = append(ret, kernelize.WithMaxWorkItemDimensions(self.maxDims))
	}
	if fs.Changed("svm-restrict-sequential") {
		ret = append(ret, kernelize.WithSvmRestrictSequential(self.restrictSequential))
	}
	if fs.Changed("svm-restrict-coalesced") {
		ret = append(ret, kernelize.WithSvmRestrictCoalesced(self.restrictCoalesced))
	}
	if fs.Changed("local-size") {
		ret = append(ret, kernelize.WithLocalSize(self.localSize))
	}
	if fs.Changed("schedule") {
		var s []kernelize.Schedule
		for _, name := range self.schedules {
			v, err := opts.ParseSchedule(name)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		ret = append(ret, kernelize.WithSchedule(s...))
	}
	if fs.Changed("coarsening-factor") {
		ret = append(ret, kernelize.WithCoarseningFactor(self.coarseningFactor))
	}
	if fs.Changed("work-groups") {
		ret = append(ret, kernelize.WithWorkGroups(self.workGroups))
	}
	for _, v := range self.skipPasses {
		i := strings.LastIndexByte(v, ':')
		if i < 0 {
			return nil, errors.Errorf("invalid --skip-pass %q, expected function:pass", v)
		}
		ret = append(ret, kernelize.WithSkipPass(v[:i], v[i+1:]))
	}
	return ret, nil
}
