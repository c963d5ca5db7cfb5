package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"glox/compiler"
	"glox/config"
	"glox/vm"

	"github.com/google/subcommands"
)

// exit codes for the two interpreter failure modes
const (
	exitCompileError subcommands.ExitStatus = 65
	exitRuntimeError subcommands.ExitStatus = 70
)

// runCmd implements the run command
type runCmd struct {
	trace  bool
	disasm bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute glox code from a source file" }
func (*runCmd) Usage() string {
	return `glox run [-trace] [-disasm] <file>
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.trace, "trace", false, "Print the execution trace for every instruction.")
	f.BoolVar(&r.disasm, "disasm", false, "Print the chunk disassembly before running.")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	chunk, err := compiler.Compile(string(data))
	if err != nil {
		return exitCompileError
	}

	if r.disasm || cfg.Execution.DisassembleOnLoad {
		chunk.Disassemble(os.Stdout, filename)
	}

	var opts []vm.Option
	if r.trace || cfg.Execution.Trace {
		opts = append(opts, vm.WithTrace(os.Stdout))
	}

	machine := vm.New(opts...)
	if err := machine.Run(chunk); err != nil {
		return exitRuntimeError
	}

	return subcommands.ExitSuccess
}
