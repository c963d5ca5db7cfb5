package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"glox/compiler"

	"github.com/google/subcommands"
)

// disasmCmd implements the disasm command
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Compile a source file and print its bytecode listing" }
func (*disasmCmd) Usage() string {
	return `glox disasm <file>
`
}

func (d *disasmCmd) SetFlags(f *flag.FlagSet) {}

func (d *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	chunk, err := compiler.Compile(string(data))
	if err != nil {
		return exitCompileError
	}

	chunk.Disassemble(os.Stdout, filename)
	return subcommands.ExitSuccess
}
