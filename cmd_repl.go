package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"glox/config"
	"glox/vm"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
)

// replCmd implements the REPL command
type replCmd struct {
	trace bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive REPL session" }
func (*replCmd) Usage() string {
	return `glox repl
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.trace, "trace", false, "Print the execution trace for every instruction.")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      cfg.Repl.Prompt,
		HistoryFile: cfg.Repl.HistoryFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start REPL: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("Welcome to glox!")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if line == "exit" {
			return subcommands.ExitSuccess
		}
		if line == "" {
			continue
		}

		// errors are already reported on stderr; keep the session going
		vm.Interpret(line, r.trace)
	}
}
