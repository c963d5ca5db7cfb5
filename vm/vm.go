// Package vm implements the stack-based virtual machine that executes
// compiled chunks, and the Interpret entry point that ties the compiler
// and the VM together.
package vm

import (
	"fmt"
	"io"
	"os"

	"glox/compiler"
)

// InterpretResult is the outcome of interpreting a source program.
type InterpretResult int

const (
	InterpretOk InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM executes one chunk at a time against a value stack, a global
// variable table keyed by literal string id, and the dynamic string
// pool that holds concatenation results. A VM owns all three; none are
// shared or aliased.
type VM struct {
	stack   Stack
	ip      int
	globals map[compiler.StringId]compiler.Value

	dynamicStrings DynamicStringPool

	out      io.Writer
	errOut   io.Writer
	traceOut io.Writer
	trace    bool
}

// Option configures a VM.
type Option func(*VM)

// WithOutput redirects program output (OP_PRINT), which defaults to
// standard out.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithErrorOutput redirects runtime error diagnostics, which default to
// standard error.
func WithErrorOutput(w io.Writer) Option {
	return func(vm *VM) { vm.errOut = w }
}

// WithTrace enables the per-instruction execution trace and directs it
// to w.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) {
		vm.trace = true
		vm.traceOut = w
	}
}

// New creates a VM with an empty stack and globals table.
func New(opts ...Option) *VM {
	vm := &VM{
		globals:        make(map[compiler.StringId]compiler.Value),
		dynamicStrings: NewDynamicStringPool(),
		out:            os.Stdout,
		errOut:         os.Stderr,
		traceOut:       os.Stdout,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Interpret compiles and runs a source program. When debug is set, the
// VM writes the execution trace for every instruction. The result maps
// to the process exit codes used by the CLI: Ok 0, CompileError 65,
// RuntimeError 70.
func Interpret(source string, debug bool, opts ...Option) InterpretResult {
	chunk, err := compiler.Compile(source)
	if err != nil {
		return InterpretCompileError
	}

	vm := New(opts...)
	if debug {
		vm.trace = true
	}

	if err := vm.Run(chunk); err != nil {
		return InterpretRuntimeError
	}
	return InterpretOk
}

// Run executes the chunk from its first instruction. It returns nil
// when OP_RETURN halts the machine, or a RuntimeError after the first
// runtime failure. Each opcode advances ip by one plus its operand
// length.
func (vm *VM) Run(chunk *compiler.Chunk) error {
	vm.ip = 0

	for {
		if vm.trace {
			vm.traceState(chunk)
		}

		op := compiler.Opcode(chunk.Byte(vm.ip))
		switch op {
		case compiler.OP_CONSTANT:
			index := chunk.Byte(vm.ip + 1)
			vm.stack.Push(chunk.ReadConstant(index))
			vm.ip += 2

		case compiler.OP_STRING_LITERAL:
			id := chunk.Byte(vm.ip + 1)
			vm.stack.Push(compiler.StringValue(compiler.NewLiteralId(id)))
			vm.ip += 2

		case compiler.OP_NIL:
			vm.stack.Push(compiler.NilValue())
			vm.ip++

		case compiler.OP_TRUE:
			vm.stack.Push(compiler.BoolValue(true))
			vm.ip++

		case compiler.OP_FALSE:
			vm.stack.Push(compiler.BoolValue(false))
			vm.ip++

		case compiler.OP_POP:
			vm.stack.Pop()
			vm.ip++

		case compiler.OP_GET_GLOBAL:
			id := compiler.NewLiteralId(chunk.Byte(vm.ip + 1))
			value, ok := vm.globals[id]
			if !ok {
				return vm.runtimeError(chunk, op, fmt.Sprintf("Undefined variable '%s'", chunk.ReadLiteral(id)))
			}
			vm.stack.Push(value)
			vm.ip += 2

		case compiler.OP_DEFINE_GLOBAL:
			id := compiler.NewLiteralId(chunk.Byte(vm.ip + 1))
			vm.globals[id] = vm.stack.Peek(0)
			vm.stack.Pop()
			vm.ip += 2

		case compiler.OP_SET_GLOBAL:
			id := compiler.NewLiteralId(chunk.Byte(vm.ip + 1))
			if _, ok := vm.globals[id]; !ok {
				return vm.runtimeError(chunk, op, fmt.Sprintf("Undefined variable '%s'", chunk.ReadLiteral(id)))
			}
			// assignment is an expression, the value stays on the stack
			vm.globals[id] = vm.stack.Peek(0)
			vm.ip += 2

		case compiler.OP_EQUAL:
			b := vm.stack.Pop()
			a := vm.stack.Pop()
			vm.stack.Push(compiler.BoolValue(vm.valuesEqual(chunk, a, b)))
			vm.ip++

		case compiler.OP_GREATER:
			if err := vm.binaryNumeric(chunk, op, func(a, b float64) compiler.Value {
				return compiler.BoolValue(a > b)
			}); err != nil {
				return err
			}

		case compiler.OP_LESS:
			if err := vm.binaryNumeric(chunk, op, func(a, b float64) compiler.Value {
				return compiler.BoolValue(a < b)
			}); err != nil {
				return err
			}

		case compiler.OP_ADD:
			if err := vm.add(chunk); err != nil {
				return err
			}

		case compiler.OP_SUBTRACT:
			if err := vm.binaryNumeric(chunk, op, func(a, b float64) compiler.Value {
				return compiler.NumberValue(a - b)
			}); err != nil {
				return err
			}

		case compiler.OP_MULTIPLY:
			if err := vm.binaryNumeric(chunk, op, func(a, b float64) compiler.Value {
				return compiler.NumberValue(a * b)
			}); err != nil {
				return err
			}

		case compiler.OP_DIVIDE:
			if err := vm.binaryNumeric(chunk, op, func(a, b float64) compiler.Value {
				return compiler.NumberValue(a / b)
			}); err != nil {
				return err
			}

		case compiler.OP_NOT:
			value := vm.stack.Pop()
			vm.stack.Push(compiler.BoolValue(isFalsy(value)))
			vm.ip++

		case compiler.OP_NEGATE:
			if !vm.stack.Peek(0).IsNumber() {
				return vm.runtimeError(chunk, op, "Operand must be a number")
			}
			value := vm.stack.Pop()
			vm.stack.Push(compiler.NumberValue(-value.AsNumber()))
			vm.ip++

		case compiler.OP_PRINT:
			value := vm.stack.Pop()
			fmt.Fprintln(vm.out, vm.formatValue(chunk, value))
			vm.ip++

		case compiler.OP_RETURN:
			if !vm.stack.IsEmpty() {
				vm.stack.Pop()
			}
			return nil

		default:
			// unreachable with a compiler-produced chunk
			return fmt.Errorf("unknown opcode %d at ip %d", byte(op), vm.ip)
		}
	}
}

// binaryNumeric pops two numbers, applies the operation and pushes the
// result. Non-numeric operands abort execution.
func (vm *VM) binaryNumeric(chunk *compiler.Chunk, op compiler.Opcode, apply func(a, b float64) compiler.Value) error {
	if !vm.stack.Peek(0).IsNumber() || !vm.stack.Peek(1).IsNumber() {
		return vm.runtimeError(chunk, op, "Operands must be numbers")
	}

	b := vm.stack.Pop()
	a := vm.stack.Pop()
	vm.stack.Push(apply(a.AsNumber(), b.AsNumber()))
	vm.ip++
	return nil
}

// add implements OP_ADD: numeric sum for two numbers, concatenation
// into the dynamic pool for two strings, a runtime error otherwise.
func (vm *VM) add(chunk *compiler.Chunk) error {
	b := vm.stack.Pop()
	a := vm.stack.Pop()

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.stack.Push(compiler.NumberValue(a.AsNumber() + b.AsNumber()))

	case a.IsString() && b.IsString():
		concatenated := vm.resolveString(chunk, a.AsString()) + vm.resolveString(chunk, b.AsString())
		id := vm.dynamicStrings.Add(concatenated)
		vm.stack.Push(compiler.StringValue(id))

	default:
		return vm.runtimeError(chunk, compiler.OP_ADD, "Operands must be two numbers or two strings")
	}

	vm.ip++
	return nil
}

// resolveString routes a string handle to the chunk's literal pool or
// the VM's dynamic pool.
func (vm *VM) resolveString(chunk *compiler.Chunk, id compiler.StringId) string {
	if id.IsLiteral() {
		return chunk.ReadLiteral(id)
	}
	return vm.dynamicStrings.Get(id)
}

// valuesEqual implements OP_EQUAL: same-variant comparison, with
// strings compared by contents regardless of which pool backs them.
func (vm *VM) valuesEqual(chunk *compiler.Chunk, a, b compiler.Value) bool {
	if a.Type() != b.Type() {
		return false
	}

	switch a.Type() {
	case compiler.VAL_NIL:
		return true
	case compiler.VAL_BOOL:
		return a.AsBool() == b.AsBool()
	case compiler.VAL_NUMBER:
		// IEEE equality, NaN != NaN
		return a.AsNumber() == b.AsNumber()
	case compiler.VAL_STRING:
		return vm.resolveString(chunk, a.AsString()) == vm.resolveString(chunk, b.AsString())
	}
	return false
}

// isFalsy reports language truthiness: nil and false are falsy,
// everything else, including 0 and "", is truthy.
func isFalsy(value compiler.Value) bool {
	return value.IsNil() || (value.IsBool() && !value.AsBool())
}

// formatValue renders a value for program output, resolving string
// handles through the appropriate pool.
func (vm *VM) formatValue(chunk *compiler.Chunk, value compiler.Value) string {
	if value.IsString() {
		return vm.resolveString(chunk, value.AsString())
	}
	return value.String()
}

// runtimeError writes the diagnostic for the opcode at the current ip,
// clears the stack, and returns the error that aborts Run.
func (vm *VM) runtimeError(chunk *compiler.Chunk, op compiler.Opcode, message string) error {
	fmt.Fprintf(vm.errOut, "[line %d] Runtime Error: %s %s\n", chunk.LineOf(vm.ip), op, message)
	vm.stack.Reset()
	return RuntimeError{Message: message}
}

// traceState writes the pre-execution trace for the instruction at ip:
// the stack contents and the disassembled instruction.
func (vm *VM) traceState(chunk *compiler.Chunk) {
	fmt.Fprintln(vm.traceOut)
	fmt.Fprintln(vm.traceOut, "Stack")
	fmt.Fprint(vm.traceOut, "           ")
	if vm.stack.IsEmpty() {
		fmt.Fprintln(vm.traceOut, "<empty>")
	} else {
		for _, value := range vm.stack {
			fmt.Fprintf(vm.traceOut, "[ %s ]", value)
		}
		fmt.Fprintln(vm.traceOut)
	}
	fmt.Fprintln(vm.traceOut, "Instruction")
	chunk.DisassembleInstruction(vm.traceOut, vm.ip)
}
