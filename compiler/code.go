package compiler

import "fmt"

// Opcode identifies a bytecode instruction. Each instruction is one
// opcode byte followed by zero or one inline operand byte.
type Opcode byte

// opcodes
// iota assigns a distinct byte to each opcode
const (
	// OP_CONSTANT pushes constants[operand] onto the stack.
	OP_CONSTANT Opcode = iota

	// OP_STRING_LITERAL pushes a String value whose id refers to the
	// chunk's literal pool.
	OP_STRING_LITERAL

	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP

	// globals are addressed by a literal-pool id holding the name
	OP_GET_GLOBAL
	OP_DEFINE_GLOBAL
	OP_SET_GLOBAL

	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_RETURN
)

// OpCodeDefinition describes an opcode's human-readable name and how
// many operand bytes follow the opcode byte in the instruction stream.
type OpCodeDefinition struct {
	Name         string
	OperandBytes int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT:       {Name: "OP_CONSTANT", OperandBytes: 1},
	OP_STRING_LITERAL: {Name: "OP_STRING_LITERAL", OperandBytes: 1},
	OP_NIL:            {Name: "OP_NIL", OperandBytes: 0},
	OP_TRUE:           {Name: "OP_TRUE", OperandBytes: 0},
	OP_FALSE:          {Name: "OP_FALSE", OperandBytes: 0},
	OP_POP:            {Name: "OP_POP", OperandBytes: 0},
	OP_GET_GLOBAL:     {Name: "OP_GET_GLOBAL", OperandBytes: 1},
	OP_DEFINE_GLOBAL:  {Name: "OP_DEFINE_GLOBAL", OperandBytes: 1},
	OP_SET_GLOBAL:     {Name: "OP_SET_GLOBAL", OperandBytes: 1},
	OP_EQUAL:          {Name: "OP_EQUAL", OperandBytes: 0},
	OP_GREATER:        {Name: "OP_GREATER", OperandBytes: 0},
	OP_LESS:           {Name: "OP_LESS", OperandBytes: 0},
	OP_ADD:            {Name: "OP_ADD", OperandBytes: 0},
	OP_SUBTRACT:       {Name: "OP_SUBTRACT", OperandBytes: 0},
	OP_MULTIPLY:       {Name: "OP_MULTIPLY", OperandBytes: 0},
	OP_DIVIDE:         {Name: "OP_DIVIDE", OperandBytes: 0},
	OP_NOT:            {Name: "OP_NOT", OperandBytes: 0},
	OP_NEGATE:         {Name: "OP_NEGATE", OperandBytes: 0},
	OP_PRINT:          {Name: "OP_PRINT", OperandBytes: 0},
	OP_RETURN:         {Name: "OP_RETURN", OperandBytes: 0},
}

// Lookup returns the definition for an opcode, or an error for a byte
// that is not a known opcode.
func Lookup(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", byte(op))
	}
	return def, nil
}

func (op Opcode) String() string {
	def, ok := definitions[op]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", byte(op))
	}
	return def.Name
}
