package compiler

import (
	"fmt"
	"io"
)

// Chunk is the bytecode container produced by the compiler: the
// instruction stream, a parallel line-number array (one entry per code
// byte), the constant pool, and the literal string pool. A chunk is
// built exclusively by the compiler and read-only during execution.
type Chunk struct {
	code      []byte
	lines     []uint32
	constants ValueArray
	literals  LiteralStringPool
}

func NewChunk() *Chunk {
	return &Chunk{}
}

// WriteOp appends an opcode byte and its source line.
func (c *Chunk) WriteOp(op Opcode, line uint32) {
	c.code = append(c.code, byte(op))
	c.lines = append(c.lines, line)
}

// WriteByte appends a raw operand byte and its source line.
func (c *Chunk) WriteByte(b byte, line uint32) {
	c.code = append(c.code, b)
	c.lines = append(c.lines, line)
}

// AddConstant appends a value to the constant pool and returns its
// index. The pool is capped at 255 entries so the index fits in one
// operand byte.
func (c *Chunk) AddConstant(value Value) (byte, error) {
	if c.constants.Len() >= 255 {
		return 0, fmt.Errorf("Too many constants in one chunk")
	}
	c.constants.Write(value)
	return byte(c.constants.Len() - 1), nil
}

// InternLiteral returns the id of the string in the literal pool,
// adding it first if no entry with identical contents exists.
func (c *Chunk) InternLiteral(s string) (StringId, error) {
	if id, ok := c.literals.Find(s); ok {
		return id, nil
	}
	return c.literals.Add(s)
}

// Byte returns the code byte at the given offset.
func (c *Chunk) Byte(offset int) byte {
	return c.code[offset]
}

// Len returns the length of the instruction stream in bytes.
func (c *Chunk) Len() int {
	return len(c.code)
}

// ReadConstant resolves a constant-pool index from an operand byte.
func (c *Chunk) ReadConstant(index byte) Value {
	return c.constants.Read(int(index))
}

// ReadLiteral resolves a literal string id against the chunk's pool.
func (c *Chunk) ReadLiteral(id StringId) string {
	return c.literals.Get(id)
}

// Constants returns the number of entries in the constant pool.
func (c *Chunk) Constants() int {
	return c.constants.Len()
}

// Literals returns the number of entries in the literal pool.
func (c *Chunk) Literals() int {
	return c.literals.Len()
}

// LineOf returns the source line recorded for the code byte at offset.
func (c *Chunk) LineOf(offset int) uint32 {
	return c.lines[offset]
}

// Disassemble writes a listing of the whole chunk, one instruction per
// row, under a == name == header.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)

	offset := 0
	for offset < len(c.code) {
		offset = c.DisassembleInstruction(w, offset)
	}
}

// DisassembleInstruction writes one instruction row of the form
//
//	NNNN LLLL OP_NAME [operand]
//
// and returns the offset of the next instruction. The line column shows
// "   | " when the instruction is on the same line as the previous code
// byte.
func (c *Chunk) DisassembleInstruction(w io.Writer, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	if offset > 0 && c.lines[offset] == c.lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.lines[offset])
	}

	op := Opcode(c.code[offset])
	def, err := Lookup(op)
	if err != nil {
		fmt.Fprintf(w, "Unknown opcode %d\n", c.code[offset])
		return offset + 1
	}

	if def.OperandBytes == 0 {
		fmt.Fprintln(w, def.Name)
		return offset + 1
	}

	operand := c.code[offset+1]
	switch op {
	case OP_CONSTANT:
		fmt.Fprintf(w, "%-16s %4d '%s'\n", def.Name, operand, c.constants.Read(int(operand)))
	case OP_STRING_LITERAL, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL:
		fmt.Fprintf(w, "%-16s %4d '%s'\n", def.Name, operand, c.literals.Get(StringId(operand)))
	default:
		fmt.Fprintf(w, "%-16s %4d\n", def.Name, operand)
	}
	return offset + 2
}
