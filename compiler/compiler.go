// Package compiler contains the bytecode data model and the single-pass
// compiler for glox. A Pratt parser drives the lexer one token at a
// time and emits instructions straight into a Chunk; each token type
// maps to a prefix rule, an infix rule, and a precedence level. There
// is no intermediate syntax tree.
package compiler

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"glox/lexer"
	"glox/token"
)

// Precedence levels for the grammar's rules, ordered from lowest to
// highest. Higher levels bind tighter and are compiled first.
const (
	PREC_NONE = iota
	PREC_ASSIGNMENT // =
	PREC_OR         // or
	PREC_AND        // and
	PREC_EQUALITY   // == !=
	PREC_COMPARISON // < > <= >=
	PREC_TERM       // + -
	PREC_FACTOR     // * /
	PREC_UNARY      // ! -
	PREC_CALL       // . ()
	PREC_PRIMARY
)

type ParseFunc func(*Compiler)

// parseRule defines the parsing behavior of one token type: its
// optional prefix and infix parse functions and its precedence level.
// Absent function slots are nil.
type parseRule struct {
	prefix     ParseFunc
	infix      ParseFunc
	precedence int
}

// Compiler compiles source text to a Chunk in a single forward pass.
// It keeps one token of lookahead (previous, current) over the lexer.
//
// Errors are recorded in state rather than returned from parse
// functions: hadError is sticky and panicMode suppresses cascading
// diagnostics until the next synchronization point.
type Compiler struct {
	source string
	lexer  *lexer.Lexer
	chunk  *Chunk

	previous token.Token
	current  token.Token

	hadError   bool
	panicMode  bool
	canAssign  bool
	errorCount int

	errOut io.Writer

	rules map[token.Type]parseRule
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithErrorOutput redirects compile diagnostics, which default to
// standard error.
func WithErrorOutput(w io.Writer) Option {
	return func(c *Compiler) { c.errOut = w }
}

// New creates a Compiler for the given source text.
func New(source string, opts ...Option) *Compiler {
	c := &Compiler{
		source: source,
		lexer:  lexer.New(source),
		chunk:  NewChunk(),
		errOut: os.Stderr,
	}

	c.rules = map[token.Type]parseRule{
		token.LEFT_PAREN:    {prefix: (*Compiler).grouping, infix: nil, precedence: PREC_NONE},
		token.MINUS:         {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PREC_TERM},
		token.PLUS:          {prefix: nil, infix: (*Compiler).binary, precedence: PREC_TERM},
		token.SLASH:         {prefix: nil, infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.STAR:          {prefix: nil, infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.BANG:          {prefix: (*Compiler).unary, infix: nil, precedence: PREC_NONE},
		token.BANG_EQUAL:    {prefix: nil, infix: (*Compiler).binary, precedence: PREC_EQUALITY},
		token.EQUAL_EQUAL:   {prefix: nil, infix: (*Compiler).binary, precedence: PREC_EQUALITY},
		token.GREATER:       {prefix: nil, infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.GREATER_EQUAL: {prefix: nil, infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.LESS:          {prefix: nil, infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.LESS_EQUAL:    {prefix: nil, infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.IDENTIFIER:    {prefix: (*Compiler).variable, infix: nil, precedence: PREC_NONE},
		token.STRING:        {prefix: (*Compiler).stringLiteral, infix: nil, precedence: PREC_NONE},
		token.NUMBER:        {prefix: (*Compiler).number, infix: nil, precedence: PREC_NONE},
		token.FALSE:         {prefix: (*Compiler).literal, infix: nil, precedence: PREC_NONE},
		token.NIL:           {prefix: (*Compiler).literal, infix: nil, precedence: PREC_NONE},
		token.TRUE:          {prefix: (*Compiler).literal, infix: nil, precedence: PREC_NONE},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile is a convenience wrapper: compile source in one call.
func Compile(source string, opts ...Option) (*Chunk, error) {
	return New(source, opts...).Compile()
}

// Compile runs the compiler over the whole source and returns the
// finished chunk. The compiler keeps consuming input after an error so
// that multiple diagnostics are reported in one pass; if any were
// recorded, the chunk is discarded and a CompileError is returned.
func (c *Compiler) Compile() (*Chunk, error) {
	c.advance()

	for !c.match(token.EOF) {
		c.declaration()
	}

	c.consume(token.EOF, "Expect end of expression.")
	c.emitOp(OP_RETURN, c.lexer.Line())

	if c.hadError {
		return nil, CompileError{Count: c.errorCount}
	}
	return c.chunk, nil
}

// declaration := "var" IDENT ("=" expression)? ";" | statement
func (c *Compiler) declaration() {
	if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	c.consume(token.IDENTIFIER, "Expect variable name.")

	global, ok := c.identifierConstant()
	if !ok {
		return
	}

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(OP_NIL, c.previous.Line)
	}

	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.emitOp(OP_DEFINE_GLOBAL, c.previous.Line)
	c.emitByte(byte(global), c.previous.Line)
}

// statement := "print" expression ";" | expression ";"
func (c *Compiler) statement() {
	if c.match(token.PRINT) {
		c.printStatement()
	} else {
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(OP_PRINT, c.previous.Line)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(OP_POP, c.previous.Line)
}

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence compiles everything at the given precedence level or
// higher: one prefix expression, then infix operators for as long as
// the lookahead token binds at least as tightly.
func (c *Compiler) parsePrecedence(precedence int) {
	c.advance()

	rule := c.getRule(c.previous.Type)
	if rule.prefix == nil {
		c.errorAt(c.previous.Line, "Expect expression.")
		return
	}

	canAssign := precedence <= PREC_ASSIGNMENT
	c.canAssign = canAssign
	rule.prefix(c)

	for precedence <= c.getRule(c.current.Type).precedence {
		c.advance()
		c.getRule(c.previous.Type).infix(c)
	}

	// An '=' that no variable prefix consumed means the left-hand side
	// was not assignable, e.g. a + b = c.
	if canAssign && c.match(token.EQUAL) {
		c.errorAt(c.previous.Line, "Invalid assignment target.")
	}
}

// getRule returns the parse rule for a token type. Token types without
// an entry parse as nothing: no prefix, no infix, lowest precedence.
func (c *Compiler) getRule(tokenType token.Type) parseRule {
	return c.rules[tokenType]
}

// grouping handles parenthesized expressions.
func (c *Compiler) grouping() {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

// unary compiles -x and !x. The operand is parsed at unary precedence
// so that in -a + b only a is negated.
func (c *Compiler) unary() {
	operator := c.previous.Type

	c.parsePrecedence(PREC_UNARY)

	switch operator {
	case token.BANG:
		c.emitOp(OP_NOT, c.previous.Line)
	case token.MINUS:
		c.emitOp(OP_NEGATE, c.previous.Line)
	}
}

// binary compiles the right operand one level higher than the
// operator's own precedence, keeping binary operators left-associative,
// then emits the operator. >=, <= and != are compiled as the inverse
// comparison followed by OP_NOT.
func (c *Compiler) binary() {
	operator := c.previous.Type
	rule := c.getRule(operator)

	c.parsePrecedence(rule.precedence + 1)

	switch operator {
	case token.PLUS:
		c.emitOp(OP_ADD, c.previous.Line)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT, c.previous.Line)
	case token.STAR:
		c.emitOp(OP_MULTIPLY, c.previous.Line)
	case token.SLASH:
		c.emitOp(OP_DIVIDE, c.previous.Line)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL, c.previous.Line)
	case token.BANG_EQUAL:
		c.emitOp(OP_EQUAL, c.previous.Line)
		c.emitOp(OP_NOT, c.previous.Line)
	case token.GREATER:
		c.emitOp(OP_GREATER, c.previous.Line)
	case token.GREATER_EQUAL:
		c.emitOp(OP_LESS, c.previous.Line)
		c.emitOp(OP_NOT, c.previous.Line)
	case token.LESS:
		c.emitOp(OP_LESS, c.previous.Line)
	case token.LESS_EQUAL:
		c.emitOp(OP_GREATER, c.previous.Line)
		c.emitOp(OP_NOT, c.previous.Line)
	}
}

// literal emits true, false and nil.
func (c *Compiler) literal() {
	switch c.previous.Type {
	case token.TRUE:
		c.emitOp(OP_TRUE, c.previous.Line)
	case token.FALSE:
		c.emitOp(OP_FALSE, c.previous.Line)
	case token.NIL:
		c.emitOp(OP_NIL, c.previous.Line)
	}
}

// number parses the previous lexeme as a float and emits OP_CONSTANT.
func (c *Compiler) number() {
	value, err := strconv.ParseFloat(c.previous.Lexeme(c.source), 64)
	if err != nil {
		c.errorAt(c.previous.Line, fmt.Sprintf("Invalid number literal '%s'.", c.previous.Lexeme(c.source)))
		return
	}

	c.emitOp(OP_CONSTANT, c.previous.Line)
	index, cErr := c.chunk.AddConstant(NumberValue(value))
	if cErr != nil {
		c.errorAt(c.previous.Line, cErr.Error())
		return
	}
	c.emitByte(index, c.previous.Line)
}

// stringLiteral interns the literal's contents, quotes stripped, and
// emits OP_STRING_LITERAL.
func (c *Compiler) stringLiteral() {
	contents := c.source[c.previous.Start+1 : c.previous.Start+c.previous.Length-1]

	c.emitOp(OP_STRING_LITERAL, c.previous.Line)
	id, err := c.chunk.InternLiteral(contents)
	if err != nil {
		c.errorAt(c.previous.Line, err.Error())
		return
	}
	c.emitByte(byte(id), c.previous.Line)
}

// variable compiles an identifier in expression position.
func (c *Compiler) variable() {
	c.namedVariable()
}

func (c *Compiler) namedVariable() {
	id, ok := c.identifierConstant()
	if !ok {
		return
	}

	if c.canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOp(OP_SET_GLOBAL, c.previous.Line)
		c.emitByte(byte(id), c.previous.Line)
	} else {
		c.emitOp(OP_GET_GLOBAL, c.previous.Line)
		c.emitByte(byte(id), c.previous.Line)
	}
}

// identifierConstant interns the previous token's lexeme as a literal
// string and emits OP_STRING_LITERAL with its id. Globals are keyed by
// that id at runtime.
func (c *Compiler) identifierConstant() (StringId, bool) {
	name := c.previous.Lexeme(c.source)

	c.emitOp(OP_STRING_LITERAL, c.previous.Line)
	id, err := c.chunk.InternLiteral(name)
	if err != nil {
		c.errorAt(c.previous.Line, err.Error())
		return 0, false
	}
	c.emitByte(byte(id), c.previous.Line)

	return id, true
}

// synchronize discards tokens until a statement boundary, then clears
// panic mode so diagnostics resume.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}

		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}

		c.advance()
	}
}

// advance shifts the lookahead window one token forward. Scan errors
// are reported here and skipped, so the parser only ever sees valid
// tokens.
func (c *Compiler) advance() {
	c.previous = c.current

	for {
		tok, err := c.lexer.ScanToken()
		if err == nil {
			c.current = tok
			return
		}

		if scanErr, ok := err.(lexer.Error); ok {
			c.errorAt(scanErr.Line, scanErr.Message)
		} else {
			c.errorAt(c.lexer.Line(), err.Error())
		}
	}
}

// consume advances past the expected token type or reports message.
func (c *Compiler) consume(tokenType token.Type, message string) {
	if c.current.Type == tokenType {
		c.advance()
		return
	}

	c.errorAt(c.lexer.Line(), message)
}

// match advances past the token only if it has the given type.
func (c *Compiler) match(tokenType token.Type) bool {
	if c.current.Type != tokenType {
		return false
	}
	c.advance()
	return true
}

// errorAt records a diagnostic. While in panic mode further reports are
// suppressed until synchronize clears it.
func (c *Compiler) errorAt(line uint32, message string) {
	if c.panicMode {
		return
	}

	c.panicMode = true
	c.hadError = true
	c.errorCount++

	fmt.Fprintf(c.errOut, "[line %d] Error: %s\n", line, message)
}

func (c *Compiler) emitOp(op Opcode, line uint32) {
	c.chunk.WriteOp(op, line)
}

func (c *Compiler) emitByte(b byte, line uint32) {
	c.chunk.WriteByte(b, line)
}
