package vm

import (
	"strings"
	"testing"

	"glox/compiler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChunk hand-assembles a chunk: values go into the constant pool,
// names into the literal pool, then the instruction stream is written
// with every byte on line 1.
func buildChunk(t *testing.T, constants []compiler.Value, literals []string, code ...byte) *compiler.Chunk {
	t.Helper()

	chunk := compiler.NewChunk()
	for _, value := range constants {
		_, err := chunk.AddConstant(value)
		require.NoError(t, err)
	}
	for _, literal := range literals {
		_, err := chunk.InternLiteral(literal)
		require.NoError(t, err)
	}
	for _, b := range code {
		chunk.WriteByte(b, 1)
	}
	return chunk
}

func TestRunArithmetic(t *testing.T) {
	tests := []struct {
		name      string
		constants []compiler.Value
		code      []byte
		want      string
	}{
		{
			name:      "addition",
			constants: []compiler.Value{compiler.NumberValue(1), compiler.NumberValue(2)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_CONSTANT), 1,
				byte(compiler.OP_ADD),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "3\n",
		},
		{
			name:      "subtraction",
			constants: []compiler.Value{compiler.NumberValue(1), compiler.NumberValue(2)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_CONSTANT), 1,
				byte(compiler.OP_SUBTRACT),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "-1\n",
		},
		{
			name:      "division keeps fractions",
			constants: []compiler.Value{compiler.NumberValue(7), compiler.NumberValue(2)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_CONSTANT), 1,
				byte(compiler.OP_DIVIDE),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "3.5\n",
		},
		{
			name:      "negate",
			constants: []compiler.Value{compiler.NumberValue(5)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_NEGATE),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "-5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := buildChunk(t, tt.constants, nil, tt.code...)

			var out strings.Builder
			machine := New(WithOutput(&out))

			require.NoError(t, machine.Run(chunk))
			assert.Equal(t, tt.want, out.String())
			assert.True(t, machine.stack.IsEmpty(), "stack should drain")
		})
	}
}

func TestRunComparisonsAndTruthiness(t *testing.T) {
	tests := []struct {
		name      string
		constants []compiler.Value
		code      []byte
		want      string
	}{
		{
			name:      "greater",
			constants: []compiler.Value{compiler.NumberValue(2), compiler.NumberValue(1)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_CONSTANT), 1,
				byte(compiler.OP_GREATER),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "true\n",
		},
		{
			name:      "less",
			constants: []compiler.Value{compiler.NumberValue(2), compiler.NumberValue(1)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_CONSTANT), 1,
				byte(compiler.OP_LESS),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "false\n",
		},
		{
			name: "not nil is true",
			code: []byte{
				byte(compiler.OP_NIL),
				byte(compiler.OP_NOT),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "true\n",
		},
		{
			name:      "zero is truthy",
			constants: []compiler.Value{compiler.NumberValue(0)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_NOT),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "false\n",
		},
		{
			name: "not false is true",
			code: []byte{
				byte(compiler.OP_FALSE),
				byte(compiler.OP_NOT),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := buildChunk(t, tt.constants, nil, tt.code...)

			var out strings.Builder
			machine := New(WithOutput(&out))

			require.NoError(t, machine.Run(chunk))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunEquality(t *testing.T) {
	tests := []struct {
		name      string
		constants []compiler.Value
		literals  []string
		code      []byte
		want      string
	}{
		{
			name:      "numbers by value",
			constants: []compiler.Value{compiler.NumberValue(1), compiler.NumberValue(1)},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_CONSTANT), 1,
				byte(compiler.OP_EQUAL),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "true\n",
		},
		{
			name: "nil equals nil",
			code: []byte{
				byte(compiler.OP_NIL),
				byte(compiler.OP_NIL),
				byte(compiler.OP_EQUAL),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "true\n",
		},
		{
			name: "different variants are never equal",
			code: []byte{
				byte(compiler.OP_NIL),
				byte(compiler.OP_FALSE),
				byte(compiler.OP_EQUAL),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "false\n",
		},
		{
			name:     "strings by contents",
			literals: []string{"ab", "ab "},
			code: []byte{
				byte(compiler.OP_STRING_LITERAL), 0,
				byte(compiler.OP_STRING_LITERAL), 1,
				byte(compiler.OP_EQUAL),
				byte(compiler.OP_PRINT),
				byte(compiler.OP_RETURN),
			},
			want: "false\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := buildChunk(t, tt.constants, tt.literals, tt.code...)

			var out strings.Builder
			machine := New(WithOutput(&out))

			require.NoError(t, machine.Run(chunk))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestNaNIsNotEqualToItself(t *testing.T) {
	// build NaN without importing math: the VM divides 0 by 0
	zero := compiler.NumberValue(0)
	chunk := buildChunk(t, []compiler.Value{zero, zero},
		nil,
		byte(compiler.OP_CONSTANT), 0,
		byte(compiler.OP_CONSTANT), 1,
		byte(compiler.OP_DIVIDE),
		byte(compiler.OP_CONSTANT), 0,
		byte(compiler.OP_CONSTANT), 1,
		byte(compiler.OP_DIVIDE),
		byte(compiler.OP_EQUAL),
		byte(compiler.OP_PRINT),
		byte(compiler.OP_RETURN),
	)

	var out strings.Builder
	machine := New(WithOutput(&out))

	require.NoError(t, machine.Run(chunk))
	assert.Equal(t, "false\n", out.String())
}

func TestStringConcatenationUsesDynamicPool(t *testing.T) {
	chunk := buildChunk(t, nil, []string{"hi", " there"},
		byte(compiler.OP_STRING_LITERAL), 0,
		byte(compiler.OP_STRING_LITERAL), 1,
		byte(compiler.OP_ADD),
		byte(compiler.OP_PRINT),
		byte(compiler.OP_RETURN),
	)

	var out strings.Builder
	machine := New(WithOutput(&out))

	require.NoError(t, machine.Run(chunk))
	assert.Equal(t, "hi there\n", out.String())
	assert.Equal(t, 1, machine.dynamicStrings.Len())
}

func TestConcatenatedStringEqualsLiteralWithSameBytes(t *testing.T) {
	// "a" + "b" == "ab" regardless of pool origin
	chunk := buildChunk(t, nil, []string{"a", "b", "ab"},
		byte(compiler.OP_STRING_LITERAL), 0,
		byte(compiler.OP_STRING_LITERAL), 1,
		byte(compiler.OP_ADD),
		byte(compiler.OP_STRING_LITERAL), 2,
		byte(compiler.OP_EQUAL),
		byte(compiler.OP_PRINT),
		byte(compiler.OP_RETURN),
	)

	var out strings.Builder
	machine := New(WithOutput(&out))

	require.NoError(t, machine.Run(chunk))
	assert.Equal(t, "true\n", out.String())
}

func TestGlobals(t *testing.T) {
	// var x = 7; print x;
	chunk := buildChunk(t,
		[]compiler.Value{compiler.NumberValue(7)},
		[]string{"x"},
		byte(compiler.OP_CONSTANT), 0,
		byte(compiler.OP_DEFINE_GLOBAL), 0,
		byte(compiler.OP_GET_GLOBAL), 0,
		byte(compiler.OP_PRINT),
		byte(compiler.OP_RETURN),
	)

	var out strings.Builder
	machine := New(WithOutput(&out))

	require.NoError(t, machine.Run(chunk))
	assert.Equal(t, "7\n", out.String())
}

func TestDefineGlobalAllowsRedefinition(t *testing.T) {
	chunk := buildChunk(t,
		[]compiler.Value{compiler.NumberValue(1), compiler.NumberValue(2)},
		[]string{"x"},
		byte(compiler.OP_CONSTANT), 0,
		byte(compiler.OP_DEFINE_GLOBAL), 0,
		byte(compiler.OP_CONSTANT), 1,
		byte(compiler.OP_DEFINE_GLOBAL), 0,
		byte(compiler.OP_GET_GLOBAL), 0,
		byte(compiler.OP_PRINT),
		byte(compiler.OP_RETURN),
	)

	var out strings.Builder
	machine := New(WithOutput(&out))

	require.NoError(t, machine.Run(chunk))
	assert.Equal(t, "2\n", out.String())
}

func TestSetGlobalLeavesValueOnStack(t *testing.T) {
	// x = 9 as an expression: the assigned value is also the result
	chunk := buildChunk(t,
		[]compiler.Value{compiler.NumberValue(1), compiler.NumberValue(9)},
		[]string{"x"},
		byte(compiler.OP_CONSTANT), 0,
		byte(compiler.OP_DEFINE_GLOBAL), 0,
		byte(compiler.OP_CONSTANT), 1,
		byte(compiler.OP_SET_GLOBAL), 0,
		byte(compiler.OP_PRINT),
		byte(compiler.OP_RETURN),
	)

	var out strings.Builder
	machine := New(WithOutput(&out))

	require.NoError(t, machine.Run(chunk))
	assert.Equal(t, "9\n", out.String())
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name        string
		constants   []compiler.Value
		literals    []string
		code        []byte
		wantMessage string
	}{
		{
			name:     "negate of a string",
			literals: []string{"abc"},
			code: []byte{
				byte(compiler.OP_STRING_LITERAL), 0,
				byte(compiler.OP_NEGATE),
				byte(compiler.OP_RETURN),
			},
			wantMessage: "Operand must be a number",
		},
		{
			name:      "multiply string by number",
			constants: []compiler.Value{compiler.NumberValue(2)},
			literals:  []string{"a"},
			code: []byte{
				byte(compiler.OP_STRING_LITERAL), 0,
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_MULTIPLY),
				byte(compiler.OP_RETURN),
			},
			wantMessage: "Operands must be numbers",
		},
		{
			name:      "add string and number",
			constants: []compiler.Value{compiler.NumberValue(1)},
			literals:  []string{"a"},
			code: []byte{
				byte(compiler.OP_STRING_LITERAL), 0,
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_ADD),
				byte(compiler.OP_RETURN),
			},
			wantMessage: "Operands must be two numbers or two strings",
		},
		{
			name:     "get of undefined global",
			literals: []string{"a"},
			code: []byte{
				byte(compiler.OP_GET_GLOBAL), 0,
				byte(compiler.OP_RETURN),
			},
			wantMessage: "Undefined variable 'a'",
		},
		{
			name:      "set of undefined global",
			constants: []compiler.Value{compiler.NumberValue(1)},
			literals:  []string{"a"},
			code: []byte{
				byte(compiler.OP_CONSTANT), 0,
				byte(compiler.OP_SET_GLOBAL), 0,
				byte(compiler.OP_RETURN),
			},
			wantMessage: "Undefined variable 'a'",
		},
		{
			name: "greater on booleans",
			code: []byte{
				byte(compiler.OP_TRUE),
				byte(compiler.OP_FALSE),
				byte(compiler.OP_GREATER),
				byte(compiler.OP_RETURN),
			},
			wantMessage: "Operands must be numbers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := buildChunk(t, tt.constants, tt.literals, tt.code...)

			var out, errOut strings.Builder
			machine := New(WithOutput(&out), WithErrorOutput(&errOut))

			err := machine.Run(chunk)
			require.Error(t, err)

			rErr, ok := err.(RuntimeError)
			require.True(t, ok, "error should be a RuntimeError, got %T", err)
			assert.Equal(t, tt.wantMessage, rErr.Message)

			assert.Contains(t, errOut.String(), "[line 1] Runtime Error:")
			assert.Contains(t, errOut.String(), tt.wantMessage)
			assert.True(t, machine.stack.IsEmpty(), "stack must be cleared after a runtime error")
		})
	}
}

func TestTraceOutput(t *testing.T) {
	chunk := buildChunk(t,
		[]compiler.Value{compiler.NumberValue(1)},
		nil,
		byte(compiler.OP_CONSTANT), 0,
		byte(compiler.OP_RETURN),
	)

	var out, trace strings.Builder
	machine := New(WithOutput(&out), WithTrace(&trace))

	require.NoError(t, machine.Run(chunk))

	assert.Contains(t, trace.String(), "Stack\n           <empty>\n")
	assert.Contains(t, trace.String(), "Instruction\n0000    1 OP_CONSTANT         0 '1'\n")
	assert.Contains(t, trace.String(), "           [ 1 ]\n")
	assert.Contains(t, trace.String(), "OP_RETURN")
}
