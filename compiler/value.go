package compiler

import "strconv"

// ValueType discriminates the variants of Value.
type ValueType int

const (
	VAL_NUMBER ValueType = iota
	VAL_BOOL
	VAL_NIL
	VAL_STRING
)

// Value is a tagged runtime value: an IEEE-754 number, a boolean, nil,
// or a string handle. Values are copied by value; copying a string
// value duplicates only the handle, never the backing bytes.
type Value struct {
	valueType ValueType
	number    float64
	boolean   bool
	str       StringId
}

func NumberValue(number float64) Value {
	return Value{valueType: VAL_NUMBER, number: number}
}

func BoolValue(boolean bool) Value {
	return Value{valueType: VAL_BOOL, boolean: boolean}
}

func NilValue() Value {
	return Value{valueType: VAL_NIL}
}

func StringValue(id StringId) Value {
	return Value{valueType: VAL_STRING, str: id}
}

func (v Value) Type() ValueType {
	return v.valueType
}

func (v Value) IsNumber() bool {
	return v.valueType == VAL_NUMBER
}

// AsNumber returns the number payload. The caller must have checked
// IsNumber first.
func (v Value) AsNumber() float64 {
	if v.valueType != VAL_NUMBER {
		panic("expected number value")
	}
	return v.number
}

func (v Value) IsBool() bool {
	return v.valueType == VAL_BOOL
}

// AsBool returns the boolean payload. The caller must have checked
// IsBool first.
func (v Value) AsBool() bool {
	if v.valueType != VAL_BOOL {
		panic("expected bool value")
	}
	return v.boolean
}

func (v Value) IsNil() bool {
	return v.valueType == VAL_NIL
}

func (v Value) IsString() bool {
	return v.valueType == VAL_STRING
}

// AsString returns the string handle. The caller must have checked
// IsString first.
func (v Value) AsString() StringId {
	if v.valueType != VAL_STRING {
		panic("expected string value")
	}
	return v.str
}

// FormatNumber renders a number the way programs observe it: integer
// valued doubles print without a fractional part.
func FormatNumber(number float64) string {
	return strconv.FormatFloat(number, 'f', -1, 64)
}

// String renders the value for traces and disassembly. String values
// show only their handle here; resolving the contents needs a pool, so
// printable output goes through the VM instead.
func (v Value) String() string {
	switch v.valueType {
	case VAL_NUMBER:
		return FormatNumber(v.number)
	case VAL_BOOL:
		return strconv.FormatBool(v.boolean)
	case VAL_NIL:
		return "nil"
	case VAL_STRING:
		return v.str.String()
	}
	return "unknown"
}

// ValueArray is the append-only constant pool of a chunk.
type ValueArray struct {
	values []Value
}

func (a *ValueArray) Write(value Value) {
	a.values = append(a.values, value)
}

func (a *ValueArray) Read(index int) Value {
	return a.values[index]
}

func (a *ValueArray) Len() int {
	return len(a.values)
}
