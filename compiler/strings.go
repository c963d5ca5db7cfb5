package compiler

import "fmt"

// MaxStringLiterals bounds the per-chunk literal pool. Literal ids must
// fit in one bytecode byte, and the values [0, 255) double as the
// literal half of the StringId space.
const MaxStringLiterals = 255

// StringId is a handle into one of the two string stores. Ids below
// MaxStringLiterals resolve against the chunk's literal pool; ids at or
// above it resolve against the VM's dynamic pool.
type StringId uint64

// NewLiteralId wraps a literal-pool index as a StringId.
func NewLiteralId(id byte) StringId {
	return StringId(id)
}

// NewDynamicId wraps a dynamic-pool id as a StringId.
func NewDynamicId(id uint64) StringId {
	return StringId(id)
}

// IsLiteral reports whether the id resolves against a chunk's literal
// pool rather than the VM's dynamic pool.
func (id StringId) IsLiteral() bool {
	return id < MaxStringLiterals
}

func (id StringId) String() string {
	return fmt.Sprintf("string literal: %d", uint64(id))
}

// stringSpan locates one stored string inside a pool's byte buffer.
type stringSpan struct {
	start int
	end   int
}

// LiteralStringPool is the per-chunk interned string store: a single
// contiguous byte buffer plus an ordered span index. It holds string
// literal contents and global variable names. At most MaxStringLiterals
// entries fit; identical contents share one id, which keeps global
// lookups comparable by id alone.
type LiteralStringPool struct {
	bytes []byte
	spans []stringSpan
}

// Find linearly searches the pool for existing contents and returns the
// id of the matching entry.
func (p *LiteralStringPool) Find(s string) (StringId, bool) {
	for i, span := range p.spans {
		if string(p.bytes[span.start:span.end]) == s {
			return StringId(i), true
		}
	}
	return 0, false
}

// Add copies the string into the pool and returns its new id. Adding
// beyond MaxStringLiterals entries fails.
func (p *LiteralStringPool) Add(s string) (StringId, error) {
	if p.IsFull() {
		return 0, fmt.Errorf("Too many string literals in one chunk")
	}

	start := len(p.bytes)
	p.bytes = append(p.bytes, s...)
	p.spans = append(p.spans, stringSpan{start: start, end: len(p.bytes)})

	return StringId(len(p.spans) - 1), nil
}

// Get returns the contents stored under a literal id.
func (p *LiteralStringPool) Get(id StringId) string {
	span := p.spans[id]
	return string(p.bytes[span.start:span.end])
}

func (p *LiteralStringPool) Len() int {
	return len(p.spans)
}

func (p *LiteralStringPool) IsFull() bool {
	return len(p.spans) >= MaxStringLiterals
}
