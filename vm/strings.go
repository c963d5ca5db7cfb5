package vm

import "glox/compiler"

// DynamicStringPool stores strings created at runtime, which for this
// language means concatenation results. Ids start where the literal id
// space ends and grow monotonically; there is no deduplication. Entries
// live until the VM is torn down.
type DynamicStringPool struct {
	bytes  []byte
	spans  map[uint64]stringSpan
	nextId uint64
}

type stringSpan struct {
	start int
	end   int
}

func NewDynamicStringPool() DynamicStringPool {
	return DynamicStringPool{
		spans:  make(map[uint64]stringSpan),
		nextId: compiler.MaxStringLiterals,
	}
}

// Add copies the string into the pool and returns its dynamic id.
func (p *DynamicStringPool) Add(s string) compiler.StringId {
	start := len(p.bytes)
	p.bytes = append(p.bytes, s...)

	id := p.nextId
	p.spans[id] = stringSpan{start: start, end: len(p.bytes)}
	p.nextId++

	return compiler.NewDynamicId(id)
}

// Get returns the contents stored under a dynamic id.
func (p *DynamicStringPool) Get(id compiler.StringId) string {
	span := p.spans[uint64(id)]
	return string(p.bytes[span.start:span.end])
}

// Len returns the number of stored strings.
func (p *DynamicStringPool) Len() int {
	return len(p.spans)
}
