// Package ram adapts plain byte slices to the medium capability interfaces,
// so RAM-backed code and tests run through the same generic paths as
// hardware media.
package ram

import "github.com/mesh-intelligence/mediums/pkg/types"

// Buffer is a byte slice viewed as a medium. Word size is 1, any address is
// aligned, and erase writes zeros with no erase-before-write rule.
//
// Buffer does no locking; callers own it exclusively for each operation.
type Buffer struct {
	base types.Address
	data []byte
}

var (
	_ types.ReadWriteEraser = (*Buffer)(nil)
	_ types.Unaligned       = (*Buffer)(nil)
)

// New wraps buf as a medium addressed from 0. The buffer is not copied.
func New(buf []byte) *Buffer {
	return &Buffer{data: buf}
}

// MaxSize is the largest buffer a configured ram medium may allocate.
const MaxSize = 1 << 32

// NewSize allocates a zeroed n-byte medium.
func NewSize(n int) *Buffer {
	return New(make([]byte, n))
}

// NewAt wraps buf as a medium whose first byte lives at base, the way a
// memory-mapped window sits inside a larger address map.
func NewAt(base types.Address, buf []byte) *Buffer {
	return &Buffer{base: base, data: buf}
}

// Bytes returns the backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Bounds returns [base, base+len(buf)).
func (b *Buffer) Bounds() types.Region {
	return types.Span(b.base, uint64(len(b.data)))
}

// WordSize is always 1.
func (b *Buffer) WordSize() uint64 { return 1 }

// AllowsUnaligned is always true.
func (b *Buffer) AllowsUnaligned() bool { return true }

// EraseSize is always 1.
func (b *Buffer) EraseSize() uint64 { return 1 }

// EraseValue is always 0.
func (b *Buffer) EraseValue() byte { return 0 }

// Read copies len(p) bytes starting at addr into p.
func (b *Buffer) Read(addr types.Address, p []byte) error {
	r, err := types.CheckAccess(types.OpRead, b, addr, len(p))
	if err != nil || r.IsEmpty() {
		return err
	}
	copy(p, b.data[b.offset(addr):])
	return nil
}

// Write copies data into the buffer starting at addr.
func (b *Buffer) Write(addr types.Address, data []byte) error {
	r, err := types.CheckAccess(types.OpWrite, b, addr, len(data))
	if err != nil || r.IsEmpty() {
		return err
	}
	copy(b.data[b.offset(addr):], data)
	return nil
}

// Erase zeroes r.
func (b *Buffer) Erase(r types.Region) error {
	if err := types.CheckErase(b, r); err != nil || r.IsEmpty() {
		return err
	}
	start := b.offset(r.Start)
	clear(b.data[start : start+r.Len()])
	return nil
}

func (b *Buffer) offset(addr types.Address) uint64 {
	return uint64(addr - b.base)
}
