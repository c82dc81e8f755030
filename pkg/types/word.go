package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// Geometry describes the transfer and erase units of a medium.
type Geometry struct {
	WordSize   uint64 // Bytes per transfer unit; a power of two, at least 1.
	EraseSize  uint64 // Erase granularity in bytes; 0 when the medium cannot erase.
	EraseValue byte   // Value every byte reads back as after an erase.
	Unaligned  bool   // Transfers may start and end off word boundaries.
}

// Geometry validation errors.
var (
	ErrWordSizeInvalid  = errors.New("word size must be a power of two")
	ErrEraseSizeInvalid = errors.New("erase size must be a multiple of the word size")
	ErrSizeInvalid      = errors.New("medium size must be a positive multiple of the erase size")
	ErrPartialWord      = errors.New("byte count is not a whole number of words")
)

// Validate checks that the geometry is internally consistent.
func (g Geometry) Validate() error {
	if g.WordSize == 0 || bits.OnesCount64(g.WordSize) != 1 {
		return fmt.Errorf("%w: %d", ErrWordSizeInvalid, g.WordSize)
	}
	if g.EraseSize != 0 && g.EraseSize%g.WordSize != 0 {
		return fmt.Errorf("%w: erase size %d, word size %d", ErrEraseSizeInvalid, g.EraseSize, g.WordSize)
	}
	return nil
}

// ValidateSize checks that size bytes is a usable capacity for the geometry:
// positive and made of whole erase units (or whole words when the medium
// cannot erase).
func (g Geometry) ValidateSize(size uint64) error {
	unit := g.EraseSize
	if unit == 0 {
		unit = g.WordSize
	}
	if size == 0 || unit == 0 || size%unit != 0 {
		return fmt.Errorf("%w: size %d, unit %d", ErrSizeInvalid, size, unit)
	}
	return nil
}

// GeometryOf reads the geometry a medium advertises through its
// capability interfaces.
func GeometryOf(m Medium) Geometry {
	g := Geometry{WordSize: m.WordSize()}
	if e, ok := m.(Erasable); ok {
		g.EraseSize = e.EraseSize()
		g.EraseValue = e.EraseValue()
	}
	g.Unaligned = allowsUnaligned(m)
	return g
}

// Word is the set of fixed-size unsigned integers a medium can transfer as
// typed words.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// SizeOf returns the number of bytes in one W.
func SizeOf[W Word]() int {
	var w W
	switch any(w).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	}
	// Named types fall through to a width probe.
	w = ^W(0)
	n := 0
	for w != 0 {
		w >>= 8
		n++
	}
	return n
}

// EncodeWords converts words to their little-endian byte form.
func EncodeWords[W Word](words []W) []byte {
	size := SizeOf[W]()
	out := make([]byte, len(words)*size)
	for i, w := range words {
		putWord(out[i*size:], uint64(w), size)
	}
	return out
}

// DecodeWords converts little-endian bytes back to words. Returns
// ErrPartialWord if len(b) is not a multiple of the word width.
func DecodeWords[W Word](b []byte) ([]W, error) {
	size := SizeOf[W]()
	if len(b)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes, %d-byte words", ErrPartialWord, len(b), size)
	}
	out := make([]W, len(b)/size)
	for i := range out {
		out[i] = W(getWord(b[i*size:], size))
	}
	return out, nil
}

func putWord(b []byte, v uint64, size int) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func getWord(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}
