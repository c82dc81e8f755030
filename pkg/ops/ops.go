// Package ops implements generic algorithms over the medium capability
// interfaces: sized reads, typed word transfers, chunked copies, program
// and update sequences for erase-before-write media, verification, blank
// checks, sector access and content digests.
//
// Every helper validates its whole request once, before the first transfer,
// and then moves whole-word chunks.
package ops

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// DefaultChunk is the transfer size used when a caller passes 0.
const DefaultChunk = 4096

// Operation names for errors raised by this package.
const (
	opCopy    = "copy"
	opProgram = "program"
	opUpdate  = "update"
	opVerify  = "verify"
)

// ErrVerifyMismatch is returned by Verify when the medium differs from the
// expected bytes.
var ErrVerifyMismatch = errors.New("verify mismatch")

// ReadN reads n bytes starting at addr. The request is checked against the
// medium before the result buffer is allocated, so an oversized or negative
// n is an OutOfBounds error.
func ReadN(m types.Readable, addr types.Address, n int) ([]byte, error) {
	if _, err := types.CheckAccess(types.OpRead, m, addr, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := m.Read(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Copy moves n bytes from src at srcAddr to dst at dstAddr in chunks of at
// most chunk bytes (DefaultChunk when 0). Both sides are validated before
// anything is read. When dstAddr > srcAddr chunks are moved from the end
// backwards, so overlapping copies inside one medium behave like memmove.
func Copy(dst types.Writable, dstAddr types.Address, src types.Readable, srcAddr types.Address, n, chunk uint64) error {
	srcRegion, err := types.CheckAccess(opCopy, src, srcAddr, int(n))
	if err != nil {
		return err
	}
	if _, err := types.CheckAccess(opCopy, dst, dstAddr, int(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	size := chunkSize(max(transferUnit(src), transferUnit(dst)), chunk)
	chunks := srcRegion.Chunks(size)
	if dstAddr > srcAddr {
		for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
			chunks[i], chunks[j] = chunks[j], chunks[i]
		}
	}

	buf := make([]byte, size)
	for _, c := range chunks {
		p := buf[:c.Len()]
		if err := src.Read(c.Start, p); err != nil {
			return err
		}
		to := dstAddr + types.Address(srcRegion.Offset(c.Start))
		if err := dst.Write(to, p); err != nil {
			return err
		}
	}
	return nil
}

// Program erases the region data will occupy and writes data into it. The
// region must be aligned to the medium's erase size.
func Program(m types.ReadWriteEraser, addr types.Address, data []byte) error {
	r, err := types.CheckAccess(opProgram, m, addr, len(data))
	if err != nil || r.IsEmpty() {
		return err
	}
	if !r.AlignedTo(m.EraseSize()) {
		return types.Misaligned(opProgram, r)
	}
	if err := m.Erase(r); err != nil {
		return err
	}
	return m.Write(addr, data)
}

// Update writes data at addr on a medium of any erase granularity by
// reading the erase units it touches, patching them in memory, erasing them
// and writing them back. The bytes around data inside those units are
// preserved. Update is not atomic: a fault after the erase loses the
// units' old content.
func Update(m types.ReadWriteEraser, addr types.Address, data []byte) error {
	r, err := types.CheckAccess(opUpdate, m, addr, len(data))
	if err != nil || r.IsEmpty() {
		return err
	}
	cover := alignOut(r, m.EraseSize(), m.Bounds().Start)
	if !m.Bounds().Covers(cover) {
		return types.OutOfBounds(opUpdate, cover)
	}

	buf := make([]byte, cover.Len())
	if err := m.Read(cover.Start, buf); err != nil {
		return err
	}
	copy(buf[cover.Offset(addr):], data)
	if err := m.Erase(cover); err != nil {
		return err
	}
	return m.Write(cover.Start, buf)
}

// Verify compares the medium content at addr with want.
// Returns an error wrapping ErrVerifyMismatch that names the first
// differing address.
func Verify(m types.Readable, addr types.Address, want []byte) error {
	r, err := types.CheckAccess(opVerify, m, addr, len(want))
	if err != nil || r.IsEmpty() {
		return err
	}
	size := chunkSize(transferUnit(m), 0)
	buf := make([]byte, size)
	for _, c := range r.Chunks(size) {
		got := buf[:c.Len()]
		if err := m.Read(c.Start, got); err != nil {
			return err
		}
		exp := want[r.Offset(c.Start):][:c.Len()]
		for i := range got {
			if got[i] != exp[i] {
				at := c.Start + types.Address(i)
				return fmt.Errorf("%w at %s: got %#02x, want %#02x", ErrVerifyMismatch, at, got[i], exp[i])
			}
		}
	}
	return nil
}

// IsErased reports whether every byte of r reads as the erase value.
func IsErased(m types.ReadEraser, r types.Region) (bool, error) {
	if !r.Valid() {
		return false, types.OutOfBounds(types.OpRead, r)
	}
	if _, err := types.CheckAccess(types.OpRead, m, r.Start, int(r.Len())); err != nil {
		return false, err
	}
	ev := m.EraseValue()
	size := chunkSize(transferUnit(m), 0)
	buf := make([]byte, size)
	for _, c := range r.Chunks(size) {
		p := buf[:c.Len()]
		if err := m.Read(c.Start, p); err != nil {
			return false, err
		}
		for _, b := range p {
			if b != ev {
				return false, nil
			}
		}
	}
	return true, nil
}

// EraseAll erases the whole medium.
func EraseAll(m types.Erasable) error {
	return m.Erase(m.Bounds())
}

// transferUnit is the smallest chunk that keeps every transfer aligned.
func transferUnit(m types.Medium) uint64 {
	if types.CapabilitiesOf(m).Has(types.CapUnaligned) {
		return 1
	}
	return m.WordSize()
}

// chunkSize rounds want (DefaultChunk when 0) down to a multiple of unit,
// never below one unit.
func chunkSize(unit, want uint64) uint64 {
	if unit == 0 {
		unit = 1
	}
	if want == 0 {
		want = DefaultChunk
	}
	if want < unit {
		return unit
	}
	return want / unit * unit
}

// alignOut widens r to whole units of size counted from base.
func alignOut(r types.Region, size uint64, base types.Address) types.Region {
	if size <= 1 {
		return r
	}
	startOff := uint64(r.Start-base) / size * size
	endOff := (uint64(r.End-base) + size - 1) / size * size
	return types.Region{Start: base + types.Address(startOff), End: base + types.Address(endOff)}
}
