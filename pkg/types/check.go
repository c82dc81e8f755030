package types

import "math"

// Operation names used in AccessError.Op.
const (
	OpRead  = "read"
	OpWrite = "write"
	OpErase = "erase"
)

// CheckRegion validates r against the bounds of m. It has no side effects.
// Empty regions always pass.
func CheckRegion(op string, m Bounded, r Region) error {
	if !r.Valid() {
		return OutOfBounds(op, r)
	}
	if r.IsEmpty() {
		return nil
	}
	if !m.Bounds().Covers(r) {
		return OutOfBounds(op, r)
	}
	return nil
}

// CheckAccess validates a transfer of n bytes at addr on m and returns the
// region it covers. Bounds are checked before alignment. Start and length
// must be multiples of the word size unless m allows unaligned access.
// Implementations call it once per operation; chunked loops after it may
// assume aligned, in-bounds addresses.
func CheckAccess(op string, m Medium, addr Address, n int) (Region, error) {
	r, err := NewRegion(addr, uint64(n))
	if err != nil {
		return r, OutOfBounds(op, Region{Start: addr, End: Address(math.MaxUint64)})
	}
	if err := CheckRegion(op, m, r); err != nil {
		return r, err
	}
	if r.IsEmpty() || allowsUnaligned(m) {
		return r, nil
	}
	if !r.AlignedTo(m.WordSize()) {
		return r, Misaligned(op, r)
	}
	return r, nil
}

// CheckErase validates an erase of r on m: bounds first, then alignment to
// the erase granularity.
func CheckErase(m Erasable, r Region) error {
	if err := CheckRegion(OpErase, m, r); err != nil {
		return err
	}
	if r.IsEmpty() {
		return nil
	}
	if !r.AlignedTo(m.EraseSize()) {
		return Misaligned(OpErase, r)
	}
	return nil
}
