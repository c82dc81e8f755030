package types

import (
	"fmt"
	"math"
)

// Address identifies a location inside one medium's address space.
// Addresses from different media must never be compared or mixed.
type Address uint64

// String formats the address as fixed-width hex.
func (a Address) String() string {
	return fmt.Sprintf("0x%08x", uint64(a))
}

// Region is a half-open span [Start, End) of addresses.
type Region struct {
	Start Address // First address in the region.
	End   Address // One past the last address in the region.
}

// NewRegion returns the region of length bytes starting at start.
// Returns an OutOfBounds error if the region would wrap past the largest
// representable address.
func NewRegion(start Address, length uint64) (Region, error) {
	if length > math.MaxUint64-uint64(start) {
		return Region{}, &AccessError{
			Op:     "region",
			Region: Region{Start: start, End: Address(math.MaxUint64)},
			Kind:   KindOutOfBounds,
		}
	}
	return Region{Start: start, End: start + Address(length)}, nil
}

// Span is NewRegion for callers that know the arithmetic cannot wrap,
// such as offsets computed inside an already validated region.
func Span(start Address, length uint64) Region {
	return Region{Start: start, End: start + Address(length)}
}

// Len returns the number of addresses in the region.
// An invalid region (Start > End) has length zero.
func (r Region) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return uint64(r.End - r.Start)
}

// IsEmpty reports whether the region holds no addresses.
func (r Region) IsEmpty() bool {
	return r.End <= r.Start
}

// Valid reports whether Start <= End.
func (r Region) Valid() bool {
	return r.Start <= r.End
}

// Contains reports whether a lies inside the region.
func (r Region) Contains(a Address) bool {
	return a >= r.Start && a < r.End
}

// Covers reports whether o lies fully inside r. Empty regions are covered
// by every valid region.
func (r Region) Covers(o Region) bool {
	if !r.Valid() || !o.Valid() {
		return false
	}
	if o.IsEmpty() {
		return true
	}
	return o.Start >= r.Start && o.End <= r.End
}

// Overlaps reports whether r and o share at least one address.
func (r Region) Overlaps(o Region) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Start < o.End && o.Start < r.End
}

// Intersect returns the addresses common to r and o.
// The boolean is false when the regions do not overlap.
func (r Region) Intersect(o Region) (Region, bool) {
	if !r.Overlaps(o) {
		return Region{}, false
	}
	out := Region{Start: max(r.Start, o.Start), End: min(r.End, o.End)}
	return out, true
}

// AlignedTo reports whether both the start and the length of the region are
// multiples of n. Every region is aligned to 0 and 1.
func (r Region) AlignedTo(n uint64) bool {
	if n <= 1 {
		return true
	}
	return uint64(r.Start)%n == 0 && r.Len()%n == 0
}

// Chunks splits the region into consecutive pieces of at most size
// addresses. The last chunk may be shorter. A zero size yields the whole
// region as a single chunk; an empty region yields no chunks.
func (r Region) Chunks(size uint64) []Region {
	if r.IsEmpty() {
		return nil
	}
	if size == 0 || size >= r.Len() {
		return []Region{r}
	}
	chunks := make([]Region, 0, (r.Len()+size-1)/size)
	for start := r.Start; start < r.End; {
		end := r.End
		if uint64(r.End-start) > size {
			end = start + Address(size)
		}
		chunks = append(chunks, Region{Start: start, End: end})
		start = end
	}
	return chunks
}

// Offset returns the distance of a from the start of the region.
func (r Region) Offset(a Address) uint64 {
	return uint64(a - r.Start)
}

// String formats the region as [start, end).
func (r Region) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}
