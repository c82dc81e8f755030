// Package mediumtest is a conformance suite for medium implementations.
// It checks the behavior every Readable/Writable/Erasable medium must share:
// round trips, bounds and alignment rejection without mutation, erase
// effect, and erase-before-write enforcement.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    mediumtest.Run(t, func(t *testing.T) types.ReadWriteEraser {
//	        return mymedium.New(...)
//	    })
//	}
package mediumtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mediums/pkg/types"
)

// Factory returns a fresh medium for one subtest. The suite assumes the
// medium's bounds start on an erase boundary.
type Factory func(t *testing.T) types.ReadWriteEraser

// Run executes the suite against media built by newMedium.
func Run(t *testing.T, newMedium Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newMedium(t)) })
	t.Run("BoundsRejection", func(t *testing.T) { testBoundsRejection(t, newMedium(t)) })
	t.Run("AlignmentRejection", func(t *testing.T) { testAlignmentRejection(t, newMedium(t)) })
	t.Run("EraseEffect", func(t *testing.T) { testEraseEffect(t, newMedium(t)) })
	t.Run("WriteWithoutErase", func(t *testing.T) { testWriteWithoutErase(t, newMedium(t)) })
	t.Run("ZeroLength", func(t *testing.T) { testZeroLength(t, newMedium(t)) })
	t.Run("FailedReadLeavesBuffer", func(t *testing.T) { testFailedReadLeavesBuffer(t, newMedium(t)) })
}

// Snapshot reads the whole medium.
func Snapshot(t *testing.T, m types.Readable) []byte {
	t.Helper()
	b := m.Bounds()
	out := make([]byte, b.Len())
	require.NoError(t, m.Read(b.Start, out))
	return out
}

// Pattern returns n bytes that differ from any erase value and from their
// neighbors.
func Pattern(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7) + seed + 1
		if p[i] == 0x00 || p[i] == 0xFF {
			p[i] = 0x5A
		}
	}
	return p
}

// eraseUnit is the smallest region the suite erases before writing.
func eraseUnit(m types.ReadWriteEraser) uint64 {
	if es := m.EraseSize(); es > 0 {
		return es
	}
	return m.WordSize()
}

func testRoundTrip(t *testing.T, m types.ReadWriteEraser) {
	b := m.Bounds()
	unit := eraseUnit(m)
	ws := m.WordSize()

	starts := []types.Address{b.Start, b.Start + types.Address(b.Len()/2/unit*unit), b.End - types.Address(unit)}
	for i, start := range starts {
		region := types.Span(start, unit)
		require.NoError(t, m.Erase(region), "erase %s", region)

		data := Pattern(int(min(unit, 4*ws)), byte(i))
		require.NoError(t, m.Write(start, data))

		got := make([]byte, len(data))
		require.NoError(t, m.Read(start, got))
		assert.Equal(t, data, got, "round trip at %s", start)
	}
}

func testBoundsRejection(t *testing.T, m types.ReadWriteEraser) {
	b := m.Bounds()
	ws := m.WordSize()
	unit := eraseUnit(m)
	before := Snapshot(t, m)

	err := m.Read(b.End-types.Address(ws), make([]byte, 2*ws))
	assert.ErrorIs(t, err, types.ErrOutOfBounds, "read past end")

	err = m.Write(b.End, make([]byte, ws))
	assert.ErrorIs(t, err, types.ErrOutOfBounds, "write at end")

	err = m.Write(b.End-types.Address(ws), Pattern(int(2*ws), 3))
	assert.ErrorIs(t, err, types.ErrOutOfBounds, "write straddling end")

	err = m.Erase(types.Span(b.End, unit))
	assert.ErrorIs(t, err, types.ErrOutOfBounds, "erase past end")

	if b.Start >= types.Address(unit) {
		err = m.Read(b.Start-types.Address(ws), make([]byte, ws))
		assert.ErrorIs(t, err, types.ErrOutOfBounds, "read below start")

		err = m.Erase(types.Span(b.Start-types.Address(unit), unit))
		assert.ErrorIs(t, err, types.ErrOutOfBounds, "erase below start")
	}

	assert.True(t, bytes.Equal(before, Snapshot(t, m)), "rejected operations must not mutate the medium")
}

func testAlignmentRejection(t *testing.T, m types.ReadWriteEraser) {
	b := m.Bounds()
	ws := m.WordSize()
	es := m.EraseSize()
	before := Snapshot(t, m)

	if ws > 1 && types.CapabilitiesOf(m)&types.CapUnaligned == 0 {
		err := m.Read(b.Start+1, make([]byte, ws))
		assert.ErrorIs(t, err, types.ErrMisaligned, "read at odd address")

		err = m.Write(b.Start+1, Pattern(int(ws), 1))
		assert.ErrorIs(t, err, types.ErrMisaligned, "write at odd address")

		err = m.Write(b.Start, Pattern(int(ws)+1, 1))
		assert.ErrorIs(t, err, types.ErrMisaligned, "write of partial word")
	}

	if es > 1 {
		err := m.Erase(types.Span(b.Start+1, es))
		assert.ErrorIs(t, err, types.ErrMisaligned, "erase at unaligned start")
	}
	if es > ws {
		err := m.Erase(types.Span(b.Start, ws))
		assert.ErrorIs(t, err, types.ErrMisaligned, "erase smaller than erase unit")
	}

	assert.True(t, bytes.Equal(before, Snapshot(t, m)), "rejected operations must not mutate the medium")
}

func testEraseEffect(t *testing.T, m types.ReadWriteEraser) {
	b := m.Bounds()
	unit := eraseUnit(m)
	region := types.Span(b.Start, 2*unit)
	if region.Len() > b.Len() {
		region = types.Span(b.Start, unit)
	}

	require.NoError(t, m.Erase(region))
	require.NoError(t, m.Write(region.Start, Pattern(int(m.WordSize()), 9)))
	require.NoError(t, m.Erase(region))

	got := make([]byte, region.Len())
	require.NoError(t, m.Read(region.Start, got))
	assert.Equal(t, bytes.Repeat([]byte{m.EraseValue()}, int(region.Len())), got)
}

func testWriteWithoutErase(t *testing.T, m types.ReadWriteEraser) {
	if types.CapabilitiesOf(m)&types.CapEraseBeforeWrite == 0 {
		// Media without the rule accept overwrites.
		start := m.Bounds().Start
		first := Pattern(int(m.WordSize()), 1)
		second := Pattern(int(m.WordSize()), 2)
		require.NoError(t, m.Write(start, first))
		require.NoError(t, m.Write(start, second))
		got := make([]byte, len(second))
		require.NoError(t, m.Read(start, got))
		assert.Equal(t, second, got)
		return
	}

	start := m.Bounds().Start
	require.NoError(t, m.Erase(types.Span(start, eraseUnit(m))))

	first := Pattern(int(m.WordSize()), 1)
	require.NoError(t, m.Write(start, first))

	err := m.Write(start, Pattern(int(m.WordSize()), 2))
	require.ErrorIs(t, err, types.ErrNotErased)

	got := make([]byte, len(first))
	require.NoError(t, m.Read(start, got))
	assert.Equal(t, first, got, "rejected write must not change content")

	require.NoError(t, m.Erase(types.Span(start, eraseUnit(m))))
	assert.NoError(t, m.Write(start, Pattern(int(m.WordSize()), 2)), "write after re-erase")
}

func testZeroLength(t *testing.T, m types.ReadWriteEraser) {
	b := m.Bounds()
	before := Snapshot(t, m)
	assert.NoError(t, m.Read(b.Start, nil))
	assert.NoError(t, m.Write(b.End, nil))
	assert.NoError(t, m.Erase(types.Region{Start: b.Start + 1, End: b.Start + 1}))
	assert.True(t, bytes.Equal(before, Snapshot(t, m)))
}

func testFailedReadLeavesBuffer(t *testing.T, m types.ReadWriteEraser) {
	b := m.Bounds()
	ws := m.WordSize()
	buf := bytes.Repeat([]byte{0xA5}, int(2*ws))
	err := m.Read(b.End-types.Address(ws), buf)
	require.Error(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xA5}, int(2*ws)), buf)
}
