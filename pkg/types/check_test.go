package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMedium is a geometry-only medium for validation tests.
type fakeMedium struct {
	bounds    Region
	word      uint64
	erase     uint64
	unaligned bool
}

func (f fakeMedium) Bounds() Region        { return f.bounds }
func (f fakeMedium) WordSize() uint64      { return f.word }
func (f fakeMedium) Erase(Region) error    { return nil }
func (f fakeMedium) EraseSize() uint64     { return f.erase }
func (f fakeMedium) EraseValue() byte      { return 0xFF }
func (f fakeMedium) AllowsUnaligned() bool { return f.unaligned }

func TestCheckAccess(t *testing.T) {
	word4 := fakeMedium{bounds: Region{Start: 0x1000, End: 0x1100}, word: 4, erase: 64}

	tests := []struct {
		name     string
		m        Medium
		addr     Address
		n        int
		wantKind Kind
	}{
		{"aligned in bounds", word4, 0x1000, 8, 0},
		{"exact end", word4, 0x10fc, 4, 0},
		{"below base", word4, 0x0ffc, 4, KindOutOfBounds},
		{"past end", word4, 0x10fc, 8, KindOutOfBounds},
		{"misaligned start", word4, 0x1002, 4, KindMisaligned},
		{"partial word length", word4, 0x1000, 6, KindMisaligned},
		{"out of bounds wins over misaligned", word4, 0x2001, 3, KindOutOfBounds},
		{"zero length is a no-op anywhere", word4, 0x9999, 0, 0},
		{"wrapping transfer", word4, Address(math.MaxUint64 - 1), 4, KindOutOfBounds},
		{"unaligned medium accepts odd address", fakeMedium{bounds: Region{End: 64}, word: 4, unaligned: true}, 3, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckAccess(OpRead, tt.m, tt.addr, tt.n)
			if tt.wantKind == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestCheckAccessReturnsRegion(t *testing.T) {
	m := fakeMedium{bounds: Region{End: 256}, word: 1}
	r, err := CheckAccess(OpWrite, m, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, Region{Start: 10, End: 16}, r)
}

func TestCheckErase(t *testing.T) {
	m := fakeMedium{bounds: Region{End: 256}, word: 4, erase: 16}

	assert.NoError(t, CheckErase(m, Region{Start: 0, End: 16}))
	assert.NoError(t, CheckErase(m, Region{Start: 32, End: 64}))
	assert.NoError(t, CheckErase(m, Region{Start: 7, End: 7}))

	err := CheckErase(m, Region{Start: 4, End: 20})
	assert.ErrorIs(t, err, ErrMisaligned, "word-aligned but not erase-aligned")

	err = CheckErase(m, Region{Start: 0, End: 8})
	assert.ErrorIs(t, err, ErrMisaligned)

	err = CheckErase(m, Region{Start: 240, End: 272})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	err = CheckErase(m, Region{Start: 32, End: 16})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
